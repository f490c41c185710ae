package adapters

import (
	"context"
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/Marketen/slotwatch/internal/application/domain"
)

const (
	DefaultImageWidth  = 1600
	DefaultImageHeight = 800
	DefaultPointScale  = 500

	// at 72 DPI one vg point is one pixel
	renderDPI = 72
)

var (
	bubbleColor    = color.RGBA{R: 220, A: 255}
	referenceColor = color.RGBA{G: 160, A: 255}
)

// PlotRenderer draws the concentration series as bubbles sized by fraction,
// over a diagonal reference line, and writes a PNG.
type PlotRenderer struct {
	Path       string
	Width      int
	Height     int
	PointScale float64
}

func NewPlotRenderer(path string, width, height int, pointScale float64) *PlotRenderer {
	return &PlotRenderer{Path: path, Width: width, Height: height, PointScale: pointScale}
}

func (r *PlotRenderer) Render(_ context.Context, report *domain.Report) error {
	if len(report.Concentration) == 0 {
		return fmt.Errorf("nothing to render: %w", domain.ErrEmptySchedule)
	}

	p := plot.New()
	p.Title.Text = "Participant Slot Distribution"
	p.Title.TextStyle.Font.Size = vg.Points(30)
	p.X.Label.Text = "slot position in epoch"
	p.Y.Label.Text = "slot"
	p.X.Min = 0
	p.X.Max = float64(report.TotalSlots)
	p.Y.Min = float64(report.MinSlot)
	p.Y.Max = float64(report.MaxSlot)
	p.Add(plotter.NewGrid())

	bubbles := make(plotter.XYs, len(report.Concentration))
	for i, pt := range report.Concentration {
		bubbles[i].X = float64(pt.BucketIndex)
		bubbles[i].Y = float64(pt.RepresentativeSlot)
	}
	scatter, err := plotter.NewScatter(bubbles)
	if err != nil {
		return fmt.Errorf("build bubbles: %w", err)
	}
	scale := r.PointScale
	if scale <= 0 {
		scale = DefaultPointScale
	}
	scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		return draw.GlyphStyle{
			Color:  bubbleColor,
			Radius: vg.Length(report.Concentration[i].Fraction * scale),
			Shape:  draw.CircleGlyph{},
		}
	}

	reference := make(plotter.XYs, len(report.Reference))
	for i, pt := range report.Reference {
		reference[i].X = float64(pt.X)
		reference[i].Y = float64(pt.Y)
	}
	line, err := plotter.NewLine(reference)
	if err != nil {
		return fmt.Errorf("build reference line: %w", err)
	}
	line.LineStyle.Color = referenceColor
	line.LineStyle.Width = vg.Points(2)

	p.Add(scatter, line)

	width, height := r.Width, r.Height
	if width <= 0 {
		width = DefaultImageWidth
	}
	if height <= 0 {
		height = DefaultImageHeight
	}
	canvas := vgimg.NewWith(
		vgimg.UseWH(vg.Length(width), vg.Length(height)),
		vgimg.UseDPI(renderDPI),
		vgimg.UseBackgroundColor(color.White),
	)
	p.Draw(draw.New(canvas))

	f, err := os.Create(r.Path)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}
