package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/logrusorgru/aurora"
	"github.com/olekukonko/tablewriter"

	"github.com/Marketen/slotwatch/internal/application/domain"
)

// Rows returns the summary as label/value pairs.
func Rows(r *domain.Report) [][]string {
	rows := [][]string{
		{"run id", r.RunID},
		{"chain", r.Chain},
		{"slots in current epoch", humanize.Comma(int64(r.TotalSlots))},
		{"slots assigned to participants", fmt.Sprintf("%s (%.2f%%)", humanize.Comma(int64(r.ParticipantSlots)), 100*r.ParticipantShare())},
		{"participants", humanize.Comma(int64(r.Participants))},
		{"current slot", fmt.Sprintf("%d", r.CurrentSlot)},
	}

	if r.Next == nil {
		rows = append(rows, []string{"closest participant slot", "none found (" + notFoundReason(r.NextErr) + ")"})
	} else {
		secs := r.Next.TimeLeft.Seconds()
		rows = append(rows,
			[]string{"closest participant slot", fmt.Sprintf("%d", r.Next.Slot)},
			[]string{"closest participant identity", string(r.Next.Identity)},
			[]string{"slots away", humanize.Comma(int64(r.Next.SlotsAway))},
			[]string{"approx. time to slot", fmt.Sprintf("%.2f sec or %.2f min", secs, secs/60)},
		)
	}
	if r.OutputPath != "" {
		rows = append(rows, []string{"chart", r.OutputPath})
	}
	return rows
}

func notFoundReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoParticipantSlots):
		return "no participant leads a slot this epoch"
	case errors.Is(err, domain.ErrNoFutureSlot):
		return "no participant slot beyond the lead time"
	case err != nil:
		return err.Error()
	default:
		return "unknown"
	}
}

// Print renders the summary table to w. Colors are used only when color is set.
func Print(w io.Writer, r *domain.Report, color bool) {
	rows := Rows(r)
	if color {
		for _, row := range rows {
			if r.Next == nil && row[0] == "closest participant slot" {
				row[1] = aurora.Red(row[1]).String()
			}
			if r.Next != nil && row[0] == "approx. time to slot" {
				row[1] = aurora.Cyan(row[1]).String()
			}
		}
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}
