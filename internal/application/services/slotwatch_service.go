package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Marketen/slotwatch/internal/application/domain"
	"github.com/Marketen/slotwatch/internal/application/ports"
	"github.com/Marketen/slotwatch/internal/logger"
)

// Options configures a SlotWatcher run.
type Options struct {
	RunID      string
	Chain      string
	OutputPath string
	Correlate  CorrelateOptions
}

type SlotWatcher struct {
	Schedule     ports.ScheduleSource
	Participants ports.ParticipantSource
	Slots        ports.SlotSource
	Renderer     ports.Renderer
	Metrics      ports.MetricsSink

	Options Options
}

// NewSlotWatcher constructs a SlotWatcher with dependencies injected.
// renderer and metrics may be nil.
func NewSlotWatcher(
	schedule ports.ScheduleSource,
	participants ports.ParticipantSource,
	slots ports.SlotSource,
	renderer ports.Renderer,
	metrics ports.MetricsSink,
	opts Options,
) *SlotWatcher {
	return &SlotWatcher{
		Schedule:     schedule,
		Participants: participants,
		Slots:        slots,
		Renderer:     renderer,
		Metrics:      metrics,
		Options:      opts,
	}
}

// Run loads the schedule, the participant set and the current slot, in that
// order, then correlates them and hands the report to the renderer and the
// metrics sink. Any I/O failure is terminal.
func (w *SlotWatcher) Run(ctx context.Context) (*domain.Report, error) {
	logger.Info("Loading leader schedule")
	schedule, err := w.Schedule.LoadSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	if len(schedule) == 0 {
		return nil, fmt.Errorf("load schedule: %w", domain.ErrEmptySchedule)
	}
	logger.Info("Loaded %d scheduled slots", len(schedule))

	logger.Info("Fetching participant set")
	participants, err := w.Participants.LoadParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	if participants.Len() == 0 {
		logger.Warn("Participant set is empty")
	} else {
		logger.Info("Fetched %d participants", participants.Len())
	}

	logger.Info("Requesting current slot")
	current, err := w.Slots.CurrentSlot(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch current slot: %w", err)
	}
	logger.Debug("Current slot is %d", current)

	report, err := Correlate(schedule, participants, current, w.Options.Correlate)
	if err != nil {
		return nil, fmt.Errorf("correlate: %w", err)
	}
	report.RunID = w.Options.RunID
	report.Chain = w.Options.Chain
	report.OutputPath = w.Options.OutputPath

	switch {
	case report.Next != nil:
		logger.Info("✅ Next participant slot %d led by %s in %d slots",
			report.Next.Slot, report.Next.Identity, report.Next.SlotsAway)
	case errors.Is(report.NextErr, domain.ErrNoParticipantSlots):
		logger.Warn("❌ None of the %d scheduled slots is led by a participant", report.TotalSlots)
	default:
		logger.Warn("❌ No participant slot more than %d slots after current slot %d",
			w.Options.Correlate.LeadTimeSlots, current)
	}

	if w.Renderer != nil && w.Options.OutputPath != "" {
		if err := w.Renderer.Render(ctx, report); err != nil {
			return nil, fmt.Errorf("render %s: %w", w.Options.OutputPath, err)
		}
		logger.Info("Wrote chart to %s", w.Options.OutputPath)
	}

	if w.Metrics != nil {
		if err := w.Metrics.Record(ctx, report); err != nil {
			return nil, fmt.Errorf("record metrics: %w", err)
		}
	}
	return report, nil
}
