package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marketen/slotwatch/internal/application/domain"
)

type fakeSchedule struct {
	schedule domain.Schedule
	err      error
	calls    *[]string
}

func (f fakeSchedule) LoadSchedule(context.Context) (domain.Schedule, error) {
	*f.calls = append(*f.calls, "schedule")
	return f.schedule, f.err
}

type fakeParticipants struct {
	set   domain.ParticipantSet
	err   error
	calls *[]string
}

func (f fakeParticipants) LoadParticipants(context.Context) (domain.ParticipantSet, error) {
	*f.calls = append(*f.calls, "participants")
	return f.set, f.err
}

type fakeSlots struct {
	slot  domain.Slot
	err   error
	calls *[]string
}

func (f fakeSlots) CurrentSlot(context.Context) (domain.Slot, error) {
	*f.calls = append(*f.calls, "slot")
	return f.slot, f.err
}

type recordingSink struct {
	reports []*domain.Report
	err     error
}

func (r *recordingSink) Render(_ context.Context, report *domain.Report) error {
	r.reports = append(r.reports, report)
	return r.err
}

func (r *recordingSink) Record(_ context.Context, report *domain.Report) error {
	r.reports = append(r.reports, report)
	return r.err
}

func newTestWatcher(calls *[]string, schedule domain.Schedule, set domain.ParticipantSet, current domain.Slot) (*SlotWatcher, *recordingSink, *recordingSink) {
	renderer, metrics := &recordingSink{}, &recordingSink{}
	w := NewSlotWatcher(
		fakeSchedule{schedule: schedule, calls: calls},
		fakeParticipants{set: set, calls: calls},
		fakeSlots{slot: current, calls: calls},
		renderer,
		metrics,
		Options{
			RunID:      "run-1",
			Chain:      "solana",
			OutputPath: "bubble.png",
			Correlate:  CorrelateOptions{SecondsPerSlot: DefaultSecondsPerSlot, BucketCount: DefaultBucketCount},
		},
	)
	return w, renderer, metrics
}

func TestSlotWatcherRun(t *testing.T) {
	var calls []string
	w, renderer, metrics := newTestWatcher(&calls, exampleSchedule(), domain.NewParticipantSet("A"), 90)

	report, err := w.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"schedule", "participants", "slot"}, calls)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, "solana", report.Chain)
	assert.Equal(t, "bubble.png", report.OutputPath)
	require.NotNil(t, report.Next)
	assert.Equal(t, domain.Slot(100), report.Next.Slot)
	assert.Len(t, renderer.reports, 1)
	assert.Len(t, metrics.reports, 1)
}

func TestSlotWatcherEmptySchedule(t *testing.T) {
	var calls []string
	w, renderer, _ := newTestWatcher(&calls, domain.Schedule{}, domain.NewParticipantSet("A"), 90)

	_, err := w.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrEmptySchedule)
	assert.Equal(t, []string{"schedule"}, calls)
	assert.Empty(t, renderer.reports)
}

func TestSlotWatcherNoParticipantSlots(t *testing.T) {
	var calls []string
	w, renderer, _ := newTestWatcher(&calls, exampleSchedule(), domain.NewParticipantSet(), 90)

	report, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report.Next)
	assert.ErrorIs(t, report.NextErr, domain.ErrNoParticipantSlots)
	assert.Len(t, renderer.reports, 1)
}

func TestSlotWatcherSourceFailure(t *testing.T) {
	boom := errors.New("connection refused")
	var calls []string
	w, renderer, _ := newTestWatcher(&calls, exampleSchedule(), domain.NewParticipantSet("A"), 90)
	w.Slots = fakeSlots{err: boom, calls: &calls}

	_, err := w.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fetch current slot")
	assert.Empty(t, renderer.reports)
}

func TestSlotWatcherRenderFailure(t *testing.T) {
	var calls []string
	w, renderer, metrics := newTestWatcher(&calls, exampleSchedule(), domain.NewParticipantSet("A"), 90)
	renderer.err = errors.New("disk full")

	_, err := w.Run(context.Background())
	assert.Error(t, err)
	assert.Empty(t, metrics.reports)
}

func TestSlotWatcherWithoutOutputOrSinks(t *testing.T) {
	var calls []string
	w, _, _ := newTestWatcher(&calls, exampleSchedule(), domain.NewParticipantSet("A"), 90)
	w.Renderer = nil
	w.Metrics = nil

	report, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.ParticipantSlots)
}
