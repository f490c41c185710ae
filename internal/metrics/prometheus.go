// Package metrics publishes the outcome of a slotwatch run as Prometheus
// gauges, either to a node_exporter textfile or to a Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/Marketen/slotwatch/internal/application/domain"
)

const (
	namespace = "slotwatch"
	jobName   = "slotwatch"
)

// Sink holds the gauges of one run on a private registry.
type Sink struct {
	registry *prometheus.Registry

	textfile string
	pushURL  string

	scheduleSlots    *prometheus.GaugeVec
	participantSlots *prometheus.GaugeVec
	participants     *prometheus.GaugeVec
	participantShare *prometheus.GaugeVec
	currentSlot      *prometheus.GaugeVec
	nextSlot         *prometheus.GaugeVec
	secondsToNext    *prometheus.GaugeVec
	nextFound        *prometheus.GaugeVec
	lastRun          *prometheus.GaugeVec

	now func() time.Time
}

// New returns a sink writing to textfile and/or pushing to pushURL. Either may
// be empty; with both empty Record only updates the registry.
func New(textfile, pushURL string) *Sink {
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, []string{"chain"})
	}
	s := &Sink{
		registry:         prometheus.NewRegistry(),
		textfile:         textfile,
		pushURL:          pushURL,
		scheduleSlots:    gauge("schedule_slots", "Slots in the loaded epoch schedule."),
		participantSlots: gauge("participant_slots", "Schedule slots led by program participants."),
		participants:     gauge("participants", "Identities in the participant set."),
		participantShare: gauge("participant_share", "Fraction of schedule slots led by participants."),
		currentSlot:      gauge("current_slot", "Current chain slot at run time."),
		nextSlot:         gauge("next_participant_slot", "Nearest actionable participant slot."),
		secondsToNext:    gauge("seconds_to_next_participant_slot", "Estimated seconds until the nearest actionable participant slot."),
		nextFound:        gauge("next_participant_slot_found", "1 when an actionable participant slot exists, 0 otherwise."),
		lastRun:          gauge("last_run_timestamp_seconds", "Unix time of the last completed run."),
		now:              time.Now,
	}
	s.registry.MustRegister(
		s.scheduleSlots, s.participantSlots, s.participants, s.participantShare,
		s.currentSlot, s.nextSlot, s.secondsToNext, s.nextFound, s.lastRun,
	)
	return s
}

// Registry exposes the sink's registry.
func (s *Sink) Registry() *prometheus.Registry { return s.registry }

func (s *Sink) Record(ctx context.Context, report *domain.Report) error {
	chain := report.Chain
	s.scheduleSlots.WithLabelValues(chain).Set(float64(report.TotalSlots))
	s.participantSlots.WithLabelValues(chain).Set(float64(report.ParticipantSlots))
	s.participants.WithLabelValues(chain).Set(float64(report.Participants))
	s.participantShare.WithLabelValues(chain).Set(report.ParticipantShare())
	s.currentSlot.WithLabelValues(chain).Set(float64(report.CurrentSlot))
	if report.Next != nil {
		s.nextFound.WithLabelValues(chain).Set(1)
		s.nextSlot.WithLabelValues(chain).Set(float64(report.Next.Slot))
		s.secondsToNext.WithLabelValues(chain).Set(report.Next.TimeLeft.Seconds())
	} else {
		s.nextFound.WithLabelValues(chain).Set(0)
		s.nextSlot.DeleteLabelValues(chain)
		s.secondsToNext.DeleteLabelValues(chain)
	}
	s.lastRun.WithLabelValues(chain).Set(float64(s.now().Unix()))

	if s.textfile != "" {
		if err := prometheus.WriteToTextfile(s.textfile, s.registry); err != nil {
			return fmt.Errorf("write metrics textfile %s: %w", s.textfile, err)
		}
	}
	if s.pushURL != "" {
		pusher := push.New(s.pushURL, jobName).Gatherer(s.registry)
		if err := pusher.PushContext(ctx); err != nil {
			return fmt.Errorf("push metrics to %s: %w", s.pushURL, err)
		}
	}
	return nil
}
