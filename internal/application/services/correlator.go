package services

import (
	"math"
	"sort"
	"time"

	"github.com/Marketen/slotwatch/internal/application/domain"
)

// Defaults matching Solana mainnet.
const (
	DefaultLeadTimeSlots  = 150
	DefaultSecondsPerSlot = 0.4
	DefaultBucketCount    = 100
)

// Intersect returns the schedule entries led by a participant.
func Intersect(schedule domain.Schedule, participants domain.ParticipantSet) domain.ParticipantSlots {
	out := make(domain.ParticipantSlots)
	for slot, id := range schedule {
		if participants.Contains(id) {
			out[slot] = id
		}
	}
	return out
}

// NextParticipantSlot returns the smallest participant slot that is more than
// leadTime slots ahead of current. Slots at or behind current are ignored.
func NextParticipantSlot(pslots domain.ParticipantSlots, current domain.Slot, leadTime uint64, secondsPerSlot float64) (domain.NextSlot, error) {
	if len(pslots) == 0 {
		return domain.NextSlot{}, domain.ErrNoParticipantSlots
	}

	found := false
	var best domain.Slot
	for slot := range pslots {
		if slot <= current || uint64(slot-current) <= leadTime {
			continue
		}
		if !found || slot < best {
			best = slot
			found = true
		}
	}
	if !found {
		return domain.NextSlot{}, domain.ErrNoFutureSlot
	}

	return domain.NextSlot{
		Slot:      best,
		Identity:  pslots[best],
		SlotsAway: uint64(best - current),
		TimeLeft:  TimeToSlot(best, current, secondsPerSlot),
	}, nil
}

// TimeToSlot estimates the wall time until target. It is zero when target is
// not ahead of current.
func TimeToSlot(target, current domain.Slot, secondsPerSlot float64) time.Duration {
	if target <= current {
		return 0
	}
	secs := float64(target-current) * secondsPerSlot
	return time.Duration(math.Round(secs * float64(time.Second)))
}

// SortedSlots returns the schedule's slots in ascending order.
func SortedSlots(schedule domain.Schedule) []domain.Slot {
	slots := make([]domain.Slot, 0, len(schedule))
	for slot := range schedule {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots
}

// BucketSize is floor(total / bucketCount), or total when that rounds to zero.
func BucketSize(total, bucketCount int) int {
	if bucketCount <= 0 {
		bucketCount = 1
	}
	size := total / bucketCount
	if size == 0 {
		size = total
	}
	return size
}

// Concentration splits the sorted schedule into consecutive buckets and reports
// the participant share of each. The final bucket holds the remainder.
func Concentration(schedule domain.Schedule, pslots domain.ParticipantSlots, bucketCount int) ([]domain.ConcentrationPoint, error) {
	if len(schedule) == 0 {
		return nil, domain.ErrEmptySchedule
	}

	sorted := SortedSlots(schedule)
	size := BucketSize(len(sorted), bucketCount)
	half := size / 2

	points := make([]domain.ConcentrationPoint, 0, (len(sorted)+size-1)/size)
	counter, sum := 0, 0
	for i, slot := range sorted {
		counter++
		if _, ok := pslots[slot]; ok {
			sum++
		}
		if counter != size && i != len(sorted)-1 {
			continue
		}

		idx := i - half
		if idx < 0 {
			idx = 0
		}
		rep := domain.Slot(0)
		if uint64(slot) > uint64(half) {
			rep = slot - domain.Slot(half)
		}
		points = append(points, domain.ConcentrationPoint{
			BucketIndex:        idx,
			RepresentativeSlot: rep,
			Fraction:           float64(sum) / float64(counter),
			Size:               counter,
		})
		counter, sum = 0, 0
	}
	return points, nil
}

// ReferenceLine is the diagonal (x, x+minSlot) for x in [0, total).
func ReferenceLine(total int, minSlot domain.Slot) []domain.ReferencePoint {
	line := make([]domain.ReferencePoint, total)
	for x := 0; x < total; x++ {
		line[x] = domain.ReferencePoint{X: x, Y: minSlot + domain.Slot(x)}
	}
	return line
}

// CorrelateOptions tunes Correlate.
type CorrelateOptions struct {
	LeadTimeSlots  uint64
	SecondsPerSlot float64
	BucketCount    int
}

// Correlate builds a report from a schedule, a participant set and the
// current slot. A missing next slot is recorded on the report, not returned.
func Correlate(schedule domain.Schedule, participants domain.ParticipantSet, current domain.Slot, opts CorrelateOptions) (*domain.Report, error) {
	if len(schedule) == 0 {
		return nil, domain.ErrEmptySchedule
	}

	pslots := Intersect(schedule, participants)
	series, err := Concentration(schedule, pslots, opts.BucketCount)
	if err != nil {
		return nil, err
	}

	sorted := SortedSlots(schedule)
	report := &domain.Report{
		TotalSlots:       len(schedule),
		ParticipantSlots: len(pslots),
		Participants:     participants.Len(),
		MinSlot:          sorted[0],
		MaxSlot:          sorted[len(sorted)-1],
		CurrentSlot:      current,
		Concentration:    series,
		Reference:        ReferenceLine(len(sorted), sorted[0]),
	}

	next, err := NextParticipantSlot(pslots, current, opts.LeadTimeSlots, opts.SecondsPerSlot)
	if err != nil {
		report.NextErr = err
	} else {
		report.Next = &next
	}
	return report, nil
}
