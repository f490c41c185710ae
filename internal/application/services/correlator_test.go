package services

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marketen/slotwatch/internal/application/domain"
)

func exampleSchedule() domain.Schedule {
	return domain.Schedule{100: "A", 101: "B", 102: "A", 103: "C"}
}

func TestIntersect(t *testing.T) {
	got := Intersect(exampleSchedule(), domain.NewParticipantSet("A"))
	assert.Equal(t, domain.ParticipantSlots{100: "A", 102: "A"}, got)
}

func TestIntersectDisjoint(t *testing.T) {
	got := Intersect(exampleSchedule(), domain.NewParticipantSet("Z"))
	assert.Empty(t, got)

	_, err := NextParticipantSlot(got, 90, 0, DefaultSecondsPerSlot)
	assert.ErrorIs(t, err, domain.ErrNoParticipantSlots)
}

func TestNextParticipantSlotExample(t *testing.T) {
	pslots := Intersect(exampleSchedule(), domain.NewParticipantSet("A"))

	next, err := NextParticipantSlot(pslots, 90, 0, DefaultSecondsPerSlot)
	require.NoError(t, err)
	assert.Equal(t, domain.Slot(100), next.Slot)
	assert.Equal(t, domain.Identity("A"), next.Identity)
	assert.Equal(t, uint64(10), next.SlotsAway)
	assert.Equal(t, 4*time.Second, next.TimeLeft)
}

func TestNextParticipantSlotLeadTime(t *testing.T) {
	pslots := domain.ParticipantSlots{100: "A", 260: "B", 300: "C"}

	next, err := NextParticipantSlot(pslots, 100, DefaultLeadTimeSlots, DefaultSecondsPerSlot)
	require.NoError(t, err)
	assert.Equal(t, domain.Slot(260), next.Slot)

	// exactly leadTime ahead is not enough
	_, err = NextParticipantSlot(domain.ParticipantSlots{250: "A"}, 100, DefaultLeadTimeSlots, DefaultSecondsPerSlot)
	assert.ErrorIs(t, err, domain.ErrNoFutureSlot)
}

func TestNextParticipantSlotIgnoresPastSlots(t *testing.T) {
	// slots behind current must not wrap around to huge distances
	pslots := domain.ParticipantSlots{5: "A", 10: "B"}
	_, err := NextParticipantSlot(pslots, 1_000, 0, DefaultSecondsPerSlot)
	assert.ErrorIs(t, err, domain.ErrNoFutureSlot)
}

func TestTimeToSlot(t *testing.T) {
	assert.Equal(t, 60*time.Second, TimeToSlot(250, 100, DefaultSecondsPerSlot))
	assert.Equal(t, time.Duration(0), TimeToSlot(100, 100, DefaultSecondsPerSlot))
	assert.Equal(t, time.Duration(0), TimeToSlot(50, 100, DefaultSecondsPerSlot))
	assert.Equal(t, 12*time.Second, TimeToSlot(11, 10, 12))
}

func TestBucketSize(t *testing.T) {
	assert.Equal(t, 4, BucketSize(432, 100))
	assert.Equal(t, 5, BucketSize(5, 100))
	assert.Equal(t, 0, BucketSize(0, 100))
	assert.Equal(t, 10, BucketSize(10, 0))
}

func TestConcentrationSmallSchedule(t *testing.T) {
	schedule := domain.Schedule{10: "A", 11: "B", 12: "A", 13: "B", 14: "B"}
	pslots := Intersect(schedule, domain.NewParticipantSet("A"))

	points, err := Concentration(schedule, pslots, DefaultBucketCount)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, domain.ConcentrationPoint{
		BucketIndex:        2,
		RepresentativeSlot: 12,
		Fraction:           0.4,
		Size:               5,
	}, points[0])
}

func TestConcentrationRemainderBucket(t *testing.T) {
	schedule := make(domain.Schedule)
	for s := domain.Slot(0); s < 10; s++ {
		id := domain.Identity("B")
		if s%2 == 0 {
			id = "A"
		}
		schedule[s] = id
	}
	pslots := Intersect(schedule, domain.NewParticipantSet("A"))

	points, err := Concentration(schedule, pslots, 3)
	require.NoError(t, err)
	require.Len(t, points, 4)

	// buckets of 3,3,3 then the remainder slot 9
	assert.Equal(t, []int{3, 3, 3, 1}, []int{points[0].Size, points[1].Size, points[2].Size, points[3].Size})
	assert.Equal(t, 1, points[0].BucketIndex)
	assert.Equal(t, domain.Slot(1), points[0].RepresentativeSlot)
	assert.InDelta(t, 2.0/3.0, points[0].Fraction, 1e-9)
	assert.Equal(t, 8, points[3].BucketIndex)
	assert.Equal(t, domain.Slot(8), points[3].RepresentativeSlot)
	assert.Equal(t, 0.0, points[3].Fraction)
}

func TestConcentrationEmptySchedule(t *testing.T) {
	_, err := Concentration(domain.Schedule{}, nil, DefaultBucketCount)
	assert.ErrorIs(t, err, domain.ErrEmptySchedule)
}

func TestCorrelationProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	validators := make([]domain.Identity, 40)
	for i := range validators {
		validators[i] = domain.Identity(fmt.Sprintf("validator-%02d", i))
	}

	for run := 0; run < 25; run++ {
		total := 1 + rng.Intn(2_000)
		start := domain.Slot(rng.Intn(1_000_000))
		schedule := make(domain.Schedule, total)
		for i := 0; i < total; i++ {
			schedule[start+domain.Slot(i)] = validators[rng.Intn(len(validators))]
		}
		participants := domain.NewParticipantSet()
		for _, v := range validators {
			if rng.Intn(3) == 0 {
				participants[v] = struct{}{}
			}
		}
		current := start + domain.Slot(rng.Intn(total))

		pslots := Intersect(schedule, participants)
		for slot, id := range pslots {
			assert.Equal(t, schedule[slot], id)
			assert.True(t, participants.Contains(id))
		}

		next, err := NextParticipantSlot(pslots, current, DefaultLeadTimeSlots, DefaultSecondsPerSlot)
		if err == nil {
			assert.Greater(t, uint64(next.Slot), uint64(current)+DefaultLeadTimeSlots)
			for slot := range pslots {
				if slot > current+DefaultLeadTimeSlots {
					assert.GreaterOrEqual(t, uint64(slot), uint64(next.Slot))
				}
			}
		} else {
			for slot := range pslots {
				assert.LessOrEqual(t, uint64(slot), uint64(current)+DefaultLeadTimeSlots)
			}
		}

		points, err := Concentration(schedule, pslots, DefaultBucketCount)
		require.NoError(t, err)
		size := BucketSize(total, DefaultBucketCount)
		assert.Len(t, points, int(math.Ceil(float64(total)/float64(size))))

		weighted := 0.0
		for _, p := range points {
			assert.GreaterOrEqual(t, p.Fraction, 0.0)
			assert.LessOrEqual(t, p.Fraction, 1.0)
			weighted += p.Fraction * float64(p.Size)
		}
		assert.InDelta(t, float64(len(pslots))/float64(total), weighted/float64(total), 1e-9)
	}
}

func TestReferenceLine(t *testing.T) {
	line := ReferenceLine(3, 500)
	assert.Equal(t, []domain.ReferencePoint{{X: 0, Y: 500}, {X: 1, Y: 501}, {X: 2, Y: 502}}, line)
}

func TestCorrelate(t *testing.T) {
	report, err := Correlate(exampleSchedule(), domain.NewParticipantSet("A"), 90, CorrelateOptions{
		SecondsPerSlot: DefaultSecondsPerSlot,
		BucketCount:    DefaultBucketCount,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, report.TotalSlots)
	assert.Equal(t, 2, report.ParticipantSlots)
	assert.Equal(t, domain.Slot(100), report.MinSlot)
	assert.Equal(t, domain.Slot(103), report.MaxSlot)
	assert.InDelta(t, 0.5, report.ParticipantShare(), 1e-9)
	require.NotNil(t, report.Next)
	assert.Equal(t, domain.Slot(100), report.Next.Slot)
	assert.NoError(t, report.NextErr)
	assert.Len(t, report.Reference, 4)

	report, err = Correlate(exampleSchedule(), domain.NewParticipantSet("A"), 200, CorrelateOptions{SecondsPerSlot: 0.4, BucketCount: 100})
	require.NoError(t, err)
	assert.Nil(t, report.Next)
	assert.ErrorIs(t, report.NextErr, domain.ErrNoFutureSlot)

	_, err = Correlate(domain.Schedule{}, domain.NewParticipantSet("A"), 0, CorrelateOptions{})
	assert.ErrorIs(t, err, domain.ErrEmptySchedule)
}
