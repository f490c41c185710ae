package domain

import "time"

// Basic chain types
type Epoch uint64
type Slot uint64

// Identity is the validator identity string used by a schedule (base58 pubkey
// on Solana, 0x-prefixed BLS pubkey on Ethereum).
type Identity string

// Schedule maps every slot of an epoch to the validator that leads it.
type Schedule map[Slot]Identity

// ParticipantSet holds identities enrolled in the block-building program.
type ParticipantSet map[Identity]struct{}

// NewParticipantSet builds a set from the given identities.
func NewParticipantSet(ids ...Identity) ParticipantSet {
	set := make(ParticipantSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s ParticipantSet) Contains(id Identity) bool {
	_, ok := s[id]
	return ok
}

func (s ParticipantSet) Len() int { return len(s) }

// ParticipantSlots is the subset of a Schedule led by participants.
type ParticipantSlots map[Slot]Identity

// ConcentrationPoint is one bucket of the sorted schedule.
type ConcentrationPoint struct {
	// BucketIndex is the sorted position of the bucket's last slot, shifted back
	// by half a bucket so the point sits on the bucket midpoint.
	BucketIndex int
	// RepresentativeSlot is the bucket's last slot shifted back by half a bucket.
	RepresentativeSlot Slot
	// Fraction of slots in the bucket led by participants, in [0,1].
	Fraction float64
	// Size is the number of slots in the bucket. Only the last bucket may be short.
	Size int
}

// ReferencePoint is one point of the constant-slope reference line.
type ReferencePoint struct {
	X int
	Y Slot
}

// NextSlot is the nearest actionable participant slot.
type NextSlot struct {
	Slot      Slot
	Identity  Identity
	SlotsAway uint64
	TimeLeft  time.Duration
}

// Report is the result of one correlation run.
type Report struct {
	RunID string
	Chain string

	TotalSlots       int
	ParticipantSlots int
	Participants     int
	MinSlot          Slot
	MaxSlot          Slot
	CurrentSlot      Slot

	// Next is nil when no actionable participant slot exists; NextErr says why.
	Next    *NextSlot
	NextErr error

	Concentration []ConcentrationPoint
	Reference     []ReferencePoint

	OutputPath string
}

// ParticipantShare is the fraction of schedule slots led by participants.
func (r *Report) ParticipantShare() float64 {
	if r.TotalSlots == 0 {
		return 0
	}
	return float64(r.ParticipantSlots) / float64(r.TotalSlots)
}
