package ports

import (
	"context"

	"github.com/Marketen/slotwatch/internal/application/domain"
)

// ScheduleSource loads the leader schedule of the current epoch.
type ScheduleSource interface {
	LoadSchedule(ctx context.Context) (domain.Schedule, error)
}

// ParticipantSource fetches the identities enrolled in the block-building program.
type ParticipantSource interface {
	LoadParticipants(ctx context.Context) (domain.ParticipantSet, error)
}

// SlotSource returns the slot the chain is currently at.
type SlotSource interface {
	CurrentSlot(ctx context.Context) (domain.Slot, error)
}
