package domain

import "errors"

var (
	ErrEmptySchedule      = errors.New("schedule is empty")
	ErrNoParticipantSlots = errors.New("no participant slots in schedule")
	ErrNoFutureSlot       = errors.New("no future participant slot found")
)
