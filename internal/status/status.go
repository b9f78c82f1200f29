package status

import "errors"

var (
	ErrDuplicateCheckIn  = errors.New("queue: patient already has an active entry")
	ErrInvalidPosition   = errors.New("queue: position out of range or entry not reorderable")
	ErrInvalidTransition = errors.New("queue: transition not allowed")
	ErrEntryNotFound     = errors.New("queue: entry not found")
	ErrSessionClosed     = errors.New("queue: session already archived")
)
