package models

import (
	"time"
)

// Status of a queue entry. Terminal statuses are never left again.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusOutside   Status = "outside"
	StatusCalled    Status = "called"
	StatusInService Status = "in_service"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusNoShow, StatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the entry still occupies a queue position.
func (s Status) IsActive() bool {
	return s == StatusWaiting || s == StatusOutside
}

// transitions is the closed edge table of the entry state machine.
// NO_SHOW and CANCELLED are reachable from every non-terminal state and
// are handled separately in CanTransition.
var transitions = map[Status][]Status{
	StatusWaiting:   {StatusOutside, StatusCalled},
	StatusOutside:   {StatusWaiting, StatusCalled},
	StatusCalled:    {StatusInService},
	StatusInService: {StatusCompleted},
}

// CanTransition reports whether from -> to is a legal edge.
// allowCallShortcut additionally permits CALLED -> COMPLETED, skipping
// IN_SERVICE, for clinics that complete visits straight from the call.
func CanTransition(from, to Status, allowCallShortcut bool) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StatusNoShow || to == StatusCancelled {
		return true
	}
	if allowCallShortcut && from == StatusCalled && to == StatusCompleted {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckInMode selects the initial waiting state of a new entry.
type CheckInMode string

const (
	ModeInside  CheckInMode = "inside"
	ModeOutside CheckInMode = "outside"
)

// QueueEntry is one patient's visit in the walk-in queue.
type QueueEntry struct {
	ID         string `json:"id"`
	PatientRef string `json:"patient_ref"`
	// Token is the opaque handle patients use to track their own status.
	Token  string `json:"token"`
	Status Status `json:"status"`
	// Position is the 1-based rank among waiting/outside entries.
	// Zero once the entry has left the active set.
	Position int `json:"position"`

	CheckedInAt      time.Time  `json:"checked_in_at"`
	CalledAt         *time.Time `json:"called_at,omitempty"`
	ServiceStartedAt *time.Time `json:"service_started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`

	EstimatedWaitSeconds int  `json:"estimated_wait_seconds"`
	QuotedWaitMinutes    *int `json:"quoted_wait_minutes,omitempty"`
	Notes                string `json:"notes,omitempty"`

	// Notified records which notification kinds already fired for this
	// entry, keyed by kind. Guards at-most-once delivery.
	Notified map[NotificationKind]bool `json:"notified,omitempty"`

	// Wait-update throttling state.
	LastWaitUpdateSeconds int        `json:"last_wait_update_seconds,omitempty"`
	LastWaitUpdateAt      *time.Time `json:"last_wait_update_at,omitempty"`

	// UpdatedBy is the staff actor of the last reorder/advance.
	UpdatedBy string `json:"updated_by,omitempty"`
}

// HasNotified reports whether kind already fired for this entry.
func (e *QueueEntry) HasNotified(kind NotificationKind) bool {
	return e.Notified[kind]
}

// MarkNotified records that kind fired. The caller must hold the
// session lock so the flag commits together with the intent.
func (e *QueueEntry) MarkNotified(kind NotificationKind) {
	if e.Notified == nil {
		e.Notified = make(map[NotificationKind]bool)
	}
	e.Notified[kind] = true
}

// Clone returns a deep copy safe to hand to readers outside the lock.
func (e *QueueEntry) Clone() *QueueEntry {
	cp := *e
	if e.Notified != nil {
		cp.Notified = make(map[NotificationKind]bool, len(e.Notified))
		for k, v := range e.Notified {
			cp.Notified[k] = v
		}
	}
	if e.CalledAt != nil {
		t := *e.CalledAt
		cp.CalledAt = &t
	}
	if e.ServiceStartedAt != nil {
		t := *e.ServiceStartedAt
		cp.ServiceStartedAt = &t
	}
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		cp.CompletedAt = &t
	}
	if e.QuotedWaitMinutes != nil {
		q := *e.QuotedWaitMinutes
		cp.QuotedWaitMinutes = &q
	}
	if e.LastWaitUpdateAt != nil {
		t := *e.LastWaitUpdateAt
		cp.LastWaitUpdateAt = &t
	}
	return &cp
}
