package models

import "time"

// NotificationKind identifies one notification trigger.
type NotificationKind string

const (
	NotifyCheckIn        NotificationKind = "check_in"
	NotifyAlmostYourTurn NotificationKind = "almost_your_turn"
	NotifyYourTurn       NotificationKind = "your_turn"
	NotifyWaitUpdate     NotificationKind = "wait_update"
	// NotifyCustom is a staff-initiated template alert. It is exempt
	// from the once-per-kind rule.
	NotifyCustom NotificationKind = "custom"
)

// NotificationIntent is a decided-but-undelivered notification. The
// engine emits intents; delivery happens asynchronously and may fail
// without affecting queue state.
type NotificationIntent struct {
	Kind        NotificationKind `json:"kind"`
	EntryID     string           `json:"entry_id"`
	Token       string           `json:"token"`
	PatientRef  string           `json:"patient_ref"`
	TemplateKey string           `json:"template_key"`
	Position    int              `json:"position"`
	WaitSeconds int              `json:"wait_seconds"`
	CreatedAt   time.Time        `json:"created_at"`
}

// DeliveryResult is the outcome reported by a Deliverer.
type DeliveryResult struct {
	Status    string `json:"status"` // sent, mock_sent, failed
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ChangeType labels a queue mutation for trigger evaluation and
// realtime publishing.
type ChangeType string

const (
	ChangeCheckIn  ChangeType = "check_in"
	ChangeReorder  ChangeType = "reorder"
	ChangeAdvance  ChangeType = "advance"
	ChangeOutside  ChangeType = "outside_toggle"
	ChangeEstimate ChangeType = "estimate_refresh"
)
