package services

import (
	"time"

	"clinic-waitlist/models"
)

// Trigger decides when a queue change should produce a notification
// intent. Evaluation is a pure decision; delivery happens elsewhere and
// its failures never reach back into queue state.
//
// Evaluate mutates the entry's notified flags and wait-update throttle
// state, so the caller must hold the session lock: the flag and the
// intent commit together, which is what makes delivery at-most-once
// under retries.
type Trigger struct {
	threshold int
	delta     time.Duration
	cooldown  time.Duration
	now       func() time.Time
}

func NewTrigger(threshold int, delta, cooldown time.Duration, now func() time.Time) *Trigger {
	if now == nil {
		now = time.Now
	}
	return &Trigger{
		threshold: threshold,
		delta:     delta,
		cooldown:  cooldown,
		now:       now,
	}
}

func (t *Trigger) intent(entry *models.QueueEntry, kind models.NotificationKind, templateKey string) models.NotificationIntent {
	return models.NotificationIntent{
		Kind:        kind,
		EntryID:     entry.ID,
		Token:       entry.Token,
		PatientRef:  entry.PatientRef,
		TemplateKey: templateKey,
		Position:    entry.Position,
		WaitSeconds: entry.EstimatedWaitSeconds,
		CreatedAt:   t.now(),
	}
}

// Evaluate inspects one entry after a change and returns the intents to
// dispatch. Zero intents is the common case.
func (t *Trigger) Evaluate(entry *models.QueueEntry, change models.ChangeType) []models.NotificationIntent {
	var intents []models.NotificationIntent

	if change == models.ChangeCheckIn && !entry.HasNotified(models.NotifyCheckIn) {
		entry.MarkNotified(models.NotifyCheckIn)
		intents = append(intents, t.intent(entry, models.NotifyCheckIn, "checkin_confirmation"))
	}

	if entry.Status == models.StatusCalled && !entry.HasNotified(models.NotifyYourTurn) {
		entry.MarkNotified(models.NotifyYourTurn)
		intents = append(intents, t.intent(entry, models.NotifyYourTurn, "your_turn"))
	}

	if entry.Status.IsActive() {
		positionAhead := entry.Position - 1
		if positionAhead < t.threshold && !entry.HasNotified(models.NotifyAlmostYourTurn) {
			entry.MarkNotified(models.NotifyAlmostYourTurn)
			intents = append(intents, t.intent(entry, models.NotifyAlmostYourTurn, "almost_your_turn"))
		}

		if wi := t.waitUpdate(entry); wi != nil {
			intents = append(intents, *wi)
		}
	}

	return intents
}

// waitUpdate fires when the estimate drifted beyond the configured delta
// since the last fired update, at most once per cooldown window.
func (t *Trigger) waitUpdate(entry *models.QueueEntry) *models.NotificationIntent {
	// LastWaitUpdateSeconds starts as the estimate announced at
	// check-in and advances on every fired update.
	drift := entry.EstimatedWaitSeconds - entry.LastWaitUpdateSeconds
	if drift < 0 {
		drift = -drift
	}
	if drift <= int(t.delta.Seconds()) {
		return nil
	}

	if entry.LastWaitUpdateAt != nil && t.now().Sub(*entry.LastWaitUpdateAt) < t.cooldown {
		return nil
	}

	now := t.now()
	entry.MarkNotified(models.NotifyWaitUpdate)
	entry.LastWaitUpdateSeconds = entry.EstimatedWaitSeconds
	entry.LastWaitUpdateAt = &now

	intent := t.intent(entry, models.NotifyWaitUpdate, "wait_update")
	return &intent
}
