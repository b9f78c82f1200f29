package services

import (
	"testing"
	"time"

	"clinic-waitlist/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock returns a now func the test can advance.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time          { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTrigger(clock *fixedClock) *Trigger {
	return NewTrigger(2, 5*time.Minute, 3*time.Minute, clock.now)
}

func kinds(intents []models.NotificationIntent) []models.NotificationKind {
	out := make([]models.NotificationKind, 0, len(intents))
	for _, in := range intents {
		out = append(out, in.Kind)
	}
	return out
}

func TestTrigger_CheckInFiresOnce(t *testing.T) {
	clock := &fixedClock{t: time.Now()}
	trigger := newTestTrigger(clock)

	entry := &models.QueueEntry{
		ID:                    "entry-1",
		Status:                models.StatusWaiting,
		Position:              5,
		EstimatedWaitSeconds:  3600,
		LastWaitUpdateSeconds: 3600,
	}

	intents := trigger.Evaluate(entry, models.ChangeCheckIn)
	assert.Equal(t, []models.NotificationKind{models.NotifyCheckIn}, kinds(intents))

	// Re-evaluating the same change stays quiet.
	assert.Empty(t, trigger.Evaluate(entry, models.ChangeCheckIn))
}

func TestTrigger_YourTurnOnCalled(t *testing.T) {
	clock := &fixedClock{t: time.Now()}
	trigger := newTestTrigger(clock)

	entry := &models.QueueEntry{
		ID:     "entry-1",
		Status: models.StatusCalled,
	}

	intents := trigger.Evaluate(entry, models.ChangeAdvance)
	require.Len(t, intents, 1)
	assert.Equal(t, models.NotifyYourTurn, intents[0].Kind)
	assert.Equal(t, "your_turn", intents[0].TemplateKey)

	assert.Empty(t, trigger.Evaluate(entry, models.ChangeAdvance))
}

func TestTrigger_AlmostYourTurn(t *testing.T) {
	clock := &fixedClock{t: time.Now()}
	trigger := newTestTrigger(clock)

	entry := &models.QueueEntry{
		ID:       "entry-1",
		Status:   models.StatusWaiting,
		Position: 3,
	}

	// Two ahead: not yet below the threshold of two, nothing fires.
	assert.Empty(t, trigger.Evaluate(entry, models.ChangeEstimate))

	entry.Position = 2
	intents := trigger.Evaluate(entry, models.ChangeEstimate)
	require.Len(t, intents, 1)
	assert.Equal(t, models.NotifyAlmostYourTurn, intents[0].Kind)

	// Moving further forward does not fire it again.
	entry.Position = 1
	assert.Empty(t, trigger.Evaluate(entry, models.ChangeEstimate))
}

func TestTrigger_AlmostYourTurnForOutsideEntries(t *testing.T) {
	clock := &fixedClock{t: time.Now()}
	trigger := newTestTrigger(clock)

	entry := &models.QueueEntry{
		ID:       "entry-1",
		Status:   models.StatusOutside,
		Position: 2,
	}

	intents := trigger.Evaluate(entry, models.ChangeEstimate)
	require.Len(t, intents, 1)
	assert.Equal(t, models.NotifyAlmostYourTurn, intents[0].Kind)
}

func TestTrigger_WaitUpdate_DeltaAndCooldown(t *testing.T) {
	clock := &fixedClock{t: time.Now()}
	trigger := newTestTrigger(clock)

	entry := &models.QueueEntry{
		ID:                    "entry-1",
		Status:                models.StatusWaiting,
		Position:              6,
		EstimatedWaitSeconds:  1800,
		LastWaitUpdateSeconds: 1800,
	}

	// Drift below the delta stays quiet.
	entry.EstimatedWaitSeconds = 2000
	assert.Empty(t, trigger.Evaluate(entry, models.ChangeEstimate))

	// Past the delta it fires and rebases the throttle.
	entry.EstimatedWaitSeconds = 2400
	intents := trigger.Evaluate(entry, models.ChangeEstimate)
	require.Len(t, intents, 1)
	assert.Equal(t, models.NotifyWaitUpdate, intents[0].Kind)
	assert.Equal(t, 2400, entry.LastWaitUpdateSeconds)

	// Another big drift inside the cooldown window is suppressed.
	entry.EstimatedWaitSeconds = 3600
	assert.Empty(t, trigger.Evaluate(entry, models.ChangeEstimate))

	// After the cooldown it may fire again.
	clock.advance(4 * time.Minute)
	intents = trigger.Evaluate(entry, models.ChangeEstimate)
	require.Len(t, intents, 1)
	assert.Equal(t, models.NotifyWaitUpdate, intents[0].Kind)
	assert.Equal(t, 3600, entry.LastWaitUpdateSeconds)
}

func TestTrigger_WaitUpdate_ShrinkingEstimateCounts(t *testing.T) {
	clock := &fixedClock{t: time.Now()}
	trigger := newTestTrigger(clock)

	entry := &models.QueueEntry{
		ID:                    "entry-1",
		Status:                models.StatusWaiting,
		Position:              6,
		EstimatedWaitSeconds:  600,
		LastWaitUpdateSeconds: 1800,
	}

	intents := trigger.Evaluate(entry, models.ChangeEstimate)
	require.Len(t, intents, 1)
	assert.Equal(t, models.NotifyWaitUpdate, intents[0].Kind)
}

func TestTrigger_IntentCarriesEntryFields(t *testing.T) {
	clock := &fixedClock{t: time.Unix(1700000000, 0)}
	trigger := newTestTrigger(clock)

	entry := &models.QueueEntry{
		ID:                   "entry-1",
		PatientRef:           "patient-1",
		Token:                "tok123",
		Status:               models.StatusCalled,
		EstimatedWaitSeconds: 0,
	}

	intents := trigger.Evaluate(entry, models.ChangeAdvance)
	require.Len(t, intents, 1)
	assert.Equal(t, "entry-1", intents[0].EntryID)
	assert.Equal(t, "patient-1", intents[0].PatientRef)
	assert.Equal(t, "tok123", intents[0].Token)
	assert.Equal(t, clock.t, intents[0].CreatedAt)
}
