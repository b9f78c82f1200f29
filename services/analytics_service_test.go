package services

import (
	"testing"
	"time"

	"clinic-waitlist/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedEntry(id string, checkedIn time.Time, waitMin, serviceMin int) *models.QueueEntry {
	called := checkedIn.Add(time.Duration(waitMin) * time.Minute)
	started := called.Add(time.Minute)
	done := started.Add(time.Duration(serviceMin) * time.Minute)
	return &models.QueueEntry{
		ID:               id,
		PatientRef:       "patient-" + id,
		Status:           models.StatusCompleted,
		CheckedInAt:      checkedIn,
		CalledAt:         &called,
		ServiceStartedAt: &started,
		CompletedAt:      &done,
	}
}

func TestAnalytics_RecordCompletion(t *testing.T) {
	analytics := NewAnalytics()
	day := time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC)

	analytics.RecordCompletion(completedEntry("a", day, 10, 12))
	analytics.RecordCompletion(completedEntry("b", day.Add(time.Hour), 20, 8))

	stats := analytics.Throughput()
	assert.Equal(t, int64(2), stats.Served)
	assert.Equal(t, int64(20*60), stats.TotalServiceSeconds)
	assert.Equal(t, 600, stats.AvgServiceSeconds())

	summary := analytics.Summary("2026-08-31")
	assert.Equal(t, 2, summary.TotalServed)
	assert.Equal(t, 0, summary.TotalNoShow)
	assert.Equal(t, 15.0, summary.AvgActualWaitMinutes)
	assert.Equal(t, 1, summary.ArrivalsByHour[9])
	assert.Equal(t, 1, summary.ArrivalsByHour[10])
}

func TestAnalytics_NoShowCountsSeparately(t *testing.T) {
	analytics := NewAnalytics()
	day := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)

	called := day.Add(15 * time.Minute)
	done := called.Add(5 * time.Minute)
	analytics.RecordCompletion(&models.QueueEntry{
		ID:          "ns",
		Status:      models.StatusNoShow,
		CheckedInAt: day,
		CalledAt:    &called,
		CompletedAt: &done,
	})

	summary := analytics.Summary("2026-08-31")
	assert.Equal(t, 0, summary.TotalServed)
	assert.Equal(t, 1, summary.TotalNoShow)
	assert.Equal(t, 1, summary.ArrivalsByHour[14])

	// No-shows never feed the service-duration average.
	assert.Equal(t, int64(0), analytics.Throughput().Served)
}

func TestAnalytics_IgnoresNonTerminalEntries(t *testing.T) {
	analytics := NewAnalytics()

	analytics.RecordCompletion(&models.QueueEntry{
		ID:          "open",
		Status:      models.StatusWaiting,
		CheckedInAt: time.Now(),
	})

	assert.Equal(t, int64(0), analytics.Throughput().Served)
}

func TestAnalytics_CallShortcutServiceDuration(t *testing.T) {
	analytics := NewAnalytics()
	day := time.Date(2026, 8, 31, 11, 0, 0, 0, time.UTC)

	// Completed straight from CALLED: the call-to-done span stands in
	// for the in-room time.
	called := day.Add(10 * time.Minute)
	done := called.Add(7 * time.Minute)
	analytics.RecordCompletion(&models.QueueEntry{
		ID:          "shortcut",
		Status:      models.StatusCompleted,
		CheckedInAt: day,
		CalledAt:    &called,
		CompletedAt: &done,
	})

	stats := analytics.Throughput()
	assert.Equal(t, int64(1), stats.Served)
	assert.Equal(t, int64(7*60), stats.TotalServiceSeconds)
}

func TestAnalytics_QuotedAccuracySamples(t *testing.T) {
	analytics := NewAnalytics()
	day := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	entry := completedEntry("a", day, 25, 10)
	quoted := 15
	entry.QuotedWaitMinutes = &quoted
	analytics.RecordCompletion(entry)

	summary := analytics.Summary("2026-08-31")
	require.Len(t, summary.WaitAccuracy, 1)
	assert.Equal(t, 15, summary.WaitAccuracy[0].QuotedMinutes)
	assert.Equal(t, 25, summary.WaitAccuracy[0].ActualMinutes)
}

func TestAnalytics_Replay(t *testing.T) {
	analytics := NewAnalytics()
	day := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	noShow := completedEntry("b", day.Add(time.Hour), 15, 0)
	noShow.Status = models.StatusNoShow

	analytics.Replay([]*models.QueueEntry{
		completedEntry("a", day, 10, 12),
		noShow,
		{ID: "open", Status: models.StatusWaiting, CheckedInAt: day},
		{ID: "gone", Status: models.StatusCancelled, CheckedInAt: day},
	})

	assert.Equal(t, int64(1), analytics.Throughput().Served)
	summary := analytics.Summary("2026-08-31")
	assert.Equal(t, 1, summary.TotalServed)
	assert.Equal(t, 1, summary.TotalNoShow)
	// Open and cancelled entries are skipped entirely.
	assert.Equal(t, 2, summary.ArrivalsByHour[9]+summary.ArrivalsByHour[10])
}

func TestAnalytics_SummaryUnknownDay(t *testing.T) {
	analytics := NewAnalytics()

	summary := analytics.Summary("2026-01-01")
	assert.Equal(t, "2026-01-01", summary.Date)
	assert.Equal(t, 0, summary.TotalServed)
}

func TestAnalytics_RecomputeRebuildsSummary(t *testing.T) {
	analytics := NewAnalytics()
	day := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	// Live ingestion, including a stray double count.
	entryA := completedEntry("a", day, 10, 12)
	analytics.RecordCompletion(entryA)
	analytics.RecordCompletion(entryA)

	assert.Equal(t, 2, analytics.Summary("2026-08-31").TotalServed)

	// Recompute from the raw archive heals the summary.
	entries := []*models.QueueEntry{
		entryA,
		completedEntry("b", day.Add(time.Hour), 30, 8),
		{ID: "open", Status: models.StatusCancelled, CheckedInAt: day},
	}
	summary := analytics.Recompute("2026-08-31", entries)

	assert.Equal(t, 2, summary.TotalServed)
	assert.Equal(t, 0, summary.TotalNoShow)
	assert.Equal(t, 20.0, summary.AvgActualWaitMinutes)

	// Recompute is idempotent.
	again := analytics.Recompute("2026-08-31", entries)
	assert.Equal(t, summary.TotalServed, again.TotalServed)
	assert.Equal(t, summary.AvgActualWaitMinutes, again.AvgActualWaitMinutes)
}

func TestAnalytics_RecomputeLeavesThroughputAlone(t *testing.T) {
	analytics := NewAnalytics()
	day := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	analytics.RecordCompletion(completedEntry("a", day, 10, 12))
	before := analytics.Throughput()

	analytics.Recompute("2026-08-31", []*models.QueueEntry{completedEntry("a", day, 10, 12)})

	assert.Equal(t, before, analytics.Throughput())
}

func TestAnalytics_ResetThroughput(t *testing.T) {
	analytics := NewAnalytics()
	day := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	analytics.RecordCompletion(completedEntry("a", day, 10, 12))
	require.Equal(t, int64(1), analytics.Throughput().Served)

	analytics.ResetThroughput()
	assert.Equal(t, models.ThroughputStats{}, analytics.Throughput())
}
