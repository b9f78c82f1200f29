package services

import (
	"log/slog"
	"sync"
	"time"

	"clinic-waitlist/models"

	"github.com/shopspring/decimal"
)

// Analytics aggregates completed entries into throughput stats and
// per-day summaries. It is a derived cache: Recompute can rebuild any
// day's summary from the raw archived entries.
type Analytics struct {
	mu        sync.RWMutex
	stats     models.ThroughputStats
	summaries map[string]*models.DaySummary

	// per-day wait accumulators backing AvgActualWaitMinutes
	waits map[string]*waitAgg
}

type waitAgg struct {
	sum   int64
	count int64
}

func NewAnalytics() *Analytics {
	return &Analytics{
		summaries: make(map[string]*models.DaySummary),
		waits:     make(map[string]*waitAgg),
	}
}

// Throughput returns a copy of the rolling service-duration stats.
func (a *Analytics) Throughput() models.ThroughputStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// ResetThroughput clears the rolling stats. The only way they decrease.
func (a *Analytics) ResetThroughput() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats = models.ThroughputStats{}
}

// RecordCompletion ingests an entry that reached COMPLETED or NO_SHOW.
// The engine calls it exactly once per entry, after the transition is
// durable.
func (a *Analytics) RecordCompletion(entry *models.QueueEntry) {
	if entry.Status != models.StatusCompleted && entry.Status != models.StatusNoShow {
		slog.Warn("analytics: ignoring non-terminal entry", "entry", entry.ID, "status", entry.Status)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	date := entry.CheckedInAt.Format("2006-01-02")
	summary := a.summaries[date]
	if summary == nil {
		summary = &models.DaySummary{Date: date}
		a.summaries[date] = summary
	}

	a.ingest(summary, entry, true)
	summary.LastUpdated = time.Now()
	a.refreshAvg(summary)
}

// Replay feeds already-terminal entries back into the aggregate, e.g.
// restored session or archive entries at startup. Entries that never
// finished are skipped.
func (a *Analytics) Replay(entries []*models.QueueEntry) {
	for _, entry := range entries {
		if entry.Status != models.StatusCompleted && entry.Status != models.StatusNoShow {
			continue
		}
		a.RecordCompletion(entry)
	}
}

// ingest applies one terminal entry to the summary, and to the rolling
// throughput stats when updateStats is set. Caller holds the lock.
func (a *Analytics) ingest(summary *models.DaySummary, entry *models.QueueEntry, updateStats bool) {
	summary.ArrivalsByHour[entry.CheckedInAt.Hour()]++

	switch entry.Status {
	case models.StatusNoShow:
		summary.TotalNoShow++
		return
	case models.StatusCompleted:
		summary.TotalServed++
	}

	if dur := serviceDuration(entry); updateStats && dur > 0 {
		a.stats.Served++
		a.stats.TotalServiceSeconds += int64(dur.Seconds())
	}

	if entry.CalledAt != nil {
		wait := entry.CalledAt.Sub(entry.CheckedInAt)
		if wait >= 0 {
			agg := a.waits[summary.Date]
			if agg == nil {
				agg = &waitAgg{}
				a.waits[summary.Date] = agg
			}
			agg.sum += int64(wait.Minutes())
			agg.count++
		}
		if entry.QuotedWaitMinutes != nil {
			summary.WaitAccuracy = append(summary.WaitAccuracy, models.WaitAccuracySample{
				QuotedMinutes: *entry.QuotedWaitMinutes,
				ActualMinutes: int(wait.Minutes()),
			})
		}
	}
}

func (a *Analytics) refreshAvg(summary *models.DaySummary) {
	agg := a.waits[summary.Date]
	if agg == nil || agg.count == 0 {
		summary.AvgActualWaitMinutes = 0
		return
	}
	avg := decimal.NewFromInt(agg.sum).
		Div(decimal.NewFromInt(agg.count)).
		Round(1)
	summary.AvgActualWaitMinutes = avg.InexactFloat64()
}

// serviceDuration is the in-room time. With the call shortcut enabled an
// entry may complete without ever entering IN_SERVICE; the call-to-done
// span stands in for it.
func serviceDuration(entry *models.QueueEntry) time.Duration {
	if entry.CompletedAt == nil {
		return 0
	}
	switch {
	case entry.ServiceStartedAt != nil:
		return entry.CompletedAt.Sub(*entry.ServiceStartedAt)
	case entry.CalledAt != nil:
		return entry.CompletedAt.Sub(*entry.CalledAt)
	}
	return 0
}

// Summary returns a copy of one day's rollup. Reading an unknown day
// yields a zero summary, not an error.
func (a *Analytics) Summary(date string) models.DaySummary {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if summary := a.summaries[date]; summary != nil {
		cp := *summary
		cp.WaitAccuracy = append([]models.WaitAccuracySample(nil), summary.WaitAccuracy...)
		return cp
	}
	return models.DaySummary{Date: date}
}

// Recompute rebuilds one day's summary from raw entries, discarding the
// cached rollup for that day. The rolling throughput stats are left
// alone; only ResetThroughput shrinks those.
func (a *Analytics) Recompute(date string, entries []*models.QueueEntry) models.DaySummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.waits, date)

	summary := &models.DaySummary{Date: date}
	a.summaries[date] = summary

	for _, entry := range entries {
		if entry.Status != models.StatusCompleted && entry.Status != models.StatusNoShow {
			continue
		}
		a.ingest(summary, entry, false)
	}

	summary.LastUpdated = time.Now()
	a.refreshAvg(summary)
	return *summary
}
