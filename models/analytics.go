package models

import "time"

// ThroughputStats is the rolling service-duration aggregate feeding the
// wait estimator. Counters only grow, except through Reset.
type ThroughputStats struct {
	Served              int64 `json:"served"`
	TotalServiceSeconds int64 `json:"total_service_seconds"`
}

// AvgServiceSeconds returns the mean service duration, or 0 when no
// history exists yet.
func (t ThroughputStats) AvgServiceSeconds() int {
	if t.Served == 0 {
		return 0
	}
	return int(t.TotalServiceSeconds / t.Served)
}

// WaitAccuracySample pairs a quoted wait against what actually happened.
type WaitAccuracySample struct {
	QuotedMinutes int `json:"quoted_minutes"`
	ActualMinutes int `json:"actual_minutes"`
}

// DaySummary is the per-day analytics rollup.
type DaySummary struct {
	Date                 string               `json:"date"`
	TotalServed          int                  `json:"total_served"`
	TotalNoShow          int                  `json:"total_no_show"`
	AvgActualWaitMinutes float64              `json:"avg_actual_wait_minutes"`
	ArrivalsByHour       [24]int              `json:"arrivals_by_hour"`
	WaitAccuracy         []WaitAccuracySample `json:"wait_accuracy,omitempty"`
	LastUpdated          time.Time            `json:"last_updated"`
}
