package services

import (
	"time"
)

// Estimator computes advisory wait estimates from historical throughput
// and current queue depth. Estimates never gate transitions.
type Estimator struct {
	defaultDuration time.Duration
	analytics       *Analytics
}

func NewEstimator(defaultDuration time.Duration, analytics *Analytics) *Estimator {
	return &Estimator{
		defaultDuration: defaultDuration,
		analytics:       analytics,
	}
}

// Estimate returns the expected wait in seconds for an entry with
// positionAhead active entries in front of it. A reception-quoted wait
// overrides the computed value, matching how front desks actually work.
func (e *Estimator) Estimate(positionAhead int, quotedMinutes *int) int {
	if quotedMinutes != nil {
		return *quotedMinutes * 60
	}

	avg := e.analytics.Throughput().AvgServiceSeconds()
	if avg == 0 {
		avg = int(e.defaultDuration.Seconds())
	}

	if positionAhead < 0 {
		positionAhead = 0
	}
	return positionAhead * avg
}
