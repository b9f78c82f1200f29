package monitoring

import (
	"context"
	"time"

	"clinic-waitlist/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "waitlist_queue_depth",
			Help: "Current number of entries per status",
		},
		[]string{"status"},
	)

	transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_transitions_total",
			Help: "Total status transitions",
		},
		[]string{"target"},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_notifications_total",
			Help: "Notification intents by kind and delivery status",
		},
		[]string{"kind", "status"},
	)

	actualWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "waitlist_actual_wait_minutes",
			Help:    "Observed check-in to call-in wait",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)

// DepthSource is anything that can report entry counts per status.
// Satisfied by the queue engine.
type DepthSource interface {
	Depths() map[models.Status]int
}

type Monitor struct {
	source DepthSource
}

func NewMonitor(source DepthSource) *Monitor {
	return &Monitor{source: source}
}

// Run samples queue depth until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.collect()
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) collect() {
	depths := m.source.Depths()
	for _, status := range []models.Status{
		models.StatusWaiting,
		models.StatusOutside,
		models.StatusCalled,
		models.StatusInService,
	} {
		queueDepth.WithLabelValues(string(status)).Set(float64(depths[status]))
	}
}

// TrackTransition counts one status transition.
func TrackTransition(target models.Status) {
	transitions.WithLabelValues(string(target)).Inc()
}

// TrackNotification counts one notification outcome.
func TrackNotification(kind models.NotificationKind, status string) {
	notifications.WithLabelValues(string(kind), status).Inc()
}

// TrackActualWait records a served patient's real wait.
func TrackActualWait(wait time.Duration) {
	actualWait.Observe(wait.Minutes())
}
