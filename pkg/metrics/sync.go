package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records the behavior of the mirror retry loop.
type SyncMetrics struct {
	drainDuration prometheus.Histogram
	writeOutcomes *prometheus.CounterVec
	queueBacklog  *prometheus.GaugeVec
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	drainDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_drain_duration_seconds",
		Help:    "Duration of one pass over the pending mirror writes.",
		Buckets: prometheus.DefBuckets,
	})
	writeOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_write_outcomes_total",
		Help: "Pending mirror writes by drain outcome.",
	}, []string{"outcome"})
	queueBacklog := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sync_queue_backlog",
		Help: "Pending mirror writes waiting in the queue, by status.",
	}, []string{"status"})
	reg.MustRegister(drainDuration, writeOutcomes, queueBacklog)
	return &SyncMetrics{
		drainDuration: drainDuration,
		writeOutcomes: writeOutcomes,
		queueBacklog:  queueBacklog,
	}
}

// ObserveDrain records how long one drain pass took.
func (m *SyncMetrics) ObserveDrain(duration time.Duration) {
	if m == nil || m.drainDuration == nil {
		return
	}
	m.drainDuration.Observe(duration.Seconds())
}

// AddSucceeded counts writes that landed on the mirror.
func (m *SyncMetrics) AddSucceeded(n int) {
	m.addOutcome("succeeded", n)
}

// AddRescheduled counts writes pushed to a later retry.
func (m *SyncMetrics) AddRescheduled(n int) {
	m.addOutcome("rescheduled", n)
}

// AddFailed counts writes parked after exhausting their attempts.
func (m *SyncMetrics) AddFailed(n int) {
	m.addOutcome("failed", n)
}

func (m *SyncMetrics) addOutcome(outcome string, n int) {
	if m == nil || m.writeOutcomes == nil || n <= 0 {
		return
	}
	m.writeOutcomes.WithLabelValues(outcome).Add(float64(n))
}

// SetBacklog publishes the current queue depth by status.
func (m *SyncMetrics) SetBacklog(pending, failed int64) {
	if m == nil || m.queueBacklog == nil {
		return
	}
	m.queueBacklog.WithLabelValues("pending").Set(float64(pending))
	m.queueBacklog.WithLabelValues("failed").Set(float64(failed))
}
