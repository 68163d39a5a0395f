package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for audit writes.
type Metrics struct {
	Written         *prometheus.CounterVec
	PersistFailures *prometheus.CounterVec
	MirrorFailures  prometheus.Counter
	PersistDuration prometheus.Histogram
}

// NewMetrics registers audit writer metrics with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Written: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "datatrail_audit_entries_written_total",
			Help: "Total number of audit entries persisted",
		}, []string{"table", "kind"}),
		PersistFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "datatrail_audit_persist_failures_total",
			Help: "Total number of audit entries that could not be persisted",
		}, []string{"table", "kind"}),
		MirrorFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "datatrail_audit_mirror_failures_total",
			Help: "Total number of stored audit entries the mirror could not publish",
		}),
		PersistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "datatrail_audit_persist_duration_seconds",
			Help:    "Latency of audit entry persistence",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncWritten increments the written counter.
func (m *Metrics) IncWritten(table string, kind Kind) {
	m.Written.WithLabelValues(table, string(kind)).Inc()
}

// IncPersistFailures increments the persist failures counter.
func (m *Metrics) IncPersistFailures(table string, kind Kind) {
	m.PersistFailures.WithLabelValues(table, string(kind)).Inc()
}

// IncMirrorFailures increments the mirror failures counter.
func (m *Metrics) IncMirrorFailures() {
	m.MirrorFailures.Inc()
}

// ObservePersistDuration records persistence latency in seconds.
func (m *Metrics) ObservePersistDuration(seconds float64) {
	m.PersistDuration.Observe(seconds)
}
