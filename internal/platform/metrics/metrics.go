package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP-level Prometheus metrics for the application
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	RecordsMutated  *prometheus.CounterVec
}

// New creates and registers all HTTP metrics with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "datatrail_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route pattern and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		RecordsMutated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "datatrail_records_mutated_total",
			Help: "Record mutations served by the API, by table and operation",
		}, []string{"table", "operation"}),
	}
}

// ObserveRequest records one request's latency
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// IncRecordsMutated counts one successful create, update or delete
func (m *Metrics) IncRecordsMutated(table, operation string) {
	m.RecordsMutated.WithLabelValues(table, operation).Inc()
}
