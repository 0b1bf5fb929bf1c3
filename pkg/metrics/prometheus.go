package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the call service
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	callsCreatedTotal prometheus.Counter
	callsSweptTotal   *prometheus.CounterVec
	pushSentTotal     *prometheus.CounterVec
	sweepRunsTotal    prometheus.Counter
	sweepDuration     prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(serviceName string) *Metrics {
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		callsCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name:        "calls_created_total",
				Help:        "Total number of call rooms created",
				ConstLabels: labels,
			},
		),
		callsSweptTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "calls_swept_total",
				Help:        "Calls reconciled by the lifecycle sweeper",
				ConstLabels: labels,
			},
			[]string{"pass"},
		),
		pushSentTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "push_notifications_total",
				Help:        "Push notifications dispatched",
				ConstLabels: labels,
			},
			[]string{"kind", "outcome"},
		),
		sweepRunsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name:        "sweep_runs_total",
				Help:        "Total number of sweeper runs",
				ConstLabels: labels,
			},
		),
		sweepDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "sweep_duration_seconds",
				Help:        "Duration of a full sweeper run",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
		),
	}
}

// RecordHTTPRequest records an HTTP request with its outcome and latency
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCallCreated increments the created-calls counter
func (m *Metrics) RecordCallCreated() {
	m.callsCreatedTotal.Inc()
}

// RecordSwept records calls reconciled by a sweeper pass
func (m *Metrics) RecordSwept(pass string, count int) {
	m.callsSweptTotal.WithLabelValues(pass).Add(float64(count))
}

// RecordPush records a push dispatch outcome
func (m *Metrics) RecordPush(kind, outcome string) {
	m.pushSentTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordSweepRun records a completed sweeper run and its duration
func (m *Metrics) RecordSweepRun(duration time.Duration) {
	m.sweepRunsTotal.Inc()
	m.sweepDuration.Observe(duration.Seconds())
}
