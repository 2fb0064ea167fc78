package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics. Each instance owns its registry so
// several instances can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Generation metrics
	SubmissionsTotal   *prometheus.CounterVec
	ExecutionsTotal    *prometheus.CounterVec
	ExecutionDuration  *prometheus.HistogramVec
	ActiveSessions     prometheus.Gauge
	DescriptionsTotal  *prometheus.CounterVec
	BackendBreakerOpen *prometheus.GaugeVec
}

// New creates a new Metrics instance with all metrics registered.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "studio"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		SubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "submissions_total",
				Help:      "Submissions by kind and outcome (accepted or the rejection kind)",
			},
			[]string{"kind", "outcome"},
		),
		ExecutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "executions_total",
				Help:      "Finished executions by kind and terminal status",
			},
			[]string{"kind", "status", "error_kind"},
		),
		ExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "execution_duration_seconds",
				Help:      "Execution duration from acceptance to terminal state",
				Buckets:   []float64{.5, 1, 2, 3, 4, 5, 7.5, 10, 15, 30},
			},
			[]string{"kind"},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "active_sessions",
				Help:      "Number of open sessions",
			},
		),
		DescriptionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "descriptions_total",
				Help:      "Description extractions by outcome",
			},
			[]string{"outcome"},
		),
		BackendBreakerOpen: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "backend_breaker_open",
				Help:      "Whether the generation backend circuit breaker is open (1) or not (0)",
			},
			[]string{"backend"},
		),
	}
}

// Handler returns the HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// --- Convenience methods ---

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusStr := statusCodeToString(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSubmission records a submission outcome.
func (m *Metrics) RecordSubmission(kind, outcome string) {
	m.SubmissionsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordExecution records a finished execution.
func (m *Metrics) RecordExecution(kind, status, errorKind string, duration time.Duration) {
	m.ExecutionsTotal.WithLabelValues(kind, status, errorKind).Inc()
	if duration > 0 {
		m.ExecutionDuration.WithLabelValues(kind).Observe(duration.Seconds())
	}
}

// RecordDescription records a description extraction outcome.
func (m *Metrics) RecordDescription(outcome string) {
	m.DescriptionsTotal.WithLabelValues(outcome).Inc()
}

// SetBreakerOpen sets the breaker state of a backend.
func (m *Metrics) SetBreakerOpen(backend string, open bool) {
	value := 0.0
	if open {
		value = 1.0
	}
	m.BackendBreakerOpen.WithLabelValues(backend).Set(value)
}

// statusCodeToString converts an HTTP status code to a string category.
func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
