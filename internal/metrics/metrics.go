// Package metrics provides Prometheus metrics for the tmetrics HTTP service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upload outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeSchemaError = "schema_error"
	OutcomeBadRequest  = "bad_request"
	OutcomeError       = "error"
)

// Manager owns the service metrics and the registry they are exposed from.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	uploads          *prometheus.CounterVec
	rowsParsed       *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom buckets for the pipeline duration histogram.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// WithGoCollectors adds the Go runtime and process collectors to the registry.
func WithGoCollectors() Option {
	return func(m *Manager) {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
}

// NewManager creates a Manager backed by a fresh registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "tmetrics",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)
	m.uploads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "uploads_total",
		Help:      "Uploaded datasets by kind and outcome",
	}, []string{"kind", "outcome"})
	m.rowsParsed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "rows_parsed_total",
		Help:      "CSV rows turned into events, by kind",
	}, []string{"kind"})
	m.pipelineDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "pipeline_duration_seconds",
		Help:      "Time spent aggregating one request, by pipeline",
		Buckets:   m.buckets,
	}, []string{"pipeline"})
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern and status code",
	}, []string{"route", "code"})
	return m
}

// RecordUpload counts one upload of kind with its outcome.
func (m *Manager) RecordUpload(kind, outcome string) {
	m.uploads.WithLabelValues(kind, outcome).Inc()
}

// AddRows adds n parsed rows for kind.
func (m *Manager) AddRows(kind string, n int) {
	m.rowsParsed.WithLabelValues(kind).Add(float64(n))
}

// ObservePipeline records how long pipeline took since start.
func (m *Manager) ObservePipeline(pipeline string, start time.Time) {
	m.pipelineDuration.WithLabelValues(pipeline).Observe(time.Since(start).Seconds())
}

// RecordRequest counts one served request.
func (m *Manager) RecordRequest(route, code string) {
	m.httpRequests.WithLabelValues(route, code).Inc()
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
