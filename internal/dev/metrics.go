package dev

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/livedev/internal/build"
	"github.com/vango-dev/livedev/internal/reload"
)

// metricsNamespace prefixes every metric name.
const metricsNamespace = "livedev"

// buildDurationBuckets covers sub-second asset builds up to slow bundles.
var buildDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Registry receives the metrics and backs the metrics endpoint.
	// Default: a fresh registry with Go and process collectors.
	Registry *prometheus.Registry
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// Metrics records dev server activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	buildsTotal      *prometheus.CounterVec
	buildDuration    *prometheus.HistogramVec
	broadcastsTotal  *prometheus.CounterVec
	connectedClients prometheus.Gauge
	droppedClients   prometheus.Counter
	requestsTotal    *prometheus.CounterVec
}

// NewMetrics registers the dev server metrics.
//
// Metrics collected:
//   - livedev_builds_total: builds by rule and outcome
//   - livedev_build_duration_seconds: command run time by rule
//   - livedev_broadcasts_total: reload messages sent, by type
//   - livedev_connected_clients: browsers currently connected
//   - livedev_dropped_clients_total: browsers dropped after a failed send
//   - livedev_http_requests_total: HTTP responses by route and status code
func NewMetrics(opts ...MetricsOption) *Metrics {
	var config MetricsConfig
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
		config.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		registry: config.Registry,

		buildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "builds_total",
			Help:      "Total number of watch rule runs by outcome",
		}, []string{"rule", "outcome"}),

		buildDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "build_duration_seconds",
			Help:      "Build command duration in seconds",
			Buckets:   buildDurationBuckets,
		}, []string{"rule"}),

		broadcastsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "broadcasts_total",
			Help:      "Total number of reload messages broadcast",
		}, []string{"type"}),

		connectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "connected_clients",
			Help:      "Number of connected browser clients",
		}),

		droppedClients: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dropped_clients_total",
			Help:      "Total number of clients dropped after a failed send",
		}),

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP responses by route and status code",
		}, []string{"route", "code"}),
	}
}

// ObserveBuild records a finished rule run.
func (m *Metrics) ObserveBuild(report build.Report) {
	if m == nil {
		return
	}
	rule := report.Rule.Pattern
	m.buildsTotal.WithLabelValues(rule, report.Outcome).Inc()
	if report.Outcome != build.OutcomeNoCommand {
		m.buildDuration.WithLabelValues(rule).Observe(report.Duration.Seconds())
	}
}

// ObserveBroadcast records a broadcast reload message.
func (m *Metrics) ObserveBroadcast(r reload.Result, clients int) {
	if m == nil {
		return
	}
	m.broadcastsTotal.WithLabelValues(reload.TypeOf(r)).Inc()
}

// SetClients records the number of connected clients.
func (m *Metrics) SetClients(n int) {
	if m == nil {
		return
	}
	m.connectedClients.Set(float64(n))
}

// ClientDropped records a client removed after a failed send.
func (m *Metrics) ClientDropped() {
	if m == nil {
		return
	}
	m.droppedClients.Inc()
}

// Instrument counts responses served by next under the given route label.
func (m *Metrics) Instrument(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		})
	}
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
