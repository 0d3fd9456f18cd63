package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"finitefield.org/authdemo/internal/authdemo/forms"
)

const metricsNamespace = "authdemo"

// Metrics holds the application's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	submissionsTotal   *prometheus.CounterVec
	validationsTotal   *prometheus.CounterVec
	guardRedirects     *prometheus.CounterVec
	sessionTransitions *prometheus.CounterVec
	liveVisitors       prometheus.Gauge
	liveConnections    prometheus.Gauge
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		submissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "form_submissions_total",
			Help:      "Form submissions by form and outcome.",
		}, []string{"form", "outcome"}),
		validationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "field_validations_total",
			Help:      "Field rule runs by form, field and result.",
		}, []string{"form", "field", "result"}),
		guardRedirects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "guard_redirects_total",
			Help:      "Route guard redirects by target.",
		}, []string{"target"}),
		sessionTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "session_transitions_total",
			Help:      "Session flag flips by direction.",
		}, []string{"direction"}),
		liveVisitors: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "visitors",
			Help:      "Visitors currently held in memory.",
		}),
		liveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "live_connections",
			Help:      "Open websocket connections.",
		}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts requests and observes latency per route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := newResponseRecorder(w)
		start := time.Now()
		next.ServeHTTP(recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.Status())).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// FieldValidated implements forms.Recorder.
func (m *Metrics) FieldValidated(kind forms.Kind, field string, valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.validationsTotal.WithLabelValues(string(kind), field, result).Inc()
}

// Submission implements forms.Recorder.
func (m *Metrics) Submission(kind forms.Kind, outcome forms.Outcome) {
	m.submissionsTotal.WithLabelValues(string(kind), string(outcome)).Inc()
}

// GuardRedirect counts a redirect issued by the route guard.
func (m *Metrics) GuardRedirect(target string) {
	m.guardRedirects.WithLabelValues(target).Inc()
}

// SessionTransition counts a session flag flip.
func (m *Metrics) SessionTransition(authenticated bool) {
	direction := "logout"
	if authenticated {
		direction = "login"
	}
	m.sessionTransitions.WithLabelValues(direction).Inc()
}

// SetVisitors records the number of in-memory visitors.
func (m *Metrics) SetVisitors(n int) {
	m.liveVisitors.Set(float64(n))
}

// LiveConnected adjusts the open websocket gauge by delta.
func (m *Metrics) LiveConnected(delta int) {
	m.liveConnections.Add(float64(delta))
}
