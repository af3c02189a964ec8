// v0
// internal/metrics/metrics.go
// Package metrics exposes the dashboard Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Load phases reported by SetLoadPhase.
var loadPhases = []string{"idle", "loading", "ready", "error"}

type Metrics struct {
	registry          *prometheus.Registry
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	actions           *prometheus.CounterVec
	loadPhase         *prometheus.GaugeVec
	loadAttempts      prometheus.Counter
	seriesUpdates     *prometheus.CounterVec
	events            *prometheus.CounterVec
	cbState           *prometheus.GaugeVec
}

// New builds the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_actions_total",
			Help: "Dispatched dashboard actions by type.",
		}, []string{"action"}),
		loadPhase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dashboard_load_phase",
			Help: "1 for the current load phase, 0 otherwise.",
		}, []string{"phase"}),
		loadAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_load_attempts_total",
			Help: "Total data load attempts.",
		}),
		seriesUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_series_updates_total",
			Help: "Live series updates by source and result.",
		}, []string{"source", "result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_interaction_events_total",
			Help: "Interaction events by publish result.",
		}, []string{"result"}),
		cbState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dashboard_cb_state",
			Help: "Circuit breaker state gauge (0 closed, 1 half, 2 open).",
		}, []string{"target"}),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.actions,
		m.loadPhase,
		m.loadAttempts,
		m.seriesUpdates,
		m.events,
		m.cbState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.SetLoadPhase("idle")
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts and times requests under route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Action(action string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action).Inc()
}

// SetLoadPhase flips the phase gauge to phase.
func (m *Metrics) SetLoadPhase(phase string) {
	if m == nil {
		return
	}
	for _, p := range loadPhases {
		v := 0.0
		if p == phase {
			v = 1
		}
		m.loadPhase.WithLabelValues(p).Set(v)
	}
}

func (m *Metrics) LoadAttempt() {
	if m == nil {
		return
	}
	m.loadAttempts.Inc()
}

// SeriesUpdate records a live update outcome.
func (m *Metrics) SeriesUpdate(source string, err error) {
	if m == nil {
		return
	}
	result := "applied"
	if err != nil {
		result = "rejected"
	}
	m.seriesUpdates.WithLabelValues(source, result).Inc()
}

// Event records an interaction event outcome: published, dropped or failed.
func (m *Metrics) Event(result string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(result).Inc()
}

func (m *Metrics) SetCircuitBreakerState(target string, state float64) {
	if m == nil {
		return
	}
	m.cbState.WithLabelValues(target).Set(state)
}
