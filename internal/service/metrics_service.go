package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for engine counters.
const (
	OutcomeClear     = "clear"
	OutcomeConflict  = "conflict"
	OutcomeCommitted = "committed"
	OutcomeForced    = "forced"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

// MetricsService encapsulates Prometheus instrumentation for the engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec
	conflictChecks  *prometheus.CounterVec
	conflictsFound  prometheus.Histogram
	commits         *prometheus.CounterVec
	replays         prometheus.Counter
	shed            prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	// Buckets centred on the 100ms latency target for overlap lookups.
	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of schedule store queries",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"query"})

	conflictChecks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conflict_checks_total",
		Help: "Conflict checks by outcome",
	}, []string{"outcome"})

	conflictsFound := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "conflicts_per_check",
		Help:    "Number of conflicts reported by a single check",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
	})

	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_commits_total",
		Help: "Reservation commit attempts by outcome",
	}, []string{"outcome"})

	replays := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "idempotent_replays_total",
		Help: "Commit responses replayed for a repeated Idempotency-Key",
	})

	shed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "requests_shed_total",
		Help: "Requests rejected by the rate limiter before reaching the store",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, dbQueryDuration, conflictChecks, conflictsFound, commits, replays, shed, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		dbQueryDuration: dbQueryDuration,
		conflictChecks:  conflictChecks,
		conflictsFound:  conflictsFound,
		commits:         commits,
		replays:         replays,
		shed:            shed,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordConflictCheck counts a finished conflict check.
func (m *MetricsService) RecordConflictCheck(outcome string, conflicts int) {
	if m == nil {
		return
	}
	m.conflictChecks.WithLabelValues(outcome).Inc()
	if outcome != OutcomeError {
		m.conflictsFound.Observe(float64(conflicts))
	}
}

// RecordCommit counts a finished commit attempt.
func (m *MetricsService) RecordCommit(outcome string) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(outcome).Inc()
}

// RecordReplay counts a replayed idempotent response.
func (m *MetricsService) RecordReplay() {
	if m == nil {
		return
	}
	m.replays.Inc()
}

// RecordShed counts a request rejected by load shedding.
func (m *MetricsService) RecordShed() {
	if m == nil {
		return
	}
	m.shed.Inc()
}
