package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	filterBuilds        *prometheus.CounterVec
	appliedFilters      *prometheus.CounterVec
	validationFailures  prometheus.Counter
	homeGuardRejections prometheus.Counter
	queryDuration       *prometheus.HistogramVec
	breakerState        *prometheus.GaugeVec
}

// New creates a fresh Metrics registry with HTTP and filter query metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shadowcheck",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by core-go",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shadowcheck",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by core-go",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	filterBuilds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shadowcheck",
		Name:      "filter_builds_total",
		Help:      "Filter queries compiled, by output shape",
	}, []string{"shape"})

	appliedFilters := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shadowcheck",
		Name:      "applied_filters_total",
		Help:      "Filters that contributed a predicate, by category",
	}, []string{"category"})

	validationFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "shadowcheck",
		Name:      "filter_validation_failures_total",
		Help:      "Filter payloads rejected before building SQL",
	})

	homeGuardRejections := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "shadowcheck",
		Name:      "home_guard_rejections_total",
		Help:      "Distance-from-home queries refused for lack of a single home marker",
	})

	queryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shadowcheck",
		Name:      "query_duration_seconds",
		Help:      "Duration of compiled filter queries against PostGIS",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"shape"})

	breakerState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "shadowcheck",
		Name:      "db_breaker_state",
		Help:      "Database circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		filterBuilds,
		appliedFilters,
		validationFailures,
		homeGuardRejections,
		queryDuration,
		breakerState,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		filterBuilds:        filterBuilds,
		appliedFilters:      appliedFilters,
		validationFailures:  validationFailures,
		homeGuardRejections: homeGuardRejections,
		queryDuration:       queryDuration,
		breakerState:        breakerState,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveFilterBuild counts one compiled query and the categories it applied.
func (m *Metrics) ObserveFilterBuild(shape string, categories []string) {
	if m == nil {
		return
	}
	m.filterBuilds.WithLabelValues(shape).Inc()
	for _, c := range categories {
		m.appliedFilters.WithLabelValues(c).Inc()
	}
}

func (m *Metrics) IncValidationFailure() {
	if m == nil {
		return
	}
	m.validationFailures.Inc()
}

func (m *Metrics) IncHomeGuardRejection() {
	if m == nil {
		return
	}
	m.homeGuardRejections.Inc()
}

// ObserveQueryDuration records how long a compiled query took to execute.
func (m *Metrics) ObserveQueryDuration(shape string, duration time.Duration) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(shape).Observe(duration.Seconds())
}

// SetBreakerState publishes a circuit breaker state transition.
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
