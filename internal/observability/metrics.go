package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics holds all Prometheus metric instruments for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Workflow metrics
	TransitionsTotal   *prometheus.CounterVec
	ClaimsTotal        *prometheus.CounterVec
	ItemsCreatedTotal  prometheus.Counter
	ItemsDeletedTotal  prometheus.Counter
	StaleClaimReleases prometheus.Counter

	// Notifier metrics
	NotifierEmitsTotal *prometheus.CounterVec
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callsheet_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "callsheet_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),

		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callsheet_transitions_total",
			Help: "Total number of transition attempts.",
		}, []string{"role", "from", "to", "outcome"}),
		ClaimsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callsheet_claims_total",
			Help: "Total number of claim attempts.",
		}, []string{"role", "stage", "outcome"}),
		ItemsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "callsheet_items_created_total",
			Help: "Total number of items created.",
		}),
		ItemsDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "callsheet_items_deleted_total",
			Help: "Total number of items deleted.",
		}),
		StaleClaimReleases: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "callsheet_stale_claim_releases_total",
			Help: "Total number of stale claims released.",
		}),

		NotifierEmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callsheet_notifier_emits_total",
			Help: "Total number of notifier deliveries.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.TransitionsTotal,
		m.ClaimsTotal,
		m.ItemsCreatedTotal,
		m.ItemsDeletedTotal,
		m.StaleClaimReleases,
		m.NotifierEmitsTotal,
	)

	return m
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
}

// RecordTransition records one transition attempt.
func (m *Metrics) RecordTransition(role, from, to, outcome string) {
	m.TransitionsTotal.WithLabelValues(role, from, to, outcome).Inc()
}

// RecordClaim records one claim attempt.
func (m *Metrics) RecordClaim(role, stage, outcome string) {
	m.ClaimsTotal.WithLabelValues(role, stage, outcome).Inc()
}

// RecordNotifierEmit records one notifier delivery attempt.
func (m *Metrics) RecordNotifierEmit(status string) {
	m.NotifierEmitsTotal.WithLabelValues(status).Inc()
}

// MetricsMiddleware returns HTTP middleware that records request metrics using
// chi's route pattern (not the actual URL path) to avoid label cardinality
// explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		m.RecordHTTPRequest(r.Method, routePattern(r), sw.status, time.Since(start))
	})
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	// chi route patterns have trailing /*, remove it.
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture the status code.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}
