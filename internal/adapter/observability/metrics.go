package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60, 180},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and operation",
		},
		[]string{"provider", "operation", "status"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "operation"},
	)
	AIQuotaRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_quota_retries_total",
			Help: "Total number of retries caused by upstream quota errors",
		},
		[]string{"operation"},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ai_circuit_breaker_state",
			Help: "Circuit breaker state per model (0 closed, 1 open, 2 half-open)",
		},
		[]string{"model"},
	)

	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Total number of response cache lookups",
		},
		[]string{"cache", "result"},
	)

	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trend_scans_total",
			Help: "Total number of category scans by outcome",
		},
		[]string{"category", "status"},
	)
	TrendsArchivedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trends_archived_total",
			Help: "Total number of trends written to the archive",
		},
	)
	ScanCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trend_scan_cycle_duration_seconds",
			Help:    "Duration of a full scan cycle in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(AIQuotaRetriesTotal)
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CacheLookupsTotal)
	prometheus.MustRegister(ScansTotal)
	prometheus.MustRegister(TrendsArchivedTotal)
	prometheus.MustRegister(ScanCycleDuration)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveAIRequest records one upstream model call.
func ObserveAIRequest(provider, operation string, status int, d time.Duration) {
	AIRequestsTotal.WithLabelValues(provider, operation, strconv.Itoa(status)).Inc()
	AIRequestDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}

// RecordQuotaRetry counts one backoff caused by an upstream quota error.
func RecordQuotaRetry(operation string) {
	AIQuotaRetriesTotal.WithLabelValues(operation).Inc()
}

// RecordCircuitBreakerState exports the breaker state for a model.
func RecordCircuitBreakerState(model string, state int) {
	CircuitBreakerState.WithLabelValues(model).Set(float64(state))
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

// RecordScan counts the outcome of a single category scan.
func RecordScan(category string, err error, archived int) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ScansTotal.WithLabelValues(category, status).Inc()
	if archived > 0 {
		TrendsArchivedTotal.Add(float64(archived))
	}
}
