package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldservice",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fieldservice",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fieldservice",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Billing metrics
	webhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldservice",
			Subsystem: "billing",
			Name:      "webhook_events_total",
			Help:      "Webhook events received by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	checkoutSessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fieldservice",
			Subsystem: "billing",
			Name:      "checkout_sessions_total",
			Help:      "Checkout sessions created",
		},
	)

	customersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fieldservice",
			Subsystem: "billing",
			Name:      "customers_created_total",
			Help:      "Billing customers created on first checkout",
		},
	)

	statusLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldservice",
			Subsystem: "billing",
			Name:      "status_lookups_total",
			Help:      "Subscription status lookups by resolved status and cache outcome",
		},
		[]string{"status", "cache"},
	)

	reconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldservice",
			Subsystem: "billing",
			Name:      "reconcile_runs_total",
			Help:      "Subscription reconciliation runs by outcome",
		},
		[]string{"outcome"},
	)

	reconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fieldservice",
			Subsystem: "billing",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of subscription reconciliation runs in seconds",
			Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120},
		},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fieldservice",
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "table"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()

		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}

		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(duration)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWebhookEvent records a processed webhook event
func RecordWebhookEvent(eventType, outcome string) {
	webhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

// RecordCheckoutSession records a created checkout session
func RecordCheckoutSession() {
	checkoutSessionsTotal.Inc()
}

// RecordCustomerCreated records a billing customer created for a user
func RecordCustomerCreated() {
	customersCreatedTotal.Inc()
}

// RecordStatusLookup records a subscription status lookup
func RecordStatusLookup(status string, cacheHit bool) {
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	statusLookupsTotal.WithLabelValues(status, cache).Inc()
}

// RecordReconcileRun records the outcome and duration of a reconciliation run
func RecordReconcileRun(outcome string, duration time.Duration) {
	reconcileRunsTotal.WithLabelValues(outcome).Inc()
	reconcileDuration.Observe(duration.Seconds())
}

// RecordDBQuery records a database query duration
func RecordDBQuery(operation, table string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}
