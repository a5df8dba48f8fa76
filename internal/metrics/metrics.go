package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Pricing metrics
	PricingCalculations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_calculations_total",
			Help: "Total number of price computations",
		},
		[]string{"mode", "outcome"},
	)

	PricingTotalDue = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricing_total_due",
			Help:    "Distribution of computed totals",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 200, 500},
		},
		[]string{"mode"},
	)

	PricingSurgeApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_surge_applied_total",
			Help: "Total number of computations where a surge rule fired",
		},
		[]string{"rule_id"},
	)

	CouponEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_coupon_evaluations_total",
			Help: "Total number of coupon evaluations by result",
		},
		[]string{"result"},
	)

	CouponConsume = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coupon_consume_total",
			Help: "Total number of coupon usage reservations",
		},
		[]string{"store", "result"},
	)

	// Redis metrics
	RedisOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total number of Redis operations",
		},
		[]string{"operation", "status"},
	)

	RedisOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Database metrics
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Event metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of published domain events",
		},
		[]string{"event_type", "status"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors",
		},
		[]string{"type", "component"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCalculation records a finished computation. total is ignored unless outcome is "ok".
func RecordCalculation(mode, outcome string, total float64) {
	PricingCalculations.WithLabelValues(mode, outcome).Inc()
	if outcome == "ok" {
		PricingTotalDue.WithLabelValues(mode).Observe(total)
	}
}

// RecordSurgeApplied records a surge rule firing
func RecordSurgeApplied(ruleID string) {
	PricingSurgeApplied.WithLabelValues(ruleID).Inc()
}

// RecordCouponEvaluation records a coupon outcome; result is "applied" or a rejection reason
func RecordCouponEvaluation(result string) {
	CouponEvaluations.WithLabelValues(result).Inc()
}

// RecordCouponConsume records a usage reservation attempt
func RecordCouponConsume(store string, consumed bool, err error) {
	result := "consumed"
	switch {
	case err != nil:
		result = "error"
	case !consumed:
		result = "exhausted"
	}
	CouponConsume.WithLabelValues(store, result).Inc()
}

// RecordRedisOperation records a Redis operation
func RecordRedisOperation(operation, status string, duration time.Duration) {
	RedisOperationsTotal.WithLabelValues(operation, status).Inc()
	RedisOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDatabaseQuery records a database query
func RecordDatabaseQuery(operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordEventPublished records an event publication attempt
func RecordEventPublished(eventType, status string) {
	EventsPublished.WithLabelValues(eventType, status).Inc()
}

// RecordError records an error
func RecordError(errorType, component string) {
	ErrorsTotal.WithLabelValues(errorType, component).Inc()
}
