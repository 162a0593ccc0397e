package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status_code"},
	)
)

var (
	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_request_duration_seconds",
			Help:    "Duration of upstream catalog requests in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	CatalogFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_failures_total",
			Help: "Total number of failed upstream catalog requests",
		},
		[]string{"operation"},
	)
)

var (
	CartOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_operations_total",
			Help: "Total number of cart mutations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	CheckoutAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_attempts_total",
			Help: "Total number of checkout attempts",
		},
	)

	CheckoutSuccessTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_success_total",
			Help: "Total number of completed checkouts",
		},
	)

	CheckoutFailureTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_failure_total",
			Help: "Total number of failed checkouts",
		},
		[]string{"reason"},
	)

	CheckoutItemsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_items_total",
			Help: "Total number of units checked out",
		},
	)
)

var (
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "session_carts_active",
			Help: "Number of session carts held in process memory",
		},
	)

	SessionsPurgedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_carts_purged_total",
			Help: "Total number of idle session carts purged",
		},
		[]string{"backend"},
	)

	SessionLockAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_lock_attempts_total",
			Help: "Total number of session lock acquisition attempts",
		},
		[]string{"backend"},
	)

	SessionLockFailureTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_lock_failure_total",
			Help: "Total number of failed session lock acquisitions",
		},
		[]string{"backend", "reason"},
	)

	SessionLockDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "session_lock_duration_seconds",
			Help:    "Duration of session lock hold time in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"backend"},
	)
)

var (
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"query_type", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	RedisCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_command_duration_seconds",
			Help:    "Duration of Redis commands in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"command"},
	)
)

// TimeCatalogRequest starts a timer for one upstream call. The returned func
// records the duration and, when err is non-nil, a failure.
func TimeCatalogRequest(operation string) func(err error) {
	start := time.Now()
	return func(err error) {
		CatalogRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		if err != nil {
			CatalogFailuresTotal.WithLabelValues(operation).Inc()
		}
	}
}

func TimeDBQuery(queryType, table string) func() {
	start := time.Now()
	return func() {
		duration := time.Since(start).Seconds()
		DBQueryDuration.WithLabelValues(queryType, table).Observe(duration)
	}
}

func TimeSessionLock(backend string) func() {
	start := time.Now()
	return func() {
		SessionLockDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	}
}

func RecordCartOperation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CartOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

func RecordCheckoutAttempt() {
	CheckoutAttemptsTotal.Inc()
}

func RecordCheckoutSuccess(items int) {
	CheckoutSuccessTotal.Inc()
	CheckoutItemsTotal.Add(float64(items))
}

func RecordCheckoutFailure(reason string) {
	CheckoutFailureTotal.WithLabelValues(reason).Inc()
}

func RecordLockAttempt(backend string) {
	SessionLockAttemptsTotal.WithLabelValues(backend).Inc()
}

func RecordLockFailure(backend, reason string) {
	SessionLockFailureTotal.WithLabelValues(backend, reason).Inc()
}

func SetActiveSessions(n int) {
	ActiveSessions.Set(float64(n))
}

func RecordSessionsPurged(backend string, n int) {
	SessionsPurgedTotal.WithLabelValues(backend).Add(float64(n))
}
