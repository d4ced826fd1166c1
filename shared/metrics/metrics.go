package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Trip lifecycle metrics
	TripsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trips_created_total",
			Help: "Total number of trips created",
		},
		[]string{"status"},
	)

	TripsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trips_completed_total",
			Help: "Total number of trips completed",
		},
		[]string{"final_status"},
	)

	TripVersionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trip_version_conflicts_total",
			Help: "Total number of optimistic concurrency conflicts on Trip updates",
		},
	)

	DriversReserved = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "drivers_reserved",
			Help: "Number of drivers currently reserved (unavailable)",
		},
	)

	MatchingAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_attempts_total",
			Help: "Total number of driver matching attempts",
		},
		[]string{"result"},
	)

	MatchingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_duration_seconds",
			Help:    "Duration of driver matching process",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
	)

	// PricingEngine metrics
	PricingCalculations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_calculations_total",
			Help: "Total number of fare calculations, partitioned by outcome",
		},
		[]string{"result"},
	)

	GuardrailRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_guardrail_rejections_total",
			Help: "Total number of CalculatePrice calls rejected by the economic guardrail",
		},
	)

	PricingConfigReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_config_reloads_total",
			Help: "Total number of pricing configuration reload attempts",
		},
		[]string{"result"},
	)

	// TripWorkflow (orchestrator) metrics
	WorkflowExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_executions_total",
			Help: "Total number of TripWorkflow executions, partitioned by outcome",
		},
		[]string{"result"},
	)

	WorkflowCompensations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_compensations_total",
			Help: "Total number of saga compensation steps executed",
		},
		[]string{"step", "result"},
	)

	WorkflowDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "workflow_duration_seconds",
			Help:    "End-to-end duration of a TripWorkflow execution",
			Buckets: prometheus.DefBuckets,
		},
	)

	DatabaseConnectionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
		[]string{"database"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)
)

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordTripCreated records trip creation
func RecordTripCreated(status string) {
	TripsCreated.WithLabelValues(status).Inc()
}

// RecordTripCompleted records trip completion
func RecordTripCompleted(finalStatus string) {
	TripsCompleted.WithLabelValues(finalStatus).Inc()
}

// RecordVersionConflict records an optimistic concurrency conflict.
func RecordVersionConflict() {
	TripVersionConflicts.Inc()
}

// SetDriversReserved sets the number of drivers currently reserved.
func SetDriversReserved(count float64) {
	DriversReserved.Set(count)
}

// RecordMatchingAttempt records driver matching attempt
func RecordMatchingAttempt(result string, duration time.Duration) {
	MatchingAttempts.WithLabelValues(result).Inc()
	MatchingDuration.Observe(duration.Seconds())
}

// RecordPricingCalculation records a fare calculation outcome.
func RecordPricingCalculation(result string) {
	PricingCalculations.WithLabelValues(result).Inc()
	if result == "guardrail_rejected" {
		GuardrailRejections.Inc()
	}
}

// RecordPricingConfigReload records a hot-reload attempt outcome.
func RecordPricingConfigReload(result string) {
	PricingConfigReloads.WithLabelValues(result).Inc()
}

// RecordWorkflowExecution records a TripWorkflow execution outcome.
func RecordWorkflowExecution(result string, duration time.Duration) {
	WorkflowExecutions.WithLabelValues(result).Inc()
	WorkflowDuration.Observe(duration.Seconds())
}

// RecordWorkflowCompensation records a single saga compensation step.
func RecordWorkflowCompensation(step, result string) {
	WorkflowCompensations.WithLabelValues(step, result).Inc()
}

// SetDatabaseConnections sets active database connections
func SetDatabaseConnections(database string, count float64) {
	DatabaseConnectionsActive.WithLabelValues(database).Set(count)
}

// RecordCacheHit records cache hit
func RecordCacheHit(cacheType string) {
	CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records cache miss
func RecordCacheMiss(cacheType string) {
	CacheMisses.WithLabelValues(cacheType).Inc()
}
