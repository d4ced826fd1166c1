package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/ridehail/control-plane/shared/logger"
)

// MetricsMiddleware provides Prometheus metrics collection
type MetricsMiddleware struct {
	logger           *logger.Logger
	requestDuration  *prometheus.HistogramVec
	requestsTotal    *prometheus.CounterVec
	requestsInFlight prometheus.Gauge
	requestSize      *prometheus.HistogramVec
	responseSize     *prometheus.HistogramVec
}

// NewMetricsMiddleware creates a new metrics middleware
func NewMetricsMiddleware(serviceName string, log *logger.Logger) *MetricsMiddleware {
	requestDuration := promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "endpoint", "status_code"},
	)

	requestsTotal := promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "endpoint", "status_code"},
	)

	requestsInFlight := promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	requestSize := promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "Size of HTTP requests in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"service", "method", "endpoint"},
	)

	responseSize := promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"service", "method", "endpoint", "status_code"},
	)

	return &MetricsMiddleware{
		logger:           log,
		requestDuration:  requestDuration,
		requestsTotal:    requestsTotal,
		requestsInFlight: requestsInFlight,
		requestSize:      requestSize,
		responseSize:     responseSize,
	}
}

// PrometheusMetrics collects Prometheus metrics for HTTP requests
func (m *MetricsMiddleware) PrometheusMetrics(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip metrics collection for metrics endpoint
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		// Increment in-flight requests
		m.requestsInFlight.Inc()
		defer m.requestsInFlight.Dec()

		// Record request size
		if c.Request.ContentLength > 0 {
			m.requestSize.WithLabelValues(
				serviceName,
				c.Request.Method,
				c.FullPath(),
			).Observe(float64(c.Request.ContentLength))
		}

		// Create response writer wrapper to capture response size
		writer := &metricsResponseWriter{
			ResponseWriter: c.Writer,
			size:          0,
		}
		c.Writer = writer

		// Record start time
		start := time.Now()

		// Process request
		c.Next()

		// Calculate duration
		duration := time.Since(start)

		// Get status code
		statusCode := strconv.Itoa(c.Writer.Status())

		// Record metrics
		m.requestDuration.WithLabelValues(
			serviceName,
			c.Request.Method,
			c.FullPath(),
			statusCode,
		).Observe(duration.Seconds())

		m.requestsTotal.WithLabelValues(
			serviceName,
			c.Request.Method,
			c.FullPath(),
			statusCode,
		).Inc()

		m.responseSize.WithLabelValues(
			serviceName,
			c.Request.Method,
			c.FullPath(),
			statusCode,
		).Observe(float64(writer.size))

		// Log metrics
		m.logger.LogMetric(c.Request.Context(), "http_request_duration", duration.Seconds(), map[string]string{
			"service":     serviceName,
			"method":      c.Request.Method,
			"endpoint":    c.FullPath(),
			"status_code": statusCode,
		})
	}
}

// metricsResponseWriter wraps gin.ResponseWriter to capture response size
type metricsResponseWriter struct {
	gin.ResponseWriter
	size int
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	size, err := w.ResponseWriter.Write(b)
	w.size += size
	return size, err
}

