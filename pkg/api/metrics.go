package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API. It also implements
// pipeline.Observer so stage timings land in the same registry.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Pipeline metrics
	pipelineOperationsTotal   *prometheus.CounterVec
	pipelineOperationDuration *prometheus.HistogramVec
	pipelineStageDuration     *prometheus.HistogramVec
	pipelinePayloadBytes      *prometheus.HistogramVec
	correctionFailuresTotal   prometheus.Counter
	kdfWaitDuration           prometheus.Histogram

	// Job store metrics
	jobOperationsTotal *prometheus.CounterVec

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec

	// Health check metrics
	healthChecksTotal *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them, together with the Go
// runtime and process collectors, on reg
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,

		// HTTP request metrics
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nucleon_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nucleon_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nucleon_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		// Pipeline metrics
		pipelineOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nucleon_pipeline_operations_total",
				Help: "Total number of pipeline operations by outcome",
			},
			[]string{"operation", "status"},
		),

		pipelineOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nucleon_pipeline_operation_duration_seconds",
				Help:    "Pipeline operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		pipelineStageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nucleon_pipeline_stage_duration_seconds",
				Help:    "Duration of a single pipeline stage in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"operation", "stage"},
		),

		pipelinePayloadBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nucleon_pipeline_payload_bytes",
				Help:    "Size of decoded payloads in bytes",
				Buckets: prometheus.ExponentialBuckets(64, 4, 10),
			},
			[]string{"operation"},
		),

		correctionFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "nucleon_correction_failed_blocks_total",
				Help: "Total number of Reed-Solomon blocks that could not be corrected",
			},
		),

		kdfWaitDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nucleon_kdf_wait_duration_seconds",
				Help:    "Time spent waiting for a key derivation slot",
				Buckets: prometheus.DefBuckets,
			},
		),

		// Job store metrics
		jobOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nucleon_job_operations_total",
				Help: "Total number of job store operations",
			},
			[]string{"operation", "status"},
		),

		// Authentication metrics
		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nucleon_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		// Health check metrics
		healthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nucleon_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordPipelineOperation records an encode or decode call. status is
// "success" or the error kind.
func (m *Metrics) RecordPipelineOperation(operation, status string, duration time.Duration) {
	m.pipelineOperationsTotal.WithLabelValues(operation, status).Inc()
	m.pipelineOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordPayloadSize records the size of a payload entering encode or leaving decode
func (m *Metrics) RecordPayloadSize(operation string, size int) {
	m.pipelinePayloadBytes.WithLabelValues(operation).Observe(float64(size))
}

// RecordKDFWait records how long a request waited for a key derivation slot
func (m *Metrics) RecordKDFWait(d time.Duration) {
	m.kdfWaitDuration.Observe(d.Seconds())
}

// ObserveStage records the duration of one pipeline stage
func (m *Metrics) ObserveStage(op, stage string, d time.Duration) {
	m.pipelineStageDuration.WithLabelValues(op, stage).Observe(d.Seconds())
}

// ObserveCorrectionFailure counts uncorrectable Reed-Solomon blocks
func (m *Metrics) ObserveCorrectionFailure(failedBlocks int) {
	m.correctionFailuresTotal.Add(float64(failedBlocks))
}

// RecordJobOperation records a job store operation
func (m *Metrics) RecordJobOperation(operation string, success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.jobOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.authRequestsTotal.WithLabelValues(status).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.healthChecksTotal.WithLabelValues(status).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Record request in flight
		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		// Create response writer wrapper to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next(h).ServeHTTP(rw, r)

			m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}
