// Package metrics provides Prometheus metrics for the tiermark annotator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Pipeline
	reportsEnqueued   prometheus.Counter
	reportsProcessed  prometheus.Counter
	reportsFailed     prometheus.Counter
	invalidRatings    prometheus.Counter
	ratingsClassified *prometheus.CounterVec
	summaries         *prometheus.CounterVec
	annotationsTotal  prometheus.Gauge

	// Queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram

	// Scheduler
	tasks *prometheus.CounterVec

	// Render and fetch
	renders       *prometheus.CounterVec
	renderLatency prometheus.Histogram
	fetches       *prometheus.CounterVec
	fetchLatency  prometheus.Histogram

	// Repository
	repositoryLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tiermark",
		subsystem:        "annotator",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.reportsEnqueued = auto.NewCounter(m.counterOpts("reports_enqueued_total", "Total number of reports accepted into the queue"))
	m.reportsProcessed = auto.NewCounter(m.counterOpts("reports_processed_total", "Total number of reports turned into annotations"))
	m.reportsFailed = auto.NewCounter(m.counterOpts("reports_failed_total", "Total number of reports that could not be annotated"))
	m.invalidRatings = auto.NewCounter(m.counterOpts("invalid_ratings_total", "Total number of ratings outside [-1, 1] or NaN"))
	m.ratingsClassified = auto.NewCounterVec(m.counterOpts("ratings_classified_total", "Total number of ratings classified, by tier"), []string{"tier"})
	m.summaries = auto.NewCounterVec(m.counterOpts("summaries_total", "Summary generation attempts by outcome"), []string{"outcome"})
	m.annotationsTotal = auto.NewGauge(m.gaugeOpts("annotations_total", "Number of annotated articles"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current size of the report queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Number of workers in the pool"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds"))

	m.tasks = auto.NewCounterVec(m.counterOpts("scheduled_tasks_total", "Scheduled tasks by lifecycle event"), []string{"event"})

	m.renders = auto.NewCounterVec(m.counterOpts("renders_total", "Overlay renders by outcome"), []string{"outcome"})
	m.renderLatency = auto.NewHistogram(m.histogramOpts("render_latency_milliseconds", "Overlay render latency in milliseconds"))
	m.fetches = auto.NewCounterVec(m.counterOpts("fetches_total", "Article fetches by outcome"), []string{"outcome"})
	m.fetchLatency = auto.NewHistogram(m.histogramOpts("fetch_latency_milliseconds", "Article fetch latency in milliseconds"))

	m.repositoryLatency = auto.NewHistogramVec(m.histogramOpts("repository_latency_milliseconds", "Annotation store latency in milliseconds"), []string{"operation"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	gc := m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds")
	gc.Buckets = []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}
	m.systemGCPauseTime = auto.NewHistogram(gc)
}

// Pipeline metrics.

// RecordReportEnqueued increments the enqueued reports counter.
func RecordReportEnqueued() {
	globalManager.reportsEnqueued.Inc()
}

// RecordReportProcessed increments the processed reports counter.
func RecordReportProcessed() {
	globalManager.reportsProcessed.Inc()
}

// RecordReportFailed increments the failed reports counter.
func RecordReportFailed() {
	globalManager.reportsFailed.Inc()
}

// RecordInvalidRating increments the invalid rating counter.
func RecordInvalidRating() {
	globalManager.invalidRatings.Inc()
}

// RecordRatingClassified counts a rating classified into tier.
func RecordRatingClassified(tier string) {
	globalManager.ratingsClassified.WithLabelValues(tier).Inc()
}

// RecordSummaryGenerated counts a generated summary.
func RecordSummaryGenerated() {
	globalManager.summaries.WithLabelValues("generated").Inc()
}

// RecordSummaryFailed counts a failed summary generation.
func RecordSummaryFailed() {
	globalManager.summaries.WithLabelValues("failed").Inc()
}

// UpdateAnnotationsTotal sets the number of annotated articles.
func UpdateAnnotationsTotal(count int) {
	globalManager.annotationsTotal.Set(float64(count))
}

// Queue and worker metrics.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// Scheduler metrics.

// RecordTaskScheduled counts a scheduled task.
func RecordTaskScheduled() {
	globalManager.tasks.WithLabelValues("scheduled").Inc()
}

// RecordTaskCompleted counts a task that ran to completion.
func RecordTaskCompleted() {
	globalManager.tasks.WithLabelValues("completed").Inc()
}

// RecordTaskCancelled counts a cancelled task.
func RecordTaskCancelled() {
	globalManager.tasks.WithLabelValues("cancelled").Inc()
}

// Render and fetch metrics.

// RecordRender counts a render attempt with its outcome.
func RecordRender(outcome string) {
	globalManager.renders.WithLabelValues(outcome).Inc()
}

// RecordRenderLatency records overlay render latency.
func RecordRenderLatency(latencyMs float64) {
	globalManager.renderLatency.Observe(latencyMs)
}

// RecordFetch counts an article fetch with its outcome.
func RecordFetch(outcome string) {
	globalManager.fetches.WithLabelValues(outcome).Inc()
}

// RecordFetchLatency records article fetch latency.
func RecordFetchLatency(latencyMs float64) {
	globalManager.fetchLatency.Observe(latencyMs)
}

// RecordRepositoryLatency records the latency of a store operation.
func RecordRepositoryLatency(operation string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the heap memory in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
