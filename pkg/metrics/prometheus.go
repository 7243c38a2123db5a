// Package metrics provides Prometheus metrics for the juryboard service.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Ranking read path
	rankingQueries      *prometheus.CounterVec
	rankingQueryLatency *prometheus.HistogramVec
	rankingScopeSize    prometheus.Histogram

	// Score ingestion
	scoreSubmissions *prometheus.CounterVec
	scoresPersisted  prometheus.Counter
	scoreWriteErrors *prometheus.CounterVec

	// Queue
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueUtilization  prometheus.Gauge
	queueEnqueued     prometheus.Counter
	queueDequeued     prometheus.Counter
	queueEnqueueError prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Repository
	repositoryQueryLatency  *prometheus.HistogramVec
	repositoryUpdateLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level recorders

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // avoids default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	m, err := NewManager(WithPrometheusRegistry(customRegistry))
	if err != nil {
		panic(err)
	}
	globalManager = m
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		namespace:        "juryboard",
		subsystem:        "leaderboard",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	if err := m.register(); err != nil {
		return nil, err
	}
	return m, nil
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

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.rankingQueries = prometheus.NewCounterVec(
		m.counterOpts("ranking_queries_total", "Ranking queries by operation and outcome"),
		[]string{"operation", "outcome"},
	)
	m.rankingQueryLatency = prometheus.NewHistogramVec(
		m.histogramOpts("ranking_query_latency_milliseconds", "End-to-end ranking query latency", nil),
		[]string{"operation"},
	)
	m.rankingScopeSize = prometheus.NewHistogram(
		m.histogramOpts("ranking_scope_size", "Number of participants in scope per ranking query",
			[]float64{1, 10, 25, 50, 100, 250, 500, 1000, 5000}),
	)

	m.scoreSubmissions = prometheus.NewCounterVec(
		m.counterOpts("score_submissions_total", "Score sheet submissions by outcome"),
		[]string{"outcome"},
	)
	m.scoresPersisted = prometheus.NewCounter(
		m.counterOpts("scores_persisted_total", "Score sheets written to the store"),
	)
	m.scoreWriteErrors = prometheus.NewCounterVec(
		m.counterOpts("score_write_errors_total", "Score sheets the workers failed to persist"),
		[]string{"reason"},
	)

	m.queueSize = prometheus.NewGauge(m.gaugeOpts("queue_size", "Current number of queued score sheets"))
	m.queueCapacity = prometheus.NewGauge(m.gaugeOpts("queue_capacity", "Queue capacity"))
	m.queueUtilization = prometheus.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue size divided by capacity"))
	m.queueEnqueued = prometheus.NewCounter(m.counterOpts("queue_enqueued_total", "Score sheets enqueued"))
	m.queueDequeued = prometheus.NewCounter(m.counterOpts("queue_dequeued_total", "Score sheets dequeued"))
	m.queueEnqueueError = prometheus.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Rejected enqueues (full or closed)"))

	m.workerCount = prometheus.NewGauge(m.gaugeOpts("worker_count", "Number of score writer workers"))
	m.workerProcessingLatency = prometheus.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Time to persist one score sheet", nil),
	)
	m.workerErrors = prometheus.NewCounter(m.counterOpts("worker_errors_total", "Worker processing failures"))

	m.repositoryQueryLatency = prometheus.NewHistogramVec(
		m.histogramOpts("repository_query_latency_milliseconds", "Store read latency", nil),
		[]string{"query"},
	)
	m.repositoryUpdateLatency = prometheus.NewHistogram(
		m.histogramOpts("repository_update_latency_milliseconds", "Store write latency", nil),
	)

	m.httpRequests = prometheus.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = prometheus.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration", nil),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = prometheus.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorsByType = prometheus.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorsByEndpoint = prometheus.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = prometheus.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = prometheus.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = prometheus.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "Average GC pause time",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100}),
	)
}

func (m *Manager) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.rankingQueries, m.rankingQueryLatency, m.rankingScopeSize,
		m.scoreSubmissions, m.scoresPersisted, m.scoreWriteErrors,
		m.queueSize, m.queueCapacity, m.queueUtilization, m.queueEnqueued, m.queueDequeued, m.queueEnqueueError,
		m.workerCount, m.workerProcessingLatency, m.workerErrors,
		m.repositoryQueryLatency, m.repositoryUpdateLatency,
		m.httpRequests, m.httpRequestDuration,
		m.errorsByComponent, m.errorsByType, m.errorsByEndpoint,
		m.systemMemoryUsage, m.systemGoroutineCount, m.systemGCPauseTime,
	}
}

func (m *Manager) register() error {
	var errs []error
	for _, c := range m.collectors() {
		if err := m.registry.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrRegister, errors.Join(errs...))
	}
	return nil
}

// Ranking read path.

// RecordRankingQuery counts a ranking query; outcome is ok, not_found or error.
func RecordRankingQuery(operation, outcome string) {
	globalManager.rankingQueries.WithLabelValues(operation, outcome).Inc()
}

// RecordRankingQueryLatency records end-to-end ranking latency in milliseconds.
func RecordRankingQueryLatency(operation string, latencyMs float64) {
	globalManager.rankingQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordRankingScopeSize records how many participants a query ranked.
func RecordRankingScopeSize(n int) {
	globalManager.rankingScopeSize.Observe(float64(n))
}

// Score ingestion.

// RecordScoreSubmission counts a submission: accepted, duplicate, invalid or backpressure.
func RecordScoreSubmission(outcome string) {
	globalManager.scoreSubmissions.WithLabelValues(outcome).Inc()
}

// RecordScorePersisted counts a score sheet written by a worker.
func RecordScorePersisted() {
	globalManager.scoresPersisted.Inc()
}

// RecordScoreWriteError counts a score sheet a worker could not persist.
func RecordScoreWriteError(reason string) {
	globalManager.scoreWriteErrors.WithLabelValues(reason).Inc()
}

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts a successful enqueue.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueError.Inc()
}

// Workers.

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records how long a worker spent on one sheet.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a worker failure.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Repository.

// RecordRepositoryQueryLatency records a store read latency for the named query.
func RecordRepositoryQueryLatency(query string, latencyMs float64) {
	globalManager.repositoryQueryLatency.WithLabelValues(query).Observe(latencyMs)
}

// RecordRepositoryUpdateLatency records a store write latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Errors.

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error for an HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets heap bytes allocated.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records the average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry the package-level recorders write to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
