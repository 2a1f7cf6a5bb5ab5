// Package metrics provides Prometheus metrics for the speakeval service.
package metrics

import (
	"runtime"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// scoreBuckets cover the 0..90 reporting scale.
var scoreBuckets = []float64{0, 10, 20, 30, 43, 59, 76, 85, 90}

// Manager manages all Prometheus metrics for the evaluation service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Evaluation
	attemptsEvaluated *prometheus.CounterVec
	attemptsDuplicate prometheus.Counter
	evaluationLatency prometheus.Histogram
	evaluationErrors  prometheus.Counter
	overallScore      *prometheus.HistogramVec
	traitBands        *prometheus.CounterVec

	// Tone
	toneProfiles *prometheus.CounterVec
	toneFrames   *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	queueAbandoned     prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Repository
	repositoryRecords    prometheus.Gauge
	repositoryShardCount prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Runtime
	goroutines prometheus.Gauge
	heapInUse  prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "speakeval",
		subsystem:        "engine",
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

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.attemptsEvaluated = m.counterVec("attempts_evaluated_total", "Attempts evaluated by task type", "task")
	m.attemptsDuplicate = m.counter("attempts_duplicate_total", "Attempts rejected as duplicates")
	m.evaluationLatency = m.histogram("evaluation_latency_milliseconds", "Engine evaluation latency in milliseconds", m.histogramBuckets)
	m.evaluationErrors = m.counter("evaluation_errors_total", "Evaluations that failed (cancelled context)")
	m.overallScore = m.histogramVec("overall_score", "Overall 0..90 score by task type", scoreBuckets, "task")
	m.traitBands = m.counterVec("trait_bands_total", "Trait bands awarded", "trait", "band")

	m.toneProfiles = m.counterVec("tone_profiles_total", "Tone profiles produced", "has_pitch_data")
	m.toneFrames = m.counterVec("tone_frames_total", "Audio frames analysed for pitch", "voiced")

	m.queueSize = m.gauge("queue_size", "Current number of queued attempts")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued attempts")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Attempts enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Attempts dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Attempts rejected because the queue was full or closed")
	m.queueAbandoned = m.counter("queue_abandoned_total", "Attempts taken off the queue but never handed to a worker")

	m.workerCount = m.gauge("worker_count", "Running evaluation workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time from dequeue to stored evaluation", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Attempts a worker failed to evaluate or store")

	m.repositoryRecords = m.gauge("repository_records_total", "Evaluations held in the store")
	m.repositoryShardCount = m.gauge("repository_shard_count", "Store shards")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		m.histogramBuckets, "endpoint", "method", "status_code")

	m.goroutines = m.gauge("goroutines", "Current goroutine count")
	m.heapInUse = m.gauge("heap_inuse_bytes", "Heap bytes in use")
}

// RecordEvaluation records a finished evaluation.
func RecordEvaluation(task string, overall int, latencyMs float64) {
	globalManager.attemptsEvaluated.WithLabelValues(task).Inc()
	globalManager.overallScore.WithLabelValues(task).Observe(float64(overall))
	globalManager.evaluationLatency.Observe(latencyMs)
}

// RecordTraitBand counts one awarded trait band.
func RecordTraitBand(trait string, band int) {
	globalManager.traitBands.WithLabelValues(trait, strconv.Itoa(band)).Inc()
}

// RecordEvaluationError increments the evaluation error counter.
func RecordEvaluationError() {
	globalManager.evaluationErrors.Inc()
}

// RecordAttemptDuplicate increments the duplicate attempts counter.
func RecordAttemptDuplicate() {
	globalManager.attemptsDuplicate.Inc()
}

// RecordToneProfile records a finished tone profile and its frame counts.
func RecordToneProfile(hasPitch bool, frames, voiced int) {
	globalManager.toneProfiles.WithLabelValues(strconv.FormatBool(hasPitch)).Inc()
	globalManager.toneFrames.WithLabelValues("true").Add(float64(voiced))
	globalManager.toneFrames.WithLabelValues("false").Add(float64(frames - voiced))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueAbandoned counts an attempt dropped by a cancelled consumer.
func RecordQueueAbandoned() {
	globalManager.queueAbandoned.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// UpdateRepositoryRecordsTotal sets the number of stored evaluations.
func UpdateRepositoryRecordsTotal(count int) {
	globalManager.repositoryRecords.Set(float64(count))
}

// UpdateRepositoryShardCount sets the number of store shards.
func UpdateRepositoryShardCount(count int) {
	globalManager.repositoryShardCount.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateRuntime samples goroutine and heap gauges.
func UpdateRuntime() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	globalManager.goroutines.Set(float64(runtime.NumGoroutine()))
	globalManager.heapInUse.Set(float64(ms.HeapInuse))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
