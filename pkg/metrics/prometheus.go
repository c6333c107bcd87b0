// Package metrics provides Prometheus metrics for the deduplication engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Pipeline metrics
	detectionsProcessed prometheus.Counter
	notificationsSent   *prometheus.CounterVec
	suppressed          *prometheus.CounterVec
	extractionErrors    prometheus.Counter
	deliveryErrors      prometheus.Counter
	extractionLatency   prometheus.Histogram
	decisionLatency     prometheus.Histogram

	// Identity cache metrics
	identityMatches   prometheus.Counter
	identityNew       prometheus.Counter
	matchAmbiguity    prometheus.Counter
	evictions         *prometheus.CounterVec
	trackedIdentities prometheus.Gauge
	pendingBuffers    prometheus.Gauge
	cooldownRecords   prometheus.Gauge

	// Queue and worker metrics
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter
	queueErrors      prometheus.Counter
	workerCount      prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
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
		namespace:        "reid",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.detectionsProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "detections_processed_total",
		Help:      "Total number of detections run through the decision pipeline",
	})

	m.notificationsSent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "notifications_sent_total",
			Help:      "Total number of notifications dispatched, by kind (named, generic, fallback)",
		},
		[]string{"kind"},
	)

	m.suppressed = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "notifications_suppressed_total",
			Help:      "Total number of suppressed notifications, by reason",
		},
		[]string{"reason"},
	)

	m.extractionErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "extraction_errors_total",
		Help:      "Total number of embedding extraction failures",
	})

	m.deliveryErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "delivery_errors_total",
		Help:      "Total number of notification delivery failures",
	})

	m.extractionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "extraction_latency_milliseconds",
		Help:      "Histogram of embedding extraction latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.decisionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "decision_latency_milliseconds",
		Help:      "Histogram of cooldown decision latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.identityMatches = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "identity_matches_total",
		Help:      "Total number of detections matched to an existing identity",
	})

	m.identityNew = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "identity_new_total",
		Help:      "Total number of new identities allocated",
	})

	m.matchAmbiguity = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "match_ambiguity_total",
		Help:      "Total number of matches with similarity near the configured threshold",
	})

	m.evictions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "evictions_total",
			Help:      "Total number of capacity evictions, by component (tracker, pending)",
		},
		[]string{"component"},
	)

	m.trackedIdentities = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_identities",
		Help:      "Current number of identities in the tracking cache",
	})

	m.pendingBuffers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pending_buffers",
		Help:      "Current number of buffered generic notifications awaiting a label",
	})

	m.cooldownRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cooldown_records",
		Help:      "Current number of per-identity cooldown records",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the detection job queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum queue capacity",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization_ratio",
		Help:      "Queue utilization ratio (current size / capacity)",
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_total",
		Help:      "Total number of jobs enqueued",
	})

	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeue_total",
		Help:      "Total number of jobs dequeued",
	})

	m.queueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Total number of enqueue failures (backpressure or closed queue)",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Current number of pipeline workers",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// Package-level helpers operating on the global manager.

// RecordDetectionProcessed increments the processed-detections counter.
func RecordDetectionProcessed() {
	globalManager.detectionsProcessed.Inc()
}

// RecordNotificationSent increments the sent counter for a notification kind.
func RecordNotificationSent(kind string) {
	globalManager.notificationsSent.WithLabelValues(kind).Inc()
}

// RecordSuppressed increments the suppression counter for a reason.
func RecordSuppressed(reason string) {
	globalManager.suppressed.WithLabelValues(reason).Inc()
}

// RecordExtractionError increments the extraction failure counter.
func RecordExtractionError() {
	globalManager.extractionErrors.Inc()
}

// RecordDeliveryError increments the delivery failure counter.
func RecordDeliveryError() {
	globalManager.deliveryErrors.Inc()
}

// RecordExtractionLatency records embedding extraction latency in milliseconds.
func RecordExtractionLatency(latencyMs float64) {
	globalManager.extractionLatency.Observe(latencyMs)
}

// RecordDecisionLatency records cooldown decision latency in milliseconds.
func RecordDecisionLatency(latencyMs float64) {
	globalManager.decisionLatency.Observe(latencyMs)
}

// RecordIdentityMatch increments the matched-identity counter.
func RecordIdentityMatch() {
	globalManager.identityMatches.Inc()
}

// RecordIdentityNew increments the new-identity counter.
func RecordIdentityNew() {
	globalManager.identityNew.Inc()
}

// RecordMatchAmbiguity increments the near-threshold match counter.
func RecordMatchAmbiguity() {
	globalManager.matchAmbiguity.Inc()
}

// RecordEviction increments the eviction counter for a component.
func RecordEviction(component string) {
	globalManager.evictions.WithLabelValues(component).Inc()
}

// UpdateTrackedIdentities sets the tracked-identities gauge.
func UpdateTrackedIdentities(count int) {
	globalManager.trackedIdentities.Set(float64(count))
}

// UpdatePendingBuffers sets the pending-buffers gauge.
func UpdatePendingBuffers(count int) {
	globalManager.pendingBuffers.Set(float64(count))
}

// UpdateCooldownRecords sets the cooldown-records gauge.
func UpdateCooldownRecords(count int) {
	globalManager.cooldownRecords.Set(float64(count))
}

// UpdateQueueSize sets the queue size gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization gauge.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueues.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeues.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueErrors.Inc()
}

// UpdateWorkerCount sets the worker count gauge.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
