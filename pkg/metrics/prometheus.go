// Package metrics provides Prometheus metrics for the umastats service.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingestion
	rowsIngested  prometheus.Counter
	rowsDuplicate prometheus.Counter
	rowsRejected  prometheus.Counter

	// Aggregation
	aggregationRuns           prometheus.Counter
	aggregationLatency        prometheus.Histogram
	aggregationEntrants       prometheus.Gauge
	aggregationOperators      prometheus.Gauge
	aggregationBanTournaments prometheus.Gauge

	// Store
	storeRows               prometheus.Gauge
	storeTournaments        prometheus.Gauge
	storeAppendLatency      prometheus.Histogram
	storeQueryLatency       prometheus.Histogram
	snapshotRebuildDuration prometheus.Histogram
	snapshotLastUnix        prometheus.Gauge
	snapshotCount           prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

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

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // service metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "umastats",
		subsystem:        "aggregator",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		enabled:          true,
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

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus collectors.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.rowsIngested = m.counter("rows_ingested_total", "Race rows accepted into the store")
	m.rowsDuplicate = m.counter("rows_duplicate_total", "Race rows dropped because their id was already seen")
	m.rowsRejected = m.counter("rows_rejected_total", "Race rows rejected by validation")

	m.aggregationRuns = m.counter("runs_total", "Number of statistics aggregations computed")
	m.aggregationLatency = m.histogram("latency_milliseconds", "Aggregation latency in milliseconds")
	m.aggregationEntrants = m.gauge("entrants", "Entrant rows produced by the last aggregation")
	m.aggregationOperators = m.gauge("operators", "Operator rows produced by the last aggregation")
	m.aggregationBanTournaments = m.gauge("ban_tournaments", "Ban denominator of the last aggregation")

	m.storeRows = m.gauge("store_rows", "Race rows held in the store")
	m.storeTournaments = m.gauge("store_tournaments", "Distinct tournaments held in the store")
	m.storeAppendLatency = m.histogram("store_append_latency_milliseconds", "Store append latency in milliseconds")
	m.storeQueryLatency = m.histogram("store_query_latency_milliseconds", "Store query latency in milliseconds")
	m.snapshotRebuildDuration = m.histogram("store_snapshot_rebuild_milliseconds", "Time to rebuild a store snapshot")
	m.snapshotLastUnix = m.gauge("store_snapshot_last_unix", "Unix time of the last published snapshot")
	m.snapshotCount = m.counter("store_snapshots_total", "Number of snapshots published")

	m.queueSize = m.gauge("queue_size", "Rows waiting in the ingest queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the ingest queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Ingest queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Rows enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Rows dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Rows refused by the queue")

	m.workerCount = m.gauge("workers", "Ingest workers running")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per-row worker latency")
	m.workerErrors = m.counter("worker_errors_total", "Rows the workers failed to store")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "http_request_duration_milliseconds",
		Help: "HTTP request duration in milliseconds", ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds")
}

// Manager methods. Each is a no-op when the manager is disabled.

func (m *Manager) RecordRowIngested()  { m.inc(m.rowsIngested) }
func (m *Manager) RecordRowDuplicate() { m.inc(m.rowsDuplicate) }
func (m *Manager) RecordRowRejected()  { m.inc(m.rowsRejected) }

// RecordAggregation records one aggregation run and the size of its output.
func (m *Manager) RecordAggregation(latencyMs float64, entrants, operators, banTournaments int) {
	if !m.enabled {
		return
	}
	m.aggregationRuns.Inc()
	m.aggregationLatency.Observe(latencyMs)
	m.aggregationEntrants.Set(float64(entrants))
	m.aggregationOperators.Set(float64(operators))
	m.aggregationBanTournaments.Set(float64(banTournaments))
}

func (m *Manager) UpdateStoreRows(n int)        { m.set(m.storeRows, float64(n)) }
func (m *Manager) UpdateStoreTournaments(n int) { m.set(m.storeTournaments, float64(n)) }
func (m *Manager) RecordStoreAppendLatency(ms float64) {
	m.observe(m.storeAppendLatency, ms)
}
func (m *Manager) RecordStoreQueryLatency(ms float64) { m.observe(m.storeQueryLatency, ms) }

// RecordSnapshot records a published store snapshot.
func (m *Manager) RecordSnapshot(durationMs float64, unix int64) {
	if !m.enabled {
		return
	}
	m.snapshotRebuildDuration.Observe(durationMs)
	m.snapshotLastUnix.Set(float64(unix))
	m.snapshotCount.Inc()
}

// UpdateQueue sets the queue size and utilization gauges.
func (m *Manager) UpdateQueue(size, capacity int) {
	if !m.enabled {
		return
	}
	m.queueSize.Set(float64(size))
	if capacity > 0 {
		m.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

func (m *Manager) UpdateQueueCapacity(capacity int) { m.set(m.queueCapacity, float64(capacity)) }
func (m *Manager) RecordQueueEnqueue()              { m.inc(m.queueEnqueued) }
func (m *Manager) RecordQueueDequeue()              { m.inc(m.queueDequeued) }
func (m *Manager) RecordQueueEnqueueError()         { m.inc(m.queueEnqueueErrors) }

func (m *Manager) UpdateWorkerCount(n int) { m.set(m.workerCount, float64(n)) }
func (m *Manager) RecordWorkerProcessingLatency(ms float64) {
	m.observe(m.workerProcessingLatency, ms)
}
func (m *Manager) RecordWorkerError() { m.inc(m.workerErrors) }

// RecordHTTPRequest records a finished HTTP request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

func (m *Manager) RecordErrorByComponent(component, errorType string) {
	if m.enabled {
		m.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

func (m *Manager) RecordErrorByType(errorType, severity string) {
	if m.enabled {
		m.errorsByType.WithLabelValues(errorType, severity).Inc()
	}
}

func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	if m.enabled {
		m.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// UpdateSystem sets the runtime gauges.
func (m *Manager) UpdateSystem(memBytes uint64, goroutines int, avgGCPauseMs float64) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(memBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
	if avgGCPauseMs > 0 {
		m.systemGCPauseTime.Observe(avgGCPauseMs)
	}
}

func (m *Manager) inc(c prometheus.Counter) {
	if m.enabled {
		c.Inc()
	}
}

func (m *Manager) set(g prometheus.Gauge, v float64) {
	if m.enabled {
		g.Set(v)
	}
}

func (m *Manager) observe(h prometheus.Histogram, v float64) {
	if m.enabled {
		h.Observe(v)
	}
}

// Package-level helpers delegate to the global manager.

func RecordRowIngested()  { globalManager.RecordRowIngested() }
func RecordRowDuplicate() { globalManager.RecordRowDuplicate() }
func RecordRowRejected()  { globalManager.RecordRowRejected() }

func RecordAggregation(latencyMs float64, entrants, operators, banTournaments int) {
	globalManager.RecordAggregation(latencyMs, entrants, operators, banTournaments)
}

func UpdateStoreRows(n int)               { globalManager.UpdateStoreRows(n) }
func UpdateStoreTournaments(n int)        { globalManager.UpdateStoreTournaments(n) }
func RecordStoreAppendLatency(ms float64) { globalManager.RecordStoreAppendLatency(ms) }
func RecordStoreQueryLatency(ms float64)  { globalManager.RecordStoreQueryLatency(ms) }
func RecordSnapshot(durationMs float64, unix int64) {
	globalManager.RecordSnapshot(durationMs, unix)
}

func UpdateQueue(size, capacity int)   { globalManager.UpdateQueue(size, capacity) }
func UpdateQueueCapacity(capacity int) { globalManager.UpdateQueueCapacity(capacity) }
func RecordQueueEnqueue()              { globalManager.RecordQueueEnqueue() }
func RecordQueueDequeue()              { globalManager.RecordQueueDequeue() }
func RecordQueueEnqueueError()         { globalManager.RecordQueueEnqueueError() }

func UpdateWorkerCount(n int)                  { globalManager.UpdateWorkerCount(n) }
func RecordWorkerProcessingLatency(ms float64) { globalManager.RecordWorkerProcessingLatency(ms) }
func RecordWorkerError()                       { globalManager.RecordWorkerError() }

func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

func RecordErrorByComponent(component, errorType string) {
	globalManager.RecordErrorByComponent(component, errorType)
}

func RecordErrorByType(errorType, severity string) {
	globalManager.RecordErrorByType(errorType, severity)
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.RecordErrorByEndpoint(endpoint, method, errorType)
}

func UpdateSystem(memBytes uint64, goroutines int, avgGCPauseMs float64) {
	globalManager.UpdateSystem(memBytes, goroutines, avgGCPauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Totals gathers g and flattens every unlabelled counter and gauge into
// name -> value. Labelled series and histograms are skipped.
func Totals(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGatherFailed, err)
	}
	out := make(map[string]float64, len(families))
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if len(metric.GetLabel()) > 0 {
				continue
			}
			switch {
			case metric.GetCounter() != nil:
				out[mf.GetName()] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				out[mf.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}
