// Package metrics provides Prometheus metrics for the vantage service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the vantage service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Latency aggregation
	aggregations       *prometheus.CounterVec
	regionsAggregated  prometheus.Counter
	recordsAggregated  prometheus.Counter
	breachesDetected   prometheus.Counter
	aggregationLatency prometheus.Histogram
	fallbackLoads      *prometheus.CounterVec

	// Student directory
	rosterSize     prometheus.Gauge
	rosterLoadedAt prometheus.Gauge
	rosterQueries  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

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

// Configure replaces the global manager with one built from opts on a fresh
// registry. Call it at start-up, before handlers capture GetRegistry.
func Configure(opts ...Option) *Manager {
	registry := prometheus.NewRegistry()
	m := NewManager(append([]Option{WithPrometheusRegistry(registry)}, opts...)...)
	customRegistry = registry
	globalManager = m
	return m
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vantage",
		subsystem:        "api",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval reports how often gauge updaters should run.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether recording is switched on.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval reports the refresh interval of the global manager.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.aggregations = auto.NewCounterVec(
		m.counterOpts("latency_aggregations_total", "Latency aggregations by payload source (body or fallback)"),
		[]string{"source"},
	)
	m.regionsAggregated = auto.NewCounter(m.counterOpts("regions_aggregated_total", "Regions summarized across all aggregations"))
	m.recordsAggregated = auto.NewCounter(m.counterOpts("records_aggregated_total", "Latency records folded into region metrics"))
	m.breachesDetected = auto.NewCounter(m.counterOpts("breaches_detected_total", "Records whose latency exceeded the threshold"))
	m.aggregationLatency = auto.NewHistogram(m.histogramOpts("aggregation_latency_milliseconds", "Time spent normalizing and aggregating a payload"))
	m.fallbackLoads = auto.NewCounterVec(
		m.counterOpts("fallback_loads_total", "Fallback dataset reads by outcome"),
		[]string{"outcome"},
	)

	m.rosterSize = auto.NewGauge(m.gaugeOpts("roster_students", "Students held by the directory"))
	m.rosterLoadedAt = auto.NewGauge(m.gaugeOpts("roster_loaded_unix", "Unix time the directory was loaded"))
	m.rosterQueries = auto.NewCounterVec(
		m.counterOpts("roster_queries_total", "Directory lookups by mode (all or filtered)"),
		[]string{"mode"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of operations that ended in an error"),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Number of live goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_milliseconds", "Average GC pause in milliseconds"))
}

// Latency aggregation functions.

// RecordAggregation counts one aggregation and its volume.
func RecordAggregation(source string, regions, records, breaches int, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.aggregations.WithLabelValues(source).Inc()
	globalManager.regionsAggregated.Add(float64(regions))
	globalManager.recordsAggregated.Add(float64(records))
	globalManager.breachesDetected.Add(float64(breaches))
	globalManager.aggregationLatency.Observe(latencyMs)
}

// RecordFallbackLoad counts a fallback dataset read with its outcome
// (ok, missing, error).
func RecordFallbackLoad(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.fallbackLoads.WithLabelValues(outcome).Inc()
}

// Student directory functions.

// UpdateRosterSize sets the number of loaded students and the load time.
func UpdateRosterSize(count int, loadedAt time.Time) {
	if !globalManager.enabled {
		return
	}
	globalManager.rosterSize.Set(float64(count))
	globalManager.rosterLoadedAt.Set(float64(loadedAt.Unix()))
}

// RecordRosterQuery counts a directory lookup.
func RecordRosterQuery(filtered bool) {
	if !globalManager.enabled {
		return
	}
	mode := "all"
	if filtered {
		mode = "filtered"
	}
	globalManager.rosterQueries.WithLabelValues(mode).Inc()
}

// HTTP functions.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error functions.

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
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
