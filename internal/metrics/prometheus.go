package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for the diary service
type PrometheusMetrics struct {
	// Entry metrics
	EntryOperationsTotal *prometheus.CounterVec
	EntriesStored        prometheus.Gauge

	// Storage metrics
	DatabaseOperationsTotal   *prometheus.CounterVec
	DatabaseOperationDuration *prometheus.HistogramVec
	DatabaseConnections       prometheus.Gauge

	// Restore repair metrics
	RestoreStepsTotal *prometheus.CounterVec
	RestoreRunsTotal  *prometheus.CounterVec

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Application health metrics
	ApplicationUptime prometheus.Gauge
	ComponentHealth   *prometheus.GaugeVec
	MemoryUsage       prometheus.Gauge
	GoroutineCount    prometheus.Gauge
}

// NewPrometheusMetrics creates and registers all Prometheus metrics
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		EntryOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diary_entry_operations_total",
				Help: "Total number of entry operations",
			},
			[]string{"operation", "status"},
		),

		EntriesStored: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "diary_entries_stored",
				Help: "Number of entries currently stored",
			},
		),

		DatabaseOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diary_database_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "table", "status"},
		),

		DatabaseOperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "diary_database_operation_duration_seconds",
				Help:    "Time spent on database operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),

		DatabaseConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "diary_database_connections",
				Help: "Number of open database connections",
			},
		),

		RestoreStepsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diary_restore_steps_total",
				Help: "Total number of restore repair steps executed",
			},
			[]string{"step", "status"},
		),

		RestoreRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diary_restore_runs_total",
				Help: "Total number of restore repair invocations",
			},
			[]string{"status"},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diary_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "diary_http_request_duration_seconds",
				Help:    "Time spent handling HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ApplicationUptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "diary_application_uptime_seconds",
				Help: "Application uptime in seconds",
			},
		),

		ComponentHealth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "diary_component_health",
				Help: "Health status of application components (1 healthy, 0 unhealthy)",
			},
			[]string{"component"},
		),

		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "diary_memory_usage_bytes",
				Help: "Current memory usage in bytes",
			},
		),

		GoroutineCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "diary_goroutines",
				Help: "Current number of goroutines",
			},
		),
	}
}

// RecordEntryOperation records an entry-level operation
func (m *PrometheusMetrics) RecordEntryOperation(operation, status string) {
	m.EntryOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDatabaseOperation records a database operation with duration
func (m *PrometheusMetrics) RecordDatabaseOperation(operation, table, status string, duration time.Duration) {
	m.DatabaseOperationsTotal.WithLabelValues(operation, table, status).Inc()
	m.DatabaseOperationDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordRestoreStep records the outcome of a single restore repair step
func (m *PrometheusMetrics) RecordRestoreStep(step, status string) {
	m.RestoreStepsTotal.WithLabelValues(step, status).Inc()
}

// RecordRestoreRun records the outcome of a restore repair invocation
func (m *PrometheusMetrics) RecordRestoreRun(status string) {
	m.RestoreRunsTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an HTTP request with duration
func (m *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateComponentHealth updates the health gauge for a component
func (m *PrometheusMetrics) UpdateComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.ComponentHealth.WithLabelValues(component).Set(value)
}

// UpdateApplicationUptime updates the uptime gauge
func (m *PrometheusMetrics) UpdateApplicationUptime(startTime time.Time) {
	m.ApplicationUptime.Set(time.Since(startTime).Seconds())
}

// UpdateMemoryUsage updates the memory usage gauge
func (m *PrometheusMetrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}

// UpdateGoroutineCount updates the goroutine gauge
func (m *PrometheusMetrics) UpdateGoroutineCount(count int) {
	m.GoroutineCount.Set(float64(count))
}

// UpdateEntriesStored updates the stored entry count gauge
func (m *PrometheusMetrics) UpdateEntriesStored(count int64) {
	m.EntriesStored.Set(float64(count))
}

// UpdateDatabaseConnections updates the open connection gauge
func (m *PrometheusMetrics) UpdateDatabaseConnections(count int) {
	m.DatabaseConnections.Set(float64(count))
}
