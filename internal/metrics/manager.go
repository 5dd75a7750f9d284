package metrics

import (
	"database/sql"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ConnectionSource reports live pool statistics from a database handle.
// *sql.DB satisfies it.
type ConnectionSource interface {
	Stats() sql.DBStats
}

// Manager refreshes the gauges describing the running service: process
// state plus the storage connection pool it has been pointed at.
type Manager struct {
	prometheus *PrometheusMetrics
	logger     *logrus.Entry
	startTime  time.Time

	mu         sync.Mutex
	connSource ConnectionSource
}

// NewManager creates a new metrics manager
func NewManager() *Manager {
	return &Manager{
		prometheus: NewPrometheusMetrics(),
		logger:     logrus.WithField("component", "metrics"),
		startTime:  time.Now(),
	}
}

// GetPrometheusMetrics returns the Prometheus metrics instance
func (m *Manager) GetPrometheusMetrics() *PrometheusMetrics {
	return m.prometheus
}

// ObserveConnections registers the database handle whose open connection
// count UpdateSystemMetrics reports.
func (m *Manager) ObserveConnections(src ConnectionSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connSource = src
}

// UpdateSystemMetrics refreshes memory, goroutine and uptime gauges, and
// the open connection gauge when a database handle is registered.
func (m *Manager) UpdateSystemMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.prometheus.UpdateMemoryUsage(memStats.Alloc)
	m.prometheus.UpdateGoroutineCount(runtime.NumGoroutine())
	m.prometheus.UpdateApplicationUptime(m.startTime)

	m.mu.Lock()
	src := m.connSource
	m.mu.Unlock()

	if src != nil {
		m.prometheus.UpdateDatabaseConnections(src.Stats().OpenConnections)
	}
}
