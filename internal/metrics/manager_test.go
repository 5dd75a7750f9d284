package metrics

import (
	"database/sql"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// Collectors register against the default registry, so the whole test
// binary shares a single manager.
var (
	managerOnce sync.Once
	manager     *Manager
)

func testManager() *Manager {
	managerOnce.Do(func() {
		manager = NewManager()
	})
	return manager
}

type stubConnSource struct {
	stats sql.DBStats
}

func (s stubConnSource) Stats() sql.DBStats {
	return s.stats
}

func TestUpdateSystemMetrics(t *testing.T) {
	m := testManager()

	m.UpdateSystemMetrics()
	assert.Greater(t, testutil.ToFloat64(m.prometheus.GoroutineCount), 0.0)
	assert.Greater(t, testutil.ToFloat64(m.prometheus.MemoryUsage), 0.0)

	// No handle registered yet, the connection gauge stays untouched.
	assert.Equal(t, 0.0, testutil.ToFloat64(m.prometheus.DatabaseConnections))

	m.ObserveConnections(stubConnSource{stats: sql.DBStats{OpenConnections: 3}})
	m.UpdateSystemMetrics()
	assert.Equal(t, 3.0, testutil.ToFloat64(m.prometheus.DatabaseConnections))
}
