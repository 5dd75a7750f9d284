package storage

import (
	"context"
	"time"

	"github.com/opendiary/diary/internal/metrics"
	"github.com/opendiary/diary/internal/models"
)

// StorageWithMetrics wraps a storage implementation with metrics
type StorageWithMetrics struct {
	Storage
	metricsManager *metrics.Manager
}

// NewStorageWithMetrics creates a storage wrapper with metrics
func NewStorageWithMetrics(storage Storage, metricsManager *metrics.Manager) *StorageWithMetrics {
	return &StorageWithMetrics{
		Storage:        storage,
		metricsManager: metricsManager,
	}
}

func (s *StorageWithMetrics) record(operation string, start time.Time, err error) {
	if s.metricsManager == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metricsManager.GetPrometheusMetrics().RecordDatabaseOperation(
		operation, "entries", status, time.Since(start))
	s.metricsManager.GetPrometheusMetrics().RecordEntryOperation(operation, status)
}

// CreateEntry inserts an entry and records metrics
func (s *StorageWithMetrics) CreateEntry(ctx context.Context, content string, pinned bool) (*models.Entry, error) {
	start := time.Now()
	entry, err := s.Storage.CreateEntry(ctx, content, pinned)
	s.record("create", start, err)
	return entry, err
}

// GetEntry reads an entry and records metrics
func (s *StorageWithMetrics) GetEntry(ctx context.Context, id int64) (*models.Entry, error) {
	start := time.Now()
	entry, err := s.Storage.GetEntry(ctx, id)
	s.record("read", start, err)
	return entry, err
}

// GetEntries lists entries and records metrics
func (s *StorageWithMetrics) GetEntries(ctx context.Context, filter models.EntryFilter) ([]*models.Entry, error) {
	start := time.Now()
	entries, err := s.Storage.GetEntries(ctx, filter)
	s.record("list", start, err)
	return entries, err
}

// UpdateEntry updates an entry and records metrics
func (s *StorageWithMetrics) UpdateEntry(ctx context.Context, id int64, content *string, pinned *bool) (*models.Entry, error) {
	start := time.Now()
	entry, err := s.Storage.UpdateEntry(ctx, id, content, pinned)
	s.record("update", start, err)
	return entry, err
}

// DeleteEntry deletes an entry and records metrics
func (s *StorageWithMetrics) DeleteEntry(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.Storage.DeleteEntry(ctx, id)
	s.record("delete", start, err)
	return err
}

// GetStats reads stats and refreshes the stored entry gauge
func (s *StorageWithMetrics) GetStats(ctx context.Context) (*StorageStats, error) {
	stats, err := s.Storage.GetStats(ctx)
	if err == nil && s.metricsManager != nil {
		s.metricsManager.GetPrometheusMetrics().UpdateEntriesStored(stats.TotalEntries)
	}
	return stats, err
}
