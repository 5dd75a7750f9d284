package storage

import (
	"context"
	"time"

	"github.com/opendiary/diary/internal/models"
)

// Storage defines the interface for entry storage operations
type Storage interface {
	// Connection management
	Connect() error
	Close() error
	Ping() error
	Migrate() error

	// Entry operations
	CreateEntry(ctx context.Context, content string, pinned bool) (*models.Entry, error)
	GetEntry(ctx context.Context, id int64) (*models.Entry, error)
	GetEntries(ctx context.Context, filter models.EntryFilter) ([]*models.Entry, error)
	CountEntries(ctx context.Context, filter models.EntryFilter) (int64, error)
	UpdateEntry(ctx context.Context, id int64, content *string, pinned *bool) (*models.Entry, error)
	DeleteEntry(ctx context.Context, id int64) error
	EntryExists(ctx context.Context, id int64) (bool, error)

	// Statistics and maintenance
	GetStats(ctx context.Context) (*StorageStats, error)
	Vacuum() error
}

// StorageStats provides storage statistics
type StorageStats struct {
	TotalEntries  int64      `json:"total_entries"`
	PinnedEntries int64      `json:"pinned_entries"`
	OldestEntry   *time.Time `json:"oldest_entry,omitempty"`
	LatestEntry   *time.Time `json:"latest_entry,omitempty"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type             string        `json:"type"`
	ConnectionString string        `json:"connection_string"`
	MaxConnections   int           `json:"max_connections"`
	MaxIdleTime      time.Duration `json:"max_idle_time"`
}

// Migration represents a schema bootstrap step
type Migration struct {
	Version     string
	Description string
	SQL         string
}
