package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendiary/diary/internal/config"
)

func TestNewStorage(t *testing.T) {
	store, err := NewStorage(&config.StorageConfig{
		Type:             "sqlite",
		ConnectionString: "./diary.db",
		MaxConnections:   10,
	})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStorage{}, store)

	store, err = NewStorage(&config.StorageConfig{
		Type:             "postgres",
		ConnectionString: "postgres://localhost/diary",
		MaxConnections:   10,
	})
	require.NoError(t, err)
	assert.IsType(t, &PostgresStorage{}, store)

	// postgresql is accepted as an alias
	store, err = NewStorage(&config.StorageConfig{
		Type:             "PostgreSQL",
		ConnectionString: "postgres://localhost/diary",
		MaxConnections:   10,
	})
	require.NoError(t, err)
	assert.IsType(t, &PostgresStorage{}, store)

	_, err = NewStorage(&config.StorageConfig{
		Type:             "mysql",
		ConnectionString: "root@/diary",
		MaxConnections:   10,
	})
	require.Error(t, err)
}

func TestValidateStorageConfig(t *testing.T) {
	err := ValidateStorageConfig(&config.StorageConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Storage type is required")

	err = ValidateStorageConfig(&config.StorageConfig{Type: "sqlite"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection string is required")

	err = ValidateStorageConfig(&config.StorageConfig{
		Type:             "sqlite",
		ConnectionString: "./diary.db",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Max connections must be positive")

	err = ValidateStorageConfig(&config.StorageConfig{
		Type:             "sqlite",
		ConnectionString: "./diary.db",
		MaxConnections:   5,
	})
	assert.NoError(t, err)
}

func TestGetDefaultStorageConfig(t *testing.T) {
	cfg := GetDefaultStorageConfig()
	assert.Equal(t, "sqlite", cfg.Type)
	assert.Equal(t, "./data/diary.db", cfg.ConnectionString)
	assert.Equal(t, 25, cfg.MaxConnections)
}
