package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/opendiary/diary/internal/models"
	"github.com/opendiary/diary/pkg/utils"
)

// SQLiteStorage implements Storage interface using SQLite
type SQLiteStorage struct {
	db         *sql.DB
	config     *StorageConfig
	logger     *logrus.Logger
	migrations []*Migration
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(config *StorageConfig) *SQLiteStorage {
	return &SQLiteStorage{
		config:     config,
		logger:     utils.GetLogger(),
		migrations: GetSQLiteMigrations(),
	}
}

// DB exposes the underlying handle for pool statistics
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// Connect establishes database connection
func (s *SQLiteStorage) Connect() error {
	// Ensure directory exists
	dir := filepath.Dir(s.config.ConnectionString)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create database directory", err.Error())
		}
	}

	db, err := sql.Open("sqlite", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open SQLite database", err.Error())
	}

	// Configure connection pool, falling back to defaults when the config
	// was built without them
	maxConns := s.config.MaxConnections
	if maxConns <= 0 {
		maxConns = GetDefaultStorageConfig().MaxConnections
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)
	db.SetConnMaxLifetime(s.config.MaxIdleTime)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to enable WAL mode", err.Error())
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to enable foreign keys", err.Error())
	}

	s.db = db
	s.logger.WithField("path", s.config.ConnectionString).Info("SQLite database connected")

	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.logger.Info("SQLite database connection closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (s *SQLiteStorage) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return s.db.Ping()
}

// Migrate bootstraps the entries schema
func (s *SQLiteStorage) Migrate() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	s.logger.Info("Starting SQLite schema bootstrap")

	for _, migration := range s.migrations {
		s.logger.WithFields(logrus.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		}).Info("Applying migration")

		if _, err := s.db.Exec(migration.SQL); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase,
				fmt.Sprintf("Migration %s failed", migration.Version),
				err.Error())
		}
	}

	s.logger.Info("SQLite schema bootstrap completed")
	return nil
}

// CreateEntry inserts a new entry and returns it
func (s *SQLiteStorage) CreateEntry(ctx context.Context, content string, pinned bool) (*models.Entry, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO entries (content, pinned) VALUES (?, ?)", content, pinned)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to create entry", err.Error())
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to read inserted entry id", err.Error())
	}

	s.logger.WithField("id", id).Debug("Entry created")
	return s.GetEntry(ctx, id)
}

// GetEntry retrieves a single entry by id
func (s *SQLiteStorage) GetEntry(ctx context.Context, id int64) (*models.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, content, created_at, updated_at, pinned FROM entries WHERE id = ?", id)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, utils.NewAppError(utils.ErrCodeNotFound,
			fmt.Sprintf("Entry with id %d doesn't exist", id), "")
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase,
			fmt.Sprintf("Failed to read entry with id %d", id), err.Error())
	}

	return entry, nil
}

// GetEntries retrieves entries matching the filter, newest first by default
func (s *SQLiteStorage) GetEntries(ctx context.Context, filter models.EntryFilter) ([]*models.Entry, error) {
	if err := filter.Normalize(); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Invalid entry filter", err.Error())
	}

	query := "SELECT id, content, created_at, updated_at, pinned FROM entries WHERE 1=1"
	args := []interface{}{}

	if filter.Pinned != nil {
		query += " AND pinned = ?"
		args = append(args, *filter.Pinned)
	}

	if filter.Substring != nil {
		query += " AND content LIKE ?"
		args = append(args, "%"+*filter.Substring+"%")
	}

	query += fmt.Sprintf(" ORDER BY created_at %[1]s, id %[1]s LIMIT ? OFFSET ?", filter.Sort)
	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query entries", err.Error())
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan entry", err.Error())
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to iterate entries", err.Error())
	}

	return entries, nil
}

// CountEntries returns the number of entries matching the filter
func (s *SQLiteStorage) CountEntries(ctx context.Context, filter models.EntryFilter) (int64, error) {
	query := "SELECT COUNT(*) FROM entries WHERE 1=1"
	args := []interface{}{}

	if filter.Pinned != nil {
		query += " AND pinned = ?"
		args = append(args, *filter.Pinned)
	}

	if filter.Substring != nil {
		query += " AND content LIKE ?"
		args = append(args, "%"+*filter.Substring+"%")
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count entries", err.Error())
	}

	return count, nil
}

// UpdateEntry updates the provided fields of an entry
func (s *SQLiteStorage) UpdateEntry(ctx context.Context, id int64, content *string, pinned *bool) (*models.Entry, error) {
	if content == nil && pinned == nil {
		return nil, utils.NewAppError(utils.ErrCodeValidation,
			"At least one field must be provided for update", "")
	}

	exists, err := s.EntryExists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, utils.NewAppError(utils.ErrCodeNotFound,
			fmt.Sprintf("Entry with id %d doesn't exist", id), "")
	}

	setParts := []string{}
	args := []interface{}{}

	if content != nil {
		setParts = append(setParts, "content = ?")
		args = append(args, *content)
	}
	if pinned != nil {
		setParts = append(setParts, "pinned = ?")
		args = append(args, *pinned)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE entries SET %s WHERE id = ?", joinSetParts(setParts))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase,
			fmt.Sprintf("Failed to update entry with id %d", id), err.Error())
	}

	s.logger.WithField("id", id).Debug("Entry updated")
	return s.GetEntry(ctx, id)
}

// DeleteEntry removes an entry by id
func (s *SQLiteStorage) DeleteEntry(ctx context.Context, id int64) error {
	exists, err := s.EntryExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return utils.NewAppError(utils.ErrCodeNotFound,
			fmt.Sprintf("Entry with id %d doesn't exist", id), "")
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase,
			fmt.Sprintf("Failed to delete entry with id %d", id), err.Error())
	}

	s.logger.WithField("id", id).Debug("Entry deleted")
	return nil
}

// EntryExists reports whether an entry with the given id exists
func (s *SQLiteStorage) EntryExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM entries WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, utils.NewAppError(utils.ErrCodeDatabase,
			fmt.Sprintf("Failed to check if entry with id %d exists", id), err.Error())
	}
	return true, nil
}

// GetStats returns storage statistics
func (s *SQLiteStorage) GetStats(ctx context.Context) (*StorageStats, error) {
	stats := &StorageStats{}

	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN pinned THEN 1 ELSE 0 END), 0),
		       MIN(created_at),
		       MAX(created_at)
		FROM entries
	`

	var oldest, latest sql.NullTime
	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalEntries, &stats.PinnedEntries, &oldest, &latest)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to read storage stats", err.Error())
	}

	if oldest.Valid {
		stats.OldestEntry = &oldest.Time
	}
	if latest.Valid {
		stats.LatestEntry = &latest.Time
	}

	return stats, nil
}

// Vacuum reclaims unused space
func (s *SQLiteStorage) Vacuum() error {
	if _, err := s.db.Exec("VACUUM"); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to vacuum database", err.Error())
	}
	return nil
}
