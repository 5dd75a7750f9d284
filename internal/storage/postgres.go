package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/opendiary/diary/internal/models"
	"github.com/opendiary/diary/pkg/utils"
)

// PostgresStorage implements Storage interface using PostgreSQL
type PostgresStorage struct {
	db         *sql.DB
	config     *StorageConfig
	logger     *logrus.Logger
	migrations []*Migration
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(config *StorageConfig) *PostgresStorage {
	return &PostgresStorage{
		config:     config,
		logger:     utils.GetLogger(),
		migrations: GetPostgresMigrations(),
	}
}

// DB exposes the underlying handle for maintenance tooling
func (p *PostgresStorage) DB() *sql.DB {
	return p.db
}

// Connect establishes database connection, creating the target database if missing
func (p *PostgresStorage) Connect() error {
	if err := p.ensureDatabase(); err != nil {
		return err
	}

	db, err := sql.Open("postgres", p.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open PostgreSQL database", err.Error())
	}

	// Configure connection pool, falling back to defaults when the config
	// was built without them
	maxConns := p.config.MaxConnections
	if maxConns <= 0 {
		maxConns = GetDefaultStorageConfig().MaxConnections
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)
	db.SetConnMaxLifetime(p.config.MaxIdleTime)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to ping PostgreSQL database", err.Error())
	}

	// Entry timestamps are stored and compared in UTC
	if _, err := db.Exec("SET TIME ZONE 'UTC';"); err != nil {
		db.Close()
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to set session timezone", err.Error())
	}

	p.db = db
	p.logger.Info("PostgreSQL database connected")

	return nil
}

// ensureDatabase creates the target database when it does not exist yet.
// It connects to the maintenance database under the same credentials and
// checks pg_database first.
func (p *PostgresStorage) ensureDatabase() error {
	u, err := url.Parse(p.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Invalid database URL", err.Error())
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Database name not specified in URL", "")
	}

	maintURL := *u
	maintURL.Path = "/postgres"

	maintDB, err := sql.Open("postgres", maintURL.String())
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to connect to postgres database", err.Error())
	}
	defer maintDB.Close()

	var exists bool
	err = maintDB.QueryRow("SELECT TRUE FROM pg_database WHERE datname = $1", dbName).Scan(&exists)
	if err == sql.ErrNoRows {
		if _, err := maintDB.Exec(fmt.Sprintf("CREATE DATABASE %s;", pq.QuoteIdentifier(dbName))); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create database", err.Error())
		}
		p.logger.WithField("database", dbName).Info("Database created")
		return nil
	}
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to check if database exists", err.Error())
	}

	return nil
}

// Close closes the database connection
func (p *PostgresStorage) Close() error {
	if p.db != nil {
		err := p.db.Close()
		p.db = nil
		p.logger.Info("PostgreSQL database connection closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (p *PostgresStorage) Ping() error {
	if p.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return p.db.Ping()
}

// Migrate bootstraps the entries schema
func (p *PostgresStorage) Migrate() error {
	if p.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	p.logger.Info("Starting PostgreSQL schema bootstrap")

	for _, migration := range p.migrations {
		p.logger.WithFields(logrus.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		}).Info("Applying migration")

		if _, err := p.db.Exec(migration.SQL); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase,
				fmt.Sprintf("Migration %s failed", migration.Version),
				err.Error())
		}
	}

	p.logger.Info("PostgreSQL schema bootstrap completed")
	return nil
}

// CreateEntry inserts a new entry and returns it
func (p *PostgresStorage) CreateEntry(ctx context.Context, content string, pinned bool) (*models.Entry, error) {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO entries (content, pinned) VALUES ($1, $2)
		RETURNING id, content, created_at, updated_at, pinned
	`, content, pinned)

	entry, err := scanEntry(row)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to create entry", err.Error())
	}

	p.logger.WithField("id", entry.ID).Debug("Entry created")
	return entry, nil
}

// GetEntry retrieves a single entry by id
func (p *PostgresStorage) GetEntry(ctx context.Context, id int64) (*models.Entry, error) {
	row := p.db.QueryRowContext(ctx,
		"SELECT id, content, created_at, updated_at, pinned FROM entries WHERE id = $1", id)

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
func (p *PostgresStorage) GetEntries(ctx context.Context, filter models.EntryFilter) ([]*models.Entry, error) {
	if err := filter.Normalize(); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Invalid entry filter", err.Error())
	}

	query := "SELECT id, content, created_at, updated_at, pinned FROM entries WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if filter.Pinned != nil {
		query += fmt.Sprintf(" AND pinned = $%d", argIndex)
		args = append(args, *filter.Pinned)
		argIndex++
	}

	if filter.Substring != nil {
		// ILIKE for case-insensitive search
		query += fmt.Sprintf(" AND content ILIKE $%d", argIndex)
		args = append(args, "%"+*filter.Substring+"%")
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY created_at %[1]s, id %[1]s LIMIT $%[2]d OFFSET $%[3]d",
		filter.Sort, argIndex, argIndex+1)
	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)

	rows, err := p.db.QueryContext(ctx, query, args...)
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
func (p *PostgresStorage) CountEntries(ctx context.Context, filter models.EntryFilter) (int64, error) {
	query := "SELECT COUNT(*) FROM entries WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if filter.Pinned != nil {
		query += fmt.Sprintf(" AND pinned = $%d", argIndex)
		args = append(args, *filter.Pinned)
		argIndex++
	}

	if filter.Substring != nil {
		query += fmt.Sprintf(" AND content ILIKE $%d", argIndex)
		args = append(args, "%"+*filter.Substring+"%")
	}

	var count int64
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count entries", err.Error())
	}

	return count, nil
}

// UpdateEntry updates the provided fields of an entry
func (p *PostgresStorage) UpdateEntry(ctx context.Context, id int64, content *string, pinned *bool) (*models.Entry, error) {
	if content == nil && pinned == nil {
		return nil, utils.NewAppError(utils.ErrCodeValidation,
			"At least one field must be provided for update", "")
	}

	exists, err := p.EntryExists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, utils.NewAppError(utils.ErrCodeNotFound,
			fmt.Sprintf("Entry with id %d doesn't exist", id), "")
	}

	setParts := []string{}
	args := []interface{}{id}
	argIndex := 2

	if content != nil {
		setParts = append(setParts, fmt.Sprintf("content = $%d", argIndex))
		args = append(args, *content)
		argIndex++
	}
	if pinned != nil {
		setParts = append(setParts, fmt.Sprintf("pinned = $%d", argIndex))
		args = append(args, *pinned)
	}

	query := fmt.Sprintf(`
		UPDATE entries SET %s WHERE id = $1
		RETURNING id, content, created_at, updated_at, pinned
	`, joinSetParts(setParts))

	entry, err := scanEntry(p.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase,
			fmt.Sprintf("Failed to update entry with id %d", id), err.Error())
	}

	p.logger.WithField("id", id).Debug("Entry updated")
	return entry, nil
}

// DeleteEntry removes an entry by id
func (p *PostgresStorage) DeleteEntry(ctx context.Context, id int64) error {
	exists, err := p.EntryExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return utils.NewAppError(utils.ErrCodeNotFound,
			fmt.Sprintf("Entry with id %d doesn't exist", id), "")
	}

	if _, err := p.db.ExecContext(ctx, "DELETE FROM entries WHERE id = $1", id); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase,
			fmt.Sprintf("Failed to delete entry with id %d", id), err.Error())
	}

	p.logger.WithField("id", id).Debug("Entry deleted")
	return nil
}

// EntryExists reports whether an entry with the given id exists
func (p *PostgresStorage) EntryExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := p.db.QueryRowContext(ctx, "SELECT 1 FROM entries WHERE id = $1", id).Scan(&one)
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
func (p *PostgresStorage) GetStats(ctx context.Context) (*StorageStats, error) {
	stats := &StorageStats{}

	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN pinned THEN 1 ELSE 0 END), 0),
		       MIN(created_at),
		       MAX(created_at)
		FROM entries
	`

	var oldest, latest sql.NullTime
	err := p.db.QueryRowContext(ctx, query).Scan(
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
func (p *PostgresStorage) Vacuum() error {
	if _, err := p.db.Exec("VACUUM"); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to vacuum database", err.Error())
	}
	return nil
}
