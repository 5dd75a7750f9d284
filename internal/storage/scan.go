package storage

import (
	"database/sql"
	"strings"

	"github.com/opendiary/diary/internal/models"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanEntry scans an entry row in column order id, content, created_at, updated_at, pinned
func scanEntry(row rowScanner) (*models.Entry, error) {
	var entry models.Entry
	var updatedAt sql.NullTime

	if err := row.Scan(&entry.ID, &entry.Content, &entry.CreatedAt, &updatedAt, &entry.Pinned); err != nil {
		return nil, err
	}

	if updatedAt.Valid {
		entry.UpdatedAt = &updatedAt.Time
	}

	return &entry, nil
}

func joinSetParts(parts []string) string {
	return strings.Join(parts, ", ")
}
