// Package restore repairs the entries table schema after a database backup
// has been restored. The restored dump carries the table under its old name
// (records) with a narrow integer key and timezone-naive timestamps; the
// repair renames it and widens the columns to what the application expects.
//
// The procedure is deliberately linear and one-shot: it is only invoked by an
// operator through the CLI, it stops at the first failed statement, and it
// makes no attempt at rollback or re-runnability.
package restore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opendiary/diary/internal/metrics"
	"github.com/opendiary/diary/pkg/utils"
)

// Step is a single statement of the repair sequence
type Step struct {
	Name        string
	Description string
	SQL         string
}

// Steps returns the repair sequence in execution order. The SQL text is the
// operator procedure verbatim; do not reformat it.
func Steps() []*Step {
	return []*Step{
		{
			Name:        "drop_stale_entries",
			Description: "Drop the entries table left over from schema bootstrap",
			SQL:         `DROP TABLE IF EXISTS entries;`,
		},
		{
			Name:        "rename_records",
			Description: "Rename the restored records table to entries",
			SQL:         `ALTER TABLE records RENAME TO entries;`,
		},
		{
			Name:        "widen_id",
			Description: "Widen id to BIGINT and reattach the sequence default",
			SQL: `ALTER TABLE entries
  ALTER COLUMN id SET DATA TYPE BIGINT,
  ALTER COLUMN id SET DEFAULT nextval('records_id_seq');`,
		},
		{
			Name:        "timestamps_to_timestamptz",
			Description: "Convert timestamp columns to TIMESTAMPTZ, interpreting stored values as UTC",
			SQL: `ALTER TABLE entries
  ALTER COLUMN created_at SET DATA TYPE TIMESTAMPTZ USING created_at AT TIME ZONE 'UTC',
  ALTER COLUMN updated_at SET DATA TYPE TIMESTAMPTZ USING updated_at AT TIME ZONE 'UTC';`,
		},
		{
			Name:        "created_at_default",
			Description: "Restore the created_at default",
			SQL:         `ALTER TABLE entries ALTER COLUMN created_at SET DEFAULT CURRENT_TIMESTAMP;`,
		},
		{
			Name:        "pinned_default",
			Description: "Restore the pinned default",
			SQL:         `ALTER TABLE entries ALTER COLUMN pinned SET DEFAULT FALSE;`,
		},
	}
}

// Options configures a Repairer
type Options struct {
	// Verify runs the post-repair column checks
	Verify bool
	// StatementTimeout bounds each statement; zero means no bound
	StatementTimeout time.Duration
	// MetricsManager is optional
	MetricsManager *metrics.Manager
}

// Repairer executes the repair sequence against a PostgreSQL database
type Repairer struct {
	db     *sql.DB
	opts   Options
	logger *logrus.Logger
	steps  []*Step
}

// New creates a Repairer over an open PostgreSQL handle
func New(db *sql.DB, opts Options) *Repairer {
	return &Repairer{
		db:     db,
		opts:   opts,
		logger: utils.GetLogger(),
		steps:  Steps(),
	}
}

// Preflight checks the conditions the operator guide asks to confirm before
// running the repair: the backup actually loaded, the id sequence survived
// the restore, and the current role may alter the table.
func (r *Repairer) Preflight(ctx context.Context) error {
	var recordsExists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = 'records'
		)
	`).Scan(&recordsExists)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeRestore, "Failed to check for records table", err.Error())
	}
	if !recordsExists {
		return utils.NewAppError(utils.ErrCodeRestore,
			"Restored records table not found",
			"confirm the backup was loaded into this database before running the repair")
	}

	var seqExists bool
	err = r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pg_class c
			JOIN pg_namespace n ON n.oid = c.relnamespace
			WHERE c.relkind = 'S' AND c.relname = 'records_id_seq'
		)
	`).Scan(&seqExists)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeRestore, "Failed to check for records_id_seq", err.Error())
	}
	if !seqExists {
		return utils.NewAppError(utils.ErrCodeRestore,
			"Sequence records_id_seq not found",
			"confirm the sequence exists before altering the id default")
	}

	var mayAlter bool
	err = r.db.QueryRowContext(ctx, `
		SELECT tableowner = current_user
		       OR (SELECT COALESCE(usesuper, FALSE) FROM pg_user WHERE usename = current_user)
		FROM pg_tables
		WHERE schemaname = current_schema() AND tablename = 'records'
	`).Scan(&mayAlter)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeRestore, "Failed to check table privileges", err.Error())
	}
	if !mayAlter {
		return utils.NewAppError(utils.ErrCodeRestore,
			"Insufficient privileges on records table",
			"the repair must run as the table owner or a superuser")
	}

	return nil
}

// Run executes the full repair: preflight, the statement sequence, and the
// verification pass when enabled. It stops at the first error.
func (r *Repairer) Run(ctx context.Context) error {
	err := r.run(ctx)

	if r.opts.MetricsManager != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		r.opts.MetricsManager.GetPrometheusMetrics().RecordRestoreRun(status)
	}

	return err
}

func (r *Repairer) run(ctx context.Context) error {
	r.logger.Info("Starting post-restore schema repair")

	if err := r.Preflight(ctx); err != nil {
		return err
	}

	for i, step := range r.steps {
		r.logger.WithFields(logrus.Fields{
			"step":        fmt.Sprintf("%d/%d", i+1, len(r.steps)),
			"name":        step.Name,
			"description": step.Description,
		}).Info("Executing repair step")

		if err := r.execStep(ctx, step); err != nil {
			r.recordStep(step.Name, "error")
			return utils.NewAppError(utils.ErrCodeRestore,
				fmt.Sprintf("Repair step %s failed", step.Name), err.Error())
		}
		r.recordStep(step.Name, "success")
	}

	if r.opts.Verify {
		if err := r.Verify(ctx); err != nil {
			return err
		}
	}

	r.logger.Info("Post-restore schema repair completed")
	return nil
}

func (r *Repairer) execStep(ctx context.Context, step *Step) error {
	if r.opts.StatementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.StatementTimeout)
		defer cancel()
	}

	_, err := r.db.ExecContext(ctx, step.SQL)
	return err
}

func (r *Repairer) recordStep(name, status string) {
	if r.opts.MetricsManager != nil {
		r.opts.MetricsManager.GetPrometheusMetrics().RecordRestoreStep(name, status)
	}
}

// ColumnInfo describes one column of the repaired table
type ColumnInfo struct {
	Name     string
	DataType string
	Default  string
}

// Verify inspects the repaired entries table and checks it reached the state
// an operator would confirm by describing the table in a database shell.
func (r *Repairer) Verify(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT column_name, data_type, COALESCE(column_default, '')
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = 'entries'
		ORDER BY ordinal_position
	`)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeRestore, "Failed to describe entries table", err.Error())
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		if err := rows.Scan(&col.Name, &col.DataType, &col.Default); err != nil {
			return utils.NewAppError(utils.ErrCodeRestore, "Failed to scan column info", err.Error())
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return utils.NewAppError(utils.ErrCodeRestore, "Failed to read column info", err.Error())
	}

	if err := checkEntriesColumns(cols); err != nil {
		return utils.NewAppError(utils.ErrCodeRestore, "Verification failed", err.Error())
	}

	r.logger.Info("Schema repair verified")
	return nil
}

// checkEntriesColumns validates the end state of the repair: a 64-bit id fed
// by records_id_seq, timezone-aware timestamps, and the expected defaults.
func checkEntriesColumns(cols []ColumnInfo) error {
	if len(cols) == 0 {
		return fmt.Errorf("entries table not found")
	}

	byName := make(map[string]ColumnInfo, len(cols))
	for _, col := range cols {
		byName[col.Name] = col
	}

	var problems []string

	if col, ok := byName["id"]; !ok {
		problems = append(problems, "id column missing")
	} else {
		if col.DataType != "bigint" {
			problems = append(problems, fmt.Sprintf("id has type %s, want bigint", col.DataType))
		}
		if !strings.Contains(col.Default, "nextval('records_id_seq'") {
			problems = append(problems, fmt.Sprintf("id default %q does not use records_id_seq", col.Default))
		}
	}

	for _, name := range []string{"created_at", "updated_at"} {
		if col, ok := byName[name]; !ok {
			problems = append(problems, name+" column missing")
		} else if col.DataType != "timestamp with time zone" {
			problems = append(problems, fmt.Sprintf("%s has type %s, want timestamp with time zone", name, col.DataType))
		}
	}

	if col, ok := byName["created_at"]; ok {
		def := strings.ToUpper(col.Default)
		if !strings.Contains(def, "CURRENT_TIMESTAMP") && !strings.Contains(def, "NOW()") {
			problems = append(problems, fmt.Sprintf("created_at default %q is not CURRENT_TIMESTAMP", col.Default))
		}
	}

	if col, ok := byName["pinned"]; !ok {
		problems = append(problems, "pinned column missing")
	} else if !strings.Contains(strings.ToLower(col.Default), "false") {
		problems = append(problems, fmt.Sprintf("pinned default %q is not false", col.Default))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}

	return nil
}
