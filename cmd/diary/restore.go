package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opendiary/diary/internal/metrics"
	"github.com/opendiary/diary/internal/restore"
	"github.com/opendiary/diary/internal/storage"
)

// restoreCmd applies the post-restore schema repair to a PostgreSQL database.
// It never runs as part of normal startup; an operator invokes it once after
// loading a backup.
var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Repair the entries schema after restoring a database backup",
	Long: `Repairs the schema of a freshly restored PostgreSQL backup: drops the stale
entries table, renames the restored records table to entries, widens id to
BIGINT with its sequence default, converts the timestamp columns to
TIMESTAMPTZ interpreting stored values as UTC, and restores the column
defaults. The procedure is linear and stops at the first error; it provides
no rollback and is not safe to re-run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := initLogger(cfg); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		storageType := strings.ToLower(cfg.Storage.Type)
		if storageType != "postgres" && storageType != "postgresql" {
			return fmt.Errorf("restore repair requires a postgres storage backend, got %q", cfg.Storage.Type)
		}

		store := storage.NewPostgresStorage(&storage.StorageConfig{
			Type:             cfg.Storage.Type,
			ConnectionString: cfg.Storage.ConnectionString,
			MaxConnections:   cfg.Storage.MaxConnections,
			MaxIdleTime:      cfg.Storage.MaxIdleTime,
		})

		// Connect without the schema bootstrap: the repair starts from the
		// restored records table, not a fresh entries table.
		if err := store.Connect(); err != nil {
			return err
		}
		defer store.Close()

		skipVerify, _ := cmd.Flags().GetBool("skip-verify")

		repairer := restore.New(store.DB(), restore.Options{
			Verify:           cfg.Restore.Verify && !skipVerify,
			StatementTimeout: cfg.Restore.StatementTimeout,
			MetricsManager:   metrics.NewManager(),
		})

		ctx, cancel := cancelOnInterrupt()
		defer cancel()

		if err := repairer.Run(ctx); err != nil {
			return err
		}

		fmt.Println("Schema repair completed successfully.")
		return nil
	},
}

func init() {
	restoreCmd.Flags().Bool("skip-verify", false, "skip the post-repair column verification")
}
