package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/finsift/finsift/internal/config"
	"github.com/finsift/finsift/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

This command ensures your local database has all the required
tables and indexes for the application to function properly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			slog.Info("Starting database migration", "database", cfg.DatabasePath)

			store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			slog.Info("Database migration complete", "version", storage.ExpectedSchemaVersion)
			return nil
		},
	}
}
