package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS suggestions (
					id TEXT PRIMARY KEY,
					operation_id TEXT NOT NULL,
					date DATETIME NOT NULL,
					type TEXT NOT NULL,
					currency TEXT NOT NULL,
					amount REAL NOT NULL,
					description TEXT,
					reasoning TEXT,
					detection_method TEXT NOT NULL,
					confidence INTEGER NOT NULL DEFAULT 0,
					status TEXT NOT NULL DEFAULT 'pending',
					is_duplicate BOOLEAN NOT NULL DEFAULT 0,
					duplicate_reason TEXT,
					related_suggestion_id TEXT,
					attachment_hash TEXT,
					extracted_text_excerpt TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_suggestions_operation ON suggestions(operation_id)`,
				`CREATE INDEX idx_suggestions_hash ON suggestions(attachment_hash)`,
				`CREATE INDEX idx_suggestions_status ON suggestions(status)`,

				`CREATE TABLE IF NOT EXISTS attachment_jobs (
					attachment_id TEXT PRIMARY KEY,
					message_id TEXT NOT NULL,
					priority TEXT NOT NULL,
					status TEXT NOT NULL,
					retry_count INTEGER NOT NULL DEFAULT 0,
					last_error TEXT,
					enqueued_at DATETIME,
					next_attempt_at DATETIME,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_attachment_jobs_message ON attachment_jobs(message_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add manual review queue",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS review_queue (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					blob_key TEXT,
					file_name TEXT,
					file_hash TEXT UNIQUE NOT NULL,
					kind TEXT,
					context TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)
			`)
			return err
		},
	},
	{
		Version:     3,
		Description: "Add covering index for fuzzy duplicate lookups",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE INDEX IF NOT EXISTS idx_suggestions_similar ON suggestions(operation_id, type, currency, date)`,
				// Superseded by the composite index above
				`DROP INDEX IF EXISTS idx_suggestions_operation`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
