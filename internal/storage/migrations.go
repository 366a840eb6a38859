package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Decision log",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				// created_at holds unix nanoseconds (UTC) so ordering is exact.
				`CREATE TABLE IF NOT EXISTS decision_memory (
					id TEXT PRIMARY KEY,
					business_id TEXT NOT NULL,
					created_at INTEGER NOT NULL,
					competitor_name TEXT NOT NULL,
					context TEXT NOT NULL,
					strategy_type TEXT NOT NULL,
					focus TEXT NOT NULL,
					urgency TEXT NOT NULL,
					avoid TEXT NOT NULL,
					confidence TEXT NOT NULL,
					fingerprint TEXT NOT NULL,
					cache_hit INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX IF NOT EXISTS idx_decision_memory_business_time
					ON decision_memory(business_id, created_at DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_decision_memory_competitor
					ON decision_memory(business_id, competitor_name, created_at DESC)`,
			}
			return execAll(tx, queries)
		},
	},
	{
		Version:     2,
		Description: "Business snapshot tables",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS businesses (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					target_audience TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE TABLE IF NOT EXISTS competitors (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					business_id TEXT NOT NULL REFERENCES businesses(id),
					name TEXT NOT NULL,
					context TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX IF NOT EXISTS idx_competitors_business ON competitors(business_id)`,
			}
			return execAll(tx, queries)
		},
	},
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
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

		// Update version
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

	// Verify we're at the expected schema version
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
