package storage

import (
	"context"
	"database/sql"
	"fmt"
)

var migrations = []string{
	// Migration 1: alerts and user directory
	`CREATE TABLE IF NOT EXISTS alerts (
		id               TEXT PRIMARY KEY,
		owner_id         TEXT NOT NULL,
		label            TEXT NOT NULL,
		categories       TEXT NOT NULL DEFAULT '[]',
		locations        TEXT NOT NULL DEFAULT '[]',
		keywords         TEXT NOT NULL DEFAULT '[]',
		min_budget       REAL NOT NULL DEFAULT 0.0,
		max_budget       REAL,
		email_enabled    INTEGER NOT NULL DEFAULT 1,
		push_enabled     INTEGER NOT NULL DEFAULT 0,
		frequency        TEXT NOT NULL DEFAULT 'immediate' CHECK(frequency IN ('immediate', 'daily', 'weekly')),
		active           INTEGER NOT NULL DEFAULT 1,
		match_count      INTEGER NOT NULL DEFAULT 0,
		last_notified_at DATETIME,
		created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_owner ON alerts(owner_id);
	CREATE INDEX IF NOT EXISTS idx_alerts_candidates ON alerts(active, frequency);

	CREATE TABLE IF NOT EXISTS users (
		id           TEXT PRIMARY KEY,
		email        TEXT,
		display_name TEXT NOT NULL DEFAULT '',
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
}

// runMigrations applies pending schema migrations.
func runMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := currentVersion; i < len(migrations); i++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run migration %d: %w", i+1, err)
		}

		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
