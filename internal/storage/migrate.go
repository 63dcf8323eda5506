package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// A migration is one versioned schema step. Versions are dense and ordered;
// apply runs inside the same transaction as the ledger insert, so a failed
// step leaves no ledger entry behind.
type migration struct {
	version     int
	description string
	apply       func(ctx context.Context, tx *sql.Tx) error
}

var migrations = []migration{
	{
		version:     1,
		description: "initial schema: metric definitions, build contexts, metric values",
		apply:       migrateInitialSchema,
	},
	{
		version:     2,
		description: "pull request metadata on builds, collection duration on values",
		apply:       migratePullRequestColumns,
	},
}

// Ensure brings the schema up to the latest migration. Idempotent: a second
// call performs no DDL and adds no ledger rows.
func (db *DB) Ensure(ctx context.Context) error {
	return db.EnsureVersion(ctx, migrations[len(migrations)-1].version)
}

// EnsureVersion applies, in order, every migration strictly after the
// current ledger version up to target. Each step commits its DDL together
// with its ledger row; on failure the step rolls back and the ledger does
// not record the failed version.
func (db *DB) EnsureVersion(ctx context.Context, target int) error {
	if _, err := db.sql.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version     INTEGER PRIMARY KEY,
			applied_at  TEXT NOT NULL,
			description TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("storage: create schema_version ledger: %w", err)
	}

	var current int
	if err := db.sql.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_version`,
	).Scan(&current); err != nil {
		return fmt.Errorf("storage: read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current || m.version > target {
			continue
		}
		if err := db.applyMigration(ctx, m); err != nil {
			return err
		}
		db.logger.Info("applied migration", "version", m.version, "description", m.description)
	}
	return nil
}

// SchemaVersion returns the highest applied migration version, 0 when the
// ledger is absent or empty.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := db.sql.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM schema_version`,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("storage: read schema version: %w", err)
	}
	return version, nil
}

func (db *DB) applyMigration(ctx context.Context, m migration) error {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return &MigrationError{Version: m.version, Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	if err := m.apply(ctx, tx); err != nil {
		return &MigrationError{Version: m.version, Err: err}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at, description) VALUES (?, ?, ?)`,
		m.version, time.Now().UTC().Format(time.RFC3339), m.description,
	); err != nil {
		return &MigrationError{Version: m.version, Err: fmt.Errorf("record ledger entry: %w", err)}
	}
	if err := tx.Commit(); err != nil {
		return &MigrationError{Version: m.version, Err: err}
	}
	return nil
}

func migrateInitialSchema(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS metric_definitions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT NOT NULL UNIQUE,
			type        TEXT NOT NULL CHECK (type IN ('numeric', 'label')),
			unit        TEXT,
			description TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS build_contexts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			commit_sha TEXT NOT NULL,
			branch     TEXT NOT NULL,
			run_id     TEXT NOT NULL,
			run_number INTEGER NOT NULL,
			actor      TEXT,
			event_name TEXT,
			timestamp  TEXT NOT NULL,
			UNIQUE (commit_sha, run_id)
		)`,
		`CREATE TABLE IF NOT EXISTS metric_values (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			metric_id     INTEGER NOT NULL REFERENCES metric_definitions(id),
			build_id      INTEGER NOT NULL REFERENCES build_contexts(id),
			value_numeric REAL,
			value_label   TEXT,
			collected_at  TEXT NOT NULL,
			UNIQUE (metric_id, build_id),
			CHECK ((value_numeric IS NULL) <> (value_label IS NULL))
		)`,
		// Covers the baseline query: equality on branch and event, range on timestamp.
		`CREATE INDEX IF NOT EXISTS idx_build_contexts_baseline
			ON build_contexts (branch, event_name, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_metric_values_metric
			ON metric_values (metric_id)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func migratePullRequestColumns(ctx context.Context, tx *sql.Tx) error {
	// SQLite has no ADD COLUMN IF NOT EXISTS, so each addition is
	// existence-checked to keep a partially-applied step re-runnable.
	additions := []struct {
		table, column, decl string
	}{
		{"build_contexts", "pr_number", "INTEGER"},
		{"build_contexts", "pr_base", "TEXT"},
		{"build_contexts", "pr_head", "TEXT"},
		{"metric_values", "duration_ms", "INTEGER"},
	}
	for _, a := range additions {
		exists, err := columnExists(ctx, tx, a.table, a.column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", a.table, a.column, a.decl)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func columnExists(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
