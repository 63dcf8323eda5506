// Package storage owns the metrics database: the SQLite handle and its
// connection configuration, the schema migration ledger, the repository
// methods for build and metric rows, and the adapters that make the
// database file durable across ephemeral CI runners (local disk or an
// S3-compatible bucket).
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle for one metrics database file.
type DB struct {
	sql    *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens or creates the SQLite database at path and applies the
// connection configuration: WAL journaling so a concurrent reader can open
// the file while a write transaction is in flight, a bounded busy timeout
// instead of hard lock failures, and foreign-key enforcement.
func Open(path string, logger *slog.Logger) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	// One writer per process invocation; SQLite serializes writes anyway.
	sqlDB.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("storage: %s: %w", p, err)
		}
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("storage: ping %s: %w", path, err)
	}

	return &DB{sql: sqlDB, path: path, logger: logger}, nil
}

// Path returns the filesystem location of the database file.
func (db *DB) Path() string { return db.path }

// Checkpoint moves all WAL content into the main database file and truncates
// the log, so the file at Path() is a complete, self-contained snapshot.
func (db *DB) Checkpoint(ctx context.Context) error {
	if _, err := db.sql.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("storage: wal checkpoint: %w", err)
	}
	return nil
}

// Close closes the underlying handle.
func (db *DB) Close() error {
	return db.sql.Close()
}
