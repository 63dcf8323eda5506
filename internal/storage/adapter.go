package storage

import (
	"context"
	"log/slog"
)

// sqliteMagic is the 16-byte header every SQLite 3 database file starts
// with, including the trailing NUL.
const sqliteMagic = "SQLite format 3\x00"

// An Adapter owns the lifetime of the database bytes. Initialize produces a
// ready handle (creating, or downloading and validating, the file as
// needed), Persist writes the current state back to durable storage, and
// Cleanup releases the handle and any temporary local copy. Cleanup is safe
// to call more than once.
type Adapter interface {
	Initialize(ctx context.Context) (*DB, error)
	Persist(ctx context.Context) error
	Cleanup() error
}

// localAdapter backs the database with a plain file on disk. The file
// already is the durable copy, so Persist only checkpoints the WAL.
type localAdapter struct {
	path   string
	logger *slog.Logger
	db     *DB
}

// NewLocalAdapter returns an Adapter for a database file at path.
func NewLocalAdapter(path string, logger *slog.Logger) Adapter {
	return &localAdapter{path: path, logger: logger}
}

func (a *localAdapter) Initialize(ctx context.Context) (*DB, error) {
	db, err := Open(a.path, a.logger)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *localAdapter) Persist(ctx context.Context) error {
	if a.db == nil {
		return &StorageError{Op: "persist before initialize"}
	}
	return a.db.Checkpoint(ctx)
}

func (a *localAdapter) Cleanup() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
