// Package store persists spots and per-program cursors in an embedded SQLite
// database and serves the windowed read paths used by the aggregation engine.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS spots (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	observed_at   INTEGER NOT NULL,
	time          TEXT    NOT NULL,
	program       TEXT    NOT NULL,
	callsign      TEXT    NOT NULL,
	reference     TEXT    NOT NULL,
	region        TEXT    NOT NULL DEFAULT '',
	name          TEXT    NOT NULL DEFAULT '',
	location      TEXT    NOT NULL DEFAULT '',
	frequency     REAL    NOT NULL DEFAULT 0,
	raw_frequency TEXT    NOT NULL DEFAULT '',
	mode          TEXT    NOT NULL DEFAULT '',
	comment       TEXT    NOT NULL DEFAULT '',
	spotter       TEXT    NOT NULL,
	source_id     INTEGER NOT NULL DEFAULT 0,
	posted        INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_spots_region   ON spots(observed_at, program, region);
CREATE INDEX IF NOT EXISTS idx_spots_ref      ON spots(observed_at, reference);
CREATE INDEX IF NOT EXISTS idx_spots_callsign ON spots(observed_at, callsign);

CREATE TABLE IF NOT EXISTS cursors (
	program TEXT PRIMARY KEY,
	last_id INTEGER NOT NULL DEFAULT 0
);
`

// ErrEmptySpotter is returned when a spot without a spotter reaches Insert.
var ErrEmptySpotter = errors.New("spot has no spotter")

// Store owns the SQLite handle. A single connection is kept open so that
// all reads and writes are serialized.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Apply runs fn inside one transaction scoped to program. The batch commits
// only if fn returns nil; otherwise nothing fn wrote is kept.
func (s *Store) Apply(ctx context.Context, program string, fn func(*Batch) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&Batch{tx: tx, program: program}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}
