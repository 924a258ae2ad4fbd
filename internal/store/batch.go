package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/couchcryptid/activation-spot-service/internal/domain"
)

const insertSpotSQL = `
INSERT INTO spots (
	observed_at, time, program, callsign, reference, region, name, location,
	frequency, raw_frequency, mode, comment, spotter, source_id, posted)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type txExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Batch is the write side of one poll, bound to a transaction and program.
type Batch struct {
	tx      txExecer
	program string
}

// RecentlyPosted reports whether a posted spot with key was observed after since.
func (b *Batch) RecentlyPosted(ctx context.Context, key domain.DedupKey, since int64) (bool, error) {
	clause, args := where(
		eq("program", key.Program),
		gt("observed_at", since),
		eq("callsign", key.Callsign),
		eq("reference", key.Reference),
		eq("frequency", key.Frequency),
		eq("mode", key.Mode),
		eq("posted", 1),
	)

	var found bool
	err := b.tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM spots"+clause+")", args...).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("query suppression window: %w", err)
	}
	return found, nil
}

// Insert appends one spot.
func (b *Batch) Insert(ctx context.Context, s domain.Spot) error {
	if !s.Storable() {
		return ErrEmptySpotter
	}
	_, err := b.tx.ExecContext(ctx, insertSpotSQL,
		s.ObservedAt, s.ReportedTime, s.Program, s.Callsign, s.Reference, s.Region,
		s.Name, s.Location, s.Frequency, s.RawFrequency, s.Mode, s.Comment,
		s.Spotter, s.SourceID, boolToInt(s.Posted),
	)
	if err != nil {
		return fmt.Errorf("insert spot %d: %w", s.SourceID, err)
	}
	return nil
}

// Prune deletes the program's spots observed before olderThan. Rows at
// exactly olderThan are kept.
func (b *Batch) Prune(ctx context.Context, olderThan int64) (int64, error) {
	clause, args := where(eq("program", b.program), lt("observed_at", olderThan))
	res, err := b.tx.ExecContext(ctx, "DELETE FROM spots"+clause, args...)
	if err != nil {
		return 0, fmt.Errorf("prune spots: %w", err)
	}
	return res.RowsAffected()
}

// AdvanceCursor moves the program's cursor to id unless it is already past it.
func (b *Batch) AdvanceCursor(ctx context.Context, id int64) error {
	_, err := b.tx.ExecContext(ctx, `
INSERT INTO cursors (program, last_id) VALUES (?, ?)
ON CONFLICT(program) DO UPDATE SET last_id = max(last_id, excluded.last_id)`,
		b.program, id)
	if err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
