package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Cursor returns the highest upstream id processed for program, or 0 when
// the program has never been polled.
func (s *Store) Cursor(ctx context.Context, program string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT last_id FROM cursors WHERE program = ?", program).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load cursor %s: %w", program, err)
	}
	return id, nil
}

// AdvanceCursor moves the program cursor forward outside of a poll batch.
func (s *Store) AdvanceCursor(ctx context.Context, program string, id int64) error {
	return s.Apply(ctx, program, func(b *Batch) error {
		return b.AdvanceCursor(ctx, id)
	})
}
