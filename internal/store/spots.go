package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/couchcryptid/activation-spot-service/internal/domain"
)

const spotColumns = `observed_at, time, program, callsign, reference, region, name, location,
	frequency, raw_frequency, mode, comment, spotter, source_id, posted`

// RateGroup counts spots and posted spots for one (reference, callsign).
type RateGroup struct {
	Reference string
	Callsign  string
	Total     int
	Posted    int
}

// Insert stores a single spot in its own transaction.
func (s *Store) Insert(ctx context.Context, spot domain.Spot) error {
	return s.Apply(ctx, spot.Program, func(b *Batch) error {
		return b.Insert(ctx, spot)
	})
}

// Prune deletes the program's spots observed before olderThan.
func (s *Store) Prune(ctx context.Context, program string, olderThan int64) (int64, error) {
	var n int64
	err := s.Apply(ctx, program, func(b *Batch) error {
		var err error
		n, err = b.Prune(ctx, olderThan)
		return err
	})
	return n, err
}

// RecentSpots returns the latest spot of every (callsign, reference) pair
// matching f, newest first.
func (s *Store) RecentSpots(ctx context.Context, f Filter) ([]domain.Spot, error) {
	clause, args := where(f.predicates()...)
	query := `
SELECT ` + spotColumns + ` FROM (
	SELECT *, ROW_NUMBER() OVER (
		PARTITION BY callsign, reference ORDER BY observed_at DESC, id DESC) AS rn
	FROM spots` + clause + `
) WHERE rn = 1
ORDER BY observed_at DESC, id DESC`

	return s.querySpots(ctx, query, args...)
}

// ActivationRows returns every spot matching f in insertion order, which is
// chronological since observed_at never decreases between polls.
func (s *Store) ActivationRows(ctx context.Context, f Filter) ([]domain.Spot, error) {
	clause, args := where(f.predicates()...)
	return s.querySpots(ctx, "SELECT "+spotColumns+" FROM spots"+clause+" ORDER BY id", args...)
}

// RateGroups counts spots per (reference, callsign) matching f, ordered by
// first appearance.
func (s *Store) RateGroups(ctx context.Context, f Filter) ([]RateGroup, error) {
	clause, args := where(f.predicates()...)
	query := `
SELECT reference, callsign, COUNT(*), COALESCE(SUM(posted), 0)
FROM spots` + clause + `
GROUP BY reference, callsign
ORDER BY MIN(id)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rate groups: %w", err)
	}
	defer rows.Close()

	var groups []RateGroup
	for rows.Next() {
		var g RateGroup
		if err := rows.Scan(&g.Reference, &g.Callsign, &g.Total, &g.Posted); err != nil {
			return nil, fmt.Errorf("scan rate group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *Store) querySpots(ctx context.Context, query string, args ...any) ([]domain.Spot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query spots: %w", err)
	}
	defer rows.Close()

	var spots []domain.Spot
	for rows.Next() {
		spot, err := scanSpot(rows)
		if err != nil {
			return nil, err
		}
		spots = append(spots, spot)
	}
	return spots, rows.Err()
}

func scanSpot(rows *sql.Rows) (domain.Spot, error) {
	var (
		s      domain.Spot
		posted int64
	)
	err := rows.Scan(
		&s.ObservedAt, &s.ReportedTime, &s.Program, &s.Callsign, &s.Reference, &s.Region,
		&s.Name, &s.Location, &s.Frequency, &s.RawFrequency, &s.Mode, &s.Comment,
		&s.Spotter, &s.SourceID, &posted,
	)
	if err != nil {
		return domain.Spot{}, fmt.Errorf("scan spot: %w", err)
	}
	s.Posted = posted != 0
	return s, nil
}
