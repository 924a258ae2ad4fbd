// Package pipeline runs one poll of a program's spot feed: cursor gating,
// normalization, deduplication, storage, and delivery of accepted spots.
package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/couchcryptid/activation-spot-service/internal/domain"
	"github.com/couchcryptid/activation-spot-service/internal/observability"
	"github.com/couchcryptid/activation-spot-service/internal/store"
	"github.com/jonboulle/clockwork"
)

// Fetcher downloads a program feed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]domain.RawRecord, error)
}

// SpotStore is the write side of the spot store.
type SpotStore interface {
	Cursor(ctx context.Context, program string) (int64, error)
	Apply(ctx context.Context, program string, fn func(*store.Batch) error) error
}

// NameResolver looks up a reference's local-language name.
type NameResolver interface {
	LocalName(ctx context.Context, ref string) (string, error)
}

// SpotNotifier delivers accepted spots.
type SpotNotifier interface {
	Spot(ctx context.Context, p *domain.Program, s domain.Spot, localName string)
}

// Result summarizes one poll.
type Result struct {
	Program    string
	Fetched    int // records above the cursor
	Stored     int
	Posted     int
	Suppressed int
	Dropped    int
	Pruned     int64
	Cursor     int64
}

// Poller orchestrates the poll-ingest cycle for every program.
type Poller struct {
	fetcher  Fetcher
	store    SpotStore
	notifier SpotNotifier
	names    map[string]NameResolver // by program
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

// New creates a Poller. names holds the local-name resolver of each program
// that has one and may be nil.
func New(f Fetcher, s SpotStore, n SpotNotifier, names map[string]NameResolver, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Poller {
	return &Poller{
		fetcher:  f,
		store:    s,
		notifier: n,
		names:    names,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once a poll has completed successfully.
func (p *Poller) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no successful poll yet")
	}
	return nil
}

// PollAll polls every program in order. A failing program does not stop
// the others.
func (p *Poller) PollAll(ctx context.Context, programs []*domain.Program) error {
	var errs []error
	for _, prog := range programs {
		if _, err := p.Poll(ctx, prog); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type candidate struct {
	id  int64
	rec domain.RawRecord
}

// Poll ingests the records of prog's feed that are newer than its cursor.
// Everything is written in one transaction together with the new cursor;
// on any error nothing is kept and the cursor does not move.
func (p *Poller) Poll(ctx context.Context, prog *domain.Program) (Result, error) {
	start := p.clock.Now()
	res := Result{Program: prog.Name}
	log := p.logger.With("program", prog.Name)

	cursor, err := p.store.Cursor(ctx, prog.Name)
	if err != nil {
		p.metrics.PollErrors.WithLabelValues(prog.Name, "store").Inc()
		return res, fmt.Errorf("poll %s: %w", prog.Name, err)
	}
	res.Cursor = cursor

	records, err := p.fetcher.Fetch(ctx, prog.FeedURL)
	if err != nil {
		p.metrics.PollErrors.WithLabelValues(prog.Name, "fetch").Inc()
		log.Warn("feed fetch failed", "error", err)
		return res, fmt.Errorf("poll %s: %w", prog.Name, err)
	}

	fresh, maxID := p.gate(log, prog, records, cursor)
	res.Fetched = len(fresh)
	p.metrics.RecordsFetched.WithLabelValues(prog.Name).Add(float64(len(fresh)))
	if len(fresh) == 0 {
		log.Debug("no new spots", "cursor", cursor)
		p.ready.Store(true)
		return res, nil
	}

	now := start.Unix()
	var (
		accepted []domain.Spot
		badTime  int
	)
	err = p.store.Apply(ctx, prog.Name, func(b *store.Batch) error {
		accepted = accepted[:0]
		res.Stored, res.Posted, res.Suppressed, res.Dropped, badTime = 0, 0, 0, 0, 0

		for _, c := range fresh {
			spot, err := domain.Normalize(prog, c.rec)
			if err != nil {
				badTime++
				log.Warn("skipping record", "spot_id", c.id, "error", err)
				continue
			}
			if !spot.Storable() {
				res.Dropped++
				continue
			}
			spot.ObservedAt = now

			posted, err := p.decide(ctx, b, prog, spot, now)
			if err != nil {
				return err
			}
			spot.Posted = posted

			if err := b.Insert(ctx, spot); err != nil {
				return err
			}
			res.Stored++
			if posted {
				res.Posted++
				accepted = append(accepted, spot)
			} else {
				res.Suppressed++
			}
		}

		pruned, err := b.Prune(ctx, prog.RetentionCutoff(now))
		if err != nil {
			return err
		}
		res.Pruned = pruned
		return b.AdvanceCursor(ctx, maxID)
	})
	if err != nil {
		p.metrics.PollErrors.WithLabelValues(prog.Name, "store").Inc()
		log.Error("poll aborted", "error", err, "cursor", cursor)
		return Result{Program: prog.Name, Cursor: cursor}, fmt.Errorf("poll %s: %w", prog.Name, err)
	}
	res.Cursor = maxID

	p.metrics.SpotsStored.WithLabelValues(prog.Name).Add(float64(res.Stored))
	p.metrics.SpotsSuppressed.WithLabelValues(prog.Name).Add(float64(res.Suppressed))
	p.metrics.SpotsDropped.WithLabelValues(prog.Name, "no_spotter").Add(float64(res.Dropped))
	p.metrics.SpotsDropped.WithLabelValues(prog.Name, "bad_time").Add(float64(badTime))
	res.Dropped += badTime
	p.metrics.SpotsPruned.WithLabelValues(prog.Name).Add(float64(res.Pruned))
	p.metrics.Cursor.WithLabelValues(prog.Name).Set(float64(maxID))
	p.metrics.PollDuration.WithLabelValues(prog.Name).Observe(p.clock.Since(start).Seconds())
	p.ready.Store(true)

	log.Info("poll complete",
		"fetched", res.Fetched,
		"stored", res.Stored,
		"posted", res.Posted,
		"suppressed", res.Suppressed,
		"dropped", res.Dropped,
		"pruned", res.Pruned,
		"cursor", maxID,
	)

	for _, spot := range accepted {
		p.deliver(ctx, prog, spot)
	}
	return res, nil
}

// gate keeps records above the cursor in ascending id order and returns the
// highest id seen. Records without a usable id are skipped.
func (p *Poller) gate(log *slog.Logger, prog *domain.Program, records []domain.RawRecord, cursor int64) ([]candidate, int64) {
	maxID := cursor
	fresh := make([]candidate, 0, len(records))
	for _, rec := range records {
		id, err := domain.RecordID(prog, rec)
		if err != nil {
			p.metrics.SpotsDropped.WithLabelValues(prog.Name, "bad_id").Inc()
			log.Warn("skipping record", "error", err)
			continue
		}
		if id <= cursor {
			continue
		}
		fresh = append(fresh, candidate{id: id, rec: rec})
		maxID = max(maxID, id)
	}
	slices.SortStableFunc(fresh, func(a, b candidate) int { return cmp.Compare(a.id, b.id) })
	return fresh, maxID
}

// decide reports whether spot should be posted. Self-spots always are;
// others only when no posted spot with the same key is inside the
// program's suppression window. Rows written earlier in this batch count.
func (p *Poller) decide(ctx context.Context, b *store.Batch, prog *domain.Program, spot domain.Spot, now int64) (bool, error) {
	if domain.IsSelfSpot(spot.Spotter, spot.Callsign) {
		return true, nil
	}
	dup, err := b.RecentlyPosted(ctx, spot.Key(), now-prog.SuppressInterval)
	if err != nil {
		return false, err
	}
	return !dup, nil
}

func (p *Poller) deliver(ctx context.Context, prog *domain.Program, spot domain.Spot) {
	if p.notifier == nil {
		return
	}
	var localName string
	if r, ok := p.names[prog.Name]; ok && prog.WantsLocalName(spot.Reference) {
		name, err := r.LocalName(ctx, spot.Reference)
		if err != nil {
			p.logger.Warn("reference lookup failed", "program", prog.Name, "reference", spot.Reference, "error", err)
		}
		localName = name
	}
	p.notifier.Spot(ctx, prog, spot, localName)
}
