// Package aggregate answers the windowed read queries over stored spots:
// the recent spot list, the activation log, and tweet-rate statistics.
package aggregate

import (
	"context"
	"time"

	"github.com/couchcryptid/activation-spot-service/internal/domain"
	"github.com/couchcryptid/activation-spot-service/internal/store"
	"github.com/jonboulle/clockwork"
)

// Reader is the read side of the spot store.
type Reader interface {
	RecentSpots(ctx context.Context, f store.Filter) ([]domain.Spot, error)
	ActivationRows(ctx context.Context, f store.Filter) ([]domain.Spot, error)
	RateGroups(ctx context.Context, f store.Filter) ([]store.RateGroup, error)
}

// Query holds the parameters shared by the read paths. Empty fields are
// not filtered on.
type Query struct {
	Program        string
	Region         string
	LocationPrefix string
	CallsignPrefix string
	Mode           string
	MaxFrequency   float64
	Window         time.Duration
}

func (q Query) filter(now time.Time) store.Filter {
	return store.Filter{
		Program:        q.Program,
		Region:         q.Region,
		CallsignPrefix: q.CallsignPrefix,
		Mode:           q.Mode,
		MaxFrequency:   q.MaxFrequency,
		Since:          now.Unix() - int64(q.Window/time.Second),
	}
}

// Engine runs queries against a Reader. Program policy (annotation labels)
// is looked up by name; unknown programs fall back to defaults.
type Engine struct {
	store    Reader
	clock    clockwork.Clock
	programs map[string]*domain.Program
}

// NewEngine creates an Engine over the given programs.
func NewEngine(r Reader, clock clockwork.Clock, programs []*domain.Program) *Engine {
	byName := make(map[string]*domain.Program, len(programs))
	for _, p := range programs {
		byName[p.Name] = p
	}
	return &Engine{store: r, clock: clock, programs: byName}
}

func (e *Engine) program(name string) *domain.Program {
	if p, ok := e.programs[name]; ok {
		return p
	}
	return &domain.Program{Name: name}
}
