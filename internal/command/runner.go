package command

import (
	"context"
	"fmt"

	"github.com/couchcryptid/activation-spot-service/internal/aggregate"
	"github.com/couchcryptid/activation-spot-service/internal/observability"
)

// Querier runs the aggregation read paths.
type Querier interface {
	SpotList(ctx context.Context, q aggregate.Query) (string, error)
	ActivationLog(ctx context.Context, q aggregate.Query) (aggregate.ActivationLog, error)
	TweetRate(ctx context.Context, q aggregate.Query) (string, error)
}

// Runner parses a command and renders the matching report.
type Runner struct {
	interp  *Interpreter
	engine  Querier
	metrics *observability.Metrics
}

// NewRunner creates a Runner.
func NewRunner(interp *Interpreter, engine Querier, metrics *observability.Metrics) *Runner {
	return &Runner{interp: interp, engine: engine, metrics: metrics}
}

// Execute answers a free-text command. Only storage failures are returned.
func (r *Runner) Execute(ctx context.Context, text string) (string, error) {
	req := r.interp.Parse(text)
	r.metrics.Commands.WithLabelValues(req.Kind.String()).Inc()

	switch req.Kind {
	case Stats:
		return r.engine.TweetRate(ctx, req.Query)
	case Log:
		log, err := r.engine.ActivationLog(ctx, req.Query)
		if err != nil {
			return "", err
		}
		return log.Message(), nil
	case SpotList:
		return r.engine.SpotList(ctx, req.Query)
	default:
		return "", fmt.Errorf("unknown command kind %d", req.Kind)
	}
}
