package scheduler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/activation-spot-service/internal/observability"
)

// ErrQueueClosed is returned by Do once the worker has stopped.
var ErrQueueClosed = errors.New("work queue closed")

// Queue runs jobs one at a time on a single worker. Polls, summaries and
// commands all share the store and cursor, so they never overlap.
type Queue struct {
	jobs    chan job
	stopped chan struct{}
	logger  *slog.Logger
	metrics *observability.Metrics
}

type job struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// NewQueue creates a Queue. Call Run to start the worker.
func NewQueue(logger *slog.Logger, metrics *observability.Metrics) *Queue {
	return &Queue{
		jobs:    make(chan job),
		stopped: make(chan struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

// Run executes queued jobs until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	defer close(q.stopped)
	for {
		select {
		case <-ctx.Done():
			q.logger.Info("work queue stopping", "reason", ctx.Err())
			return
		case j := <-q.jobs:
			q.metrics.QueueLength.Dec()
			if err := j.ctx.Err(); err != nil {
				j.done <- err
				continue
			}
			j.done <- j.fn(j.ctx)
		}
	}
}

// Do waits for its turn, runs fn on the worker, and returns fn's error.
func (q *Queue) Do(ctx context.Context, fn func(context.Context) error) error {
	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}

	q.metrics.QueueLength.Inc()
	select {
	case q.jobs <- j:
	case <-ctx.Done():
		q.metrics.QueueLength.Dec()
		return ctx.Err()
	case <-q.stopped:
		q.metrics.QueueLength.Dec()
		return ErrQueueClosed
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
