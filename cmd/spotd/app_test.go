package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/activation-spot-service/internal/aggregate"
	"github.com/couchcryptid/activation-spot-service/internal/command"
	"github.com/couchcryptid/activation-spot-service/internal/observability"
	"github.com/couchcryptid/activation-spot-service/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQuerier struct{}

func (stubQuerier) SpotList(_ context.Context, q aggregate.Query) (string, error) {
	return "spots " + q.Program, nil
}

func (stubQuerier) ActivationLog(_ context.Context, _ aggregate.Query) (aggregate.ActivationLog, error) {
	return aggregate.ActivationLog{Hours: 12}, nil
}

func (stubQuerier) TweetRate(_ context.Context, _ aggregate.Query) (string, error) {
	return "rate", nil
}

func TestQueuedCommander(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	queue := scheduler.NewQueue(logger, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go queue.Run(ctx)

	runner := command.NewRunner(command.New([]string{"sota", "pota"}, "JA", nil), stubQuerier{}, metrics)
	c := queuedCommander{queue: queue, runner: runner}

	reply, err := c.Execute(ctx, "pota")
	require.NoError(t, err)
	assert.Equal(t, "spots pota", reply)

	reply, err = c.Execute(ctx, "stat")
	require.NoError(t, err)
	assert.Equal(t, "rate", reply)
}
