// Package scheduler fires periodic polls and daily reports through a
// single serialized work queue.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/robfig/cron/v3"
)

var timeHHMM = regexp.MustCompile(`^(?:[01]\d|2[0-3]):[0-5]\d$`)

// Scheduler triggers named jobs on cron schedules. A trigger that fires
// while the previous run of the same job is still queued or running is
// skipped.
type Scheduler struct {
	cron   *cron.Cron
	queue  *Queue
	logger *slog.Logger
	ctx    context.Context
}

// New creates a Scheduler evaluating daily times in timezone.
func New(timezone string, queue *Queue, logger *slog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		queue:  queue,
		logger: logger,
		ctx:    context.Background(),
	}, nil
}

// Every runs fn at a fixed interval.
func (s *Scheduler) Every(interval time.Duration, name string, fn func(context.Context) error) error {
	if interval <= 0 {
		return errors.New("interval must be positive")
	}
	_, err := s.cron.AddJob("@every "+interval.String(), s.job(name, fn))
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	return nil
}

// Daily runs fn once a day at hhmm local time.
func (s *Scheduler) Daily(hhmm, name string, fn func(context.Context) error) error {
	if !timeHHMM.MatchString(hhmm) {
		return fmt.Errorf("invalid time %q (expected HH:MM)", hhmm)
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return fmt.Errorf("invalid time: %w", err)
	}
	spec := fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour())
	if _, err := s.cron.AddJob(spec, s.job(name, fn)); err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	return nil
}

// Start begins firing triggers. Jobs run with ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
}

// Stop prevents new triggers and waits for running ones to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) job(name string, fn func(context.Context) error) cron.Job {
	return cron.FuncJob(func() {
		start := time.Now()
		if err := s.queue.Do(s.ctx, fn); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		s.logger.Debug("scheduled job done", "job", name, "duration", time.Since(start))
	})
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
