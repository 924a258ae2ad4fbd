package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/couchcryptid/activation-spot-service/internal/adapter/httpadapter"
	"github.com/couchcryptid/activation-spot-service/internal/adapter/telegram"
	"github.com/couchcryptid/activation-spot-service/internal/pipeline"
	"github.com/couchcryptid/activation-spot-service/internal/scheduler"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the poller, scheduler, and query surfaces (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	cfg, logger := a.cfg, a.logger

	notifier, err := a.notifier()
	if err != nil {
		return err
	}
	poller := a.poller(notifier)
	summarizer := pipeline.NewSummarizer(a.engine, notifier, cfg.DefaultRegion, cfg.RegionMarkers[cfg.DefaultRegion], logger)

	queue := scheduler.NewQueue(logger, a.metrics)
	sched, err := scheduler.New(cfg.Timezone, queue, logger)
	if err != nil {
		return err
	}
	pollAll := func(ctx context.Context) error { return poller.PollAll(ctx, cfg.Programs) }
	if err := sched.Every(cfg.PollInterval, "poll", pollAll); err != nil {
		return err
	}
	if err := sched.Daily(cfg.SummaryAt, "summary", func(ctx context.Context) error {
		return summarizer.SummarizeAll(ctx, cfg.Programs)
	}); err != nil {
		return err
	}

	commander := queuedCommander{queue: queue, runner: a.runner}
	srv := httpadapter.NewServer(cfg.HTTPAddr, poller, commander, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Go(func() { queue.Run(ctx) })

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if a.bot != nil {
		listener := telegram.NewListener(a.bot, commander, logger)
		wg.Go(func() { listener.Run(ctx) })
	}

	// First poll right away rather than one interval from now.
	go func() {
		if err := queue.Do(ctx, pollAll); err != nil {
			logger.Error("initial poll failed", "error", err)
		}
	}()
	sched.Start(ctx)
	logger.Info("spotd started",
		"programs", len(cfg.Programs),
		"poll_interval", cfg.PollInterval,
		"summary_at", cfg.SummaryAt,
		"timezone", cfg.Timezone,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	sched.Stop()
	wg.Wait()

	logger.Info("shutdown complete")
	return nil
}
