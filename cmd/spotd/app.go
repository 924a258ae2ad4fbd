package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/activation-spot-service/internal/adapter/feed"
	kafkaadapter "github.com/couchcryptid/activation-spot-service/internal/adapter/kafka"
	"github.com/couchcryptid/activation-spot-service/internal/adapter/refname"
	"github.com/couchcryptid/activation-spot-service/internal/adapter/telegram"
	"github.com/couchcryptid/activation-spot-service/internal/aggregate"
	"github.com/couchcryptid/activation-spot-service/internal/command"
	"github.com/couchcryptid/activation-spot-service/internal/config"
	"github.com/couchcryptid/activation-spot-service/internal/notify"
	"github.com/couchcryptid/activation-spot-service/internal/observability"
	"github.com/couchcryptid/activation-spot-service/internal/pipeline"
	"github.com/couchcryptid/activation-spot-service/internal/scheduler"
	"github.com/couchcryptid/activation-spot-service/internal/store"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
)

// app holds the components shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
	store   *store.Store
	engine  *aggregate.Engine
	runner  *command.Runner

	bot       *tgbotapi.BotAPI
	publisher *kafkaadapter.Publisher
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(cfg.Programs))
	for _, p := range cfg.Programs {
		names = append(names, p.Name)
	}
	engine := aggregate.NewEngine(st, clock, cfg.Programs)
	interp := command.New(names, cfg.DefaultRegion, cfg.RegionMarkers)

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		clock:   clock,
		store:   st,
		engine:  engine,
		runner:  command.NewRunner(interp, engine, metrics),
	}, nil
}

// notifier builds the outbound side: Telegram when configured, otherwise a
// log channel, plus Kafka topics when brokers are set.
func (a *app) notifier() (*notify.Notifier, error) {
	var channels []notify.Channel
	if a.cfg.TelegramToken != "" {
		bot, err := telegram.NewAPI(a.cfg.TelegramToken)
		if err != nil {
			return nil, err
		}
		a.bot = bot
		channels = append(channels, telegram.NewChannel(bot, a.cfg.TelegramChatID))
		a.logger.Info("telegram enabled", "bot", bot.Self.UserName, "chat_id", a.cfg.TelegramChatID)
	} else {
		channels = append(channels, notify.NewLogChannel(a.logger, telegram.MaxMessageLen))
		a.logger.Info("telegram disabled, posting to log")
	}

	var publisher notify.Publisher
	if len(a.cfg.KafkaBrokers) > 0 {
		a.publisher = kafkaadapter.NewPublisher(a.cfg.KafkaBrokers, a.clock, a.logger)
		publisher = a.publisher
		a.logger.Info("kafka topics enabled", "brokers", a.cfg.KafkaBrokers)
	}
	return notify.New(channels, publisher, a.logger, a.metrics), nil
}

// poller wires the feed client, store, and per-program name lookups.
func (a *app) poller(n pipeline.SpotNotifier) *pipeline.Poller {
	resolvers := make(map[string]pipeline.NameResolver)
	for _, p := range a.cfg.Programs {
		if p.RefLookupURL == "" {
			continue
		}
		client := refname.NewClient(p.RefLookupURL, a.cfg.FeedTimeout, a.logger)
		resolvers[p.Name] = refname.NewCachedResolver(client, a.cfg.RefCacheSize, a.metrics)
	}
	fetcher := feed.NewClient(a.cfg.FeedTimeout, a.logger)
	return pipeline.New(fetcher, a.store, n, resolvers, a.clock, a.logger, a.metrics)
}

func (a *app) close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("kafka publisher close error", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("store close error", "error", err)
	}
}

// queuedCommander runs commands on the work queue so they never overlap a
// poll or summary.
type queuedCommander struct {
	queue  *scheduler.Queue
	runner *command.Runner
}

func (c queuedCommander) Execute(ctx context.Context, text string) (string, error) {
	var reply string
	err := c.queue.Do(ctx, func(ctx context.Context) error {
		var err error
		reply, err = c.runner.Execute(ctx, text)
		return err
	})
	return reply, err
}
