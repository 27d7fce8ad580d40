package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/donaldgifford/mailin-buyback/internal/config"
	"github.com/donaldgifford/mailin-buyback/internal/engine"
	"github.com/donaldgifford/mailin-buyback/internal/notify"
	"github.com/donaldgifford/mailin-buyback/internal/store"
	"github.com/donaldgifford/mailin-buyback/pkg/logger"
	"github.com/donaldgifford/mailin-buyback/pkg/pricing"
)

// app holds the dependencies shared by the server commands.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	store    store.Store
	notifier notify.Notifier
	closers  []func() error
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logger.NewWithOptions(os.Stderr, logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Service: cfg.Telemetry.ServiceName,
	})
}

// loadApp reads the config and opens the store and notifiers.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log := newLogger(cfg)

	a := &app{cfg: cfg, log: log}

	s, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.store = s
	a.closers = append(a.closers, closeStore)

	n, closeNotifier := buildNotifier(cfg, log)
	a.notifier = n
	a.closers = append(a.closers, closeNotifier)

	return a, nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func (a *app) engine() *engine.Engine {
	return engine.NewEngine(a.store, a.notifier, engineOptions(a.cfg, a.log)...)
}

// openStore connects the configured backend. The memory backend is seeded
// from the price table file and loses its requests on exit.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, func() error, error) {
	switch cfg.Store.Type {
	case config.StoreMemory:
		tables, err := pricing.LoadTablesFile(cfg.Pricing.TablesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading price tables: %w", err)
		}
		log.Warn("using in-memory store; requests are not persisted")
		return store.NewMemoryStore(tables), func() error { return nil }, nil
	default:
		pg, err := store.NewPostgresStore(ctx, cfg.Database.DSN(), store.WithPoolSize(cfg.Database.PoolSize))
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		log.Info("connected to database", "host", cfg.Database.Host, "name", cfg.Database.Name)
		return pg, func() error { pg.Close(); return nil }, nil
	}
}

// buildNotifier fans out to every enabled backend, or discards events when
// none is configured.
func buildNotifier(cfg *config.Config, log *slog.Logger) (notify.Notifier, func() error) {
	n := cfg.Notifications
	var (
		backends notify.Multi
		closers  []func() error
	)

	if n.Discord.Enabled {
		backends = append(backends, notify.NewDiscordNotifier(n.Discord.WebhookURL,
			notify.WithRateLimit(n.Discord.RatePerSec, n.Discord.Burst)))
		log.Info("discord notifications enabled")
	}
	if n.Webhook.Enabled {
		opts := make([]notify.WebhookOption, 0, len(n.Webhook.Headers))
		for k, v := range n.Webhook.Headers {
			opts = append(opts, notify.WithWebhookHeader(k, v))
		}
		backends = append(backends, notify.NewWebhookNotifier(n.Webhook.URL, opts...))
		log.Info("webhook notifications enabled")
	}
	if n.Kafka.Enabled {
		k := notify.NewKafkaNotifier(n.Kafka.Brokers, n.Kafka.Topic)
		backends = append(backends, k)
		closers = append(closers, k.Close)
		log.Info("kafka notifications enabled", "topic", n.Kafka.Topic)
	}

	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	switch len(backends) {
	case 0:
		return notify.NewNoOpNotifier(logger.Component(log, "notify")), closeAll
	case 1:
		return backends[0], closeAll
	default:
		return backends, closeAll
	}
}

func engineOptions(cfg *config.Config, log *slog.Logger) []engine.EngineOption {
	return []engine.EngineOption{
		engine.WithLogger(logger.Component(log, "engine")),
		engine.WithResaleRule(pricing.ResaleRule{
			BatteryThreshold: cfg.Pricing.ResaleBatteryThreshold,
			BatteryRate:      cfg.Pricing.ResaleBatteryRate,
		}),
		engine.WithReturnedRetention(cfg.Retention.ReturnedRetention),
		engine.WithSweepBatch(cfg.Retention.SweepBatch),
	}
}
