package app

import (
	"log/slog"
	"time"

	"trade_go/internal/domain"
	"trade_go/internal/engine"
	"trade_go/internal/infra"
	"trade_go/internal/infra/backend"
	"trade_go/internal/infra/broker"
	"trade_go/internal/infra/storage"
	"trade_go/internal/service"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config     *infra.Config
	Storage    *storage.Storage
	Broker     domain.Broker
	Stream     *broker.Stream
	Backend    *backend.Client
	Queue      *service.Queue
	Engine     *engine.Engine
	Dispatcher *service.Dispatcher
	Tasks      *service.TaskRegistry
}

func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize wires the full dependency graph: config, logging, journal,
// broker, backend, engine and the command dispatcher.
func (b *Bootstrap) Initialize(configPath string) error {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("bootstrapping", "app", cfg.App.Name, "version", cfg.App.Version, "paper", cfg.Broker.Paper)

	store, err := storage.NewStorage("data/trade.db")
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("journal database ready")

	restClient := broker.NewClient(cfg.Broker.RestURL, cfg.Broker.Token, cfg.Broker.AccountID, logger)
	if cfg.Broker.WSURL != "" {
		b.Stream = broker.NewStream(cfg.Broker.WSURL, cfg.Broker.Token, logger)
		restClient.AttachStream(b.Stream)
	}
	if cfg.Broker.Paper {
		b.Broker = broker.NewPaper(restClient, logger)
		slog.Info("paper trading enabled, orders are simulated")
	} else {
		b.Broker = restClient
	}

	b.Backend = backend.NewClient(cfg.Backend.Host, time.Duration(cfg.Backend.TimeoutSec)*time.Second)

	var sinks []domain.Notifier
	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, infra.NewWebhookNotifier(cfg.Notify.WebhookURL))
	}
	b.Queue = service.NewQueue(logger, sinks...)

	b.Engine = engine.New(engine.Config{
		Broker:      b.Broker,
		Backend:     b.Backend,
		Journal:     store,
		Notifier:    b.Queue,
		Logger:      logger,
		Pause:       time.Duration(cfg.Trading.PauseSec) * time.Second,
		StopsSum:    cfg.Trading.StopsSum,
		LongLevels:  cfg.Trading.LongLevels,
		ShortLevels: cfg.Trading.ShortLevels,
		NukeLevels:  cfg.Trading.NukeLevels,
		OrderTTL:    time.Duration(cfg.Trading.OrderTTLMin) * time.Minute,
	})
	b.Tasks = service.NewTaskRegistry(b.Queue, logger)
	b.Dispatcher = service.NewDispatcher(b.Engine, b.Tasks)

	return nil
}
