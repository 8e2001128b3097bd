// Package app wires configuration into the running tracker: store, trade
// source, notification queue and its handlers, scheduler, bot and server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/polywhales/internal/bot"
	"github.com/rickgao/polywhales/internal/config"
	"github.com/rickgao/polywhales/internal/events"
	"github.com/rickgao/polywhales/internal/feed"
	"github.com/rickgao/polywhales/internal/lock"
	"github.com/rickgao/polywhales/internal/metrics"
	"github.com/rickgao/polywhales/internal/notify"
	"github.com/rickgao/polywhales/internal/polymarket"
	"github.com/rickgao/polywhales/internal/scheduler"
	"github.com/rickgao/polywhales/internal/server"
	"github.com/rickgao/polywhales/internal/storage"
	"github.com/rickgao/polywhales/internal/telegram"
	"github.com/rickgao/polywhales/internal/version"
)

// App holds every long-lived component of the tracker.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	Store      storage.Store
	Trades     *polymarket.Client
	Metrics    *metrics.Metrics
	Queue      *notify.Queue
	Dispatcher *notify.Dispatcher
	Hub        *feed.Hub
	Publisher  *events.ActivityPublisher
	Redis      *redis.Client
	Scheduler  *scheduler.Scheduler
	Bot        *bot.Bot
	Server     *server.Server
}

// New builds the App. Optional components are enabled by their config
// sections: Telegram alerts and the bot by telegram.bot_token, the sweep
// lock by redis.addr, the Kafka publisher by kafka.brokers.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfg: cfg, logger: logger, Metrics: metrics.New("")}

	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.Store = store

	a.Trades = polymarket.NewClient(cfg.Polymarket.DataAPIURL,
		polymarket.WithTimeout(cfg.Polymarket.Timeout),
		polymarket.WithLogger(logger),
		polymarket.WithUserAgent(version.UserAgent()),
	)

	a.Queue = notify.NewQueue(notify.QueueConfig{
		Workers:    cfg.Notify.Workers,
		BufferSize: cfg.Notify.BufferSize,
		Timeout:    cfg.Notify.Timeout,
	}, logger)
	a.Metrics.RegisterQueue("", func() metrics.QueueStats {
		s := a.Queue.Stats()
		return metrics.QueueStats{
			Pending:   s.Pending,
			Capacity:  s.Capacity,
			Submitted: s.Submitted,
			Dropped:   s.Dropped,
			Failed:    s.Failed,
		}
	})

	var sender *telegram.Client
	if cfg.NotificationsEnabled() {
		loc, err := time.LoadLocation(cfg.Telegram.TimeZone)
		if err != nil {
			return nil, &config.ConfigError{Field: "telegram.time_zone", Reason: err.Error()}
		}
		sender = telegram.NewClient(cfg.Telegram.BotToken,
			telegram.WithAPIURL(cfg.Telegram.APIURL),
			telegram.WithTimeout(cfg.Notify.Timeout),
			telegram.WithLogger(logger),
		)
		a.Dispatcher = notify.NewDispatcher(store, sender, loc, logger).
			WithSendTimeout(cfg.Notify.Timeout).
			WithObserver(a.Metrics)
		a.Queue.Register("telegram", a.Dispatcher)
		a.Bot = bot.New(store, sender, logger,
			bot.WithPositions(a.Trades),
			bot.WithObserver(a.Metrics),
		)
	} else {
		logger.Warn("telegram bot token not set, alerts and bot commands are disabled")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		a.Publisher = events.NewActivityPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		a.Queue.Register("kafka", a.Publisher)
		logger.Info("kafka publisher enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	a.Hub = feed.NewHub(feed.Config{}, logger)
	a.Queue.Register("feed", a.Hub)

	opts := []scheduler.Option{
		scheduler.WithNotifier(a.Queue),
		scheduler.WithObserver(a.Metrics),
	}
	if cfg.Redis.Addr != "" {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		locker := lock.NewRedisLock(a.Redis, cfg.Redis.LockKey, cfg.Redis.LockTTL, lock.WithLogger(logger))
		opts = append(opts, scheduler.WithLocker(locker))
		logger.Info("sweep lock enabled", "redis", cfg.Redis.Addr, "key", cfg.Redis.LockKey)
	}
	a.Scheduler = scheduler.New(scheduler.ConfigFrom(cfg), store, a.Trades, store, logger, opts...)

	deps := server.Deps{
		Sweeper: a.Scheduler,
		Store:   store,
		Feed:    a.Hub,
		Metrics: a.Metrics,
	}
	// Typed nils must not reach the interface fields.
	if a.Dispatcher != nil {
		deps.Dispatcher = a.Dispatcher
	}
	if a.Bot != nil {
		deps.Bot = a.Bot
	}
	a.Server = server.New(server.Config{
		Addr:            cfg.Server.Addr,
		AllowedOrigin:   cfg.Server.AllowedOrigin,
		WebhookSecret:   cfg.Telegram.WebhookSecret,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, deps, logger)

	a.Queue.Start()
	return a, nil
}

// RunService serves HTTP and, when sweep.interval is set, runs periodic
// sweeps until ctx is cancelled.
func (a *App) RunService(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Server.Run(gctx)
	})

	if a.cfg.Sweep.Interval > 0 {
		g.Go(func() error {
			return a.Scheduler.Periodic(gctx, a.cfg.Sweep.Interval)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close drains the notification queue and releases connections.
func (a *App) Close(ctx context.Context) {
	if a.Queue != nil {
		if err := a.Queue.Close(ctx); err != nil {
			a.logger.Warn("notification queue not drained", "error", err)
		}
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.logger.Warn("error closing kafka publisher", "error", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.logger.Warn("error closing redis client", "error", err)
		}
	}
	if a.Store != nil {
		a.Store.Close()
	}
}
