package scheduler

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/polywhales/internal/config"
	"github.com/rickgao/polywhales/internal/ingest"
	"github.com/rickgao/polywhales/internal/model"
	"github.com/rickgao/polywhales/internal/notify"
	"github.com/rickgao/polywhales/internal/polymarket"
	"github.com/rickgao/polywhales/internal/retry"
	"github.com/rickgao/polywhales/internal/storage"
)

// ErrSweepInProgress is returned when another sweep holds the lock.
var ErrSweepInProgress = errors.New("scheduler: sweep already in progress")

// WalletLister provides the wallets to sweep.
type WalletLister interface {
	ListTrackedWallets(ctx context.Context) ([]model.TrackedWallet, error)
}

// TradeSource fetches recent trades for a wallet.
type TradeSource interface {
	GetTrades(ctx context.Context, address string, limit int) (iter.Seq[model.Trade], error)
}

// Notifier accepts newly recorded activities without blocking.
type Notifier interface {
	Submit(e notify.Event) error
}

// Locker guards against overlapping sweeps. ok is false when another
// holder has the lock.
type Locker interface {
	TryLock(ctx context.Context) (unlock func(context.Context) error, ok bool, err error)
}

// Observer receives sweep measurements.
type Observer interface {
	WalletFinished(state string, attempts int, elapsed time.Duration)
	SweepFinished(stats model.SweepStats, elapsed time.Duration)
}

// Config holds sweep configuration.
type Config struct {
	BatchSize  int           // Wallets processed concurrently (default: 5)
	TradeLimit int           // Trades fetched per wallet (default: 10)
	Policy     retry.Policy  // Fetch retry policy
	Timeout    time.Duration // Upper bound on one sweep (0: none)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:  5,
		TradeLimit: polymarket.DefaultTradeLimit,
		Policy: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
		},
	}
}

// ConfigFrom maps the service configuration onto a scheduler Config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		BatchSize:  cfg.Sweep.BatchSize,
		TradeLimit: cfg.Polymarket.TradeLimit,
		Policy: retry.Policy{
			MaxAttempts: cfg.Sweep.MaxAttempts,
			BaseDelay:   cfg.Sweep.BaseDelay,
			MaxDelay:    cfg.Sweep.MaxDelay,
		},
		Timeout: cfg.Sweep.Timeout,
	}
}

// Option configures optional collaborators.
type Option func(*Scheduler)

// WithNotifier hands recorded activities to n.
func WithNotifier(n Notifier) Option {
	return func(s *Scheduler) { s.notifier = n }
}

// WithLocker enables the overlap guard.
func WithLocker(l Locker) Option {
	return func(s *Scheduler) { s.locker = l }
}

// WithObserver reports measurements to o.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// Scheduler sweeps tracked wallets for new trades.
type Scheduler struct {
	cfg      Config
	wallets  WalletLister
	trades   TradeSource
	recorder *ingest.Recorder
	notifier Notifier
	locker   Locker
	observer Observer
	logger   *slog.Logger
}

// New creates a Scheduler. Zero config fields take their defaults.
func New(cfg Config, wallets WalletLister, trades TradeSource, activities storage.ActivityStore, logger *slog.Logger, opts ...Option) *Scheduler {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.TradeLimit <= 0 {
		cfg.TradeLimit = def.TradeLimit
	}
	if cfg.Policy.MaxAttempts <= 0 {
		cfg.Policy.MaxAttempts = def.Policy.MaxAttempts
	}
	if cfg.Policy.BaseDelay < 0 {
		cfg.Policy.BaseDelay = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		cfg:     cfg,
		wallets: wallets,
		trades:  trades,
		logger:  logger,
	}
	if activities != nil {
		s.recorder = ingest.NewRecorder(activities, logger)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one sweep. The returned stats are valid even when err is
// non-nil and reflect the work done before the failure.
func (s *Scheduler) Run(ctx context.Context) (model.SweepStats, error) {
	var stats model.SweepStats

	if err := s.check(); err != nil {
		return stats, err
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx)
		if err != nil {
			return stats, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !ok {
			return stats, ErrSweepInProgress
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("failed to release sweep lock", "error", err)
			}
		}()
	}

	runID := uuid.New()
	logger := s.logger.With("sweep_id", runID)
	start := time.Now()

	tracked, err := s.wallets.ListTrackedWallets(ctx)
	if err != nil {
		return stats, fmt.Errorf("list tracked wallets: %w", err)
	}

	addresses := uniqueAddresses(tracked)
	if len(addresses) == 0 {
		logger.Info("no wallets to track")
		s.observeSweep(stats, time.Since(start))
		return stats, nil
	}

	logger.Info("sweep started",
		"wallets", len(addresses),
		"batch_size", s.cfg.BatchSize,
	)

	for batch := range slices.Chunk(addresses, s.cfg.BatchSize) {
		if err := ctx.Err(); err != nil {
			s.observeSweep(stats, time.Since(start))
			return stats, fmt.Errorf("sweep interrupted: %w", err)
		}
		for _, res := range s.runBatch(ctx, logger, batch) {
			stats = stats.Merge(res.Stats())
		}
	}

	elapsed := time.Since(start)
	s.observeSweep(stats, elapsed)
	logger.Info("sweep complete",
		"processed", stats.Processed,
		"new_activities", stats.NewActivities,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"failed_trades", stats.FailedTrades,
		"duration", elapsed,
	)
	return stats, nil
}

func (s *Scheduler) check() error {
	switch {
	case s.wallets == nil:
		return &config.ConfigError{Field: "scheduler.wallets", Reason: "is not configured"}
	case s.trades == nil:
		return &config.ConfigError{Field: "scheduler.trades", Reason: "is not configured"}
	case s.recorder == nil:
		return &config.ConfigError{Field: "scheduler.activities", Reason: "is not configured"}
	}
	return nil
}

// runBatch processes addresses concurrently. Each goroutine owns one slot
// of the result slice.
func (s *Scheduler) runBatch(ctx context.Context, logger *slog.Logger, addresses []string) []WalletResult {
	results := make([]WalletResult, len(addresses))

	var g errgroup.Group
	for i, addr := range addresses {
		g.Go(func() error {
			results[i] = s.processWallet(ctx, logger, addr)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Scheduler) processWallet(ctx context.Context, logger *slog.Logger, address string) WalletResult {
	start := time.Now()
	res := WalletResult{Address: address, State: StatePending}
	logger = logger.With("wallet", address)

	var trades iter.Seq[model.Trade]
	res.State = StateFetching
	outcome := retry.DoNotify(ctx, s.cfg.Policy, classify(ctx),
		func(ctx context.Context) error {
			seq, err := s.trades.GetTrades(ctx, address, s.cfg.TradeLimit)
			if err != nil {
				return err
			}
			trades = seq
			return nil
		},
		func(err error, attempt int, delay time.Duration) {
			res.State = StateRetrying
			logger.Warn("fetch trades failed, retrying",
				"attempt", attempt,
				"delay", delay,
				"error", err,
			)
		},
	)
	res.Attempts = outcome.Attempts

	switch {
	case outcome.Skipped:
		res.State = StateSkipped
		res.Err = outcome.Err
		logger.Warn("wallet skipped", "reason", outcome.Err)
	case outcome.Err != nil:
		res.State = StateFailed
		res.Err = outcome.Err
		logger.Error("wallet failed",
			"attempts", outcome.Attempts,
			"error", outcome.Err,
		)
	default:
		res.State = StateProcessing
		s.processTrades(ctx, logger, address, trades, &res)
		res.State = StateDone
	}

	res.Elapsed = time.Since(start)
	if s.observer != nil {
		s.observer.WalletFinished(res.State.String(), res.Attempts, res.Elapsed)
	}
	logger.Debug("wallet finished",
		"state", res.State,
		"attempts", res.Attempts,
		"new_activities", res.NewActivities,
		"duplicates", res.Duplicates,
		"failed_trades", res.FailedTrades,
	)
	return res
}

func (s *Scheduler) processTrades(ctx context.Context, logger *slog.Logger, address string, trades iter.Seq[model.Trade], res *WalletResult) {
	if trades == nil {
		return
	}
	for trade := range trades {
		rec, err := s.recorder.Record(ctx, address, trade)
		if err != nil {
			res.FailedTrades++
			logger.Error("failed to record trade", "error", err)
			continue
		}

		switch rec.Outcome {
		case ingest.OutcomeDuplicate:
			res.Duplicates++
		case ingest.OutcomeSkipped:
			logger.Debug("trade without tx hash skipped", "market", trade.MarketID)
		case ingest.OutcomeRecorded:
			res.NewActivities++
			s.submit(logger, rec.Activity, trade.Title)
		}
	}
}

func (s *Scheduler) submit(logger *slog.Logger, activity *model.BettingActivity, title string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Submit(notify.Event{Activity: *activity, MarketTitle: title})
	if err != nil {
		logger.Warn("failed to queue notification",
			"tx_hash", activity.TxHash,
			"error", err,
		)
	}
}

func (s *Scheduler) observeSweep(stats model.SweepStats, elapsed time.Duration) {
	if s.observer != nil {
		s.observer.SweepFinished(stats, elapsed)
	}
}

// classify skips rate-limited wallets and stops once the sweep context ends.
func classify(ctx context.Context) retry.Classifier {
	return func(err error) retry.Class {
		switch {
		case errors.Is(err, polymarket.ErrRateLimited):
			return retry.Skip
		case errors.Is(err, polymarket.ErrEmptyAddress):
			return retry.Abort
		case ctx.Err() != nil:
			return retry.Abort
		default:
			return retry.Retry
		}
	}
}

// uniqueAddresses returns tracked addresses in list order, de-duplicated
// case-insensitively. Several chats may track the same wallet.
func uniqueAddresses(wallets []model.TrackedWallet) []string {
	seen := make(map[string]struct{}, len(wallets))
	out := make([]string, 0, len(wallets))
	for _, w := range wallets {
		addr := strings.TrimSpace(w.WalletAddress)
		key := strings.ToLower(addr)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}
