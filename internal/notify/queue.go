package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/polywhales/internal/model"
)

var (
	// ErrQueueClosed is returned by Submit after Close.
	ErrQueueClosed = errors.New("notify: queue closed")

	// ErrQueueFull is returned when the buffer is at its maximum size.
	ErrQueueFull = errors.New("notify: queue full")
)

// Event is a newly recorded activity handed off for delivery.
type Event struct {
	Activity    model.BettingActivity
	MarketTitle string
}

// Handler consumes events off the queue.
type Handler interface {
	HandleEvent(ctx context.Context, e Event) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, e Event) error

// HandleEvent implements Handler.
func (f HandlerFunc) HandleEvent(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// QueueConfig sizes the queue and its worker pool.
type QueueConfig struct {
	Workers     int
	BufferSize  int
	MaxBuffered int
	Timeout     time.Duration
}

// DefaultQueueConfig returns sensible defaults.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Workers:     4,
		BufferSize:  64,
		MaxBuffered: 10000,
		Timeout:     10 * time.Second,
	}
}

// QueueStats is a snapshot of queue counters.
type QueueStats struct {
	Pending   int
	Capacity  int
	Submitted int64
	Dropped   int64
	Handled   int64
	Failed    int64
}

type namedHandler struct {
	name string
	h    Handler
}

// Queue decouples event producers from slow deliveries. Submit never
// blocks; each registered handler runs independently for every event and
// its failures are only logged.
type Queue struct {
	cfg      QueueConfig
	buf      *ringBuffer[Event]
	logger   *slog.Logger
	handlers []namedHandler

	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup

	submitted atomic.Int64
	dropped   atomic.Int64
	handled   atomic.Int64
	failed    atomic.Int64
}

// NewQueue creates a queue. Register handlers, then Start it.
func NewQueue(cfg QueueConfig, logger *slog.Logger) *Queue {
	def := DefaultQueueConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.MaxBuffered <= 0 {
		cfg.MaxBuffered = def.MaxBuffered
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		cfg:    cfg,
		buf:    newRingBuffer[Event](cfg.BufferSize, cfg.MaxBuffered),
		logger: logger,
	}
}

// Register adds a handler. Must be called before Start.
func (q *Queue) Register(name string, h Handler) {
	q.handlers = append(q.handlers, namedHandler{name: name, h: h})
}

// Handlers returns the registered handler names.
func (q *Queue) Handlers() []string {
	names := make([]string, len(q.handlers))
	for i, nh := range q.handlers {
		names[i] = nh.name
	}
	return names
}

// Start launches the worker pool.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		for i := range q.cfg.Workers {
			q.wg.Add(1)
			go q.worker(i)
		}
		q.logger.Info("notification queue started",
			"workers", q.cfg.Workers,
			"handlers", q.Handlers(),
		)
	})
}

// Submit enqueues e without blocking.
func (q *Queue) Submit(e Event) error {
	ok, full := q.buf.push(e)
	switch {
	case ok:
		q.submitted.Add(1)
		return nil
	case full:
		q.dropped.Add(1)
		return ErrQueueFull
	default:
		return ErrQueueClosed
	}
}

// Close stops accepting events and waits for pending ones to be handled
// or for ctx to end.
func (q *Queue) Close(ctx context.Context) error {
	q.closeOnce.Do(q.buf.close)
	// Workers that were never started cannot drain.
	q.Start()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain notification queue: %w (%d pending)", ctx.Err(), q.buf.pending())
	}
}

// Stats returns current counters.
func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Pending:   q.buf.pending(),
		Capacity:  q.buf.capacity(),
		Submitted: q.submitted.Load(),
		Dropped:   q.dropped.Load(),
		Handled:   q.handled.Load(),
		Failed:    q.failed.Load(),
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for {
		e, ok := q.buf.pop()
		if !ok {
			return
		}
		for _, nh := range q.handlers {
			q.deliver(id, nh, e)
		}
	}
}

func (q *Queue) deliver(worker int, nh namedHandler, e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), q.cfg.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			q.failed.Add(1)
			q.logger.Error("notification handler panicked",
				"handler", nh.name,
				"worker", worker,
				"tx_hash", e.Activity.TxHash,
				"panic", r,
			)
		}
	}()

	if err := nh.h.HandleEvent(ctx, e); err != nil {
		q.failed.Add(1)
		q.logger.Warn("notification handler failed",
			"handler", nh.name,
			"wallet", e.Activity.WalletAddress,
			"tx_hash", e.Activity.TxHash,
			"error", err,
		)
		return
	}
	q.handled.Add(1)
}
