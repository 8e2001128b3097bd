// Package ingest turns fetched trades into recorded activities exactly once.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/polywhales/internal/model"
	"github.com/rickgao/polywhales/internal/storage"
)

// Outcome is what happened to a single trade.
type Outcome int

const (
	// OutcomeRecorded means a new activity was persisted.
	OutcomeRecorded Outcome = iota
	// OutcomeDuplicate means the tx hash was already recorded.
	OutcomeDuplicate
	// OutcomeSkipped means the trade had no tx hash and cannot be deduplicated.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// PersistenceError wraps a store failure for a single trade.
type PersistenceError struct {
	TxHash string
	Op     string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s activity %s: %v", e.Op, e.TxHash, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Result is the outcome of Record. Activity is set only when Outcome is
// OutcomeRecorded.
type Result struct {
	Outcome  Outcome
	Activity *model.BettingActivity
}

// Recorder checks the store for an existing tx hash and inserts new
// activities. A concurrent insert of the same hash resolves to a duplicate.
type Recorder struct {
	store  storage.ActivityStore
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder creates a recorder over store.
func NewRecorder(store storage.ActivityStore, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Record persists trade for wallet unless it was seen before.
func (r *Recorder) Record(ctx context.Context, wallet string, trade model.Trade) (Result, error) {
	if trade.TransactionHash == "" {
		return Result{Outcome: OutcomeSkipped}, nil
	}

	exists, err := r.store.ExistsByTxHash(ctx, trade.TransactionHash)
	if err != nil {
		return Result{}, &PersistenceError{TxHash: trade.TransactionHash, Op: "check", Err: err}
	}
	if exists {
		return Result{Outcome: OutcomeDuplicate}, nil
	}

	activity := model.NewActivity(wallet, trade, r.now())
	if err := r.store.InsertActivity(ctx, &activity); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			r.logger.Debug("activity recorded concurrently",
				"wallet", wallet,
				"tx_hash", trade.TransactionHash,
			)
			return Result{Outcome: OutcomeDuplicate}, nil
		}
		return Result{}, &PersistenceError{TxHash: trade.TransactionHash, Op: "insert", Err: err}
	}

	return Result{Outcome: OutcomeRecorded, Activity: &activity}, nil
}
