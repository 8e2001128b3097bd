package scheduler

import (
	"time"

	"github.com/rickgao/polywhales/internal/model"
)

// WalletState is where a wallet is in its sweep lifecycle.
type WalletState int

const (
	StatePending WalletState = iota
	StateFetching
	StateRetrying
	StateProcessing
	StateDone
	StateSkipped
	StateFailed
)

func (s WalletState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFetching:
		return "fetching"
	case StateRetrying:
		return "retrying"
	case StateProcessing:
		return "processing"
	case StateDone:
		return "done"
	case StateSkipped:
		return "skipped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s WalletState) Terminal() bool {
	return s == StateDone || s == StateSkipped || s == StateFailed
}

// WalletResult is the outcome of processing one wallet.
type WalletResult struct {
	Address       string
	State         WalletState
	Attempts      int
	NewActivities int
	Duplicates    int
	FailedTrades  int
	Err           error
	Elapsed       time.Duration
}

// Stats converts the result into its SweepStats contribution.
func (r WalletResult) Stats() model.SweepStats {
	s := model.SweepStats{
		NewActivities: r.NewActivities,
		FailedTrades:  r.FailedTrades,
	}
	switch r.State {
	case StateDone:
		s.Processed = 1
	case StateSkipped:
		s.Skipped = 1
	default:
		s.Errors = 1
	}
	return s
}
