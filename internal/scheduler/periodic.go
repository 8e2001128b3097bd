package scheduler

import (
	"context"
	"errors"
	"time"
)

// Periodic runs a sweep immediately and then every interval until ctx is
// cancelled. A sweep still running when the next tick fires delays that
// tick; a sweep rejected by the lock is logged at debug level.
func (s *Scheduler) Periodic(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("periodic sweeps started", "interval", interval)
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("periodic sweeps stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	_, err := s.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrSweepInProgress):
		s.logger.Debug("sweep skipped, another run holds the lock")
	case ctx.Err() != nil:
	default:
		s.logger.Error("scheduled sweep failed", "error", err)
	}
}
