package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("transient")
	errLimited   = errors.New("rate limited")
	errFatal     = errors.New("fatal")
)

func classify(err error) Class {
	switch {
	case errors.Is(err, errLimited):
		return Skip
	case errors.Is(err, errFatal):
		return Abort
	default:
		return Retry
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	res := Do(context.Background(), Policy{MaxAttempts: 3, BaseDelay: time.Hour}, classify, func(context.Context) error {
		calls++
		return nil
	})

	assert.True(t, res.OK())
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, calls)
}

func TestDo_BackoffDoublesBetweenAttempts(t *testing.T) {
	base := 20 * time.Millisecond
	var delays []time.Duration
	calls := 0

	start := time.Now()
	res := DoNotify(context.Background(), Policy{MaxAttempts: 3, BaseDelay: base}, classify,
		func(context.Context) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		},
		func(err error, attempt int, d time.Duration) {
			delays = append(delays, d)
		},
	)
	elapsed := time.Since(start)

	require.True(t, res.OK(), "result: %+v", res)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []time.Duration{base, 2 * base}, delays)
	assert.GreaterOrEqual(t, elapsed, 3*base)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	res := Do(context.Background(), Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}, classify, func(context.Context) error {
		calls++
		return errTransient
	})

	assert.False(t, res.OK())
	assert.False(t, res.Skipped)
	assert.ErrorIs(t, res.Err, errTransient)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, calls)
}

func TestDo_SkipDoesNotRetry(t *testing.T) {
	calls := 0
	start := time.Now()
	res := Do(context.Background(), Policy{MaxAttempts: 3, BaseDelay: time.Second}, classify, func(context.Context) error {
		calls++
		return errLimited
	})

	assert.True(t, res.Skipped)
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Err, errLimited)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDo_AbortDoesNotRetry(t *testing.T) {
	calls := 0
	res := Do(context.Background(), Policy{MaxAttempts: 5, BaseDelay: time.Second}, classify, func(context.Context) error {
		calls++
		return errFatal
	})

	assert.False(t, res.Skipped)
	assert.ErrorIs(t, res.Err, errFatal)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res := Do(ctx, Policy{MaxAttempts: 3, BaseDelay: 10 * time.Second}, classify, func(context.Context) error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDo_MaxDelayCaps(t *testing.T) {
	var delays []time.Duration
	DoNotify(context.Background(), Policy{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}, nil,
		func(context.Context) error { return errTransient },
		func(_ error, _ int, d time.Duration) { delays = append(delays, d) },
	)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 2 * time.Millisecond}, delays)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	res := Do(context.Background(), Policy{}, nil, func(context.Context) error {
		calls++
		return errTransient
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, res.Attempts)
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "retry", Retry.String())
	assert.Equal(t, "skip", Skip.String())
	assert.Equal(t, "abort", Abort.String())
}
