// Package retry runs an operation with exponential backoff and lets the
// caller classify each failure.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Class is the verdict of a Classifier on an error.
type Class int

const (
	// Retry makes another attempt after the next backoff delay.
	Retry Class = iota
	// Skip stops immediately and marks the result as skipped, not failed.
	Skip
	// Abort stops immediately and reports the error as a failure.
	Abort
)

func (c Class) String() string {
	switch c {
	case Retry:
		return "retry"
	case Skip:
		return "skip"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// Classifier decides how to treat a failed attempt.
type Classifier func(error) Class

// AlwaysRetry retries every error.
func AlwaysRetry(error) Class { return Retry }

// Policy bounds the retry loop. Delay before retry n (0-based) is
// BaseDelay*2^n, capped at MaxDelay when MaxDelay > 0.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Result describes how an operation ended.
type Result struct {
	Attempts int
	Skipped  bool
	Err      error
}

// OK reports whether the operation eventually succeeded.
func (r Result) OK() bool { return r.Err == nil && !r.Skipped }

// Notify is called before each backoff sleep.
type Notify func(err error, attempt int, delay time.Duration)

// Do runs op until it succeeds, the classifier says stop, attempts run out
// or ctx is done. The last error is returned in Result.Err.
func Do(ctx context.Context, p Policy, classify Classifier, op func(ctx context.Context) error) Result {
	return DoNotify(ctx, p, classify, op, nil)
}

// DoNotify is Do with a hook invoked before every retry delay.
func DoNotify(ctx context.Context, p Policy, classify Classifier, op func(ctx context.Context) error, notify Notify) Result {
	if classify == nil {
		classify = AlwaysRetry
	}
	maxAttempts := max(p.MaxAttempts, 1)

	var (
		attempts int
		skipped  bool
	)

	operation := func() error {
		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		switch classify(err) {
		case Skip:
			skipped = true
			return backoff.Permanent(err)
		case Abort:
			return backoff.Permanent(err)
		default:
			return err
		}
	}

	var onRetry backoff.Notify
	if notify != nil {
		onRetry = func(err error, d time.Duration) {
			notify(err, attempts, d)
		}
	}

	err := backoff.RetryNotify(operation, newBackOff(ctx, p, maxAttempts), onRetry)

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return Result{Attempts: attempts, Skipped: skipped, Err: err}
}

func newBackOff(ctx context.Context, p Policy, maxAttempts int) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	eb.MaxInterval = time.Duration(math.MaxInt64)
	if p.MaxDelay > 0 {
		eb.MaxInterval = p.MaxDelay
	}
	eb.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(maxAttempts-1)), ctx)
}
