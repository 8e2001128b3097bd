// Package lock provides a Redis lease that keeps sweeps from overlapping.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by an unlock whose lease expired or was taken over.
var ErrNotHeld = errors.New("lock: lease no longer held")

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lease only if it still carries our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLock is a single-key lease taken with SET NX PX. While held, the
// lease is renewed in the background so long sweeps keep it.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	renew  time.Duration
	logger *slog.Logger
}

// Option configures a RedisLock.
type Option func(*RedisLock)

// WithRenewInterval sets how often a held lease is extended. Zero or less
// disables renewal. Defaults to a third of the TTL.
func WithRenewInterval(d time.Duration) Option {
	return func(l *RedisLock) { l.renew = d }
}

// WithLogger sets the logger used for renewal failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *RedisLock) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewRedisLock creates a lock on key. A lease that stops being renewed,
// for example because its holder crashed, expires after ttl.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration, opts ...Option) *RedisLock {
	l := &RedisLock{
		client: client,
		key:    key,
		ttl:    ttl,
		renew:  ttl / 3,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryLock attempts to take the lease without waiting. ok is false when
// someone else holds it.
func (l *RedisLock) TryLock(ctx context.Context) (unlock func(context.Context) error, ok bool, err error) {
	if l.key == "" {
		return nil, false, fmt.Errorf("lock key is not configured")
	}

	token := uuid.NewString()
	ok, err = l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis SET NX %s: %w", l.key, err)
	}
	if !ok {
		return nil, false, nil
	}

	stop := l.startRenewal(token)
	unlock = func(ctx context.Context) error {
		stop()
		n, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int()
		if err != nil {
			return fmt.Errorf("redis release %s: %w", l.key, err)
		}
		if n == 0 {
			return ErrNotHeld
		}
		return nil
	}
	return unlock, true, nil
}

// startRenewal extends the lease every renew interval until the returned
// stop func is called or the lease is lost. stop waits for the renewer.
func (l *RedisLock) startRenewal(token string) (stop func()) {
	if l.renew <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(l.renew)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), l.renew)
				n, err := renewScript.Run(ctx, l.client, []string{l.key}, token, l.ttl.Milliseconds()).Int()
				cancel()
				if err != nil {
					l.logger.Warn("failed to renew sweep lock", "key", l.key, "error", err)
					continue
				}
				if n == 0 {
					l.logger.Warn("sweep lock lost", "key", l.key)
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-exited
		})
	}
}

// Holder returns the token of the current holder, or "" when free.
func (l *RedisLock) Holder(ctx context.Context) (string, error) {
	v, err := l.client.Get(ctx, l.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis GET %s: %w", l.key, err)
	}
	return v, nil
}
