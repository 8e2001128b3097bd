package lock

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLock(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "test:sweep", time.Minute)
	b := NewRedisLock(client, "test:sweep", time.Minute)

	unlock, ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	holder, err := a.Holder(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, holder)

	_, ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire")

	require.NoError(t, unlock(ctx))
	assert.ErrorIs(t, unlock(ctx), ErrNotHeld)

	unlockB, ok, err := b.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, unlockB(ctx))
}

func TestRedisLock_Expires(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	// A holder that stopped renewing, as after a crash.
	stale := NewRedisLock(client, "test:expiring", 50*time.Millisecond, WithRenewInterval(0))
	unlock, ok, err := stale.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(150 * time.Millisecond)

	unlock2, ok, err := NewRedisLock(client, "test:expiring", time.Minute).TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok, "expired lease should be free")

	// The stale holder must not release the new lease.
	assert.ErrorIs(t, unlock(ctx), ErrNotHeld)
	require.NoError(t, unlock2(ctx))
}

func TestRedisLock_RenewsWhileHeld(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	l := NewRedisLock(client, "test:renewed", 150*time.Millisecond)
	unlock, ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(500 * time.Millisecond)

	_, ok, err = NewRedisLock(client, "test:renewed", time.Minute).TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "renewed lease must outlive its ttl")

	require.NoError(t, unlock(ctx))
	assert.ErrorIs(t, unlock(ctx), ErrNotHeld)

	holder, err := l.Holder(ctx)
	require.NoError(t, err)
	assert.Empty(t, holder, "released lease must not be renewed")
}

func TestRedisLock_EmptyKey(t *testing.T) {
	_, _, err := NewRedisLock(nil, "", time.Second).TryLock(context.Background())
	assert.Error(t, err)
}
