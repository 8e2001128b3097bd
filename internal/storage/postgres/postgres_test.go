package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rickgao/polywhales/internal/database"
	"github.com/rickgao/polywhales/internal/model"
	"github.com/rickgao/polywhales/internal/storage"
)

// setupTestStore starts a PostgreSQL container and applies migrations.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("polywhales"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "failed to create pool")
	require.NoError(t, database.Migrate(ctx, pool), "failed to apply migrations")
	// Migrations must be idempotent.
	require.NoError(t, database.Migrate(ctx, pool), "failed to re-apply migrations")

	store := New(pool)
	t.Cleanup(store.Close)
	return store
}

func ptr[T any](v T) *T {
	return &v
}

func newActivity(hash, wallet string, ts time.Time) *model.BettingActivity {
	a := model.NewActivity(wallet, model.Trade{
		TransactionHash: hash,
		MarketID:        "0xcond",
		Side:            model.SideSell,
		Size:            decimal.RequireFromString("12.5"),
		Price:           decimal.RequireFromString("0.43"),
		Outcome:         "No",
		Timestamp:       ts,
	}, ts)
	return &a
}

func TestStore_Wallets(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	w := &model.TrackedWallet{WalletAddress: "0xAbC123", Label: "whale", TelegramChatID: ptr(int64(77))}
	require.NoError(t, store.TrackWallet(ctx, w))

	err := store.TrackWallet(ctx, &model.TrackedWallet{WalletAddress: "0xabc123", TelegramChatID: ptr(int64(77))})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	require.NoError(t, store.TrackWallet(ctx, &model.TrackedWallet{WalletAddress: "0xabc123", TelegramChatID: ptr(int64(78))}))

	all, err := store.ListTrackedWallets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, model.DefaultChainID, all[0].ChainID)

	byChat, err := store.ListWalletsByChat(ctx, 77)
	require.NoError(t, err)
	require.Len(t, byChat, 1)
	assert.Equal(t, "whale", byChat[0].Label)

	subs, err := store.ListSubscribers(ctx, "0xABC123")
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	require.NoError(t, store.UntrackWallet(ctx, 77, "0xabc123"))
	assert.ErrorIs(t, store.UntrackWallet(ctx, 77, "0xabc123"), storage.ErrNotFound)
}

func TestStore_Activities(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	exists, err := store.ExistsByTxHash(ctx, "0xh1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.InsertActivity(ctx, newActivity("0xh1", "0xw", ts)))
	assert.ErrorIs(t, store.InsertActivity(ctx, newActivity("0xh1", "0xw", ts)), storage.ErrDuplicateKey)

	exists, err = store.ExistsByTxHash(ctx, "0xh1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.InsertActivity(ctx, newActivity("0xh2", "0xw", ts.Add(time.Hour))))

	got, err := store.ListActivities(ctx, "0xW", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0xh2", got[0].TxHash)
	assert.True(t, got[1].Amount.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, got[1].Price.Equal(decimal.RequireFromString("0.43")))
	assert.Equal(t, model.SideSell, got[1].Side)
	assert.Equal(t, model.StatusCompleted, got[1].Status)
	assert.True(t, got[1].Timestamp.Equal(ts))
}

func TestStore_ConcurrentInsertSameHash(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		inserted   int
		duplicates int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.InsertActivity(ctx, newActivity("0xrace", "0xw", time.Now()))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				inserted++
			case errors.Is(err, storage.ErrDuplicateKey):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
	assert.Equal(t, 9, duplicates)
}

func TestStore_Subscriptions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetSubscription(ctx, 5)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.CreateSubscription(ctx, &model.Subscription{TelegramChatID: 5, TelegramUsername: "bob", IsActive: true}))
	assert.ErrorIs(t, store.CreateSubscription(ctx, &model.Subscription{TelegramChatID: 5}), storage.ErrDuplicateKey)

	sub, err := store.GetSubscription(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "bob", sub.TelegramUsername)
	assert.True(t, sub.IsActive)
	assert.Nil(t, sub.UserID)
}
