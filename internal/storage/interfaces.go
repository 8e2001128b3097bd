package storage

import (
	"context"

	"github.com/rickgao/polywhales/internal/model"
)

// WalletStore manages tracked wallets.
type WalletStore interface {
	// ListTrackedWallets returns every tracked wallet row.
	ListTrackedWallets(ctx context.Context) ([]model.TrackedWallet, error)

	// ListWalletsByChat returns wallets tracked by a Telegram chat.
	ListWalletsByChat(ctx context.Context, chatID int64) ([]model.TrackedWallet, error)

	// TrackWallet adds a wallet. Returns ErrDuplicateKey if the chat already
	// tracks the address.
	TrackWallet(ctx context.Context, w *model.TrackedWallet) error

	// UntrackWallet removes a chat's wallet. Returns ErrNotFound if absent.
	UntrackWallet(ctx context.Context, chatID int64, address string) error
}

// ActivityStore is the append-only store of recorded trades.
type ActivityStore interface {
	// ExistsByTxHash reports whether an activity with txHash is recorded.
	ExistsByTxHash(ctx context.Context, txHash string) (bool, error)

	// InsertActivity persists a new activity. Returns ErrDuplicateKey if
	// tx_hash already exists.
	InsertActivity(ctx context.Context, a *model.BettingActivity) error

	// ListActivities returns the newest activities for a wallet.
	ListActivities(ctx context.Context, address string, limit int) ([]model.BettingActivity, error)
}

// SubscriptionStore manages bot registrations and alert recipients.
type SubscriptionStore interface {
	// GetSubscription returns the registration for a chat or ErrNotFound.
	GetSubscription(ctx context.Context, chatID int64) (*model.Subscription, error)

	// CreateSubscription registers a chat. Returns ErrDuplicateKey if present.
	CreateSubscription(ctx context.Context, s *model.Subscription) error

	// ListSubscribers returns every chat that tracks address.
	ListSubscribers(ctx context.Context, address string) ([]model.Subscriber, error)
}

// Store is the full persistence surface used by the service.
type Store interface {
	WalletStore
	ActivityStore
	SubscriptionStore

	Ping(ctx context.Context) error
	Close()
}
