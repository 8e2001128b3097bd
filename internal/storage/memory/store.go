package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/polywhales/internal/model"
	"github.com/rickgao/polywhales/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu            sync.RWMutex
	wallets       []model.TrackedWallet
	activities    map[string]model.BettingActivity // keyed by tx_hash
	subscriptions map[int64]model.Subscription     // keyed by chat id
}

var _ storage.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		activities:    make(map[string]model.BettingActivity),
		subscriptions: make(map[int64]model.Subscription),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// ListTrackedWallets returns a copy of all wallets in insertion order.
func (s *Store) ListTrackedWallets(context.Context) ([]model.TrackedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.wallets), nil
}

// ListWalletsByChat returns the wallets tracked by chatID.
func (s *Store) ListWalletsByChat(_ context.Context, chatID int64) ([]model.TrackedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.TrackedWallet
	for _, w := range s.wallets {
		if w.TelegramChatID != nil && *w.TelegramChatID == chatID {
			out = append(out, w)
		}
	}
	return out, nil
}

// TrackWallet adds a wallet. Returns ErrDuplicateKey if the same chat
// already tracks the address.
func (s *Store) TrackWallet(_ context.Context, w *model.TrackedWallet) error {
	if w == nil || strings.TrimSpace(w.WalletAddress) == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.wallets {
		if sameChat(existing.TelegramChatID, w.TelegramChatID) &&
			strings.EqualFold(existing.WalletAddress, w.WalletAddress) {
			return storage.ErrDuplicateKey
		}
	}

	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.ChainID == 0 {
		w.ChainID = model.DefaultChainID
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	s.wallets = append(s.wallets, *w)
	return nil
}

// UntrackWallet removes the chat's wallet. Returns ErrNotFound if absent.
func (s *Store) UntrackWallet(_ context.Context, chatID int64, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, w := range s.wallets {
		if w.TelegramChatID != nil && *w.TelegramChatID == chatID &&
			strings.EqualFold(w.WalletAddress, address) {
			s.wallets = slices.Delete(s.wallets, i, i+1)
			return nil
		}
	}
	return storage.ErrNotFound
}

// ExistsByTxHash reports whether txHash has been recorded.
func (s *Store) ExistsByTxHash(_ context.Context, txHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.activities[txHash]
	return ok, nil
}

// InsertActivity stores a copy of a. Returns ErrDuplicateKey if tx_hash exists.
func (s *Store) InsertActivity(_ context.Context, a *model.BettingActivity) error {
	if a == nil || a.TxHash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.activities[a.TxHash]; exists {
		return storage.ErrDuplicateKey
	}
	s.activities[a.TxHash] = *a
	return nil
}

// ListActivities returns up to limit activities for address, newest first.
func (s *Store) ListActivities(_ context.Context, address string, limit int) ([]model.BettingActivity, error) {
	s.mu.RLock()
	var out []model.BettingActivity
	for _, a := range s.activities {
		if strings.EqualFold(a.WalletAddress, address) {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.BettingActivity) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ActivityCount returns the number of recorded activities.
func (s *Store) ActivityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.activities)
}

// GetSubscription returns the registration for chatID or ErrNotFound.
func (s *Store) GetSubscription(_ context.Context, chatID int64) (*model.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[chatID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &sub, nil
}

// CreateSubscription registers a chat. Returns ErrDuplicateKey if present.
func (s *Store) CreateSubscription(_ context.Context, sub *model.Subscription) error {
	if sub == nil || sub.TelegramChatID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.TelegramChatID]; exists {
		return storage.ErrDuplicateKey
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	s.subscriptions[sub.TelegramChatID] = *sub
	return nil
}

// ListSubscribers returns the chats tracking address.
func (s *Store) ListSubscribers(_ context.Context, address string) ([]model.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Subscriber
	for _, w := range s.wallets {
		if w.TelegramChatID == nil || !strings.EqualFold(w.WalletAddress, address) {
			continue
		}
		out = append(out, model.Subscriber{
			WalletAddress: w.WalletAddress,
			ChatID:        *w.TelegramChatID,
			Label:         w.Label,
		})
	}
	return out, nil
}

func sameChat(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
