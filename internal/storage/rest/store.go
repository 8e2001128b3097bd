package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/polywhales/internal/model"
	"github.com/rickgao/polywhales/internal/storage"
)

// Table names.
const (
	tableWallets       = "tracked_wallets"
	tableActivities    = "betting_activities"
	tableSubscriptions = "telegram_subscriptions"
)

// Store implements storage.Store over a PostgREST endpoint such as Supabase.
type Store struct {
	c *client
}

var _ storage.Store = (*Store)(nil)

// New creates a store for baseURL authenticated with a service-role key.
func New(baseURL, serviceKey string, opts ...Option) *Store {
	c := &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return &Store{c: c}
}

// Ping issues a minimal read against tracked_wallets.
func (s *Store) Ping(ctx context.Context) error {
	q := url.Values{"select": {"id"}, "limit": {"1"}}
	var rows []struct{}
	return s.c.do(ctx, http.MethodGet, tableWallets, q, nil, "", &rows)
}

// Close releases idle connections.
func (s *Store) Close() {
	s.c.httpClient.CloseIdleConnections()
}

// ListTrackedWallets returns every tracked wallet, oldest first.
func (s *Store) ListTrackedWallets(ctx context.Context) ([]model.TrackedWallet, error) {
	q := url.Values{"select": {"*"}, "order": {"created_at.asc"}}
	var out []model.TrackedWallet
	if err := s.c.do(ctx, http.MethodGet, tableWallets, q, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListWalletsByChat returns wallets tracked by chatID.
func (s *Store) ListWalletsByChat(ctx context.Context, chatID int64) ([]model.TrackedWallet, error) {
	q := url.Values{
		"select":           {"*"},
		"telegram_chat_id": {eq(strconv.FormatInt(chatID, 10))},
		"order":            {"created_at.asc"},
	}
	var out []model.TrackedWallet
	if err := s.c.do(ctx, http.MethodGet, tableWallets, q, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TrackWallet inserts a wallet after checking the chat does not already
// track it. A conflict from a unique index also maps to ErrDuplicateKey.
func (s *Store) TrackWallet(ctx context.Context, w *model.TrackedWallet) error {
	if w == nil || w.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	if w.TelegramChatID != nil {
		q := url.Values{
			"select":           {"id"},
			"telegram_chat_id": {eq(strconv.FormatInt(*w.TelegramChatID, 10))},
			"wallet_address":   {eq(w.WalletAddress)},
		}
		var existing []struct {
			ID uuid.UUID `json:"id"`
		}
		if err := s.c.do(ctx, http.MethodGet, tableWallets, q, nil, "", &existing); err != nil {
			return err
		}
		if len(existing) > 0 {
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
	return mapConflict(s.c.do(ctx, http.MethodPost, tableWallets, nil, w, "return=minimal", nil))
}

// UntrackWallet deletes the chat's wallet. Returns ErrNotFound if nothing matched.
func (s *Store) UntrackWallet(ctx context.Context, chatID int64, address string) error {
	q := url.Values{
		"telegram_chat_id": {eq(strconv.FormatInt(chatID, 10))},
		"wallet_address":   {eq(address)},
	}
	var deleted []model.TrackedWallet
	if err := s.c.do(ctx, http.MethodDelete, tableWallets, q, nil, "return=representation", &deleted); err != nil {
		return err
	}
	if len(deleted) == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ExistsByTxHash reports whether txHash has been recorded.
func (s *Store) ExistsByTxHash(ctx context.Context, txHash string) (bool, error) {
	q := url.Values{"select": {"id"}, "tx_hash": {eq(txHash)}, "limit": {"1"}}
	var rows []struct {
		ID uuid.UUID `json:"id"`
	}
	if err := s.c.do(ctx, http.MethodGet, tableActivities, q, nil, "", &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// InsertActivity posts a new activity. A 409 maps to ErrDuplicateKey.
func (s *Store) InsertActivity(ctx context.Context, a *model.BettingActivity) error {
	if a == nil || a.TxHash == "" {
		return storage.ErrInvalidInput
	}
	return mapConflict(s.c.do(ctx, http.MethodPost, tableActivities, nil, a, "return=minimal", nil))
}

// ListActivities returns up to limit activities for address, newest first.
func (s *Store) ListActivities(ctx context.Context, address string, limit int) ([]model.BettingActivity, error) {
	if limit <= 0 {
		limit = 50
	}
	q := url.Values{
		"select":         {"*"},
		"wallet_address": {eq(address)},
		"order":          {"timestamp.desc"},
		"limit":          {strconv.Itoa(limit)},
	}
	var out []model.BettingActivity
	if err := s.c.do(ctx, http.MethodGet, tableActivities, q, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSubscription returns the registration for chatID or ErrNotFound.
func (s *Store) GetSubscription(ctx context.Context, chatID int64) (*model.Subscription, error) {
	q := url.Values{
		"select":           {"*"},
		"telegram_chat_id": {eq(strconv.FormatInt(chatID, 10))},
		"limit":            {"1"},
	}
	var rows []model.Subscription
	if err := s.c.do(ctx, http.MethodGet, tableSubscriptions, q, nil, "", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, storage.ErrNotFound
	}
	return &rows[0], nil
}

// CreateSubscription registers a chat. Returns ErrDuplicateKey if present.
func (s *Store) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	if sub == nil || sub.TelegramChatID == 0 {
		return storage.ErrInvalidInput
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	return mapConflict(s.c.do(ctx, http.MethodPost, tableSubscriptions, nil, sub, "return=minimal", nil))
}

// ListSubscribers returns chats tracking address, ignoring case.
func (s *Store) ListSubscribers(ctx context.Context, address string) ([]model.Subscriber, error) {
	q := url.Values{
		"select":           {"wallet_address,telegram_chat_id,label"},
		"wallet_address":   {ieq(address)},
		"telegram_chat_id": {"not.is.null"},
	}
	var rows []struct {
		WalletAddress  string `json:"wallet_address"`
		TelegramChatID *int64 `json:"telegram_chat_id"`
		Label          string `json:"label"`
	}
	if err := s.c.do(ctx, http.MethodGet, tableWallets, q, nil, "", &rows); err != nil {
		return nil, err
	}

	out := make([]model.Subscriber, 0, len(rows))
	for _, r := range rows {
		if r.TelegramChatID == nil {
			continue
		}
		out = append(out, model.Subscriber{
			WalletAddress: r.WalletAddress,
			ChatID:        *r.TelegramChatID,
			Label:         r.Label,
		})
	}
	return out, nil
}

func mapConflict(err error) error {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.isConflict() {
		return storage.ErrDuplicateKey
	}
	return err
}
