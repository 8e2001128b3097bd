package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rickgao/polywhales/internal/model"
	"github.com/rickgao/polywhales/internal/storage"
)

// PostgreSQL error codes
const (
	pgErrUniqueViolation = "23505" // unique_violation
)

// Store implements storage.Store on a pgx connection pool.
type Store struct {
	db *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// New wraps an open pool. The pool is owned by the store after this call.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.db.Close()
}

const walletColumns = `id, user_id, wallet_address, COALESCE(label, ''), chain_id, telegram_chat_id, created_at`

// ListTrackedWallets returns every tracked wallet, oldest first.
func (s *Store) ListTrackedWallets(ctx context.Context) ([]model.TrackedWallet, error) {
	rows, err := s.db.Query(ctx, `SELECT `+walletColumns+` FROM tracked_wallets ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query tracked wallets: %w", err)
	}
	return collectWallets(rows)
}

// ListWalletsByChat returns wallets tracked by chatID.
func (s *Store) ListWalletsByChat(ctx context.Context, chatID int64) ([]model.TrackedWallet, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+walletColumns+` FROM tracked_wallets WHERE telegram_chat_id = $1 ORDER BY created_at, id`,
		chatID)
	if err != nil {
		return nil, fmt.Errorf("query wallets for chat %d: %w", chatID, err)
	}
	return collectWallets(rows)
}

// TrackWallet inserts a wallet. Returns ErrDuplicateKey if the chat already
// tracks the address.
func (s *Store) TrackWallet(ctx context.Context, w *model.TrackedWallet) error {
	if w == nil || w.WalletAddress == "" {
		return storage.ErrInvalidInput
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

	_, err := s.db.Exec(ctx, `
		INSERT INTO tracked_wallets (id, user_id, wallet_address, label, chain_id, telegram_chat_id, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $7)
	`, w.ID, w.UserID, w.WalletAddress, w.Label, w.ChainID, w.TelegramChatID, w.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert tracked wallet: %w", err)
	}
	return nil
}

// UntrackWallet deletes the chat's wallet. Returns ErrNotFound if absent.
func (s *Store) UntrackWallet(ctx context.Context, chatID int64, address string) error {
	ct, err := s.db.Exec(ctx,
		`DELETE FROM tracked_wallets WHERE telegram_chat_id = $1 AND lower(wallet_address) = lower($2)`,
		chatID, address)
	if err != nil {
		return fmt.Errorf("delete tracked wallet: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ExistsByTxHash reports whether txHash has been recorded.
func (s *Store) ExistsByTxHash(ctx context.Context, txHash string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM betting_activities WHERE tx_hash = $1)`, txHash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check activity %s: %w", txHash, err)
	}
	return exists, nil
}

// InsertActivity inserts with ON CONFLICT DO NOTHING. A conflict surfaces
// as ErrDuplicateKey.
func (s *Store) InsertActivity(ctx context.Context, a *model.BettingActivity) error {
	if a == nil || a.TxHash == "" {
		return storage.ErrInvalidInput
	}

	ct, err := s.db.Exec(ctx, `
		INSERT INTO betting_activities
			(id, wallet_address, market_id, event_type, side, amount, price, outcome, status, tx_hash, timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9, $10, $11, $12)
		ON CONFLICT (tx_hash) DO NOTHING
	`, a.ID, a.WalletAddress, a.MarketID, a.EventType, string(a.Side),
		a.Amount.String(), a.Price.String(), a.Outcome, a.Status, a.TxHash, a.Timestamp, a.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert activity %s: %w", a.TxHash, err)
	}
	if ct.RowsAffected() == 0 {
		return storage.ErrDuplicateKey
	}
	return nil
}

// ListActivities returns up to limit activities for address, newest first.
func (s *Store) ListActivities(ctx context.Context, address string, limit int) ([]model.BettingActivity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, wallet_address, market_id, event_type, side, amount::text, price::text,
		       COALESCE(outcome, ''), status, tx_hash, timestamp, created_at
		FROM betting_activities
		WHERE lower(wallet_address) = lower($1)
		ORDER BY timestamp DESC
		LIMIT $2
	`, address, limit)
	if err != nil {
		return nil, fmt.Errorf("query activities for %s: %w", address, err)
	}
	defer rows.Close()

	var out []model.BettingActivity
	for rows.Next() {
		var (
			a             model.BettingActivity
			side          string
			amount, price string
		)
		if err := rows.Scan(&a.ID, &a.WalletAddress, &a.MarketID, &a.EventType, &side,
			&amount, &price, &a.Outcome, &a.Status, &a.TxHash, &a.Timestamp, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Side = model.Side(side)
		a.Amount = parseDecimal(amount)
		a.Price = parseDecimal(price)
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetSubscription returns the registration for chatID or ErrNotFound.
func (s *Store) GetSubscription(ctx context.Context, chatID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, telegram_chat_id, COALESCE(telegram_username, ''), is_active, created_at
		FROM telegram_subscriptions WHERE telegram_chat_id = $1
	`, chatID).Scan(&sub.ID, &sub.UserID, &sub.TelegramChatID, &sub.TelegramUsername, &sub.IsActive, &sub.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get subscription %d: %w", chatID, err)
	}
	return &sub, nil
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

	_, err := s.db.Exec(ctx, `
		INSERT INTO telegram_subscriptions (id, user_id, telegram_chat_id, telegram_username, is_active, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
	`, sub.ID, sub.UserID, sub.TelegramChatID, sub.TelegramUsername, sub.IsActive, sub.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// ListSubscribers returns chats tracking address.
func (s *Store) ListSubscribers(ctx context.Context, address string) ([]model.Subscriber, error) {
	rows, err := s.db.Query(ctx, `
		SELECT wallet_address, telegram_chat_id, COALESCE(label, '')
		FROM tracked_wallets
		WHERE lower(wallet_address) = lower($1) AND telegram_chat_id IS NOT NULL
		ORDER BY created_at
	`, address)
	if err != nil {
		return nil, fmt.Errorf("query subscribers for %s: %w", address, err)
	}
	defer rows.Close()

	var out []model.Subscriber
	for rows.Next() {
		var sub model.Subscriber
		if err := rows.Scan(&sub.WalletAddress, &sub.ChatID, &sub.Label); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func collectWallets(rows pgx.Rows) ([]model.TrackedWallet, error) {
	defer rows.Close()

	var out []model.TrackedWallet
	for rows.Next() {
		var w model.TrackedWallet
		if err := rows.Scan(&w.ID, &w.UserID, &w.WalletAddress, &w.Label, &w.ChainID, &w.TelegramChatID, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tracked wallet: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}
	return false
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
