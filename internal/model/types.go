package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Tracked Entities
// -----------------------------------------------------------------------------

// DefaultChainID is Polygon, where Polymarket settles.
const DefaultChainID = 137

// TrackedWallet is a wallet address whose trades are swept and alerted on.
type TrackedWallet struct {
	ID             uuid.UUID  `json:"id"`
	UserID         *uuid.UUID `json:"user_id,omitempty"`
	WalletAddress  string     `json:"wallet_address"`
	Label          string     `json:"label,omitempty"`
	ChainID        int        `json:"chain_id"`
	TelegramChatID *int64     `json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Subscription is a chat that registered with the bot via /start.
type Subscription struct {
	ID               uuid.UUID  `json:"id"`
	UserID           *uuid.UUID `json:"user_id,omitempty"`
	TelegramChatID   int64      `json:"telegram_chat_id"`
	TelegramUsername string     `json:"telegram_username,omitempty"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Subscriber is one delivery endpoint for alerts about a wallet.
type Subscriber struct {
	WalletAddress string
	ChatID        int64
	Label         string
}

// -----------------------------------------------------------------------------
// Trades and Activities
// -----------------------------------------------------------------------------

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide normalizes an upstream side value. Unknown values are kept
// upper-cased so they still persist.
func ParseSide(s string) Side {
	return Side(strings.ToUpper(strings.TrimSpace(s)))
}

// IsBuy reports whether the side opens or adds to a position.
func (s Side) IsBuy() bool { return s == SideBuy }

// Trade is a single fill returned by the trades API. It is transient.
type Trade struct {
	TransactionHash string
	MarketID        string // conditionId, falling back to market
	Title           string
	Side            Side
	Size            decimal.Decimal
	Price           decimal.Decimal
	Outcome         string
	Timestamp       time.Time
}

// Activity constants written on every recorded trade.
const (
	EventTypeTrade  = "TRADE"
	StatusCompleted = "COMPLETED"
)

// BettingActivity is the persisted record of a trade, unique by TxHash.
// Once created it is never mutated by the pipeline.
type BettingActivity struct {
	ID            uuid.UUID       `json:"id"`
	WalletAddress string          `json:"wallet_address"`
	MarketID      string          `json:"market_id"`
	EventType     string          `json:"event_type"`
	Side          Side            `json:"side"`
	Amount        decimal.Decimal `json:"amount"`
	Price         decimal.Decimal `json:"price"`
	Outcome       string          `json:"outcome"`
	Status        string          `json:"status"`
	TxHash        string          `json:"tx_hash"`
	Timestamp     time.Time       `json:"timestamp"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewActivity builds the record persisted for a trade made by wallet.
func NewActivity(wallet string, t Trade, now time.Time) BettingActivity {
	return BettingActivity{
		ID:            uuid.New(),
		WalletAddress: wallet,
		MarketID:      t.MarketID,
		EventType:     EventTypeTrade,
		Side:          t.Side,
		Amount:        t.Size,
		Price:         t.Price,
		Outcome:       t.Outcome,
		Status:        StatusCompleted,
		TxHash:        t.TransactionHash,
		Timestamp:     t.Timestamp.UTC(),
		CreatedAt:     now.UTC(),
	}
}

// Position is an open position reported by the positions API.
type Position struct {
	Asset        string          `json:"asset"`
	ConditionID  string          `json:"condition_id"`
	Title        string          `json:"title"`
	Outcome      string          `json:"outcome"`
	Size         decimal.Decimal `json:"size"`
	AvgPrice     decimal.Decimal `json:"avg_price"`
	CurrentValue decimal.Decimal `json:"current_value"`
	CashPnl      decimal.Decimal `json:"cash_pnl"`
}

// ShortAddress renders 0x1234567890...abcdefgh for display.
func ShortAddress(addr string) string {
	if len(addr) <= 18 {
		return addr
	}
	return addr[:10] + "..." + addr[len(addr)-8:]
}
