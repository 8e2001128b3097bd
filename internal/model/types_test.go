package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestNewActivity(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	now := time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC)
	trade := Trade{
		TransactionHash: "0xabc",
		MarketID:        "0xcond",
		Side:            SideBuy,
		Size:            decimal.RequireFromString("100"),
		Price:           decimal.RequireFromString("0.55"),
		Outcome:         "Yes",
		Timestamp:       ts,
	}

	a := NewActivity("0xwallet", trade, now)

	if a.ID == uuid.Nil {
		t.Error("ID should be generated")
	}
	if a.EventType != EventTypeTrade {
		t.Errorf("EventType = %q, want %q", a.EventType, EventTypeTrade)
	}
	if a.Status != StatusCompleted {
		t.Errorf("Status = %q, want %q", a.Status, StatusCompleted)
	}
	if a.TxHash != "0xabc" || a.WalletAddress != "0xwallet" || a.MarketID != "0xcond" {
		t.Errorf("unexpected identity fields: %+v", a)
	}
	if !a.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Amount = %s, want 100", a.Amount)
	}
	if a.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp location = %v, want UTC", a.Timestamp.Location())
	}
	if !a.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", a.Timestamp, ts)
	}
}

func TestParseSide(t *testing.T) {
	tests := []struct {
		in   string
		want Side
	}{
		{"BUY", SideBuy},
		{"buy", SideBuy},
		{" sell ", SideSell},
		{"", Side("")},
	}
	for _, tt := range tests {
		if got := ParseSide(tt.in); got != tt.want {
			t.Errorf("ParseSide(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if !SideBuy.IsBuy() || SideSell.IsBuy() {
		t.Error("IsBuy mismatch")
	}
}

func TestShortAddress(t *testing.T) {
	addr := "0x1234567890abcdef1234567890abcdef12345678"
	if got, want := ShortAddress(addr), "0x12345678...12345678"; got != want {
		t.Errorf("ShortAddress = %q, want %q", got, want)
	}
	if got := ShortAddress("0xshort"); got != "0xshort" {
		t.Errorf("ShortAddress(short) = %q", got)
	}
}

func TestSweepStatsMerge(t *testing.T) {
	a := SweepStats{Processed: 2, NewActivities: 3, FailedTrades: 1}
	b := SweepStats{Errors: 1, Skipped: 2, NewActivities: 1}

	got := a.Merge(b)
	want := SweepStats{Processed: 2, NewActivities: 4, Errors: 1, Skipped: 2, FailedTrades: 1}
	if got != want {
		t.Errorf("Merge = %+v, want %+v", got, want)
	}
	if got.Wallets() != 5 {
		t.Errorf("Wallets() = %d, want 5", got.Wallets())
	}
	if (SweepStats{}).Merge(SweepStats{}) != (SweepStats{}) {
		t.Error("merging zero values should be zero")
	}
}
