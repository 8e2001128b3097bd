package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/polywhales/internal/model"
	"github.com/rickgao/polywhales/internal/storage/memory"
)

const testWallet = "0x1234567890abcdef1234567890abcdef12345678"

type fakeSender struct {
	mu      sync.Mutex
	sent    map[int64]string
	failOn  map[int64]bool
	blockOn map[int64]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: map[int64]string{}, failOn: map[int64]bool{}, blockOn: map[int64]bool{}}
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	block := f.blockOn[chatID]
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[chatID] {
		return errors.New("chat not found")
	}
	f.sent[chatID] = text
	return nil
}

func trackFor(t *testing.T, store *memory.Store, chatID int64, addr string) {
	t.Helper()
	require.NoError(t, store.TrackWallet(context.Background(), &model.TrackedWallet{
		WalletAddress:  addr,
		TelegramChatID: &chatID,
	}))
}

func TestFormatMessage(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	msg := FormatMessage(testWallet, Alert{
		Side:        model.SideBuy,
		Amount:      decimal.RequireFromString("150.5"),
		Price:       decimal.RequireFromString("0.42"),
		Outcome:     "Yes",
		MarketTitle: "Will <X> happen?",
	}, at)

	want := "🟢 <b>New Trade Alert</b>\n\n" +
		"<b>Wallet:</b> <code>0x12345678...12345678</code>\n\n" +
		"<b>Market:</b> Will &lt;X&gt; happen?\n" +
		"<b>Action:</b> BUY\n" +
		"<b>Outcome:</b> Yes\n" +
		"<b>Size:</b> 150.5\n" +
		"<b>Price:</b> 0.42\n\n" +
		"Timestamp: 2026-03-01 12:30:00 UTC"
	assert.Equal(t, want, msg)
}

func TestFormatMessage_SellAndUnknownMarket(t *testing.T) {
	msg := FormatMessage(testWallet, Alert{Side: model.SideSell}, time.Now())
	assert.True(t, strings.HasPrefix(msg, "🔴 "))
	assert.Contains(t, msg, "<b>Market:</b> Unknown Market\n")
}

func TestDispatch_FansOutAndIsolatesFailures(t *testing.T) {
	store := memory.New()
	trackFor(t, store, 1, testWallet)
	trackFor(t, store, 2, testWallet)
	trackFor(t, store, 3, "0xother")

	sender := newFakeSender()
	sender.failOn[1] = true

	d := NewDispatcher(store, sender, nil, nil)
	res, err := d.Dispatch(context.Background(), testWallet, Alert{Side: model.SideBuy})
	require.NoError(t, err)

	assert.Equal(t, Result{Attempted: 2, Sent: 1}, res)
	assert.Contains(t, sender.sent, int64(2))
	assert.NotContains(t, sender.sent, int64(3))
}

func (f *fakeSender) sentTo(chatID int64) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.sent[chatID]
	return text, ok
}

func TestDispatch_HungSendDoesNotStarveOthers(t *testing.T) {
	store := memory.New()
	trackFor(t, store, 1, testWallet)
	trackFor(t, store, 2, testWallet)

	sender := newFakeSender()
	sender.blockOn[1] = true

	d := NewDispatcher(store, sender, nil, nil).WithSendTimeout(50 * time.Millisecond)
	res, err := d.Dispatch(context.Background(), testWallet, Alert{Side: model.SideBuy})
	require.NoError(t, err)

	assert.Equal(t, Result{Attempted: 2, Sent: 1}, res)
	_, ok := sender.sentTo(2)
	assert.True(t, ok)
}

func TestDispatch_HungSendThroughQueue(t *testing.T) {
	store := memory.New()
	trackFor(t, store, 1, testWallet)
	trackFor(t, store, 2, testWallet)

	sender := newFakeSender()
	sender.blockOn[1] = true

	d := NewDispatcher(store, sender, nil, nil).WithSendTimeout(100 * time.Millisecond)
	q := NewQueue(QueueConfig{Workers: 1, Timeout: 50 * time.Millisecond}, nil)
	q.Register("telegram", d)
	q.Start()

	require.NoError(t, q.Submit(Event{Activity: model.BettingActivity{WalletAddress: testWallet}}))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Close(ctx))

	_, ok := sender.sentTo(2)
	assert.True(t, ok, "healthy chat should still receive the alert")
}

func TestDispatch_StopsWhenContextEnds(t *testing.T) {
	store := memory.New()
	trackFor(t, store, 1, testWallet)
	trackFor(t, store, 2, testWallet)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := newFakeSender()
	sender.blockOn[1] = true
	d := NewDispatcher(store, sender, nil, nil)

	res, err := d.Dispatch(ctx, testWallet, Alert{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Result{Attempted: 1}, res)
}

func TestDispatch_NoSubscribers(t *testing.T) {
	d := NewDispatcher(memory.New(), newFakeSender(), nil, nil)
	res, err := d.Dispatch(context.Background(), testWallet, Alert{})
	require.NoError(t, err)
	assert.Zero(t, res.Attempted)
}

func TestDispatch_TimeZone(t *testing.T) {
	store := memory.New()
	trackFor(t, store, 1, testWallet)
	sender := newFakeSender()

	loc := time.FixedZone("EST", -5*3600)
	d := NewDispatcher(store, sender, loc, nil)
	d.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	_, err := d.Dispatch(context.Background(), testWallet, Alert{})
	require.NoError(t, err)
	assert.Contains(t, sender.sent[1], "Timestamp: 2026-03-01 07:00:00 EST")
}

func TestDispatcher_HandleEvent(t *testing.T) {
	store := memory.New()
	trackFor(t, store, 9, testWallet)
	sender := newFakeSender()
	d := NewDispatcher(store, sender, time.UTC, nil)

	err := d.HandleEvent(context.Background(), Event{
		Activity: model.BettingActivity{
			WalletAddress: testWallet,
			Side:          model.SideSell,
			Amount:        decimal.NewFromInt(10),
			Price:         decimal.RequireFromString("0.5"),
			Outcome:       "No",
		},
		MarketTitle: "Election",
	})
	require.NoError(t, err)
	assert.Contains(t, sender.sent[9], "<b>Market:</b> Election")
	assert.Contains(t, sender.sent[9], "<b>Action:</b> SELL")
}
