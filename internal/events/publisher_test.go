package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/polywhales/internal/model"
	"github.com/rickgao/polywhales/internal/notify"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testEvent() notify.Event {
	return notify.Event{
		Activity: model.BettingActivity{
			WalletAddress: "0xABCdef",
			EventType:     model.EventTypeTrade,
			Side:          model.SideBuy,
			Amount:        decimal.NewFromInt(100),
			Price:         decimal.RequireFromString("0.5"),
			TxHash:        "0xabc",
		},
		MarketTitle: "Will it rain?",
	}
}

func TestActivityPublisher_HandleEvent(t *testing.T) {
	w := &fakeWriter{}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := &ActivityPublisher{writer: w, Topic: "activities", now: func() time.Time { return fixed }}

	require.NoError(t, p.HandleEvent(context.Background(), testEvent()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "0xabcdef", string(msg.Key))
	assert.Equal(t, []kafka.Header{
		{Key: "event_type", Value: []byte("TRADE")},
		{Key: "tx_hash", Value: []byte("0xabc")},
	}, msg.Headers)

	var decoded ActivityMessage
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "0xabc", decoded.Activity.TxHash)
	assert.Equal(t, "Will it rain?", decoded.MarketTitle)
	assert.True(t, decoded.Activity.Amount.Equal(decimal.NewFromInt(100)))
	assert.True(t, decoded.PublishedAt.Equal(fixed))
}

func TestActivityPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unreachable")}
	p := &ActivityPublisher{writer: w, now: time.Now}

	err := p.Publish(context.Background(), testEvent())
	assert.ErrorContains(t, err, "kafka write")
}

func TestActivityPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	p := &ActivityPublisher{writer: w, now: time.Now}
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewActivityPublisher(t *testing.T) {
	p := NewActivityPublisher([]string{"localhost:9092"}, "polywhales.activities")
	assert.Equal(t, "polywhales.activities", p.Topic)
	kw, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "polywhales.activities", kw.Topic)
}
