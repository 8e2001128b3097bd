// Package events publishes recorded activities to Kafka for downstream
// consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rickgao/polywhales/internal/model"
	"github.com/rickgao/polywhales/internal/notify"
)

// ActivityMessage is the JSON value of each Kafka record.
type ActivityMessage struct {
	Activity    model.BettingActivity `json:"activity"`
	MarketTitle string                `json:"market_title,omitempty"`
	PublishedAt time.Time             `json:"published_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ActivityPublisher writes one message per activity, keyed by wallet so a
// wallet's activities stay ordered within a partition.
type ActivityPublisher struct {
	writer messageWriter
	Topic  string
	now    func() time.Time
}

var _ notify.Handler = (*ActivityPublisher)(nil)

// NewActivityPublisher creates a publisher for topic on brokers.
func NewActivityPublisher(brokers []string, topic string) *ActivityPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &ActivityPublisher{writer: writer, Topic: topic, now: time.Now}
}

// Publish sends e to Kafka.
func (p *ActivityPublisher) Publish(ctx context.Context, e notify.Event) error {
	msg, err := p.message(e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// HandleEvent implements notify.Handler.
func (p *ActivityPublisher) HandleEvent(ctx context.Context, e notify.Event) error {
	return p.Publish(ctx, e)
}

func (p *ActivityPublisher) message(e notify.Event) (kafka.Message, error) {
	value, err := json.Marshal(ActivityMessage{
		Activity:    e.Activity,
		MarketTitle: e.MarketTitle,
		PublishedAt: p.now().UTC(),
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal activity message: %w", err)
	}
	return kafka.Message{
		Key:   []byte(strings.ToLower(e.Activity.WalletAddress)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Activity.EventType)},
			{Key: "tx_hash", Value: []byte(e.Activity.TxHash)},
		},
	}, nil
}

// Close closes the underlying Kafka writer.
func (p *ActivityPublisher) Close() error {
	return p.writer.Close()
}
