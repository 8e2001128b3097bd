package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/polywhales/internal/model"
	"github.com/rickgao/polywhales/internal/storage"
)

// UnknownMarket is shown when a trade carries no market title.
const UnknownMarket = "Unknown Market"

// DefaultSendTimeout bounds a single chat delivery.
const DefaultSendTimeout = 10 * time.Second

// Sender delivers a formatted message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Alert is the content of a trade notification.
type Alert struct {
	Side        model.Side
	Amount      decimal.Decimal
	Price       decimal.Decimal
	Outcome     string
	MarketTitle string
}

// AlertFromEvent builds the alert for a recorded activity.
func AlertFromEvent(e Event) Alert {
	return Alert{
		Side:        e.Activity.Side,
		Amount:      e.Activity.Amount,
		Price:       e.Activity.Price,
		Outcome:     e.Activity.Outcome,
		MarketTitle: e.MarketTitle,
	}
}

// Result counts deliveries for one alert.
type Result struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
}

// DeliveryObserver is told how each fan-out went.
type DeliveryObserver interface {
	AlertDelivered(sent, failed int)
}

// Dispatcher fans an alert out to every chat tracking the wallet.
type Dispatcher struct {
	subs        storage.SubscriptionStore
	sender      Sender
	loc         *time.Location
	logger      *slog.Logger
	observer    DeliveryObserver
	sendTimeout time.Duration
	now         func() time.Time
}

// NewDispatcher creates a dispatcher. A nil loc formats times in UTC.
func NewDispatcher(subs storage.SubscriptionStore, sender Sender, loc *time.Location, logger *slog.Logger) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		subs:        subs,
		sender:      sender,
		loc:         loc,
		logger:      logger,
		sendTimeout: DefaultSendTimeout,
		now:         time.Now,
	}
}

// WithObserver reports delivery counts to o.
func (d *Dispatcher) WithObserver(o DeliveryObserver) *Dispatcher {
	d.observer = o
	return d
}

// WithSendTimeout bounds each chat delivery by d. Non-positive values keep
// the default.
func (d *Dispatcher) WithSendTimeout(timeout time.Duration) *Dispatcher {
	if timeout > 0 {
		d.sendTimeout = timeout
	}
	return d
}

// Dispatch sends alert to each subscriber of wallet. Every send gets its
// own timeout, so a slow chat does not starve the others. A failed send is
// logged; only a subscriber lookup failure or the end of ctx is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, wallet string, alert Alert) (Result, error) {
	subscribers, err := d.subs.ListSubscribers(ctx, wallet)
	if err != nil {
		return Result{}, fmt.Errorf("list subscribers for %s: %w", wallet, err)
	}

	var res Result
	if len(subscribers) == 0 {
		return res, nil
	}

	text := FormatMessage(wallet, alert, d.now().In(d.loc))
	for _, sub := range subscribers {
		res.Attempted++
		if err := d.send(ctx, sub.ChatID, text); err != nil {
			if ctx.Err() != nil {
				d.observe(res)
				return res, ctx.Err()
			}
			d.logger.Warn("send trade alert",
				"wallet", wallet,
				"chat_id", sub.ChatID,
				"error", err,
			)
			continue
		}
		res.Sent++
	}

	d.observe(res)
	d.logger.Debug("trade alert dispatched",
		"wallet", wallet,
		"attempted", res.Attempted,
		"sent", res.Sent,
	)
	return res, nil
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, text string) error {
	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return d.sender.SendMessage(ctx, chatID, text)
}

func (d *Dispatcher) observe(res Result) {
	if d.observer != nil {
		d.observer.AlertDelivered(res.Sent, res.Attempted-res.Sent)
	}
}

// HandleEvent implements Handler. The queue's handler deadline is not
// applied; each send is bounded by the send timeout instead.
func (d *Dispatcher) HandleEvent(ctx context.Context, e Event) error {
	_, err := d.Dispatch(context.WithoutCancel(ctx), e.Activity.WalletAddress, AlertFromEvent(e))
	return err
}

// FormatMessage renders the HTML alert text.
func FormatMessage(wallet string, a Alert, at time.Time) string {
	emoji := "🔴"
	if a.Side.IsBuy() {
		emoji = "🟢"
	}
	title := strings.TrimSpace(a.MarketTitle)
	if title == "" {
		title = UnknownMarket
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>New Trade Alert</b>\n\n", emoji)
	fmt.Fprintf(&b, "<b>Wallet:</b> <code>%s</code>\n\n", html.EscapeString(model.ShortAddress(wallet)))
	fmt.Fprintf(&b, "<b>Market:</b> %s\n", html.EscapeString(title))
	fmt.Fprintf(&b, "<b>Action:</b> %s\n", html.EscapeString(string(a.Side)))
	fmt.Fprintf(&b, "<b>Outcome:</b> %s\n", html.EscapeString(a.Outcome))
	fmt.Fprintf(&b, "<b>Size:</b> %s\n", a.Amount.String())
	fmt.Fprintf(&b, "<b>Price:</b> %s\n\n", a.Price.String())
	fmt.Fprintf(&b, "Timestamp: %s", at.Format("2006-01-02 15:04:05 MST"))
	return b.String()
}
