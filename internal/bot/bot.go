// Package bot answers Telegram commands that manage a chat's tracked wallets.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rickgao/polywhales/internal/model"
	"github.com/rickgao/polywhales/internal/notify"
	"github.com/rickgao/polywhales/internal/storage"
	"github.com/rickgao/polywhales/internal/telegram"
)

// MinAddressLength is the shortest accepted wallet address.
const MinAddressLength = 10

// Commands understood by the bot.
const (
	CmdStart     = "/start"
	CmdTrack     = "/track"
	CmdUntrack   = "/untrack"
	CmdList      = "/list"
	CmdHelp      = "/help"
	CmdPositions = "/positions"
)

// PositionSource looks up open positions for a wallet.
type PositionSource interface {
	GetPositions(ctx context.Context, address string, limit int) ([]model.Position, error)
}

// CommandObserver counts handled commands.
type CommandObserver interface {
	BotCommand(command string)
}

// Store is the persistence the bot needs.
type Store interface {
	storage.WalletStore
	storage.SubscriptionStore
}

// Bot dispatches webhook updates to command handlers. Store failures are
// returned so the webhook answers with an error; reply failures are only
// logged.
type Bot struct {
	store     Store
	sender    notify.Sender
	positions PositionSource
	observer  CommandObserver
	logger    *slog.Logger
}

// Option configures a Bot.
type Option func(*Bot)

// WithPositions enables /positions.
func WithPositions(p PositionSource) Option {
	return func(b *Bot) { b.positions = p }
}

// WithObserver reports handled commands to o.
func WithObserver(o CommandObserver) Option {
	return func(b *Bot) { b.observer = o }
}

// New creates a Bot.
func New(store Store, sender notify.Sender, logger *slog.Logger, opts ...Option) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bot{store: store, sender: sender, logger: logger}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HandleUpdate processes one webhook update. Updates without text are
// ignored.
func (b *Bot) HandleUpdate(ctx context.Context, u telegram.Update) error {
	msg := u.EffectiveMessage()
	if msg == nil {
		return nil
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	cmd, arg := parseCommand(text)
	logger := b.logger.With("chat_id", msg.Chat.ID, "command", cmd)

	var err error
	switch cmd {
	case CmdStart:
		err = b.start(ctx, msg)
	case CmdTrack:
		err = b.track(ctx, msg.Chat.ID, arg)
	case CmdUntrack:
		err = b.untrack(ctx, msg.Chat.ID, arg)
	case CmdList:
		err = b.list(ctx, msg.Chat.ID)
	case CmdHelp:
		b.reply(ctx, msg.Chat.ID, msgHelp)
	case CmdPositions:
		b.showPositions(ctx, logger, msg.Chat.ID, arg)
	default:
		return nil
	}

	if b.observer != nil {
		b.observer.BotCommand(cmd)
	}
	if err != nil {
		logger.Error("bot command failed", "error", err)
		return err
	}
	logger.Debug("bot command handled")
	return nil
}

// parseCommand splits "/track@PolyWhalesBot 0xabc" into ("/track", "0xabc").
func parseCommand(text string) (cmd, arg string) {
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	cmd, arg, _ = strings.Cut(text, " ")
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

func normalizeAddress(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (b *Bot) start(ctx context.Context, msg *telegram.Message) error {
	chatID := msg.Chat.ID
	_, err := b.store.GetSubscription(ctx, chatID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		sub := &model.Subscription{
			TelegramChatID:   chatID,
			TelegramUsername: msg.DisplayName(),
			IsActive:         true,
		}
		if err := b.store.CreateSubscription(ctx, sub); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("create subscription: %w", err)
		}
	case err != nil:
		return fmt.Errorf("get subscription: %w", err)
	}

	b.reply(ctx, chatID, msgWelcome)
	return nil
}

func (b *Bot) track(ctx context.Context, chatID int64, arg string) error {
	addr := normalizeAddress(arg)
	if len(addr) < MinAddressLength || strings.ContainsAny(addr, " \t\n") {
		b.reply(ctx, chatID, msgTrackUsage)
		return nil
	}

	sub, err := b.store.GetSubscription(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(ctx, chatID, msgStartFirst)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get subscription: %w", err)
	}

	err = b.store.TrackWallet(ctx, &model.TrackedWallet{
		UserID:         sub.UserID,
		WalletAddress:  addr,
		ChainID:        model.DefaultChainID,
		TelegramChatID: &chatID,
	})
	if errors.Is(err, storage.ErrDuplicateKey) {
		b.reply(ctx, chatID, msgAlreadyTracked(addr))
		return nil
	}
	if err != nil {
		return fmt.Errorf("track wallet: %w", err)
	}

	b.reply(ctx, chatID, msgTracked(addr))
	return nil
}

func (b *Bot) untrack(ctx context.Context, chatID int64, arg string) error {
	addr := normalizeAddress(arg)
	if addr == "" {
		b.reply(ctx, chatID, msgUntrackUsage)
		return nil
	}

	err := b.store.UntrackWallet(ctx, chatID, addr)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(ctx, chatID, msgNotTracked(addr))
		return nil
	}
	if err != nil {
		return fmt.Errorf("untrack wallet: %w", err)
	}

	b.reply(ctx, chatID, msgUntracked(addr))
	return nil
}

func (b *Bot) list(ctx context.Context, chatID int64) error {
	wallets, err := b.store.ListWalletsByChat(ctx, chatID)
	if err != nil {
		return fmt.Errorf("list wallets: %w", err)
	}
	b.reply(ctx, chatID, formatList(wallets))
	return nil
}

// showPositions never fails the webhook; upstream errors become a reply.
func (b *Bot) showPositions(ctx context.Context, logger *slog.Logger, chatID int64, arg string) {
	addr := normalizeAddress(arg)
	if b.positions == nil || len(addr) < MinAddressLength {
		b.reply(ctx, chatID, msgPositionsUsage)
		return
	}

	positions, err := b.positions.GetPositions(ctx, addr, 10)
	if err != nil {
		logger.Warn("get positions failed", "wallet", addr, "error", err)
		b.reply(ctx, chatID, msgPositionsError)
		return
	}
	b.reply(ctx, chatID, formatPositions(addr, positions))
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.sender.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Warn("failed to send bot reply", "chat_id", chatID, "error", err)
	}
}
