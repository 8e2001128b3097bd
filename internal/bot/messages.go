package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/rickgao/polywhales/internal/model"
)

const (
	msgWelcome = "Welcome to <b>PolyWhales</b>!\n\n" +
		"I will help you follow trading activity on Polymarket.\n\n" +
		"<b>Available commands:</b>\n" +
		"/track [wallet_address] - Track a wallet address\n" +
		"/untrack [wallet_address] - Stop tracking a wallet address\n" +
		"/list - Show tracked wallets\n" +
		"/positions [wallet_address] - Show open positions\n" +
		"/help - Show help"

	msgHelp = "<b>PolyWhales Bot - Guide</b>\n\n" +
		"<b>Commands:</b>\n" +
		"/start - Start using the bot\n" +
		"/track [wallet_address] - Track a Polymarket wallet\n" +
		"/untrack [wallet_address] - Stop tracking a wallet\n" +
		"/list - Show all tracked wallets\n" +
		"/positions [wallet_address] - Show open positions\n" +
		"/help - Show this guide\n\n" +
		"<b>Example:</b>\n" +
		"/track 0x1234567890abcdef1234567890abcdef12345678"

	msgTrackUsage     = "Invalid format. Use: /track [wallet_address]"
	msgUntrackUsage   = "Invalid format. Use: /untrack [wallet_address]"
	msgPositionsUsage = "Invalid format. Use: /positions [wallet_address]"
	msgStartFirst     = "Please use /start first"
	msgEmptyList      = "You are not tracking any wallets yet. Use /track [wallet_address] to start tracking."
	msgNoPositions    = "No open positions found."
	msgPositionsError = "Could not load positions right now. Please try again later."
)

func msgAlreadyTracked(addr string) string {
	return fmt.Sprintf("Wallet <code>%s</code> is already tracked", html.EscapeString(addr))
}

func msgTracked(addr string) string {
	return fmt.Sprintf("Now tracking wallet:\n<code>%s</code>\n\n"+
		"You will be notified when it trades.", html.EscapeString(addr))
}

func msgUntracked(addr string) string {
	return fmt.Sprintf("Wallet <code>%s</code> untracked", html.EscapeString(addr))
}

func msgNotTracked(addr string) string {
	return fmt.Sprintf("Wallet <code>%s</code> is not tracked", html.EscapeString(addr))
}

func formatList(wallets []model.TrackedWallet) string {
	if len(wallets) == 0 {
		return msgEmptyList
	}
	var b strings.Builder
	b.WriteString("<b>Tracked wallets:</b>\n\n")
	for i, w := range wallets {
		fmt.Fprintf(&b, "%d. <code>%s</code>\n", i+1, html.EscapeString(w.WalletAddress))
		if w.Label != "" {
			fmt.Fprintf(&b, "   Label: %s\n", html.EscapeString(w.Label))
		}
	}
	return b.String()
}

func formatPositions(addr string, positions []model.Position) string {
	if len(positions) == 0 {
		return msgNoPositions
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Open positions for</b> <code>%s</code>\n\n", html.EscapeString(model.ShortAddress(addr)))
	for i, p := range positions {
		title := p.Title
		if title == "" {
			title = "Unknown Market"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, html.EscapeString(title))
		fmt.Fprintf(&b, "   %s: %s @ %s (value %s, PnL %s)\n",
			html.EscapeString(p.Outcome),
			p.Size.StringFixed(2),
			p.AvgPrice.StringFixed(3),
			p.CurrentValue.StringFixed(2),
			p.CashPnl.StringFixed(2),
		)
	}
	return b.String()
}
