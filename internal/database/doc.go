// Package database provides the PostgreSQL connection pool and schema
// migrations for the postgres store backend.
//
// Tables:
//   - tracked_wallets: wallets to sweep, optionally bound to a Telegram chat
//   - betting_activities: recorded trades, unique by tx_hash
//   - telegram_subscriptions: chats registered through the bot
package database
