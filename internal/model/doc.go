// Package model defines shared data types used across the wallet tracker.
//
// Types mirror the tables in sql/postgres:
//   - tracked_wallets: wallets swept on every run
//   - betting_activities: one row per recorded trade, unique by tx_hash
//   - telegram_subscriptions: chats registered with the bot
//
// Conventions:
//   - Amounts and prices: decimal.Decimal, zero when upstream is unparseable
//   - Timestamps: time.Time in UTC
//   - IDs: uuid.UUID
package model
