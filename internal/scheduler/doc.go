// Package scheduler runs a sweep over every tracked wallet.
//
// A sweep:
//   - Lists tracked wallets and de-duplicates addresses
//   - Processes wallets in sequential batches, concurrently within a batch
//   - Retries failed fetches with exponential backoff, skipping rate-limited wallets
//   - Records new trades exactly once and hands them to the notification queue
//   - Folds per-wallet results into SweepStats
package scheduler
