// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Sweep outcomes, durations and per-wallet terminal states
//   - Fetch attempts per wallet
//   - Recorded activities and per-trade persistence failures
//   - Notification queue depth and drops
//   - HTTP requests and bot commands
package metrics
