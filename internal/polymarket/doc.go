// Package polymarket provides the client for the Polymarket data API.
//
// Endpoints:
//   - GET /trades?user=<address>&limit=<n>: recent fills for a wallet
//   - GET /positions?user=<address>&limit=<n>: open positions
//
// Failures map to ErrRateLimited (429), ErrTimeout (deadline exceeded)
// and *APIError (any other non-2xx status).
package polymarket
