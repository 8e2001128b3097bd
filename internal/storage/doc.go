// Package storage defines the persistence interfaces for wallets,
// activities and subscriptions, and the errors shared by their backends.
//
// Backends:
//   - memory: mutex-guarded maps
//   - postgres: pgx connection pool
//   - rest: PostgREST endpoint such as Supabase
//
// Activities are append-only and unique by tx_hash. Concurrent inserts of
// the same hash resolve to exactly one row; the loser sees ErrDuplicateKey.
package storage
