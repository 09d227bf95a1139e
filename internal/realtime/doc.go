// Package realtime pushes ledger events to the live sessions of an account.
//
// Delivery is best effort and at most once per event: a session whose buffer is full misses the
// event, and an account without sessions makes Notify a no-op. The ledger and the account store
// stay authoritative; clients re-fetch on reconnect.
//
// Hub is the per-instance subscription registry. RedisNotifier and Relay fan events out across
// instances through Redis pub/sub. Async keeps publishing off the caller's goroutine.
package realtime
