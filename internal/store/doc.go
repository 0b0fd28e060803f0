// Package store provides persistent conversation storage using SQLite.
//
// # Data Model
//
// Each conversation is an ordered log of Messages keyed by an opaque
// conversation ID. Logs are created implicitly on first append, bounded to
// the store's retention limit (oldest entries discarded first), and removed
// only by ClearConversation. Message timestamps are assigned by the store at
// append time so log order and timestamp order always agree.
//
// # Concurrency
//
// A lazily-created mutex per conversation serializes appends and clears for
// that conversation. Different conversations share no mutable state and
// proceed fully in parallel. Reads go straight to SQLite and observe some
// committed prefix of the log.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//
// Use NewSQLiteStore(":memory:", n) for tests that don't need durability.
//
// # Error Handling
//
// Database failures wrap ErrStorageUnavailable; check with errors.Is. The
// store never retries, and retention overflow is silent by design of the
// bounding policy.
package store
