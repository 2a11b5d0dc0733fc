// Package logstore persists flushed log chunks in SQLite, keyed by
// session identifier and per-session sequence number.
//
// Invariants:
// - Chunks are immutable; a session's chunks are only removed together.
// - Sequence numbers of a session are contiguous and start at 0.
// - ReadSession concatenates chunks in sequence order, whatever order
//   the database yields rows in.
// - Several processes may share one database file; each writes only
//   under its own session ID and needs no cross-process locking.
//
// Usage:
//
//	store, err := logstore.Open(ctx, logstore.Config{Path: "/tmp/logs.db", SessionID: id})
//	if errors.Is(err, logstore.ErrStoreUnavailable) {
//		// keep running in memory-only mode
//	}
//	_ = store.Append(ctx, id, "2017-01-18T11:23:53.214Z I hello\n")
//	text, _ := store.ReadSession(ctx, id)
package logstore
