// Package report assembles persisted and buffered log history into a
// bug report and delivers it to a collector over HTTP.
//
// Invariants:
// - Entries are ordered oldest session first; the running session is last.
// - With clearing enabled, every session that was read is deleted before
//   delivery is attempted, so the same lines are never submitted twice.
// - Delivery is a single attempt; there are no retries.
package report
