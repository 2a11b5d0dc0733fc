// Package capture records diagnostic output as timestamped log lines.
//
// Invariants:
// - A recorded line is never split or interleaved with another line.
// - Drain hands out every recorded line exactly once.
// - Recording never panics into, blocks on, or changes the behavior of the wrapped call.
//
// Usage:
//
//	buf := capture.NewBuffer()
//	console := capture.NewConsole(capture.WriterSurface(os.Stderr), buf)
//	console.Warn("Failed to set badge count")
//	lines := buf.Drain()
package capture
