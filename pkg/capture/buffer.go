package capture

import (
	"strings"
	"sync"
)

// Recorder accepts fully formatted, newline-terminated log lines.
type Recorder interface {
	Record(line string)
}

// Buffer accumulates lines recorded since the last Drain.
type Buffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

// NewBuffer creates an empty line buffer
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Record appends a line to the buffer
func (b *Buffer) Record(line string) {
	if line == "" {
		return
	}

	b.mu.Lock()
	b.buf.WriteString(line)
	b.mu.Unlock()
}

// Drain returns everything recorded so far and resets the buffer.
func (b *Buffer) Drain() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buf.Len() == 0 {
		return ""
	}
	lines := b.buf.String()
	b.buf = strings.Builder{}
	return lines
}

// Len returns the number of buffered bytes
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}
