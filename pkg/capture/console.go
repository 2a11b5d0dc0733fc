package capture

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Severity codes written into each line.
const (
	LevelInfo  = "I"
	LevelWarn  = "W"
	LevelError = "E"
)

// timestampLayout is ISO-8601 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// LogFunc is a single severity entry point of a diagnostic surface.
type LogFunc func(args ...any)

// Surface is a diagnostic output surface exposing named severity functions.
type Surface struct {
	Log   LogFunc
	Info  LogFunc
	Warn  LogFunc
	Error LogFunc
}

// WriterSurface returns a Surface printing every call as one line to w.
func WriterSurface(w io.Writer) Surface {
	emit := func(args ...any) {
		fmt.Fprintln(w, args...)
	}
	return Surface{Log: emit, Info: emit, Warn: emit, Error: emit}
}

// Console wraps a Surface so that each call is recorded before it is
// forwarded to the original function. The wrapped surface itself is
// never modified; callers opt in by using the Console (or its Surface).
type Console struct {
	original Surface
	recorder Recorder
	now      func() time.Time
}

// NewConsole wraps target, recording every call into rec.
func NewConsole(target Surface, rec Recorder) *Console {
	return &Console{
		original: target,
		recorder: rec,
		now:      time.Now,
	}
}

// Log records at info severity and calls the original Log
func (c *Console) Log(args ...any) {
	c.dispatch(c.original.Log, LevelInfo, args)
}

// Info records at info severity and calls the original Info
func (c *Console) Info(args ...any) {
	c.dispatch(c.original.Info, LevelInfo, args)
}

// Warn records at warn severity and calls the original Warn
func (c *Console) Warn(args ...any) {
	c.dispatch(c.original.Warn, LevelWarn, args)
}

// Error records at error severity and calls the original Error
func (c *Console) Error(args ...any) {
	c.dispatch(c.original.Error, LevelError, args)
}

// Surface returns the wrapped entry points with the original signatures.
func (c *Console) Surface() Surface {
	return Surface{
		Log:   c.Log,
		Info:  c.Info,
		Warn:  c.Warn,
		Error: c.Error,
	}
}

func (c *Console) dispatch(original LogFunc, level string, args []any) {
	c.record(level, args)
	if original != nil {
		original(args...)
	}
}

// record must never surface a failure to the caller.
func (c *Console) record(level string, args []any) {
	defer func() {
		_ = recover()
	}()

	if c.recorder == nil {
		return
	}
	c.recorder.Record(FormatLine(c.now(), level, args...))
}

// FormatLine renders "<timestamp> <level> <args joined by spaces>\n".
func FormatLine(ts time.Time, level string, args ...any) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = fmt.Sprint(arg)
	}

	var sb strings.Builder
	sb.WriteString(ts.UTC().Format(timestampLayout))
	sb.WriteByte(' ')
	sb.WriteString(level)
	sb.WriteByte(' ')
	sb.WriteString(strings.Join(parts, " "))
	sb.WriteByte('\n')
	return sb.String()
}
