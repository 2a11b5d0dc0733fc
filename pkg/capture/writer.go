package capture

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Writer is a zerolog.LevelWriter that records each zerolog event as a
// line, so a process already logging through zerolog can feed the buffer
// by adding the Writer to its output (for example via
// zerolog.MultiLevelWriter).
type Writer struct {
	recorder Recorder
	now      func() time.Time
}

var _ zerolog.LevelWriter = (*Writer)(nil)

// NewWriter creates a writer recording into rec
func NewWriter(rec Recorder) *Writer {
	return &Writer{recorder: rec, now: time.Now}
}

// Write records p at info severity
func (w *Writer) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.InfoLevel, p)
}

// WriteLevel records p at the severity matching level. It always reports
// the full length as written.
func (w *Writer) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	w.record(level, p)
	return len(p), nil
}

func (w *Writer) record(level zerolog.Level, p []byte) {
	defer func() {
		_ = recover()
	}()

	if w.recorder == nil || level == zerolog.Disabled {
		return
	}
	msg := strings.TrimRight(string(p), "\n")
	if msg == "" {
		return
	}
	w.recorder.Record(FormatLine(w.now(), LevelCode(level), msg))
}

// LevelCode maps a zerolog level onto a severity code.
func LevelCode(level zerolog.Level) string {
	switch level {
	case zerolog.WarnLevel:
		return LevelWarn
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return LevelError
	default:
		return LevelInfo
	}
}
