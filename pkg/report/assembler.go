package report

import (
	"context"

	"github.com/rs/zerolog"
)

// Store is the read side of the log store used for assembly.
type Store interface {
	ListSessionIDs(ctx context.Context) ([]string, error)
	ReadSession(ctx context.Context, sessionID string) (string, error)
}

// Sweeper deletes sessions best effort and reports which went away.
type Sweeper interface {
	Sweep(ctx context.Context, ids []string) []string
}

// Drainer hands out buffered lines that are not yet persisted.
type Drainer interface {
	Drain() string
}

// AssemblerConfig configures an Assembler
type AssemblerConfig struct {
	// Store is nil when running without persistence.
	Store Store
	// Sweeper clears sessions after they were read. Required when
	// Store is set and clearing is requested.
	Sweeper          Sweeper
	Buffer           Drainer
	CurrentSessionID string
	// Redact, when set, is applied to every entry's lines.
	Redact func(string) string
	Logger zerolog.Logger
}

// Assembler reconstructs the ordered per-session log history.
type Assembler struct {
	cfg AssemblerConfig
}

// NewAssembler creates an assembler
func NewAssembler(cfg AssemblerConfig) *Assembler {
	return &Assembler{cfg: cfg}
}

// Assemble returns every persisted session oldest first followed by the
// current session, whose entry is its persisted text plus whatever is
// drained from the buffer. When clearAfter is set, the sessions that
// were read are deleted before returning. Storage failures are logged
// and the affected sessions left out (and left in place).
func (a *Assembler) Assemble(ctx context.Context, clearAfter bool) []Entry {
	var (
		entries   []Entry
		read      []string
		persisted string
	)

	if a.cfg.Store != nil {
		ids, err := a.cfg.Store.ListSessionIDs(ctx)
		if err != nil {
			a.cfg.Logger.Error().Err(err).Msg("Failed to list log sessions for report")
		}

		for i := len(ids) - 1; i >= 0; i-- {
			id := ids[i]
			text, err := a.cfg.Store.ReadSession(ctx, id)
			if err != nil {
				a.cfg.Logger.Error().
					Str("session_id", id).
					Err(err).
					Msg("Failed to read log session for report")
				continue
			}
			read = append(read, id)

			if id == a.cfg.CurrentSessionID {
				persisted = text
				continue
			}
			entries = append(entries, Entry{ID: id, Lines: a.redact(text)})
		}
	}

	if clearAfter && len(read) > 0 && a.cfg.Sweeper != nil {
		a.cfg.Sweeper.Sweep(ctx, read)
	}

	// The store may lag the buffer by up to one flush interval.
	var buffered string
	if a.cfg.Buffer != nil {
		buffered = a.cfg.Buffer.Drain()
	}
	entries = append(entries, Entry{
		ID:    a.cfg.CurrentSessionID,
		Lines: a.redact(persisted + buffered),
	})

	return entries
}

func (a *Assembler) redact(text string) string {
	if a.cfg.Redact == nil || text == "" {
		return text
	}
	return a.cfg.Redact(text)
}
