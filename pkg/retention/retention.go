// Package retention bounds the space used by persisted log sessions.
package retention

import (
	"context"
	"fmt"

	"github.com/harun/rageshake/internal/observability"
	"github.com/rs/zerolog"
)

// DefaultMaxBytes is the default budget for persisted log text (50 MiB).
const DefaultMaxBytes int64 = 50 << 20

// Store is the part of the log store retention needs.
type Store interface {
	ListSessionIDs(ctx context.Context) ([]string, error)
	ReadSession(ctx context.Context, sessionID string) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Pruner deletes the oldest sessions once their combined text exceeds a
// byte budget.
type Pruner struct {
	store            Store
	currentSessionID string
	logger           zerolog.Logger
}

// NewPruner creates a pruner. currentSessionID names the running
// session, which Prune only deletes when asked to include it.
func NewPruner(store Store, currentSessionID string, logger zerolog.Logger) *Pruner {
	return &Pruner{
		store:            store,
		currentSessionID: currentSessionID,
		logger:           logger,
	}
}

// Plan returns the sessions Prune would delete, newest first.
//
// Sessions are walked newest first while their text lengths are summed.
// The first session that takes the total over budgetBytes, and every
// older session, is selected. The current session is never selected
// unless includeCurrent is set, in which case every session is.
func (p *Pruner) Plan(ctx context.Context, budgetBytes int64, includeCurrent bool) ([]string, error) {
	ids, err := p.store.ListSessionIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	if includeCurrent {
		return ids, nil
	}

	cutoff := len(ids)
	var total int64
	for i, id := range ids {
		text, err := p.store.ReadSession(ctx, id)
		if err != nil {
			p.logger.Warn().
				Str("session_id", id).
				Err(err).
				Msg("Failed to read session while sizing, counting it as empty")
			continue
		}
		total += int64(len(text))
		if total > budgetBytes {
			cutoff = i
			break
		}
	}

	var scheduled []string
	for _, id := range ids[cutoff:] {
		if id == p.currentSessionID {
			continue
		}
		scheduled = append(scheduled, id)
	}
	return scheduled, nil
}

// Prune deletes the sessions selected by Plan and returns the IDs that
// were actually removed. Individual delete failures are logged and
// skipped; only a failure to list sessions is returned.
func (p *Pruner) Prune(ctx context.Context, budgetBytes int64, includeCurrent bool) ([]string, error) {
	scheduled, err := p.Plan(ctx, budgetBytes, includeCurrent)
	if err != nil {
		return nil, err
	}
	if len(scheduled) == 0 {
		return nil, nil
	}

	p.logger.Info().
		Strs("sessions", scheduled).
		Int64("budget_bytes", budgetBytes).
		Bool("include_current", includeCurrent).
		Msg("Removing logs")

	return p.Sweep(ctx, scheduled), nil
}

// Sweep deletes each of ids, best effort, and returns those deleted.
func (p *Pruner) Sweep(ctx context.Context, ids []string) []string {
	var deleted []string
	for _, id := range ids {
		if err := p.store.DeleteSession(ctx, id); err != nil {
			observability.RecordPrunedSession(false)
			p.logger.Error().
				Str("session_id", id).
				Err(err).
				Msg("Failed to delete session logs")
			continue
		}
		observability.RecordPrunedSession(true)
		deleted = append(deleted, id)
	}

	if len(deleted) > 0 {
		p.logger.Info().
			Int("removed", len(deleted)).
			Int("failed", len(ids)-len(deleted)).
			Msg("Removed old logs")
	}
	return deleted
}
