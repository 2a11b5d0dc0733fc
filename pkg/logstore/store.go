package logstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harun/rageshake/internal/observability"
	"github.com/harun/rageshake/internal/tracing"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "rageshake.logstore"

const schema = `
	CREATE TABLE IF NOT EXISTS chunks (
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		codec INTEGER NOT NULL,
		size INTEGER NOT NULL,
		lines BLOB NOT NULL,
		digest BLOB,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_seq ON chunks(seq);
`

// Config configures a Store
type Config struct {
	// Path is the SQLite database file. Parent directories are created.
	Path string
	// SessionID owns the "database created" chunk written when the
	// database is created for the first time.
	SessionID string
	// Compression applied to chunk payloads.
	Compression Compression
	// Logger receives store diagnostics. Zero value logs nowhere.
	Logger zerolog.Logger
}

// Chunk is one persisted block of log text.
type Chunk struct {
	SessionID string
	Seq       int64
	Text      string
}

// SessionInfo summarizes a stored session.
type SessionInfo struct {
	ID     string
	Chunks int
	Bytes  int64
}

// Store is the SQLite-backed log chunk store.
type Store struct {
	db          *sql.DB
	path        string
	compression Compression
	logger      zerolog.Logger
	now         func() time.Time

	mu     sync.RWMutex
	closed bool
}

// Open opens or creates the log database. Any failure to reach the
// database is reported as ErrStoreUnavailable; callers are expected to
// carry on without persistence in that case.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	observability.EnsureRegistered()

	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: database path is required", ErrStoreUnavailable)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
		return nil, fmt.Errorf("%w: create log directory: %w", ErrStoreUnavailable, err)
	}

	// WAL + busy timeout let several processes share the file; an
	// immediate transaction lock makes first-time creation race free.
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", cfg.Path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", ErrStoreUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %w", ErrStoreUnavailable, err)
	}

	s := &Store{
		db:          db,
		path:        cfg.Path,
		compression: cfg.Compression,
		logger:      cfg.Logger,
		now:         time.Now,
	}

	created, err := s.initSchema(ctx, cfg.SessionID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: initialize schema: %w", ErrStoreUnavailable, err)
	}

	s.logger.Info().
		Str("path", cfg.Path).
		Bool("created", created).
		Str("compression", cfg.Compression.String()).
		Msg("Log store opened")

	return s, nil
}

// initSchema creates the chunks table when missing and, only in that
// case, writes the creation chunk for sessionID.
func (s *Store) initSchema(ctx context.Context, sessionID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'chunks'",
	).Scan(&existing)
	if err != nil {
		return false, err
	}
	if existing > 0 {
		return false, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return false, err
	}

	if sessionID != "" {
		now := s.now()
		text := fmt.Sprintf("%s ::: Log database was created.\n", now.UTC().Format(time.RFC1123))
		if _, err := s.insertChunk(ctx, tx, sessionID, text, now); err != nil {
			return false, err
		}
	}

	return true, tx.Commit()
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertChunk writes text as the next chunk of sessionID. The sequence
// number is computed inside the statement so it is always MAX(seq)+1
// for the session, or 0 for a session with no chunks.
func (s *Store) insertChunk(ctx context.Context, q rowQuerier, sessionID, text string, now time.Time) (int64, error) {
	raw := []byte(text)
	codec, payload := encodeChunk(raw, s.compression)

	var seq int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO chunks (session_id, seq, codec, size, lines, digest, created_at)
		SELECT ?, COALESCE(MAX(seq) + 1, 0), ?, ?, ?, ?, ?
		FROM chunks WHERE session_id = ?
		RETURNING seq`,
		sessionID, int(codec), len(raw), payload, chunkDigest(raw), now.UnixMilli(), sessionID,
	).Scan(&seq)
	return seq, err
}

func (s *Store) checkOpen() error {
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func validateSessionID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSessionID
	}
	return nil
}

// Append stores text as a new chunk of sessionID. Empty text is a no-op.
func (s *Store) Append(ctx context.Context, sessionID, text string) (err error) {
	if text == "" {
		return nil
	}
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	ctx = tracing.WithSessionID(ctx, sessionID)
	ctx, span := tracing.StartSpan(ctx, tracerName, "logstore.append",
		attribute.String("session_id", sessionID),
		attribute.Int("bytes", len(text)),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, s.logger)
	start := time.Now()
	defer func() {
		observability.RecordStoreOperation("append", time.Since(start), err == nil)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return tracing.FailSpan(span, err)
	}

	seq, err := s.insertChunk(ctx, s.db, sessionID, text, s.now())
	if err != nil {
		logger.Error().Err(err).Int("bytes", len(text)).Msg("Failed to append log chunk")
		return tracing.FailSpan(span, fmt.Errorf("%w: append chunk: %w", ErrStoreOperation, err))
	}

	logger.Debug().Int64("seq", seq).Int("bytes", len(text)).Msg("Log chunk appended")
	return nil
}

// ListSessionIDs returns every session that has a sequence 0 chunk,
// newest first.
func (s *Store) ListSessionIDs(ctx context.Context) (ids []string, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "logstore.list_sessions")
	defer span.End()
	start := time.Now()
	defer func() {
		observability.RecordStoreOperation("list_sessions", time.Since(start), err == nil)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, tracing.FailSpan(span, err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT session_id FROM chunks WHERE seq = 0")
	if err != nil {
		return nil, tracing.FailSpan(span, fmt.Errorf("%w: list sessions: %w", ErrStoreOperation, err))
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, tracing.FailSpan(span, fmt.Errorf("%w: scan session: %w", ErrStoreOperation, err))
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, tracing.FailSpan(span, fmt.Errorf("%w: list sessions: %w", ErrStoreOperation, err))
	}

	SortNewestFirst(ids)
	observability.SetKnownSessions(len(ids))
	span.SetAttributes(attribute.Int("sessions", len(ids)))

	return ids, nil
}

// ReadChunks returns the chunks of sessionID ordered by sequence number.
func (s *Store) ReadChunks(ctx context.Context, sessionID string) (chunks []Chunk, err error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	ctx = tracing.WithSessionID(ctx, sessionID)
	ctx, span := tracing.StartSpan(ctx, tracerName, "logstore.read_session",
		attribute.String("session_id", sessionID),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, s.logger)
	start := time.Now()
	defer func() {
		observability.RecordStoreOperation("read_session", time.Since(start), err == nil)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, tracing.FailSpan(span, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT seq, codec, size, lines, digest FROM chunks WHERE session_id = ?", sessionID)
	if err != nil {
		return nil, tracing.FailSpan(span, fmt.Errorf("%w: read session: %w", ErrStoreOperation, err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seq     int64
			codec   int
			size    int
			payload []byte
			digest  []byte
		)
		if err := rows.Scan(&seq, &codec, &size, &payload, &digest); err != nil {
			return nil, tracing.FailSpan(span, fmt.Errorf("%w: scan chunk: %w", ErrStoreOperation, err))
		}
		data, err := decodeChunk(payload, Compression(codec), size)
		if err == nil {
			err = verifyDigest(data, digest)
		}
		if err != nil {
			logger.Error().Err(err).Int64("seq", seq).Msg("Failed to decode log chunk")
			return nil, tracing.FailSpan(span, fmt.Errorf("%w: decode chunk %d: %w", ErrStoreOperation, seq, err))
		}
		chunks = append(chunks, Chunk{SessionID: sessionID, Seq: seq, Text: string(data)})
	}
	if err := rows.Err(); err != nil {
		return nil, tracing.FailSpan(span, fmt.Errorf("%w: read session: %w", ErrStoreOperation, err))
	}

	// Row order is whatever SQLite picks; sequence order is ours to impose.
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Seq < chunks[j].Seq
	})

	span.SetAttributes(attribute.Int("chunks", len(chunks)))
	return chunks, nil
}

// ReadSession returns all text of sessionID, chunks joined in sequence
// order. A session without chunks reads as "".
func (s *Store) ReadSession(ctx context.Context, sessionID string) (string, error) {
	chunks, err := s.ReadChunks(ctx, sessionID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(c.Text)
	}
	return sb.String(), nil
}

// DeleteSession removes every chunk of sessionID. Deleting an unknown
// session succeeds.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) (err error) {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	ctx = tracing.WithSessionID(ctx, sessionID)
	ctx, span := tracing.StartSpan(ctx, tracerName, "logstore.delete_session",
		attribute.String("session_id", sessionID),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, s.logger)
	start := time.Now()
	defer func() {
		observability.RecordStoreOperation("delete_session", time.Since(start), err == nil)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return tracing.FailSpan(span, err)
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE session_id = ?", sessionID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to delete log session")
		return tracing.FailSpan(span, fmt.Errorf("%w: delete session %s: %w", ErrStoreOperation, sessionID, err))
	}

	removed, _ := res.RowsAffected()
	logger.Debug().Int64("chunks", removed).Msg("Log session deleted")
	return nil
}

// Sessions lists stored sessions newest first with their chunk count and
// uncompressed size.
func (s *Store) Sessions(ctx context.Context) ([]SessionInfo, error) {
	ids, err := s.ListSessionIDs(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	infos := make([]SessionInfo, 0, len(ids))
	for _, id := range ids {
		info := SessionInfo{ID: id}
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*), COALESCE(SUM(size), 0) FROM chunks WHERE session_id = ?", id,
		).Scan(&info.Chunks, &info.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: stat session %s: %w", ErrStoreOperation, id, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close log store: %w", err)
	}
	s.logger.Info().Str("path", s.path).Msg("Log store closed")
	return nil
}
