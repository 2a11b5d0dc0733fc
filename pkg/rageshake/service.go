package rageshake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harun/rageshake/internal/observability"
	"github.com/harun/rageshake/internal/tracing"
	"github.com/harun/rageshake/pkg/capture"
	"github.com/harun/rageshake/pkg/logstore"
	"github.com/harun/rageshake/pkg/report"
	"github.com/harun/rageshake/pkg/retention"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultFlushInterval is how often buffered lines are persisted.
const DefaultFlushInterval = 30 * time.Second

// ErrClosed is returned by Init once the service has been closed.
var ErrClosed = errors.New("rageshake: service is closed")

// Options configures a Service.
type Options struct {
	// DBPath is the SQLite file holding persisted sessions. Empty means
	// memory-only operation.
	DBPath string
	// SessionID identifies this process. Generated when empty.
	SessionID   string
	Compression logstore.Compression

	FlushInterval time.Duration
	MaxLogBytes   int64

	Endpoint  string
	Version   report.VersionProvider
	UserAgent string

	// Buffer holds lines not yet persisted. Sharing it lets a host
	// logger built before the Service feed the session.
	Buffer *capture.Buffer
	// Surface receives every console call after it has been recorded.
	Surface capture.Surface
	Sender  report.Sender
	Redact  func(string) string

	// CleanupOnInit prunes old sessions once the store is open.
	CleanupOnInit bool

	Logger zerolog.Logger
}

// Service is the process-wide capture and reporting context.
type Service struct {
	opts      Options
	sessionID string
	logger    zerolog.Logger

	buffer *capture.Buffer
	writer *capture.Writer
	sender report.Sender

	initOnce sync.Once
	initErr  error

	// Set once by Init.
	console   *capture.Console
	store     *logstore.Store
	pruner    *retention.Pruner
	assembler *report.Assembler
	scheduler *cron.Cron

	mu       sync.RWMutex
	ready    bool
	closed   bool
	endpoint string

	flushMu sync.Mutex
}

// New creates a Service. Nothing is opened or scheduled until Init.
func New(opts Options) *Service {
	if opts.SessionID == "" {
		opts.SessionID = logstore.NewSessionID(time.Now())
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.MaxLogBytes <= 0 {
		opts.MaxLogBytes = retention.DefaultMaxBytes
	}
	if opts.Sender == nil {
		opts.Sender = report.NewHTTPSender(nil, opts.Logger)
	}

	buffer := opts.Buffer
	if buffer == nil {
		buffer = capture.NewBuffer()
	}
	return &Service{
		opts:      opts,
		sessionID: opts.SessionID,
		logger:    opts.Logger.With().Str("session_id", opts.SessionID).Logger(),
		buffer:    buffer,
		writer:    capture.NewWriter(buffer),
		sender:    opts.Sender,
		endpoint:  opts.Endpoint,
	}
}

// Init starts capture, opens the store and schedules the periodic flush.
// Every call returns the outcome of the first one. A closed service
// cannot be initialized.
func (s *Service) Init(ctx context.Context) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	s.initOnce.Do(func() {
		s.initErr = s.init(ctx)
	})
	return s.initErr
}

func (s *Service) init(ctx context.Context) error {
	s.console = capture.NewConsole(s.opts.Surface, s.buffer)
	observability.EnsureRegistered()

	if s.opts.DBPath != "" {
		store, err := logstore.Open(ctx, logstore.Config{
			Path:        s.opts.DBPath,
			SessionID:   s.sessionID,
			Compression: s.opts.Compression,
			Logger:      s.logger,
		})
		if err != nil {
			s.logger.Warn().Err(err).Msg("Log store unavailable, keeping logs in memory only")
		} else {
			s.store = store
		}
	} else {
		s.logger.Info().Msg("No log database configured, keeping logs in memory only")
	}

	assemblerCfg := report.AssemblerConfig{
		Buffer:           s.buffer,
		CurrentSessionID: s.sessionID,
		Redact:           s.opts.Redact,
		Logger:           s.logger,
	}
	if s.store != nil {
		s.pruner = retention.NewPruner(s.store, s.sessionID, s.logger)
		assemblerCfg.Store = s.store
		assemblerCfg.Sweeper = s.pruner
	}
	s.assembler = report.NewAssembler(assemblerCfg)

	if s.store != nil && s.opts.CleanupOnInit {
		if err := s.cleanup(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Startup cleanup failed")
		}
	}

	if s.store != nil {
		s.scheduler = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		spec := fmt.Sprintf("@every %s", s.opts.FlushInterval)
		if _, err := s.scheduler.AddFunc(spec, s.scheduledFlush); err != nil {
			_ = s.store.Close()
			s.store = nil
			return fmt.Errorf("failed to schedule flush: %w", err)
		}
		s.scheduler.Start()
	}

	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()

	s.logger.Info().
		Bool("persistent", s.store != nil).
		Dur("flush_interval", s.opts.FlushInterval).
		Msg("Log capture initialized")
	return nil
}

func (s *Service) scheduledFlush() {
	if err := s.Flush(context.Background()); err != nil {
		s.logger.Error().Err(err).Msg("Periodic flush failed")
	}
}

// Flush moves buffered lines into a new chunk of the current session.
// Lines from a failed flush are dropped. Without a store it does nothing.
func (s *Service) Flush(ctx context.Context) error {
	if !s.isReady() || s.store == nil {
		return nil
	}

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	text := s.buffer.Drain()
	observability.SetBufferedBytes(s.buffer.Len())
	if text == "" {
		return nil
	}

	ctx = tracing.WithSessionID(ctx, s.sessionID)
	if err := s.store.Append(ctx, s.sessionID, text); err != nil {
		observability.RecordFlush(len(text), false)
		return fmt.Errorf("failed to flush %d bytes: %w", len(text), err)
	}
	observability.RecordFlush(len(text), true)
	return nil
}

// Cleanup prunes persisted sessions to the configured budget, never
// touching the current session.
func (s *Service) Cleanup(ctx context.Context) error {
	if !s.isReady() {
		return nil
	}
	return s.cleanup(ctx)
}

func (s *Service) cleanup(ctx context.Context) error {
	if s.pruner == nil {
		return nil
	}
	deleted, err := s.pruner.Prune(ctx, s.opts.MaxLogBytes, false)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	if len(deleted) > 0 {
		s.logger.Debug().Strs("sessions", deleted).Msg("Cleanup removed sessions")
	}
	return nil
}

// SetEndpoint changes where reports are delivered.
func (s *Service) SetEndpoint(url string) {
	s.mu.Lock()
	s.endpoint = url
	s.mu.Unlock()
	s.logger.Debug().Str("endpoint", url).Msg("Bug report endpoint updated")
}

// Endpoint returns the current delivery endpoint.
func (s *Service) Endpoint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endpoint
}

// SendReport prunes to budget, assembles and clears the log history and
// makes exactly one delivery attempt. Cleared sessions stay cleared when
// delivery fails.
func (s *Service) SendReport(ctx context.Context, userText string) error {
	if !s.isReady() {
		return report.ErrNotInitialized
	}
	endpoint := s.Endpoint()
	if endpoint == "" {
		return report.ErrNoEndpoint
	}

	ctx = tracing.WithSessionID(ctx, s.sessionID)
	ctx = tracing.WithRequestID(ctx, tracing.NewRequestID())
	ctx, span := tracing.StartSpan(ctx, "rageshake", "rageshake.send_report")
	defer span.End()

	version := report.Unknown
	if s.opts.Version != nil {
		v, err := s.opts.Version.AppVersion(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to get app version")
		} else if v != "" {
			version = v
		}
	}

	if s.pruner != nil {
		if _, err := s.pruner.Prune(ctx, s.opts.MaxLogBytes, false); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to prune before report")
		}
	}

	// Keeps the periodic flush from appending between read and clear.
	s.flushMu.Lock()
	entries := s.assembler.Assemble(ctx, true)
	s.flushMu.Unlock()

	payload := report.NewPayload(entries, userText, version, s.opts.UserAgent)
	err := s.sender.Send(ctx, endpoint, payload)
	observability.RecordReport(payload.LogBytes(), err == nil)
	if err != nil {
		return tracing.FailSpan(span, err)
	}
	return nil
}

// Sessions lists persisted sessions newest first with their sizes.
func (s *Service) Sessions(ctx context.Context) ([]logstore.SessionInfo, error) {
	if !s.isReady() {
		return nil, report.ErrNotInitialized
	}
	if s.store == nil {
		return nil, logstore.ErrStoreUnavailable
	}
	return s.store.Sessions(ctx)
}

// Persistent reports whether a durable store is in use.
func (s *Service) Persistent() bool {
	return s.isReady() && s.store != nil
}

// Console returns the capturing console, or nil before Init.
func (s *Service) Console() *capture.Console {
	if !s.isReady() {
		return nil
	}
	return s.console
}

// Writer returns a zerolog writer that records into the session buffer.
// It is usable before Init so the host logger can be built first.
func (s *Service) Writer() *capture.Writer {
	return s.writer
}

// SessionID returns the current session's identifier.
func (s *Service) SessionID() string {
	return s.sessionID
}

// Close stops the flush schedule, persists what is buffered and closes
// the store. Safe to call more than once.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed || !s.ready {
		s.closed = true
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.scheduler != nil {
		<-s.scheduler.Stop().Done()
	}

	var errs []error
	if err := s.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	s.ready = false
	s.mu.Unlock()
	return errors.Join(errs...)
}

func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}
