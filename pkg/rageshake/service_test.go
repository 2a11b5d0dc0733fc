package rageshake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/harun/rageshake/pkg/capture"
	"github.com/harun/rageshake/pkg/logstore"
	"github.com/harun/rageshake/pkg/report"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu       sync.Mutex
	status   int
	payloads []report.Payload
	server   *httptest.Server
}

func newCollector(t *testing.T, status int) *collector {
	t.Helper()
	c := &collector{status: status}
	c.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p report.Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		c.mu.Lock()
		c.payloads = append(c.payloads, p)
		status := c.status
		c.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(c.server.Close)
	return c
}

func (c *collector) received() []report.Payload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]report.Payload(nil), c.payloads...)
}

type failingVersion struct{}

func (failingVersion) AppVersion(ctx context.Context) (string, error) {
	return "", errors.New("version file missing")
}

func setupService(t *testing.T, opts Options) *Service {
	t.Helper()
	if opts.DBPath == "" {
		opts.DBPath = filepath.Join(t.TempDir(), "logs.db")
	}
	opts.Logger = zerolog.Nop()
	svc := New(opts)
	require.NoError(t, svc.Init(context.Background()))
	t.Cleanup(func() { svc.Close(context.Background()) })
	return svc
}

func TestService_InitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	svc := setupService(t, Options{
		SessionID: "instance-0000000000000001-a",
		Surface:   capture.WriterSurface(&out),
	})

	console := svc.Console()
	require.NoError(t, svc.Init(ctx))
	require.NoError(t, svc.Init(ctx))
	assert.Same(t, console, svc.Console())

	// One call, one printed line and one recorded line.
	console.Info("hello")
	assert.Equal(t, "hello\n", out.String())
	require.NoError(t, svc.Flush(ctx))

	infos, err := svc.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 2, infos[0].Chunks, "sentinel chunk plus one flush")
}

func TestService_SendReportErrors(t *testing.T) {
	ctx := context.Background()

	svc := New(Options{Endpoint: "http://127.0.0.1:1", Logger: zerolog.Nop()})
	assert.ErrorIs(t, svc.SendReport(ctx, "x"), report.ErrNotInitialized)
	assert.Nil(t, svc.Console())

	svc = setupService(t, Options{})
	assert.ErrorIs(t, svc.SendReport(ctx, "x"), report.ErrNoEndpoint)
}

func TestService_SendReportClearsHistory(t *testing.T) {
	ctx := context.Background()
	col := newCollector(t, http.StatusOK)
	svc := setupService(t, Options{
		SessionID: "instance-0000000000000002-b",
		Endpoint:  col.server.URL,
		Version:   report.StaticVersion("1.4.0"),
		UserAgent: "tests",
	})

	console := svc.Console()
	console.Warn("flushed line")
	require.NoError(t, svc.Flush(ctx))
	console.Error("buffered line")

	require.NoError(t, svc.SendReport(ctx, "sync broke"))

	payloads := col.received()
	require.Len(t, payloads, 1)
	first := payloads[0]
	assert.Equal(t, "sync broke", first.Text)
	assert.Equal(t, "1.4.0", first.Version)
	assert.Equal(t, "tests", first.UserAgent)
	require.Len(t, first.Logs, 1)
	assert.Equal(t, svc.SessionID(), first.Logs[0].ID)
	assert.Contains(t, first.Logs[0].Lines, "::: Log database was created.")
	assert.Contains(t, first.Logs[0].Lines, " W flushed line\n")
	assert.True(t, strings.HasSuffix(first.Logs[0].Lines, " E buffered line\n"))

	console.Info("after report")
	require.NoError(t, svc.Flush(ctx))
	require.NoError(t, svc.SendReport(ctx, ""))

	payloads = col.received()
	require.Len(t, payloads, 2)
	second := payloads[1]
	assert.Equal(t, "User did not supply any additional text.", second.Text)
	require.Len(t, second.Logs, 1)
	assert.NotContains(t, second.Logs[0].Lines, "flushed line")
	assert.NotContains(t, second.Logs[0].Lines, "buffered line")
	assert.Contains(t, second.Logs[0].Lines, " I after report\n")
}

func TestService_SendReportIncludesOtherSessions(t *testing.T) {
	ctx := context.Background()
	col := newCollector(t, http.StatusOK)
	dbPath := filepath.Join(t.TempDir(), "logs.db")

	other := New(Options{DBPath: dbPath, SessionID: "instance-0000000000000001-a", Logger: zerolog.Nop()})
	require.NoError(t, other.Init(ctx))
	other.Console().Info("from the older tab")
	require.NoError(t, other.Close(ctx))

	svc := setupService(t, Options{
		DBPath:    dbPath,
		SessionID: "instance-0000000000000005-b",
		Endpoint:  col.server.URL,
	})
	svc.Console().Info("from this tab")

	require.NoError(t, svc.SendReport(ctx, "two tabs"))

	payloads := col.received()
	require.Len(t, payloads, 1)
	logs := payloads[0].Logs
	require.Len(t, logs, 2)
	assert.Equal(t, "instance-0000000000000001-a", logs[0].ID)
	assert.Contains(t, logs[0].Lines, "from the older tab")
	assert.Equal(t, "instance-0000000000000005-b", logs[1].ID)
	assert.Contains(t, logs[1].Lines, "from this tab")
}

func TestService_FailedDeliveryStillClears(t *testing.T) {
	ctx := context.Background()
	col := newCollector(t, http.StatusInternalServerError)
	svc := setupService(t, Options{
		Endpoint: col.server.URL,
		Version:  failingVersion{},
	})

	svc.Console().Info("lost on failure")
	require.NoError(t, svc.Flush(ctx))

	err := svc.SendReport(ctx, "x")
	var de *report.DeliveryError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, http.StatusInternalServerError, de.Status)

	require.Len(t, col.received(), 1)
	assert.Equal(t, report.Unknown, col.received()[0].Version)

	infos, err := svc.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestService_MemoryOnly(t *testing.T) {
	ctx := context.Background()
	col := newCollector(t, http.StatusOK)

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	svc := setupService(t, Options{
		DBPath:    filepath.Join(blocker, "logs.db"),
		SessionID: "instance-0000000000000003-c",
		Endpoint:  col.server.URL,
	})
	assert.False(t, svc.Persistent())

	svc.Console().Info("kept in memory")
	require.NoError(t, svc.Flush(ctx))
	require.NoError(t, svc.Cleanup(ctx))

	_, err := svc.Sessions(ctx)
	assert.ErrorIs(t, err, logstore.ErrStoreUnavailable)

	require.NoError(t, svc.SendReport(ctx, "no storage"))
	payloads := col.received()
	require.Len(t, payloads, 1)
	require.Len(t, payloads[0].Logs, 1)
	assert.Equal(t, "instance-0000000000000003-c", payloads[0].Logs[0].ID)
	assert.Contains(t, payloads[0].Logs[0].Lines, " I kept in memory\n")
}

func TestService_SetEndpoint(t *testing.T) {
	ctx := context.Background()
	col := newCollector(t, http.StatusOK)
	svc := setupService(t, Options{})

	svc.SetEndpoint(col.server.URL)
	assert.Equal(t, col.server.URL, svc.Endpoint())
	require.NoError(t, svc.SendReport(ctx, "late endpoint"))
	assert.Len(t, col.received(), 1)
}

func TestService_CleanupKeepsCurrentSession(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "logs.db")

	old := New(Options{DBPath: dbPath, SessionID: "instance-0000000000000001-a", Logger: zerolog.Nop()})
	require.NoError(t, old.Init(ctx))
	old.Console().Info(strings.Repeat("x", 2048))
	require.NoError(t, old.Close(ctx))

	svc := setupService(t, Options{
		DBPath:      dbPath,
		SessionID:   "instance-0000000000000009-b",
		MaxLogBytes: 1024,
	})
	svc.Console().Info(strings.Repeat("y", 2048))
	require.NoError(t, svc.Flush(ctx))
	require.NoError(t, svc.Cleanup(ctx))

	infos, err := svc.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "instance-0000000000000009-b", infos[0].ID)
}

func TestService_CleanupOnInit(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "logs.db")

	old := New(Options{DBPath: dbPath, SessionID: "instance-0000000000000001-a", Logger: zerolog.Nop()})
	require.NoError(t, old.Init(ctx))
	old.Console().Info(strings.Repeat("x", 4096))
	require.NoError(t, old.Close(ctx))

	svc := setupService(t, Options{
		DBPath:        dbPath,
		SessionID:     "instance-0000000000000009-b",
		MaxLogBytes:   1024,
		CleanupOnInit: true,
	})

	// The current session has not flushed yet, so only the old one was sized.
	infos, err := svc.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestService_WriterFeedsBuffer(t *testing.T) {
	ctx := context.Background()
	col := newCollector(t, http.StatusOK)
	svc := New(Options{Endpoint: col.server.URL, Logger: zerolog.Nop()})

	logger := zerolog.New(svc.Writer())
	logger.Warn().Msg("before init")

	require.NoError(t, svc.Init(ctx))
	defer svc.Close(ctx)
	require.NoError(t, svc.SendReport(ctx, "writer"))

	payloads := col.received()
	require.Len(t, payloads, 1)
	assert.Contains(t, payloads[0].Logs[0].Lines, "before init")
}

func TestService_CloseFlushesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "logs.db")

	svc := New(Options{DBPath: dbPath, SessionID: "instance-0000000000000004-d", Logger: zerolog.Nop()})
	require.NoError(t, svc.Init(ctx))
	svc.Console().Info("persisted on close")
	require.NoError(t, svc.Close(ctx))
	require.NoError(t, svc.Close(ctx))
	assert.ErrorIs(t, svc.SendReport(ctx, "x"), report.ErrNotInitialized)

	store, err := logstore.Open(ctx, logstore.Config{Path: dbPath})
	require.NoError(t, err)
	defer store.Close()

	text, err := store.ReadSession(ctx, "instance-0000000000000004-d")
	require.NoError(t, err)
	assert.Contains(t, text, " I persisted on close\n")
}

func TestService_InitAfterCloseIsRefused(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "logs.db")

	svc := New(Options{DBPath: dbPath, Logger: zerolog.Nop()})
	require.NoError(t, svc.Close(ctx))

	assert.ErrorIs(t, svc.Init(ctx), ErrClosed)
	assert.False(t, svc.Persistent())
	assert.Nil(t, svc.Console())
	require.NoError(t, svc.Close(ctx))

	_, err := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err))
}
