package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/harun/rageshake/internal/config"
	"github.com/harun/rageshake/internal/logger"
	"github.com/harun/rageshake/pkg/capture"
	"github.com/harun/rageshake/pkg/logstore"
	"github.com/harun/rageshake/pkg/rageshake"
	"github.com/harun/rageshake/pkg/report"
)

// app is the per-invocation wiring of config, logger and service.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	service *rageshake.Service
}

type appOptions struct {
	// console receives echoed console lines.
	console io.Writer
	// stderr receives the process log.
	stderr io.Writer
	// cleanup overrides cleanup_on_init when set.
	cleanup *bool
	// inspect leaves the process log out of the session buffer, so
	// commands that only look at the store do not add a session to it.
	inspect bool
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	compression, err := logstore.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}

	buffer := capture.NewBuffer()
	logCfg := logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		Output:    opts.stderr,
	}
	if !opts.inspect {
		logCfg.Capture = capture.NewWriter(buffer)
	}
	lg, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cleanupOnInit := cfg.CleanupOnInit
	if opts.cleanup != nil {
		cleanupOnInit = *opts.cleanup
	}

	svcOpts := rageshake.Options{
		DBPath:        cfg.DBPath,
		Compression:   compression,
		FlushInterval: cfg.FlushInterval,
		MaxLogBytes:   cfg.MaxLogBytes,
		Endpoint:      cfg.Endpoint,
		Version:       report.StaticVersion(cfg.AppVersion),
		UserAgent:     report.DefaultUserAgent(rootCmd.Name(), version),
		Buffer:        buffer,
		CleanupOnInit: cleanupOnInit,
		Logger:        lg.GetZerolog(),
	}
	if opts.console != nil {
		svcOpts.Surface = capture.WriterSurface(opts.console)
	}
	if r := lg.Redactor(); r != nil {
		svcOpts.Redact = r.Redact
	}

	svc := rageshake.New(svcOpts)
	if err := svc.Init(ctx); err != nil {
		lg.Close()
		return nil, fmt.Errorf("failed to initialize capture: %w", err)
	}

	return &app{cfg: cfg, log: lg, service: svc}, nil
}

func (a *app) close(ctx context.Context) error {
	err := a.service.Close(ctx)
	if cerr := a.log.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
