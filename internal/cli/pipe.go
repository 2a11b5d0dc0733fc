package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/harun/rageshake/internal/config"
	"github.com/harun/rageshake/internal/observability"
	"github.com/harun/rageshake/pkg/capture"
	"github.com/spf13/cobra"
)

var (
	pipeLevel       string
	pipeMetricsAddr string
	pipeWatch       bool
	pipeReport      string
)

var pipeCmd = &cobra.Command{
	Use:   "pipe",
	Short: "Capture lines from stdin into the log store",
	Long: `Read lines from stdin, echo them to stdout and record each one in the
current session. Buffered lines are flushed to the log store periodically
and once more when the input ends.`,
	Args: cobra.NoArgs,
	RunE: runPipe,
}

func init() {
	pipeCmd.Flags().StringVar(&pipeLevel, "level", "info", "severity for captured lines (log, info, warn, error)")
	pipeCmd.Flags().StringVar(&pipeMetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while piping")
	pipeCmd.Flags().BoolVar(&pipeWatch, "watch", false, "apply endpoint changes from the config file while running")
	pipeCmd.Flags().StringVar(&pipeReport, "report", "", "send a bug report with this text when the input ends")
	rootCmd.AddCommand(pipeCmd)
}

func consoleFunc(console *capture.Console, level string) (capture.LogFunc, error) {
	switch level {
	case "log":
		return console.Log, nil
	case "info":
		return console.Info, nil
	case "warn":
		return console.Warn, nil
	case "error":
		return console.Error, nil
	default:
		return nil, fmt.Errorf("invalid level %q (must be one of: log, info, warn, error)", level)
	}
}

func runPipe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{
		console: cmd.OutOrStdout(),
		stderr:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	emit, err := consoleFunc(a.service.Console(), pipeLevel)
	if err != nil {
		return err
	}

	if pipeMetricsAddr != "" {
		srv := &http.Server{
			Addr:              pipeMetricsAddr,
			Handler:           metricsMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error().Err(err).Str("addr", pipeMetricsAddr).Msg("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if pipeWatch {
		loader := config.NewLoader(cfgFile)
		if err := loader.Watch(func(cfg *config.Config) {
			if cfg.Endpoint != a.service.Endpoint() {
				a.service.SetEndpoint(cfg.Endpoint)
			}
		}); err != nil {
			a.log.Warn().Err(err).Msg("Config watch unavailable")
		}
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	count := 0
loop:
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			emit(line)
			count++
		case <-ctx.Done():
			break loop
		}
	}

	select {
	case err := <-scanErr:
		if err != nil {
			a.log.Error().Err(err).Msg("Failed to read input")
		}
	default:
	}

	a.log.Debug().Int("lines", count).Msg("Input finished")

	if pipeReport != "" {
		if err := a.service.SendReport(context.Background(), pipeReport); err != nil {
			return fmt.Errorf("failed to send bug report: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Bug report sent")
	}
	return nil
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	return mux
}
