package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/harun/rageshake/pkg/logstore"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var sessionsFormat string

// sessionRow is the machine-readable form of one listed session.
type sessionRow struct {
	ID      string `json:"id" yaml:"id"`
	Started string `json:"started,omitempty" yaml:"started,omitempty"`
	Chunks  int    `json:"chunks" yaml:"chunks"`
	Bytes   int64  `json:"bytes" yaml:"bytes"`
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored log sessions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().StringVarP(&sessionsFormat, "format", "o", "table", "output format (table, json, yaml)")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	skip := false
	a, err := newApp(ctx, appOptions{stderr: cmd.ErrOrStderr(), cleanup: &skip, inspect: true})
	if err != nil {
		return err
	}
	defer a.close(ctx)

	infos, err := a.service.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	rows := make([]sessionRow, 0, len(infos))
	for _, info := range infos {
		row := sessionRow{ID: info.ID, Chunks: info.Chunks, Bytes: info.Bytes}
		if ms, ok := logstore.SessionTime(info.ID); ok {
			row.Started = time.UnixMilli(ms).UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}

	out := cmd.OutOrStdout()
	switch sessionsFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(rows)
	case "table", "":
		return printSessionTable(out, rows, a.cfg.MaxLogBytes)
	default:
		return fmt.Errorf("invalid format %q (must be one of: table, json, yaml)", sessionsFormat)
	}
}

func printSessionTable(out io.Writer, rows []sessionRow, budget int64) error {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No stored sessions")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSTARTED\tCHUNKS\tBYTES")
	var total int64
	for _, row := range rows {
		started := row.Started
		if started == "" {
			started = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", row.ID, started, row.Chunks, row.Bytes)
		total += row.Bytes
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d sessions, %d bytes (budget %d)\n", len(rows), total, budget)
	return nil
}
