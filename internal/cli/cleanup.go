package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Prune stored sessions to the configured budget",
	Long: `Delete the oldest stored sessions once their combined size exceeds
max_log_bytes. The session started by this command is never removed.`,
	Args: cobra.NoArgs,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
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

	if !a.service.Persistent() {
		return fmt.Errorf("log store unavailable at %s", a.cfg.DBPath)
	}

	before, err := a.service.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if err := a.service.Cleanup(ctx); err != nil {
		return err
	}
	after, err := a.service.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d of %d sessions\n", len(before)-len(after), len(before))
	return nil
}
