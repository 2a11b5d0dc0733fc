package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	sendText     string
	sendEndpoint string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Submit the stored log history as a bug report",
	Long: `Assemble every stored session, oldest first, and post it to the
configured collector in a single attempt. Sent sessions are removed from
the log store even when delivery fails.`,
	Args: cobra.NoArgs,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVarP(&sendText, "text", "t", "", "description of the problem")
	sendCmd.Flags().StringVar(&sendEndpoint, "endpoint", "", "collector URL, overrides the config file")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, appOptions{stderr: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.close(ctx)

	if sendEndpoint != "" {
		a.service.SetEndpoint(sendEndpoint)
	}

	if err := a.service.SendReport(ctx, sendText); err != nil {
		return fmt.Errorf("failed to send bug report: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Bug report sent")
	return nil
}
