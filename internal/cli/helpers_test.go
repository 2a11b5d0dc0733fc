package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with args and stdin, returning what
// was written to stdout and stderr. Flag values from earlier runs are reset.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	cmd := GetRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// writeConfig writes a config file rooted in a fresh data directory.
func writeConfig(t *testing.T, overrides map[string]any) string {
	t.Helper()
	dir := t.TempDir()

	values := map[string]any{
		"data_dir": dir,
		"logging": map[string]any{
			"console": false,
		},
	}
	for k, v := range overrides {
		values[k] = v
	}

	data, err := json.Marshal(values)
	require.NoError(t, err)
	path := filepath.Join(dir, "rageshake.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}
