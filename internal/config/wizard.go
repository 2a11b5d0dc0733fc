package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a new configuration wizard on stdin/stdout
func NewWizard() *Wizard {
	return NewWizardIO(os.Stdin, os.Stdout)
}

// NewWizardIO creates a wizard reading answers from in
func NewWizardIO(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run runs the interactive configuration wizard, starting from base
func (w *Wizard) Run(base *Config) (*Config, error) {
	fmt.Fprintln(w.out, "=== Rageshake Configuration Wizard ===")
	fmt.Fprintln(w.out)

	cfg := DefaultConfig()
	if base != nil {
		copied := *base
		cfg = &copied
	}
	validator := NewValidator()

	// Endpoint
	for {
		fmt.Fprintf(w.out, "Bug report endpoint [%s]: ", cfg.Endpoint)
		endpoint, err := w.readLine()
		if err != nil {
			return nil, err
		}
		if endpoint == "" {
			break
		}
		if err := validator.ValidateEndpoint(endpoint); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Endpoint = endpoint
		break
	}

	fmt.Fprintf(w.out, "Application version [%s]: ", cfg.AppVersion)
	version, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if version != "" {
		cfg.AppVersion = version
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Storage:")

	fmt.Fprintf(w.out, "Compression (none/lz4/zstd) [%s]: ", cfg.Compression)
	compression, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if compression != "" {
		if err := validator.ValidateCompression(compression); err != nil {
			fmt.Fprintf(w.out, "Warning: %v, keeping %s\n", err, cfg.Compression)
		} else {
			cfg.Compression = strings.ToLower(compression)
		}
	}

	fmt.Fprintf(w.out, "Log budget in MiB [%d]: ", cfg.MaxLogBytes>>20)
	budget, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if budget != "" {
		mib, err := strconv.ParseInt(budget, 10, 64)
		if err != nil || mib <= 0 {
			fmt.Fprintf(w.out, "Warning: invalid budget %q, keeping %d MiB\n", budget, cfg.MaxLogBytes>>20)
		} else {
			cfg.MaxLogBytes = mib << 20
		}
	}

	fmt.Fprintln(w.out)

	// Log Level
	fmt.Fprintln(w.out, "Logging:")
	fmt.Fprintf(w.out, "Log level (debug/info/warn/error) [%s]: ", cfg.Logging.Level)
	level, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if level != "" {
		if err := validator.ValidateLogLevel(level); err != nil {
			fmt.Fprintf(w.out, "Warning: %v, keeping %s\n", err, cfg.Logging.Level)
		} else {
			cfg.Logging.Level = level
		}
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return cfg, nil
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
