package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateEndpoint validates a collector URL. Empty is allowed; reports
// then fail until an endpoint is set.
func (v *Validator) ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid endpoint %q: scheme must be http or https", endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: host is required", endpoint)
	}
	return nil
}

// ValidateCompression validates a chunk compression name
func (v *Validator) ValidateCompression(name string) error {
	validNames := []string{"none", "lz4", "zstd"}
	for _, valid := range validNames {
		if strings.ToLower(name) == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid compression: %s (must be one of: %s)", name, strings.Join(validNames, ", "))
}

// ValidateFlushInterval validates the flush period
func (v *Validator) ValidateFlushInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("flush_interval must be positive, got %s", interval)
	}
	if interval < time.Second {
		return fmt.Errorf("flush_interval must be at least 1s, got %s", interval)
	}
	return nil
}

// ValidateMaxLogBytes validates the retention budget
func (v *Validator) ValidateMaxLogBytes(n int64) error {
	if n <= 0 {
		return fmt.Errorf("max_log_bytes must be positive, got %d", n)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidateEndpoint(cfg.Endpoint); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateCompression(cfg.Compression); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateFlushInterval(cfg.FlushInterval); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateMaxLogBytes(cfg.MaxLogBytes); err != nil {
		errors = append(errors, err)
	}

	// Validate logging
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
