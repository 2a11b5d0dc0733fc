package config

import (
	"encoding/json"
	"errors"
	"time"
)

// Config represents the rageshake configuration
type Config struct {
	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// SQLite file holding persisted log sessions
	DBPath string `json:"db_path" mapstructure:"db_path"`

	// Collector URL bug reports are posted to
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`

	FlushInterval time.Duration `json:"flush_interval" mapstructure:"flush_interval"`
	MaxLogBytes   int64         `json:"max_log_bytes" mapstructure:"max_log_bytes"`
	Compression   string        `json:"compression" mapstructure:"compression"` // none, lz4, zstd

	AppVersion    string `json:"app_version" mapstructure:"app_version"`
	CleanupOnInit bool   `json:"cleanup_on_init" mapstructure:"cleanup_on_init"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		FlushInterval: 30 * time.Second,
		MaxLogBytes:   50 << 20,
		Compression:   "zstd",
		CleanupOnInit: true,
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Redaction: true,
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	return errors.Join(NewValidator().ValidateConfig(c)...)
}
