package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, 30*time.Second, cfg.FlushInterval)
	assert.Equal(t, int64(50<<20), cfg.MaxLogBytes)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.True(t, cfg.CleanupOnInit)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Console)
	assert.True(t, cfg.Logging.Redaction)
	assert.Empty(t, cfg.Endpoint)
}

func TestConfigValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})

	t.Run("valid endpoint", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Endpoint = "https://rageshake.example.org/api/submit"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bad endpoint scheme", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Endpoint = "ftp://example.org/submit"

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "scheme must be http or https")
	})

	t.Run("non-positive interval and budget", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.FlushInterval = 0
		cfg.MaxLogBytes = -1

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "flush_interval")
		assert.Contains(t, err.Error(), "max_log_bytes")
	})

	t.Run("unknown compression", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Compression = "brotli"

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid compression")
	})
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Endpoint = "http://localhost:9110/api/submit"

	s := cfg.String()
	assert.Contains(t, s, `"endpoint": "http://localhost:9110/api/submit"`)
	assert.Contains(t, s, `"compression": "zstd"`)
}
