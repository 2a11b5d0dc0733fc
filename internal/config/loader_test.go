package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/config.json", loader.configPath)
	assert.Equal(t, "/path/to/config.json", loader.GetConfigPath())
}

func TestLoaderLoad(t *testing.T) {
	t.Run("load default config when file doesn't exist", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "nonexistent.json")

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, "zstd", cfg.Compression)
		assert.Equal(t, 30*time.Second, cfg.FlushInterval)
		assert.NotEmpty(t, cfg.DataDir)
		assert.Equal(t, filepath.Join(cfg.DataDir, "logs.db"), cfg.DBPath)
	})

	t.Run("load config from file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")

		testConfig := `{
			"data_dir": "` + tmpDir + `",
			"endpoint": "https://rageshake.example.org/api/submit",
			"flush_interval": "5s",
			"max_log_bytes": 1048576,
			"compression": "lz4",
			"cleanup_on_init": false,
			"logging": {
				"level": "debug"
			}
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, "https://rageshake.example.org/api/submit", cfg.Endpoint)
		assert.Equal(t, 5*time.Second, cfg.FlushInterval)
		assert.Equal(t, int64(1048576), cfg.MaxLogBytes)
		assert.Equal(t, "lz4", cfg.Compression)
		assert.False(t, cfg.CleanupOnInit)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.True(t, cfg.Logging.Redaction, "unset nested keys keep their defaults")
		assert.Equal(t, filepath.Join(tmpDir, "logs.db"), cfg.DBPath)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")
		require.NoError(t, os.WriteFile(configPath, []byte(`{"endpoint": "http://file.example.org/submit"}`), 0644))

		t.Setenv("RAGESHAKE_ENDPOINT", "http://env.example.org/submit")
		t.Setenv("RAGESHAKE_LOGGING_LEVEL", "warn")

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, "http://env.example.org/submit", cfg.Endpoint)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")
		require.NoError(t, os.WriteFile(configPath, []byte("{invalid json}"), 0644))

		_, err := NewLoader(configPath).Load()
		assert.Error(t, err)
	})
}

func TestLoaderSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.json")

	cfg := DefaultConfig()
	cfg.DataDir = tmpDir
	cfg.Endpoint = "http://localhost:9110/api/submit"
	cfg.FlushInterval = 10 * time.Second
	cfg.Compression = "none"

	loader := NewLoader(configPath)
	require.NoError(t, loader.Save(cfg))

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.Endpoint, loaded.Endpoint)
	assert.Equal(t, 10*time.Second, loaded.FlushInterval)
	assert.Equal(t, "none", loaded.Compression)
	assert.Equal(t, cfg.MaxLogBytes, loaded.MaxLogBytes)
}

func TestLoaderWatch(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"endpoint": "http://one.example.org/submit"}`), 0644))

	changes := make(chan *Config, 16)
	require.NoError(t, NewLoader(configPath).Watch(func(cfg *Config) {
		changes <- cfg
	}))

	require.NoError(t, os.WriteFile(configPath, []byte(`{"endpoint": "http://two.example.org/submit"}`), 0644))

	// A single write can surface as several events.
	timeout := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			if cfg.Endpoint == "http://two.example.org/submit" {
				return
			}
		case <-timeout:
			t.Fatal("config change was not observed")
		}
	}
}

func TestLoaderWatch_MissingFile(t *testing.T) {
	err := NewLoader(filepath.Join(t.TempDir(), "missing.json")).Watch(func(*Config) {})
	assert.Error(t, err)
}
