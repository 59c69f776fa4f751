package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 12, cfg.Dashboard.PageSize)
	assert.Equal(t, 300*time.Millisecond, cfg.Dashboard.Debounce)
	assert.Equal(t, SourceRemote, cfg.Source.Kind)
	assert.Equal(t, "file", cfg.Counter.Backend)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	content := `
server:
  port: 9000
backend:
  url: http://library.internal:8080
  timeout: 5s
dashboard:
  page_size: 24
  debounce: 150ms
counter:
  backend: sqlite
  path: /var/lib/library/stats.db
refresh:
  interval: 1m
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "unset keys keep defaults")
	assert.Equal(t, "http://library.internal:8080", cfg.Backend.URL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 24, cfg.Dashboard.PageSize)
	assert.Equal(t, 150*time.Millisecond, cfg.Dashboard.Debounce)
	assert.Equal(t, "sqlite", cfg.Counter.Backend)
	assert.Equal(t, "/var/lib/library/stats.db", cfg.Counter.Path)
	assert.Equal(t, time.Minute, cfg.Refresh.Interval)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadFileFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0o644))
	t.Setenv(ConfigPathEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Server.Port)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0o644))

	t.Setenv("LIBRARY_SERVER__PORT", "9100")
	t.Setenv("LIBRARY_COUNTER__BACKEND", "redis")
	t.Setenv("LIBRARY_COUNTER__REDIS_PREFIX", "dash:")
	t.Setenv("LIBRARY_REDIS__ADDRESS", "redis:6379")
	t.Setenv("LIBRARY_DASHBOARD__SEARCH_TIMEOUT", "2s")
	t.Setenv("LIBRARY_SOURCE__WATCH", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "env wins over the file")
	assert.Equal(t, "redis", cfg.Counter.Backend)
	assert.Equal(t, "dash:", cfg.Counter.RedisPrefix)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
	assert.Equal(t, 2*time.Second, cfg.Dashboard.SearchTimeout)
	assert.True(t, cfg.Source.Watch)
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"bad page size", func(c *Config) { c.Dashboard.PageSize = 0 }, "page size"},
		{"missing backend url", func(c *Config) { c.Backend.URL = "" }, "backend url"},
		{"file source needs dir", func(c *Config) {
			c.Source.Kind = SourceFile
			c.Source.Dir = ""
		}, "source dir"},
		{"unknown source", func(c *Config) { c.Source.Kind = "ftp" }, "invalid source kind"},
		{"unknown counter", func(c *Config) { c.Counter.Backend = "mongo" }, "invalid counter backend"},
		{"sqlite needs path", func(c *Config) {
			c.Counter.Backend = "sqlite"
			c.Counter.Path = ""
		}, "counter path"},
		{"postgres needs dsn", func(c *Config) {
			c.Counter.Backend = "postgres"
			c.Database.DSN = ""
		}, "DSN"},
		{"memory needs nothing", func(c *Config) {
			c.Counter.Backend = "memory"
			c.Counter.Path = ""
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSlogLevelFallback(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "chatty"
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())

	cfg.Log.Level = "WARN"
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}
