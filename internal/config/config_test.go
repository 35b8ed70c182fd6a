package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "geticon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(PathEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
listen: ":9000"
cache:
  capacity: 50
  ttl: 30m
fetch:
  validate_top_k: 3
  fetch_timeout: 2s
log:
  level: debug
  format: json
telemetry:
  otlp_endpoint: http://collector:4318
`)
	t.Setenv(PathEnv, path)
	t.Setenv("GETICON_CACHE_CAPACITY", "75")
	t.Setenv("GETICON_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, 75, cfg.Cache.Capacity)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, time.Minute, cfg.Cache.SweepInterval)
	assert.Equal(t, 3, cfg.Fetch.ValidateTopK)
	assert.Equal(t, 2*time.Second, cfg.Fetch.FetchTimeout)
	assert.Equal(t, Default().Fetch.ProbeTimeout, cfg.Fetch.ProbeTimeout)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "http://collector:4318", cfg.Telemetry.Endpoint)
}

func TestLoadExplicitPathWins(t *testing.T) {
	t.Setenv(PathEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	path := writeFile(t, "listen: \":7000\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Listen)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv(PathEnv, "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "cache: [not, a, map]\n"))
	require.Error(t, err)

	t.Setenv("GETICON_CACHE_TTL", "soon")
	_, err = Load("")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"listen", func(c *Config) { c.Listen = " " }},
		{"capacity", func(c *Config) { c.Cache.Capacity = 0 }},
		{"ttl", func(c *Config) { c.Cache.TTL = 0 }},
		{"sweep", func(c *Config) { c.Cache.SweepInterval = -time.Second }},
		{"probe timeout", func(c *Config) { c.Fetch.ProbeTimeout = 0 }},
		{"top-k", func(c *Config) { c.Fetch.ValidateTopK = 0 }},
		{"icon size", func(c *Config) { c.Fetch.MaxIconSize = 0 }},
		{"level", func(c *Config) { c.Log.Level = "loud" }},
		{"format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
	require.NoError(t, Default().Validate())
}

func TestLogHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h, err := Log{Level: "debug", Format: "json"}.Handler(&buf)
	require.NoError(t, err)
	slog.New(h).Debug("hello", "key", "value")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	h, err = Log{Level: "warn", Format: "text"}.Handler(&buf)
	require.NoError(t, err)
	logger := slog.New(h)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}
