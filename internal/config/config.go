// Package config loads the server configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// GETICON_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/meigma/geticon"
	"github.com/meigma/geticon/cache"
)

// PathEnv names the environment variable holding the config file path.
const PathEnv = "GETICON_CONFIG"

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("config: invalid")

// Config is the complete server configuration.
type Config struct {
	Listen    string    `yaml:"listen" env:"GETICON_LISTEN"`
	Cache     Cache     `yaml:"cache"`
	Fetch     Fetch     `yaml:"fetch"`
	Log       Log       `yaml:"log"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Cache sizes the response cache.
type Cache struct {
	Capacity      int           `yaml:"capacity" env:"GETICON_CACHE_CAPACITY"`
	TTL           time.Duration `yaml:"ttl" env:"GETICON_CACHE_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"GETICON_CACHE_SWEEP_INTERVAL"`
}

// Fetch bounds outbound work per request.
type Fetch struct {
	ProbeTimeout   time.Duration `yaml:"probe_timeout" env:"GETICON_PROBE_TIMEOUT"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout" env:"GETICON_FETCH_TIMEOUT"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout" env:"GETICON_REFRESH_TIMEOUT"`
	ValidateTopK   int           `yaml:"validate_top_k" env:"GETICON_VALIDATE_TOP_K"`
	MaxIconSize    int64         `yaml:"max_icon_size" env:"GETICON_MAX_ICON_SIZE"`
}

// Log selects the log handler.
type Log struct {
	Level  string `yaml:"level" env:"GETICON_LOG_LEVEL"`
	Format string `yaml:"format" env:"GETICON_LOG_FORMAT"`
}

// Telemetry configures trace export. An empty endpoint disables it.
type Telemetry struct {
	Endpoint string `yaml:"otlp_endpoint" env:"GETICON_OTLP_ENDPOINT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen: "127.0.0.1:8080",
		Cache: Cache{
			Capacity:      cache.DefaultCapacity,
			TTL:           cache.DefaultTTL,
			SweepInterval: time.Minute,
		},
		Fetch: Fetch{
			ProbeTimeout:   geticon.DefaultProbeTimeout,
			FetchTimeout:   geticon.DefaultFetchTimeout,
			RefreshTimeout: geticon.DefaultRefreshTimeout,
			ValidateTopK:   geticon.DefaultValidateTopK,
			MaxIconSize:    geticon.DefaultMaxIconSize,
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. path may be empty, in which case the file
// named by GETICON_CONFIG is read if set.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Listen) == "":
		return fmt.Errorf("%w: listen address is empty", ErrInvalid)
	case c.Cache.Capacity <= 0:
		return fmt.Errorf("%w: cache capacity must be positive", ErrInvalid)
	case c.Cache.TTL <= 0:
		return fmt.Errorf("%w: cache ttl must be positive", ErrInvalid)
	case c.Cache.SweepInterval <= 0:
		return fmt.Errorf("%w: cache sweep interval must be positive", ErrInvalid)
	case c.Fetch.ProbeTimeout <= 0, c.Fetch.FetchTimeout <= 0, c.Fetch.RefreshTimeout <= 0:
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalid)
	case c.Fetch.ValidateTopK <= 0:
		return fmt.Errorf("%w: validate_top_k must be positive", ErrInvalid)
	case c.Fetch.MaxIconSize <= 0:
		return fmt.Errorf("%w: max_icon_size must be positive", ErrInvalid)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// SlogLevel parses Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, l.Level)
	}
	return level, nil
}

// Handler builds a slog handler writing to w in the configured format.
func (l Log) Handler(w io.Writer) (slog.Handler, error) {
	level, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.NewJSONHandler(w, opts), nil
	}
	return slog.NewTextHandler(w, opts), nil
}
