package geticon

import (
	"errors"
	"log/slog"
	nethttp "net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/meigma/geticon/cache"
)

// Option configures a Service.
type Option func(*Service) error

// Defaults for the pipeline and its network budgets.
const (
	DefaultValidateTopK   = 5
	DefaultProbeTimeout   = 5 * time.Second
	DefaultFetchTimeout   = 10 * time.Second
	DefaultRefreshTimeout = 30 * time.Second
	DefaultMaxIconSize    = 5 << 20 // 5 MB
)

// WithCache sets the response cache. Without it a cache with default
// capacity and TTL is created.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) error {
		if c == nil {
			return errors.New("cache is nil")
		}
		s.cache = c
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for every outbound request.
// Per-call timeouts are still applied on top of the client's own.
func WithHTTPClient(c *nethttp.Client) Option {
	return func(s *Service) error {
		if c == nil {
			return errors.New("http client is nil")
		}
		s.httpClient = c
		return nil
	}
}

// WithLogger sets the logger for the service and its components.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		s.logger = logger
		return nil
	}
}

// WithTracerProvider sets the provider for the service's spans. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) error {
		if tp == nil {
			return errors.New("tracer provider is nil")
		}
		s.tracerProvider = tp
		return nil
	}
}

// WithPlainHTTP resolves origins over plain HTTP instead of HTTPS.
// This is useful for local development and tests.
func WithPlainHTTP(enabled bool) Option {
	return func(s *Service) error {
		s.plainHTTP = enabled
		return nil
	}
}

// WithValidateTopK sets how many of the highest ranked candidates are probed
// before falling back to the common path table.
func WithValidateTopK(n int) Option {
	return func(s *Service) error {
		if n <= 0 {
			return errors.New("validate top-k must be positive")
		}
		s.topK = n
		return nil
	}
}

// WithProbeTimeout bounds each discovery fetch and each candidate probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(s *Service) error {
		if d <= 0 {
			return errors.New("probe timeout must be positive")
		}
		s.probeTimeout = d
		return nil
	}
}

// WithFetchTimeout bounds the download of the selected icon.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) error {
		if d <= 0 {
			return errors.New("fetch timeout must be positive")
		}
		s.fetchTimeout = d
		return nil
	}
}

// WithRefreshTimeout bounds a whole background refresh.
func WithRefreshTimeout(d time.Duration) Option {
	return func(s *Service) error {
		if d <= 0 {
			return errors.New("refresh timeout must be positive")
		}
		s.refreshTimeout = d
		return nil
	}
}

// WithMaxIconSize caps the size of a fetched icon. Larger icons are treated
// as unusable.
func WithMaxIconSize(n int64) Option {
	return func(s *Service) error {
		if n <= 0 {
			return errors.New("max icon size must be positive")
		}
		s.maxIconSize = n
		return nil
	}
}
