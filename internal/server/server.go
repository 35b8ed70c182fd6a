// Package server is the HTTP front door of the icon service.
package server

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/meigma/geticon"
	"github.com/meigma/geticon/cache"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "geticon"

// Metadata documents smaller than this are sent uncompressed.
const minGzipSize = 256

//go:embed index.html
var indexPage []byte

// Resolver produces icon responses. *geticon.Service implements it.
type Resolver interface {
	Image(ctx context.Context, raw string, size int) (*geticon.Response, error)
	Metadata(ctx context.Context, raw string, size int) (*geticon.Response, error)
	Stats() cache.Stats
}

// Server routes HTTP requests to a Resolver.
type Server struct {
	resolver Resolver
	logger   *slog.Logger
	handler  http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server backed by resolver.
func New(resolver Resolver, opts ...Option) (*Server, error) {
	s := &Server{resolver: resolver}
	for _, opt := range opts {
		opt(s)
	}

	gzip, err := gzhttp.NewWrapper(gzhttp.MinSize(minGzipSize))
	if err != nil {
		return nil, fmt.Errorf("server: gzip wrapper: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.home)
	mux.HandleFunc("GET /img", s.image)
	mux.Handle("GET /json", gzip(http.HandlerFunc(s.metadata)))
	mux.HandleFunc("GET /health", s.health)

	s.handler = chain(mux, s.recoverPanic, s.logRequests)
	return s, nil
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.New(slog.DiscardHandler)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// NewHTTPServer wraps handler in an http.Server with conservative timeouts.
// The write timeout leaves room for a full discovery plus byte fetch.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
