package geticon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/meigma/geticon/cache"
	"github.com/meigma/geticon/discover"
	iconhttp "github.com/meigma/geticon/http"
	"github.com/meigma/geticon/icon"
	"github.com/meigma/geticon/origin"
	"github.com/meigma/geticon/validate"
)

const tracerName = "github.com/meigma/geticon"

// Service resolves site references to icons. It is safe for concurrent use.
type Service struct {
	cache          *cache.Cache
	httpClient     *nethttp.Client
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	plainHTTP      bool
	topK           int
	probeTimeout   time.Duration
	fetchTimeout   time.Duration
	refreshTimeout time.Duration
	maxIconSize    int64

	tracer     trace.Tracer
	fetcher    *iconhttp.Client
	discoverer *discover.Discoverer
	validator  *validate.Validator

	refreshes singleflight.Group
	mu        sync.Mutex
	closed    bool
	pending   sync.WaitGroup
}

// New creates a Service with the given options.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		topK:           DefaultValidateTopK,
		probeTimeout:   DefaultProbeTimeout,
		fetchTimeout:   DefaultFetchTimeout,
		refreshTimeout: DefaultRefreshTimeout,
		maxIconSize:    DefaultMaxIconSize,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.httpClient == nil {
		s.httpClient = iconhttp.PooledClient(0)
	}
	if s.tracerProvider == nil {
		s.tracerProvider = otel.GetTracerProvider()
	}
	if s.cache == nil {
		s.cache = cache.New(cache.WithLogger(s.logger))
	}
	s.tracer = s.tracerProvider.Tracer(tracerName)

	probe := iconhttp.New(iconhttp.WithClient(s.httpClient), iconhttp.WithTimeout(s.probeTimeout))
	s.fetcher = iconhttp.New(iconhttp.WithClient(s.httpClient), iconhttp.WithTimeout(s.fetchTimeout))
	s.discoverer = discover.New(discover.WithClient(probe), discover.WithLogger(s.logger))
	s.validator = validate.New(
		validate.WithClient(probe),
		validate.WithTimeout(s.probeTimeout),
		validate.WithLogger(s.logger),
	)
	return s, nil
}

func (s *Service) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.New(slog.DiscardHandler)
}

// Cache returns the service's response cache.
func (s *Service) Cache() *cache.Cache {
	return s.cache
}

// Stats returns the cache tier sizes.
func (s *Service) Stats() cache.Stats {
	return s.cache.Stats()
}

// Close stops accepting background refreshes and waits for running ones.
func (s *Service) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.pending.Wait()
	return nil
}

// Source tells where a response came from.
type Source int

const (
	// SourceFetched marks a response resolved for this request.
	SourceFetched Source = iota
	// SourceCache marks a fresh cache hit.
	SourceCache
	// SourceStale marks an expired entry served while a refresh runs.
	SourceStale
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceStale:
		return "stale"
	default:
		return "fetched"
	}
}

// Response is a servable representation: icon bytes or metadata JSON.
type Response struct {
	Content     []byte
	ContentType string
	ETag        string
	Source      Source
}

func newResponse(e *cache.Entry, src Source) *Response {
	return &Response{Content: e.Content, ContentType: e.ContentType, ETag: e.ETag, Source: src}
}

// Result is the metadata document for a site.
type Result struct {
	URL      string      `json:"url"`
	Icons    []icon.Icon `json:"icons"`
	BestIcon *icon.Icon  `json:"bestIcon,omitempty"`
}

// Image returns the bytes of the best icon for the site raw refers to. A
// positive size selects the icon closest to that many pixels.
func (s *Service) Image(ctx context.Context, raw string, size int) (*Response, error) {
	site, err := s.parse(raw)
	if err != nil {
		return nil, err
	}
	key := cache.Key(site.origin, size, false)

	ctx, span := s.tracer.Start(ctx, "geticon.Image", trace.WithAttributes(
		attribute.String("geticon.origin", site.origin),
		attribute.Int("geticon.size", size),
	))
	defer span.End()

	if resp, ok := s.cached(ctx, key, span, func(ctx context.Context) error {
		return s.refreshImage(ctx, key, site, size)
	}); ok {
		return resp, nil
	}
	if s.cache.IsNegative(key) {
		span.SetAttributes(attribute.Bool("geticon.negative", true))
		return nil, fmt.Errorf("%w: %s (cached)", ErrNotFound, site.origin)
	}

	content, contentType, validated, err := s.resolveImage(ctx, site, size)
	if err != nil {
		if !validated && errors.Is(err, ErrNotFound) {
			s.cache.InsertNegative(key)
		}
		s.log().Warn("icon fetch failed", "origin", site.origin, "error", err)
		return nil, recordError(span, err)
	}

	e := s.cache.Insert(key, content, contentType, "")
	s.cache.RemoveFromExpired(key)
	return newResponse(e, SourceFetched), nil
}

// Metadata returns the JSON [Result] for the site raw refers to. Only
// validated candidates are reported.
func (s *Service) Metadata(ctx context.Context, raw string, size int) (*Response, error) {
	site, err := s.parse(raw)
	if err != nil {
		return nil, err
	}
	key := cache.Key(site.origin, size, true)

	ctx, span := s.tracer.Start(ctx, "geticon.Metadata", trace.WithAttributes(
		attribute.String("geticon.origin", site.origin),
		attribute.Int("geticon.size", size),
	))
	defer span.End()

	if resp, ok := s.cached(ctx, key, span, func(ctx context.Context) error {
		return s.refreshMetadata(ctx, key, site, size)
	}); ok {
		return resp, nil
	}
	if s.cache.IsNegative(key) {
		span.SetAttributes(attribute.Bool("geticon.negative", true))
		return nil, fmt.Errorf("%w: %s (cached)", ErrNotFound, site.origin)
	}

	doc, err := s.metadata(ctx, site, size)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.cache.InsertNegative(key)
		}
		return nil, recordError(span, err)
	}
	e := s.cache.Insert(key, doc, "application/json", "")
	s.cache.RemoveFromExpired(key)
	return newResponse(e, SourceFetched), nil
}

// cached serves key from the cache, scheduling refresh on a stale hit.
func (s *Service) cached(ctx context.Context, key string, span trace.Span, refresh func(context.Context) error) (*Response, bool) {
	e, stale, ok := s.cache.Get(key)
	if !ok {
		span.SetAttributes(attribute.String("geticon.source", SourceFetched.String()))
		return nil, false
	}
	if stale {
		span.SetAttributes(attribute.String("geticon.source", SourceStale.String()))
		s.refresh(ctx, key, refresh)
		return newResponse(e, SourceStale), true
	}
	span.SetAttributes(attribute.String("geticon.source", SourceCache.String()))
	return newResponse(e, SourceCache), true
}

func (s *Service) metadata(ctx context.Context, site target, size int) ([]byte, error) {
	c := s.candidates(ctx, site)
	if !c.Validated {
		return nil, fmt.Errorf("%w: no valid icons for %s", ErrNotFound, site.origin)
	}
	res := Result{URL: site.origin, Icons: c.Icons}
	if best, ok := icon.SelectBest(c.Icons, size); ok {
		res.BestIcon = &best
	}
	doc, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return doc, nil
}

// target is a normalized origin and the base URL discovery starts from.
type target struct {
	origin string
	base   *url.URL
}

func (s *Service) parse(raw string) (target, error) {
	normalized, err := origin.Normalize(raw)
	if err != nil {
		return target{}, err
	}
	base, err := origin.BaseURL(normalized)
	if err != nil {
		return target{}, err
	}
	if s.plainHTTP {
		base.Scheme = "http"
	}
	return target{origin: normalized, base: base}, nil
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
