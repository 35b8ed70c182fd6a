package geticon

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/meigma/geticon/discover"
	iconhttp "github.com/meigma/geticon/http"
	"github.com/meigma/geticon/icon"
	"github.com/meigma/geticon/validate"
)

// Candidates is the outcome of the discovery pipeline for one site.
type Candidates struct {
	// Origin is the normalized origin.
	Origin string
	// Icons holds the candidates, highest score first.
	Icons []icon.Icon
	// Validated is false when no candidate passed validation and Icons is
	// the unvalidated ranked list, kept so a direct fetch can still be tried.
	Validated bool
}

// Icons runs the discovery pipeline for the site raw refers to, bypassing
// the cache.
func (s *Service) Icons(ctx context.Context, raw string) (*Candidates, error) {
	site, err := s.parse(raw)
	if err != nil {
		return nil, err
	}
	return s.candidates(ctx, site), nil
}

// candidates discovers and ranks icons, then validates only the top-K. When
// none of them validate, the common path table is probed instead.
func (s *Service) candidates(ctx context.Context, site target) *Candidates {
	ctx, span := s.tracer.Start(ctx, "geticon.candidates",
		trace.WithAttributes(attribute.String("geticon.origin", site.origin)))
	defer span.End()

	ranked := icon.Rank(s.discoverer.Discover(ctx, site.base))
	top := ranked[:min(len(ranked), s.topK)]

	if valid := s.validator.ValidateAll(ctx, top); len(valid) > 0 {
		span.SetAttributes(attribute.Int("geticon.validated", len(valid)))
		return &Candidates{Origin: site.origin, Icons: icon.Rank(valid), Validated: true}
	}

	s.log().Debug("top candidates failed validation, probing common paths",
		"origin", site.origin, "discovered", len(ranked))
	if valid := s.validator.ValidateAll(ctx, discover.CommonPaths(site.base)); len(valid) > 0 {
		span.SetAttributes(attribute.Int("geticon.validated", len(valid)))
		return &Candidates{Origin: site.origin, Icons: icon.Rank(valid), Validated: true}
	}

	span.SetAttributes(attribute.Int("geticon.validated", 0))
	return &Candidates{Origin: site.origin, Icons: ranked, Validated: false}
}

// maxDirectFetches bounds how many unvalidated candidates are downloaded
// before a site is given up on.
const maxDirectFetches = 3

// resolveImage selects the icon closest to size and downloads it. A
// validated candidate list gets a single fetch. An unvalidated list is tried
// best first and then in rank order, up to maxDirectFetches, stopping at the
// first network failure. validated reports which list was used.
func (s *Service) resolveImage(ctx context.Context, site target, size int) (content []byte, contentType string, validated bool, err error) {
	c := s.candidates(ctx, site)
	best, ok := icon.SelectBest(c.Icons, size)
	if !ok {
		return nil, "", c.Validated, fmt.Errorf("%w: %s", ErrNotFound, site.origin)
	}

	attempts := []icon.Icon{best}
	if !c.Validated {
		for _, ic := range c.Icons {
			if len(attempts) == maxDirectFetches {
				break
			}
			if ic.URL != best.URL {
				attempts = append(attempts, ic)
			}
		}
	}

	for _, ic := range attempts {
		content, contentType, err = s.fetchIcon(ctx, ic)
		if err == nil {
			s.log().Debug("icon fetched", "origin", site.origin, "icon", ic.URL, "bytes", len(content))
			return content, contentType, c.Validated, nil
		}
		s.log().Debug("icon fetch failed", "origin", site.origin, "icon", ic.URL, "error", err)
		if !errors.Is(err, ErrNotFound) {
			break
		}
	}
	return nil, "", c.Validated, err
}

// fetchIcon downloads ic and verifies the bytes are an image. Unusable
// responses wrap ErrNotFound; network failures wrap ErrTimeout,
// ErrConnection or ErrFetch.
func (s *Service) fetchIcon(ctx context.Context, ic icon.Icon) ([]byte, string, error) {
	ctx, span := s.tracer.Start(ctx, "geticon.fetch", trace.WithAttributes(
		attribute.String("geticon.icon.url", ic.URL),
		attribute.String("geticon.icon.type", ic.Type),
	))
	defer span.End()

	resp, err := s.fetcher.Get(ctx, ic.URL, validate.UserAgentFor(ic), s.maxIconSize)
	if err != nil {
		if errors.Is(err, iconhttp.ErrTooLarge) {
			return nil, "", recordError(span, fmt.Errorf("%w: %w", ErrNotFound, err))
		}
		return nil, "", recordError(span, classify(err))
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if !resp.OK() {
		return nil, "", recordError(span, fmt.Errorf("%w: %s returned status %d", ErrNotFound, ic.URL, resp.StatusCode))
	}
	ct := resp.ContentType()
	if ct != "" && !validate.IsImageContentType(ct) {
		return nil, "", recordError(span, fmt.Errorf("%w: %s served %q", ErrNotFound, resp.URL, ct))
	}
	if err := validate.CheckContent(resp.Body, ic.Type); err != nil {
		return nil, "", recordError(span, fmt.Errorf("%w: %s: %w", ErrNotFound, ic.URL, err))
	}

	contentType := ic.Type
	if ct != "" {
		contentType = validate.MediaType(ct)
	}
	return resp.Body, contentType, nil
}

func classify(err error) error {
	err = iconhttp.Classify(err)
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnection) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFetch, err)
}
