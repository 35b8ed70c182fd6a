// Package discover finds icon candidates for a site.
//
// Discovery is best effort: every source (well-known paths, the root
// document, manifests, browserconfig files and Open Graph tags) may fail
// independently without affecting the others. The result is deduplicated by
// candidate identity and ordered by source.
package discover

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"

	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"

	iconhttp "github.com/meigma/geticon/http"
	"github.com/meigma/geticon/icon"
)

const (
	// DefaultDocumentLimit caps how much of the root document is parsed.
	DefaultDocumentLimit = 2 << 20
	// DefaultManifestLimit caps manifest and browserconfig bodies.
	DefaultManifestLimit = 512 << 10
	// DefaultConcurrency bounds parallel manifest and browserconfig fetches.
	DefaultConcurrency = 4
)

var defaultManifests = []string{"/manifest.json", "/site.webmanifest"}

// Discoverer collects icon candidates from a site.
type Discoverer struct {
	client        *iconhttp.Client
	logger        *slog.Logger
	documentLimit int64
	manifestLimit int64
	concurrency   int
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithClient sets the outbound client.
func WithClient(c *iconhttp.Client) Option {
	return func(d *Discoverer) {
		d.client = c
	}
}

// WithLogger sets the logger used for per-source failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Discoverer) {
		d.logger = logger
	}
}

// WithDocumentLimit caps how many bytes of the root document are read.
func WithDocumentLimit(n int64) Option {
	return func(d *Discoverer) {
		if n > 0 {
			d.documentLimit = n
		}
	}
}

// WithManifestLimit caps manifest and browserconfig bodies.
func WithManifestLimit(n int64) Option {
	return func(d *Discoverer) {
		if n > 0 {
			d.manifestLimit = n
		}
	}
}

// WithConcurrency bounds parallel secondary fetches.
func WithConcurrency(n int) Option {
	return func(d *Discoverer) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// New creates a Discoverer.
func New(opts ...Option) *Discoverer {
	d := &Discoverer{
		documentLimit: DefaultDocumentLimit,
		manifestLimit: DefaultManifestLimit,
		concurrency:   DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.client == nil {
		d.client = iconhttp.New()
	}
	return d
}

func (d *Discoverer) log() *slog.Logger {
	if d.logger != nil {
		return d.logger
	}
	return slog.New(slog.DiscardHandler)
}

// Discover returns the icon candidates of the site rooted at base, without
// duplicates. It never fails; an unreachable site yields only the
// well-known static candidates.
func (d *Discoverer) Discover(ctx context.Context, base *url.URL) []icon.Icon {
	var set icon.Set
	set.AddAll(wellKnown(base))

	p := d.fetchPage(ctx, base)
	set.AddAll(p.icons)

	manifests := p.manifests
	if len(manifests) == 0 {
		for _, path := range defaultManifests {
			if u, ok := resolve(base, path); ok {
				manifests = append(manifests, u)
			}
		}
	}

	// Each fetch writes its own slot so the merge order is deterministic.
	manifestIcons := make([][]icon.Icon, len(manifests))
	tiles := make([][]icon.Icon, len(p.configs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, m := range manifests {
		g.Go(func() error {
			manifestIcons[i] = d.fetchManifest(gctx, m)
			return nil
		})
	}
	for i, c := range p.configs {
		g.Go(func() error {
			tiles[i] = d.fetchBrowserConfig(gctx, c, base)
			return nil
		})
	}
	_ = g.Wait()

	for _, icons := range manifestIcons {
		set.AddAll(icons)
	}
	for _, icons := range tiles {
		set.AddAll(icons)
	}
	for _, og := range p.ogImages {
		set.Add(icon.Icon{URL: og, Type: icon.TypeJPEG, Purpose: icon.PurposeOpenGraph})
	}

	d.log().Debug("discovered icons",
		"origin", base.String(),
		"count", set.Len(),
		"manifests", len(manifests),
		"browserconfigs", len(p.configs),
	)
	return set.Icons()
}

func wellKnown(base *url.URL) []icon.Icon {
	var icons []icon.Icon
	if u, ok := resolve(base, "/favicon.ico"); ok {
		icons = append(icons, icon.Icon{URL: u, Type: icon.TypeICO, Width: 16, Height: 16})
	}
	for _, path := range []string{"/apple-touch-icon.png", "/apple-touch-icon-precomposed.png"} {
		if u, ok := resolve(base, path); ok {
			icons = append(icons, icon.Icon{
				URL:     u,
				Type:    icon.TypePNG,
				Width:   180,
				Height:  180,
				Purpose: icon.PurposeAppleTouch,
			})
		}
	}
	return icons
}

func (d *Discoverer) fetchPage(ctx context.Context, base *url.URL) *page {
	resp, err := d.client.GetPrefix(ctx, base.String(), iconhttp.UserAgentDesktop, d.documentLimit)
	if err != nil {
		d.log().Debug("fetch document failed", "url", base.String(), "error", err.Error())
		return &page{}
	}
	if !resp.OK() {
		d.log().Debug("fetch document failed", "url", base.String(), "status", resp.StatusCode)
		return &page{}
	}

	r, err := charset.NewReader(bytes.NewReader(resp.Body), resp.ContentType())
	if err != nil {
		d.log().Debug("decode document failed", "url", base.String(), "error", err.Error())
		return &page{}
	}
	p, err := parsePage(r, base)
	if err != nil {
		d.log().Debug("parse document failed", "url", base.String(), "error", err.Error())
		return &page{}
	}
	return p
}

func (d *Discoverer) fetchManifest(ctx context.Context, manifestURL string) []icon.Icon {
	u, err := url.Parse(manifestURL)
	if err != nil {
		return nil
	}
	resp, err := d.client.Get(ctx, manifestURL, iconhttp.UserAgentMobile, d.manifestLimit)
	if err != nil {
		d.log().Debug("fetch manifest failed", "url", manifestURL, "error", err.Error())
		return nil
	}
	if !resp.OK() {
		d.log().Debug("fetch manifest failed", "url", manifestURL, "status", resp.StatusCode)
		return nil
	}
	icons, err := parseManifest(resp.Body, u)
	if err != nil {
		d.log().Debug("parse manifest failed", "url", manifestURL, "error", err.Error())
		return nil
	}
	return icons
}

func (d *Discoverer) fetchBrowserConfig(ctx context.Context, configURL string, base *url.URL) []icon.Icon {
	resp, err := d.client.Get(ctx, configURL, iconhttp.UserAgentWindows, d.manifestLimit)
	if err != nil {
		d.log().Debug("fetch browserconfig failed", "url", configURL, "error", err.Error())
		return nil
	}
	if !resp.OK() {
		d.log().Debug("fetch browserconfig failed", "url", configURL, "status", resp.StatusCode)
		return nil
	}
	tile, ok := parseBrowserConfig(resp.Body, base)
	if !ok {
		return nil
	}
	return []icon.Icon{tile}
}
