// Package validate checks that icon candidates point at real images.
//
// [Validator] performs the cheap network check used while ranking
// candidates: a HEAD probe, and a ranged peek at the first bytes when the
// probe was redirected. [Content] is the deep check applied to fully fetched
// bytes before they are served.
package validate

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	iconhttp "github.com/meigma/geticon/http"
	"github.com/meigma/geticon/icon"
)

const (
	// DefaultTimeout bounds a single validation.
	DefaultTimeout = 5 * time.Second
	// DefaultConcurrency bounds parallel validations in ValidateAll.
	DefaultConcurrency = 8
	// PeekSize is the number of leading bytes inspected after a redirect.
	PeekSize = 512
)

// Validator probes icon URLs.
type Validator struct {
	client      *iconhttp.Client
	logger      *slog.Logger
	timeout     time.Duration
	concurrency int
}

// Option configures a Validator.
type Option func(*Validator)

// WithClient sets the outbound client.
func WithClient(c *iconhttp.Client) Option {
	return func(v *Validator) {
		v.client = c
	}
}

// WithLogger sets the logger for rejection diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// WithTimeout sets the overall budget for one validation.
func WithTimeout(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithConcurrency bounds the number of candidates validated in parallel.
func WithConcurrency(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

// New creates a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{
		timeout:     DefaultTimeout,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.client == nil {
		v.client = iconhttp.New(iconhttp.WithTimeout(v.timeout))
	}
	return v
}

func (v *Validator) log() *slog.Logger {
	if v.logger != nil {
		return v.logger
	}
	return slog.New(slog.DiscardHandler)
}

// Validate reports whether ic appears to reference an image. Network
// failures count as rejection.
func (v *Validator) Validate(ctx context.Context, ic icon.Icon) bool {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	ua := UserAgentFor(ic)
	resp, err := v.client.Head(ctx, ic.URL, ua)
	if err != nil {
		v.reject(ic, "probe failed", "error", err.Error())
		return false
	}
	if !resp.OK() {
		v.reject(ic, "bad status", "status", resp.StatusCode)
		return false
	}

	ct := resp.ContentType()
	if resp.Redirected() {
		if ct != "" && !IsImageContentType(ct) {
			v.reject(ic, "redirected to non-image", "content_type", ct)
			return false
		}
		if !v.peek(ctx, ic, resp.URL, ua) {
			return false
		}
	} else if ct != "" && !IsImageContentType(ct) {
		v.reject(ic, "non-image content type", "content_type", ct)
		return false
	}
	if resp.ContentLength() == 0 {
		v.reject(ic, "empty content")
		return false
	}
	return true
}

func (v *Validator) peek(ctx context.Context, ic icon.Icon, url, ua string) bool {
	resp, err := v.client.Peek(ctx, url, ua, PeekSize)
	if err != nil {
		v.reject(ic, "peek failed", "error", err.Error())
		return false
	}
	switch {
	case len(resp.Body) == 0:
		v.reject(ic, "peek returned no bytes")
		return false
	case IsHTML(resp.Body):
		v.reject(ic, "redirect target is html", "final_url", url)
		return false
	case !HasImageSignature(resp.Body):
		v.reject(ic, "redirect target has no image signature", "final_url", url)
		return false
	}
	return true
}

func (v *Validator) reject(ic icon.Icon, reason string, attrs ...any) {
	args := append([]any{"url", ic.URL, "reason", reason}, attrs...)
	v.log().Debug("icon rejected", args...)
}

// ValidateAll validates icons concurrently and returns those that passed,
// in their input order.
func (v *Validator) ValidateAll(ctx context.Context, icons []icon.Icon) []icon.Icon {
	if len(icons) == 0 {
		return nil
	}
	ok := make([]bool, len(icons))

	var g errgroup.Group
	g.SetLimit(v.concurrency)
	for i, ic := range icons {
		g.Go(func() error {
			ok[i] = v.Validate(ctx, ic)
			return nil
		})
	}
	_ = g.Wait()

	valid := make([]icon.Icon, 0, len(icons))
	for i, ic := range icons {
		if ok[i] {
			valid = append(valid, ic)
		}
	}
	return valid
}

// UserAgentFor picks the User-Agent a browser of the icon's category would
// send: iOS Safari for Apple touch icons, Android Chrome for maskable icons
// and Windows Chrome otherwise.
func UserAgentFor(ic icon.Icon) string {
	url := strings.ToLower(ic.URL)
	purpose := strings.ToLower(ic.Purpose)
	switch {
	case strings.Contains(url, "apple-touch-icon") || strings.Contains(purpose, "apple-touch-icon"):
		return iconhttp.UserAgentIOS
	case strings.Contains(purpose, "maskable"):
		return iconhttp.UserAgentAndroid
	default:
		return iconhttp.UserAgentWindows
	}
}
