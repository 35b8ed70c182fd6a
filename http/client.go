// Package http provides the outbound HTTP operations used to discover and
// validate icons: document fetches, existence probes, ranged peeks and
// bounded body fetches.
//
// Every operation takes a context and applies the client's per-call timeout
// on top of it. Headers forwarded from the inbound request (see
// [WithForwardedHeaders]) are added to each outbound request; the
// per-call User-Agent always takes precedence.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds each outbound call when no timeout is configured.
	DefaultTimeout = 5 * time.Second
	// DefaultBodyLimit caps bodies read by Get when no limit is given.
	DefaultBodyLimit = 10 << 20
)

// ErrTooLarge is returned when a response body exceeds the caller's limit.
var ErrTooLarge = errors.New("http: response body too large")

// Client performs outbound requests for icon discovery and validation.
type Client struct {
	client  *nethttp.Client
	headers nethttp.Header
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithHeaders sets additional headers on each request.
func WithHeaders(headers nethttp.Header) Option {
	return func(c *Client) {
		if headers == nil {
			return
		}
		c.headers = headers.Clone()
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(nethttp.Header)
		}
		c.headers.Set(key, value)
	}
}

// WithTimeout sets the per-call timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a Client. Without [WithClient] a pooled client from
// [PooledClient] is used.
func New(opts ...Option) *Client {
	c := &Client{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = PooledClient(0)
	}
	return c
}

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Response is a fully read outbound response.
type Response struct {
	// StatusCode is the final HTTP status.
	StatusCode int
	// RequestURL is the URL that was requested.
	RequestURL string
	// URL is the final URL after redirects.
	URL string
	// Header holds the final response headers.
	Header nethttp.Header
	// Body holds the (possibly truncated) body. It is empty for HEAD.
	Body []byte

	length int64
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Redirected reports whether the final URL differs from the requested one.
func (r *Response) Redirected() bool {
	return r.URL != r.RequestURL
}

// ContentType returns the Content-Type header, or "" when absent.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// ContentLength returns the declared body length, or -1 when unknown.
func (r *Response) ContentLength() int64 {
	if r.length != 0 {
		return r.length
	}
	v := r.Header.Get("Content-Length")
	if v == "" {
		return -1
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// Head issues a HEAD request. The body is never read.
func (c *Client) Head(ctx context.Context, url, userAgent string) (*Response, error) {
	return c.do(ctx, nethttp.MethodHead, url, userAgent, nil, 0, false)
}

// Peek fetches at most n leading bytes of url using a Range request.
// Servers that ignore the Range header are tolerated; the body is truncated
// to n bytes either way.
func (c *Client) Peek(ctx context.Context, url, userAgent string, n int64) (*Response, error) {
	if n <= 0 {
		return nil, fmt.Errorf("peek %d bytes: non-positive length", n)
	}
	header := nethttp.Header{}
	header.Set("Range", fmt.Sprintf("bytes=0-%d", n-1))
	return c.do(ctx, nethttp.MethodGet, url, userAgent, header, n, false)
}

// Get fetches url and reads up to limit bytes of the body. A body longer
// than limit fails with [ErrTooLarge]. Non-positive limits use
// [DefaultBodyLimit].
func (c *Client) Get(ctx context.Context, url, userAgent string, limit int64) (*Response, error) {
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	return c.do(ctx, nethttp.MethodGet, url, userAgent, nil, limit, true)
}

// GetPrefix fetches url and reads at most limit bytes of the body. Longer
// bodies are truncated rather than rejected, which suits documents whose
// interesting part comes first.
func (c *Client) GetPrefix(ctx context.Context, url, userAgent string, limit int64) (*Response, error) {
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	return c.do(ctx, nethttp.MethodGet, url, userAgent, nil, limit, false)
}

func (c *Client) do(ctx context.Context, method, url, userAgent string, extra nethttp.Header, limit int64, strict bool) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, method, url, userAgent)
	if err != nil {
		return nil, err
	}
	for key, values := range extra {
		req.Header[key] = values
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
	}()

	out := &Response{
		StatusCode: resp.StatusCode,
		RequestURL: req.URL.String(),
		URL:        resp.Request.URL.String(),
		Header:     resp.Header,
		length:     resp.ContentLength,
	}
	if method == nethttp.MethodHead {
		return out, nil
	}

	read := limit
	if strict {
		read = limit + 1
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, read))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if strict && int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes from %s", ErrTooLarge, limit, url)
	}
	out.Body = body
	return out, nil
}

func (c *Client) newRequest(ctx context.Context, method, url, userAgent string) (*nethttp.Request, error) {
	req, err := nethttp.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range ForwardedHeaders(ctx) {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	for key, values := range c.headers {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return req, nil
}

// PooledClient returns an HTTP client with connection pooling and bounded
// handshake and header timeouts. A positive timeout also bounds each request
// end to end.
func PooledClient(timeout time.Duration) *nethttp.Client {
	return &nethttp.Client{
		Timeout: timeout,
		Transport: &nethttp.Transport{
			Proxy:                 nethttp.ProxyFromEnvironment,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   4,
			ForceAttemptHTTP2:     true,
		},
		CheckRedirect: func(req *nethttp.Request, via []*nethttp.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
}
