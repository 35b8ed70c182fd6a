package http

import (
	"context"
	nethttp "net/http"
)

// ForwardableHeaders lists the inbound request headers copied onto outbound
// requests. Some sites serve different markup, or refuse service, depending
// on the client's browser hints.
var ForwardableHeaders = []string{
	"User-Agent",
	"Accept",
	"Accept-Language",
	"Sec-Ch-Ua",
	"Sec-Ch-Ua-Mobile",
	"Sec-Ch-Ua-Platform",
}

type forwardedKey struct{}

// WithForwardedHeaders returns a context carrying headers to add to every
// outbound request made with it.
func WithForwardedHeaders(ctx context.Context, header nethttp.Header) context.Context {
	if len(header) == 0 {
		return ctx
	}
	return context.WithValue(ctx, forwardedKey{}, header.Clone())
}

// ForwardedHeaders returns the headers attached by [WithForwardedHeaders].
func ForwardedHeaders(ctx context.Context) nethttp.Header {
	h, _ := ctx.Value(forwardedKey{}).(nethttp.Header)
	return h
}

// ForwardFrom extracts the [ForwardableHeaders] present on r.
func ForwardFrom(r *nethttp.Request) nethttp.Header {
	out := make(nethttp.Header)
	for _, name := range ForwardableHeaders {
		if v := r.Header.Get(name); v != "" {
			out.Set(name, v)
		}
	}
	return out
}
