package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/meigma/geticon"
	"github.com/meigma/geticon/cache"
	iconhttp "github.com/meigma/geticon/http"
)

// Cache lifetimes advertised to clients, in seconds.
const (
	maxAgeCached  = 7200
	maxAgeFetched = 3600
	maxAgeStale   = 600
)

func (s *Server) home(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexPage)
}

func (s *Server) image(w http.ResponseWriter, r *http.Request) {
	raw, size, ok := parseQuery(w, r)
	if !ok {
		return
	}
	ctx := iconhttp.WithForwardedHeaders(r.Context(), iconhttp.ForwardFrom(r))
	resp, err := s.resolver.Image(ctx, raw, size)
	if err != nil {
		s.fail(w, r, raw, err)
		return
	}

	maxAge := maxAgeFetched
	switch resp.Source {
	case geticon.SourceCache:
		maxAge = maxAgeCached
	case geticon.SourceStale:
		maxAge = maxAgeStale
	}
	writeResponse(w, r, resp, maxAge)
}

func (s *Server) metadata(w http.ResponseWriter, r *http.Request) {
	raw, size, ok := parseQuery(w, r)
	if !ok {
		return
	}
	ctx := iconhttp.WithForwardedHeaders(r.Context(), iconhttp.ForwardFrom(r))
	resp, err := s.resolver.Metadata(ctx, raw, size)
	if err != nil {
		s.fail(w, r, raw, err)
		return
	}

	maxAge := maxAgeFetched
	if resp.Source == geticon.SourceStale {
		maxAge = maxAgeStale
	}
	writeResponse(w, r, resp, maxAge)
}

type healthReport struct {
	Status     string      `json:"status"`
	Service    string      `json:"service"`
	CacheStats cache.Stats `json:"cache_stats"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthReport{
		Status:     "ok",
		Service:    ServiceName,
		CacheStats: s.resolver.Stats(),
	})
}

// parseQuery reads the url and size parameters. A missing url is answered
// with 400; a malformed or non-positive size is ignored.
func parseQuery(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	q := r.URL.Query()
	raw := strings.TrimSpace(q.Get("url"))
	if raw == "" {
		http.Error(w, "Missing url parameter", http.StatusBadRequest)
		return "", 0, false
	}
	size, err := strconv.Atoi(q.Get("size"))
	if err != nil || size < 0 {
		size = 0
	}
	return raw, size, true
}

func writeResponse(w http.ResponseWriter, r *http.Request, resp *geticon.Response, maxAge int) {
	h := w.Header()
	h.Set("Cache-Control", "public, max-age="+strconv.Itoa(maxAge))
	if resp.ETag != "" {
		h.Set("ETag", resp.ETag)
		if etagMatches(r.Header.Get("If-None-Match"), resp.ETag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	h.Set("Content-Type", resp.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(resp.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Content)
}

// etagMatches applies the weak comparison of RFC 9110 to an If-None-Match
// header value.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, geticon.ErrInvalidOrigin):
		return http.StatusBadRequest
	case errors.Is(err, geticon.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, geticon.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, geticon.ErrConnection):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, raw string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log().Warn("icon request failed", "path", r.URL.Path, "url", raw, "status", status, "error", err)
	} else {
		s.log().Debug("icon request rejected", "path", r.URL.Path, "url", raw, "status", status, "error", err)
	}

	msg := http.StatusText(status)
	switch status {
	case http.StatusBadRequest:
		msg = "Invalid url parameter"
	case http.StatusNotFound:
		msg = "No icon found"
	}
	http.Error(w, msg, status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
