package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

// Resource is a canned response served by a Site.
type Resource struct {
	Status      int
	ContentType string
	Body        []byte
	// Redirect, when set, answers with a 302 to this path or URL.
	Redirect string
}

// Site is an httptest server answering from a path table. Unknown paths
// return 404. Safe for concurrent use.
type Site struct {
	*httptest.Server

	mu        sync.RWMutex
	resources map[string]Resource
	gates     map[string]chan struct{}
	hits      sync.Map
	requests  atomic.Int64
	lastUA    atomic.Value
	noHead    atomic.Bool
}

// NewSite starts a Site and registers its shutdown with tb.
func NewSite(tb testing.TB) *Site {
	tb.Helper()
	s := &Site{
		resources: make(map[string]Resource),
		gates:     make(map[string]chan struct{}),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	tb.Cleanup(s.Close)
	return s
}

// Handle registers a resource at path.
func (s *Site) Handle(path string, r Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Status == 0 {
		r.Status = http.StatusOK
	}
	s.resources[path] = r
}

// Remove unregisters the resource at path.
func (s *Site) Remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resources, path)
}

// Block holds requests for path until the returned release function is
// called or the request is canceled. release is idempotent.
func (s *Site) Block(path string) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[path] = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

// RejectHead makes every HEAD request fail with 405, as some CDNs do.
func (s *Site) RejectHead() {
	s.noHead.Store(true)
}

// Host returns the server's host:port.
func (s *Site) Host() string {
	u, _ := url.Parse(s.URL)
	return u.Host
}

// Hits returns how many requests path has received.
func (s *Site) Hits(path string) int64 {
	v, ok := s.hits.Load(path)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

// Requests returns the total request count.
func (s *Site) Requests() int64 {
	return s.requests.Load()
}

// LastUserAgent returns the User-Agent of the most recent request.
func (s *Site) LastUserAgent() string {
	v, _ := s.lastUA.Load().(string)
	return v
}

func (s *Site) serve(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	s.lastUA.Store(r.Header.Get("User-Agent"))
	counter, _ := s.hits.LoadOrStore(r.URL.Path, new(atomic.Int64))
	counter.(*atomic.Int64).Add(1)

	if r.Method == http.MethodHead && s.noHead.Load() {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	res, ok := s.resources[r.URL.Path]
	gate := s.gates[r.URL.Path]
	s.mu.RUnlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	if res.Redirect != "" {
		http.Redirect(w, r, res.Redirect, http.StatusFound)
		return
	}
	if res.ContentType != "" {
		w.Header().Set("Content-Type", res.ContentType)
	} else {
		// Suppress content sniffing so the response carries no type.
		w.Header()["Content-Type"] = nil
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Body)))
	w.WriteHeader(res.Status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(res.Body)
	}
}
