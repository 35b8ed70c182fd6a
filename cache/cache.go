// Package cache provides the three-tier response cache.
//
// Main holds fresh entries, Expired keeps entries that aged out of Main so
// they can still be served while a refresh runs, and Negative remembers keys
// whose lookup failed so they are not retried on every request. Each tier is
// an independent bounded ttlcache with its own expiry.
//
// Entries leave Main for Expired whenever Main evicts them through expiry or
// capacity pressure. Eviction listeners run on their own goroutines, so the
// move lands shortly after the eviction rather than within it. Expiry is
// detected lazily on access and proactively by [Cache.Sweep], which
// [Cache.Run] calls periodically.
package cache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const (
	// DefaultCapacity is the default Main and Expired capacity.
	DefaultCapacity = 1000
	// DefaultTTL is the default Main time-to-live.
	DefaultTTL = time.Hour
	// ExpiredTTL is how long a stale entry remains servable.
	ExpiredTTL = 72 * time.Hour
)

// Cache is the three-tier cache. It is safe for concurrent use.
type Cache struct {
	capacity int
	ttl      time.Duration
	logger   *slog.Logger

	main     *ttlcache.Cache[string, *Entry]
	expired  *ttlcache.Cache[string, *Entry]
	negative *ttlcache.Cache[string, struct{}]
}

// Option configures a Cache.
type Option func(*Cache)

// WithCapacity sets the Main and Expired capacity. Negative holds half as
// many keys.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithTTL sets the Main time-to-live. Negative marks last ttl/2.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithLogger sets the logger for tier transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates a Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		capacity: DefaultCapacity,
		ttl:      DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.main = newTier[*Entry](c.capacity, c.ttl)
	c.expired = newTier[*Entry](c.capacity, ExpiredTTL)
	c.negative = newTier[struct{}](max(c.capacity/2, 1), c.ttl/2)

	c.main.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Entry]) {
		// Deleted only comes from explicit removal, which never demotes.
		if reason == ttlcache.EvictionReasonDeleted {
			return
		}
		c.MoveToExpired(item.Key(), item.Value())
	})
	return c
}

func newTier[V any](capacity int, ttl time.Duration) *ttlcache.Cache[string, V] {
	return ttlcache.New[string, V](
		ttlcache.WithCapacity[string, V](uint64(capacity)),
		ttlcache.WithTTL[string, V](max(ttl, time.Millisecond)),
		ttlcache.WithDisableTouchOnHit[string, V](),
	)
}

func (c *Cache) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.New(slog.DiscardHandler)
}

// Key builds the cache key for an origin, an optional requested size and
// the response representation.
func Key(origin string, size int, json bool) string {
	key := origin
	if size > 0 {
		key += ":" + strconv.Itoa(size)
	}
	if json {
		key += ":json"
	}
	return key
}

// Get looks key up. A negative mark hides every tier. A Main hit is fresh
// and increments the entry's access count; an Expired hit is stale and
// reported with needsRefresh set.
func (c *Cache) Get(key string) (entry *Entry, needsRefresh bool, ok bool) {
	if c.IsNegative(key) {
		return nil, false, false
	}
	if item := c.main.Get(key); item != nil {
		e := item.Value()
		e.touch()
		return e, false, true
	}
	// A miss may be an expired Main entry still waiting to be demoted.
	c.main.DeleteExpired()
	if item := c.expired.Get(key); item != nil {
		return item.Value(), true, true
	}
	return nil, false, false
}

// Insert stores content in Main and clears any negative mark for key. An
// empty etag is derived from the content.
func (c *Cache) Insert(key string, content []byte, contentType, etag string) *Entry {
	e := NewEntry(content, contentType, etag)
	c.main.Set(key, e, ttlcache.DefaultTTL)
	c.negative.Delete(key)
	return e
}

// MoveToExpired stores entry in Expired.
func (c *Cache) MoveToExpired(key string, entry *Entry) {
	if entry == nil {
		return
	}
	c.expired.Set(key, entry, ttlcache.DefaultTTL)
	c.log().Debug("cache entry moved to expired", "key", key)
}

// RemoveFromExpired drops key from Expired.
func (c *Cache) RemoveFromExpired(key string) {
	c.expired.Delete(key)
}

// InsertNegative marks key as a failed lookup.
func (c *Cache) InsertNegative(key string) {
	c.negative.Set(key, struct{}{}, ttlcache.DefaultTTL)
}

// IsNegative reports whether key carries a live negative mark.
func (c *Cache) IsNegative(key string) bool {
	return c.negative.Get(key) != nil
}

// Stats reports per-tier entry counts.
type Stats struct {
	Main     int `json:"main_cache"`
	Expired  int `json:"expired_cache"`
	Negative int `json:"negative_cache"`
}

// Stats returns the current number of unexpired entries in each tier.
func (c *Cache) Stats() Stats {
	return Stats{
		Main:     c.main.Len(),
		Expired:  c.expired.Len(),
		Negative: c.negative.Len(),
	}
}

// Sweep drops expired entries from every tier. Expired Main entries are
// handed to Expired by the eviction listener.
func (c *Cache) Sweep() {
	c.main.DeleteExpired()
	c.expired.DeleteExpired()
	c.negative.DeleteExpired()
	stats := c.Stats()
	c.log().Debug("cache swept",
		"main", stats.Main,
		"expired", stats.Expired,
		"negative", stats.Negative,
	)
}

// Run sweeps every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}
