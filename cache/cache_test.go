package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	shortTTL = 40 * time.Millisecond
	waitFor  = 2 * time.Second
	tick     = 5 * time.Millisecond
)

func TestKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.com", Key("example.com", 0, false))
	assert.Equal(t, "example.com:64", Key("example.com", 64, false))
	assert.Equal(t, "example.com:json", Key("example.com", 0, true))
	assert.Equal(t, "example.com:64:json", Key("example.com", 64, true))
	assert.NotEqual(t, Key("example.com", 0, false), Key("example.com", 0, true))
}

func TestInsertGet(t *testing.T) {
	t.Parallel()

	c := New()
	e := c.Insert("k", []byte("icon"), "image/png", "")
	assert.Equal(t, ETag([]byte("icon")), e.ETag)

	got, stale, ok := c.Get("k")
	require.True(t, ok)
	assert.False(t, stale)
	assert.Same(t, e, got)
	assert.Equal(t, int64(2), got.Accesses(), "insert counts once, the hit once more")

	_, _, _ = c.Get("k")
	assert.Equal(t, int64(3), got.Accesses())

	_, _, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestETag(t *testing.T) {
	t.Parallel()

	etag := ETag([]byte("hello"))
	assert.Equal(t, `"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"`, etag)
	assert.Equal(t, etag, ETag([]byte("hello")))
	assert.NotEqual(t, etag, ETag([]byte("hello!")))

	e := NewEntry([]byte("x"), "image/png", `"custom"`)
	assert.Equal(t, `"custom"`, e.ETag)
}

func TestNewEntryCountsInsert(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(1), NewEntry([]byte("x"), "image/png", "").Accesses())
}

func TestStaleHitsDoNotCount(t *testing.T) {
	t.Parallel()

	c := New()
	e := NewEntry([]byte("old"), "image/png", "")
	c.MoveToExpired("k", e)

	for range 3 {
		got, stale, ok := c.Get("k")
		require.True(t, ok)
		require.True(t, stale)
		require.Same(t, e, got)
	}
	assert.Equal(t, int64(1), e.Accesses())
}

func TestNegative(t *testing.T) {
	t.Parallel()

	c := New(WithTTL(2 * shortTTL))

	c.InsertNegative("bad")
	assert.True(t, c.IsNegative("bad"))
	_, _, ok := c.Get("bad")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Stats().Negative)

	require.Eventually(t, func() bool {
		return !c.IsNegative("bad")
	}, waitFor, tick, "negative marks last half the main ttl")
}

func TestNegativeHidesEntriesUntilInsert(t *testing.T) {
	t.Parallel()

	c := New()
	c.MoveToExpired("k", NewEntry([]byte("old"), "image/png", ""))
	c.InsertNegative("k")

	_, _, ok := c.Get("k")
	assert.False(t, ok)

	c.Insert("k", []byte("new"), "image/png", "")
	assert.False(t, c.IsNegative("k"))

	e, stale, ok := c.Get("k")
	require.True(t, ok)
	assert.False(t, stale)
	assert.Equal(t, "new", string(e.Content))
}

func TestMainExpiryMovesToExpired(t *testing.T) {
	t.Parallel()

	c := New(WithTTL(shortTTL))
	c.Insert("k", []byte("icon"), "image/png", "")

	var (
		e     *Entry
		stale bool
	)
	require.Eventually(t, func() bool {
		var ok bool
		e, stale, ok = c.Get("k")
		return ok && stale
	}, waitFor, tick)
	assert.Equal(t, "icon", string(e.Content))
	assert.Equal(t, Stats{Main: 0, Expired: 1, Negative: 0}, c.Stats())

	c.Insert("k", []byte("fresh"), "image/png", "")
	c.RemoveFromExpired("k")
	e, stale, ok := c.Get("k")
	require.True(t, ok)
	assert.False(t, stale)
	assert.Equal(t, "fresh", string(e.Content))
	assert.Equal(t, Stats{Main: 1, Expired: 0, Negative: 0}, c.Stats())
}

func TestCapacityEvictionMovesToExpired(t *testing.T) {
	t.Parallel()

	c := New(WithCapacity(2))
	c.Insert("a", []byte("a"), "image/png", "")
	c.Insert("b", []byte("b"), "image/png", "")

	// Reading a makes b the least recently used.
	_, _, _ = c.Get("a")
	c.Insert("c", []byte("c"), "image/png", "")

	require.Eventually(t, func() bool {
		_, stale, ok := c.Get("b")
		return ok && stale
	}, waitFor, tick)

	_, stale, ok := c.Get("a")
	require.True(t, ok)
	assert.False(t, stale)
}

func TestRemoveFromExpiredDoesNotDemote(t *testing.T) {
	t.Parallel()

	c := New()
	c.MoveToExpired("k", NewEntry([]byte("old"), "image/png", ""))
	c.RemoveFromExpired("k")
	c.Insert("k", []byte("a"), "image/png", "")
	c.Insert("k", []byte("b"), "image/png", "")

	e, stale, ok := c.Get("k")
	require.True(t, ok)
	assert.False(t, stale)
	assert.Equal(t, "b", string(e.Content))

	// Overwrites never reach the eviction listener.
	time.Sleep(4 * tick)
	assert.Zero(t, c.Stats().Expired)
}

func TestSweep(t *testing.T) {
	t.Parallel()

	c := New(WithTTL(shortTTL))
	c.Insert("a", []byte("a"), "image/png", "")
	c.Insert("b", []byte("b"), "image/png", "")
	c.InsertNegative("n")

	require.Eventually(t, func() bool {
		c.Sweep()
		return c.Stats() == Stats{Main: 0, Expired: 2, Negative: 0}
	}, waitFor, tick)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := New(WithCapacity(8))
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := Key("example.com", i%4, i%2 == 0)
			for range 100 {
				c.Insert(key, []byte("x"), "image/png", "")
				_, _, _ = c.Get(key)
				c.InsertNegative(key + ":n")
				c.Sweep()
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Stats().Main, 8)
}
