package respcache

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) now() time.Time {
	return f.current
}

func (f *fakeClock) advance(d time.Duration) {
	f.current = f.current.Add(d)
}

func TestCache_SetGet(t *testing.T) {
	c := New(Config{})

	evictedKey, evicted := c.Set("listing:123", "3br/2ba, $450k")
	assert.False(t, evicted)
	assert.Empty(t, evictedKey)

	value, ok := c.Get("listing:123")
	assert.True(t, ok)
	assert.Equal(t, "3br/2ba, $450k", value)

	_, ok = c.Get("listing:999")
	assert.False(t, ok)
}

func TestCache_DefaultBounds(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, DefaultMaxEntries, c.maxEntries)
	assert.Equal(t, DefaultMaxValueLen, c.maxValueLen)
	assert.Equal(t, DefaultTTL, c.ttl)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(Config{MaxEntries: 5})

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("key-%d", i)
		evictedKey, evicted := c.Set(key, "value")
		if i < 5 {
			assert.False(t, evicted, "No eviction below capacity")
		} else {
			assert.True(t, evicted)
			assert.Equal(t, fmt.Sprintf("key-%d", i-5), evictedKey,
				"Oldest entry should be the victim")
		}
	}

	assert.Equal(t, 5, c.Size())
	for i := 0; i < 5; i++ {
		_, ok := c.Get(fmt.Sprintf("key-%d", i))
		assert.False(t, ok, "Evicted key should miss")
	}
	for i := 5; i < 10; i++ {
		_, ok := c.Get(fmt.Sprintf("key-%d", i))
		assert.True(t, ok, "Recent key should survive")
	}
}

func TestCache_GetRefreshesUsageOrder(t *testing.T) {
	c := New(Config{MaxEntries: 2})

	c.Set("a", "1")
	c.Set("b", "2")

	// Touch "a" so "b" becomes the least recently used.
	_, ok := c.Get("a")
	assert.True(t, ok)

	evictedKey, evicted := c.Set("c", "3")
	assert.True(t, evicted)
	assert.Equal(t, "b", evictedKey)

	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestCache_UpdateExistingKeyDoesNotEvict(t *testing.T) {
	c := New(Config{MaxEntries: 2})

	c.Set("a", "1")
	c.Set("b", "2")

	evictedKey, evicted := c.Set("a", "updated")
	assert.False(t, evicted)
	assert.Empty(t, evictedKey)

	value, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "updated", value)
	assert.Equal(t, 2, c.Size())
}

func TestCache_ValueTruncation(t *testing.T) {
	c := New(Config{MaxValueLen: 100})

	long := strings.Repeat("x", 500)
	c.Set("key", long)

	value, ok := c.Get("key")
	assert.True(t, ok)
	assert.Len(t, value, 100)
	assert.Equal(t, long[:100], value)
}

func TestCache_KeyTruncationCollision(t *testing.T) {
	c := New(Config{})

	prefix := strings.Repeat("p", maxKeyLen)
	c.Set(prefix+"-first", "first")
	c.Set(prefix+"-second", "second")

	// Both keys share a 30-byte prefix, so the second write overwrote
	// the first.
	assert.Equal(t, 1, c.Size())
	value, ok := c.Get(prefix + "-first")
	assert.True(t, ok)
	assert.Equal(t, "second", value)
}

func TestCache_LazyExpiry(t *testing.T) {
	clock := newFakeClock()
	c := New(Config{TTL: 10 * time.Minute})
	c.now = clock.now

	c.Set("stale", "value")

	clock.advance(5 * time.Minute)
	_, ok := c.Get("stale")
	assert.True(t, ok, "Entry within TTL should hit")

	clock.advance(11 * time.Minute)
	_, ok = c.Get("stale")
	assert.False(t, ok, "Expired entry should miss")
	assert.Equal(t, 0, c.Size(), "Expired entry should be deleted on access")
}

func TestCache_HitRefreshesTTL(t *testing.T) {
	clock := newFakeClock()
	c := New(Config{TTL: 10 * time.Minute})
	c.now = clock.now

	c.Set("key", "value")

	clock.advance(8 * time.Minute)
	_, ok := c.Get("key")
	assert.True(t, ok)

	// Another 8 minutes is past the original deadline but within the
	// refreshed one.
	clock.advance(8 * time.Minute)
	_, ok = c.Get("key")
	assert.True(t, ok)
}

func TestCache_Cleanup(t *testing.T) {
	clock := newFakeClock()
	c := New(Config{TTL: 10 * time.Minute})
	c.now = clock.now

	c.Set("old-1", "v")
	c.Set("old-2", "v")

	clock.advance(6 * time.Minute)
	c.Set("fresh", "v")

	clock.advance(6 * time.Minute)
	removed := c.Cleanup()

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Size())
	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestCache_CleanupEmpty(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, 0, c.Cleanup())
}

func TestCache_SizeIgnoresTTL(t *testing.T) {
	clock := newFakeClock()
	c := New(Config{TTL: time.Minute})
	c.now = clock.now

	c.Set("key", "value")
	clock.advance(time.Hour)

	assert.Equal(t, 1, c.Size(), "Size counts expired-but-unswept entries")
}
