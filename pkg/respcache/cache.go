package respcache

import (
	"sync"
	"time"

	"github.com/nestquant/nestquant/internal/observability"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxEntries caps the number of live entries.
	DefaultMaxEntries = 50
	// DefaultMaxValueLen caps stored value length in bytes.
	DefaultMaxValueLen = 1500
	// DefaultTTL is the maximum age before an entry is treated as expired.
	DefaultTTL = 30 * time.Minute

	// maxKeyLen bounds the memory consumed by key storage. Two long keys
	// sharing the same 30-byte prefix collide and overwrite one another;
	// this is a deliberate space trade-off, not a bug.
	maxKeyLen = 30
)

// Config holds cache bounds, fixed at construction. Zero fields take the
// package defaults.
type Config struct {
	MaxEntries  int
	MaxValueLen int
	TTL         time.Duration
}

// entry is a cached value with its last-touch timestamp.
type entry struct {
	value     string
	touchedAt time.Time
}

// Cache is a capacity- and TTL-bounded key/value store with
// least-recently-used eviction. All operations are O(1) or O(entries)
// and in-memory; a single mutex guards every mutation.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	// order tracks usage from least to most recently touched. Ties on
	// equal timestamps break by position: first registered, first evicted.
	order []string

	maxEntries  int
	maxValueLen int
	ttl         time.Duration

	now func() time.Time
}

// New creates a cache with the given bounds.
func New(cfg Config) *Cache {
	observability.EnsureRegistered()

	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.MaxValueLen <= 0 {
		cfg.MaxValueLen = DefaultMaxValueLen
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	return &Cache{
		entries:     make(map[string]*entry),
		order:       make([]string, 0, cfg.MaxEntries),
		maxEntries:  cfg.MaxEntries,
		maxValueLen: cfg.MaxValueLen,
		ttl:         cfg.TTL,
		now:         time.Now,
	}
}

// Set stores value under key, truncating both to their bounds, and marks
// the key most-recently-used. When the insertion would push the cache
// past MaxEntries, the least-recently-used entry is evicted and its key
// returned with evicted=true. Oversized keys and values are shortened
// silently; a key sharing a truncated prefix overwrites the colliding
// entry.
func (c *Cache) Set(key, value string) (evictedKey string, evicted bool) {
	key = truncate(key, maxKeyLen)
	value = truncate(value, c.maxValueLen)

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		existing.value = value
		existing.touchedAt = c.now()
		c.touchLocked(key)
		return "", false
	}

	if len(c.entries) >= c.maxEntries {
		evictedKey = c.order[0]
		c.order = c.order[1:]
		delete(c.entries, evictedKey)
		evicted = true

		observability.RecordCacheEviction()
		log.Debug().Str("key", evictedKey).Msg("Cache entry evicted")
	}

	c.entries[key] = &entry{value: value, touchedAt: c.now()}
	c.order = append(c.order, key)

	observability.SetCacheEntries(len(c.entries))
	return evictedKey, evicted
}

// Get returns the value stored under key. Expiry is checked lazily: an
// entry older than the TTL is deleted and reported as a miss. A hit
// refreshes the entry's usage order and timestamp.
func (c *Cache) Get(key string) (string, bool) {
	key = truncate(key, maxKeyLen)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		observability.RecordCacheMiss()
		return "", false
	}

	if c.now().Sub(e.touchedAt) > c.ttl {
		c.removeLocked(key)
		observability.RecordCacheExpiries(1)
		observability.RecordCacheMiss()
		observability.SetCacheEntries(len(c.entries))
		return "", false
	}

	e.touchedAt = c.now()
	c.touchLocked(key)
	observability.RecordCacheHit()
	return e.value, true
}

// Cleanup eagerly removes every expired entry and returns the number
// removed. This is the only eviction path not triggered by Get/Set.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.touchedAt) > c.ttl {
			c.removeLocked(key)
			removed++
		}
	}

	if removed > 0 {
		observability.RecordCacheExpiries(removed)
		observability.SetCacheEntries(len(c.entries))
		log.Info().Int("removed", removed).Msg("Cache cleanup completed")
	}

	return removed
}

// Size returns the current number of live entries. No TTL check is
// performed; the count may include entries that would expire on access.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// touchLocked moves key to the most-recently-used end of the order.
func (c *Cache) touchLocked(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, key)
}

// removeLocked deletes key from the map and its usage-order bookkeeping.
func (c *Cache) removeLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
