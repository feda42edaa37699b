package cache

import (
	"sort"
	"sync"
	"time"
)

// entry is one stored record: an opaque payload plus the absolute
// instant after which it is no longer valid. The cache stores the
// value as given; it does not copy it.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is an in-memory key/value store with per-entry TTL expiry and
// glob-pattern bulk invalidation. It is safe for concurrent use by
// multiple goroutines.
//
// Expiry is lazy: Get and Has evict an expired entry when they touch
// it, and Cleanup sweeps the whole store. Nothing else removes stale
// entries, so callers writing keys that are never read back should
// arrange for Cleanup to run periodically.
//
// The cache does not deduplicate concurrent fetches for the same key;
// two callers that both miss may both fetch and both Set, last write
// winning.
type Cache[V any] struct {
	mu         sync.RWMutex
	entries    map[string]entry[V]
	defaultTTL time.Duration
	now        func() time.Time // swapped out in tests
}

// New creates an empty cache whose Set uses defaultTTL.
func New[V any](defaultTTL time.Duration) *Cache[V] {
	return &Cache[V]{
		entries:    make(map[string]entry[V]),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Set stores value under key with the cache's default TTL, replacing
// any previous entry wholesale, expiry included.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores value under key, expiring ttl from now. A zero or
// negative ttl is accepted and yields an entry that is stale on
// arrival; it remains visible to Stats until read or swept.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Get returns the value stored under key if present and not expired.
// An expired entry is removed as a side effect of the lookup.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Has reports whether key holds a live entry, with the same lazy
// eviction side effect as Get.
func (c *Cache[V]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes the entry for key and reports whether one existed.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	return ok
}

// Invalidate removes every key matching pattern and returns the count
// removed. The pattern is a glob anchored at both ends: '*' matches
// any run of characters, '?' matches exactly one, everything else is
// literal. Expiry is not consulted; a matching stale entry is removed
// and counted like any other.
func (c *Cache[V]) Invalidate(pattern string) int {
	re := compileGlob(pattern)
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k := range c.entries {
		if re.MatchString(k) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Clear empties the store and returns the prior entry count, stale
// entries included.
func (c *Cache[V]) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]entry[V])
	return n
}

// Cleanup removes every expired entry and returns the count removed.
// Intended for an external periodic driver; the cache never schedules
// background work of its own.
func (c *Cache[V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Stats is a point-in-time diagnostic snapshot of the store.
type Stats struct {
	TotalEntries   int      `json:"totalEntries"`
	ValidEntries   int      `json:"validEntries"`
	ExpiredEntries int      `json:"expiredEntries"`
	Keys           []string `json:"keys"`
}

// Stats reports entry counts and the full key list without mutating
// the store. Expired-but-unswept entries are counted, not evicted, so
// the numbers reflect what the cache actually holds in memory.
func (c *Cache[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	st := Stats{Keys: make([]string, 0, len(c.entries))}
	for k, e := range c.entries {
		st.TotalEntries++
		if now.After(e.expiresAt) {
			st.ExpiredEntries++
		} else {
			st.ValidEntries++
		}
		st.Keys = append(st.Keys, k)
	}
	sort.Strings(st.Keys)
	return st
}
