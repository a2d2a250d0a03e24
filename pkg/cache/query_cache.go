// Package cache provides the query layer's TTL+LRU result cache.
//
// Every cached entry may be tagged with the refnos it depends on, so a
// write to one PE can drop exactly the cached query results that read
// it (ClearByRefno) instead of flushing the whole cache.
//
// Features:
// - LRU eviction for bounded memory
// - TTL expiration for stale results
// - Thread-safe operations
// - Cache hit/miss statistics
// - Per-refno invalidation
package cache

import (
	"container/list"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pdmscore/graphcore/pkg/model"
)

// QueryCache is a thread-safe LRU cache for parsed query plans.
//
// The cache uses:
// - Hash map for O(1) lookups
// - Doubly-linked list for LRU ordering
// - TTL for automatic expiration
//
// Example:
//
//	cache := NewQueryCache(1000, 5*time.Minute)
//
//	// Try cache first
//	key := cache.Key(query, params)
//	if plan, ok := cache.Get(key); ok {
//		return plan.(*ParsedPlan)
//	}
//
//	// Parse and cache
//	plan := parseQuery(query)
//	cache.Put(key, plan)
type QueryCache struct {
	mu sync.RWMutex

	// Configuration
	maxSize int
	ttl     time.Duration
	enabled bool

	// LRU list and map
	list  *list.List
	items map[uint64]*list.Element

	// refnoIndex maps a refno to every cache key whose entry depends on
	// it, so ClearByRefno can find and drop them without scanning every
	// entry.
	refnoIndex map[model.Refno]map[uint64]struct{}

	// Statistics
	hits      uint64
	misses    uint64
	evictions uint64
}

// cacheEntry holds a cached item with metadata.
type cacheEntry struct {
	key       uint64
	value     interface{}
	expiresAt time.Time
	refnos    []model.Refno
}

// NewQueryCache creates a new query cache.
//
// Parameters:
//   - maxSize: Maximum number of cached plans (LRU eviction when exceeded)
//   - ttl: Time-to-live for cached entries (0 = no expiration)
//
// Example:
//
//	// Cache up to 1000 plans for 5 minutes each
//	cache := NewQueryCache(1000, 5*time.Minute)
//
//	// Unlimited TTL (only LRU eviction)
//	cache = NewQueryCache(1000, 0)
func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &QueryCache{
		maxSize:    maxSize,
		ttl:        ttl,
		enabled:    true,
		list:       list.New(),
		items:      make(map[uint64]*list.Element, maxSize),
		refnoIndex: make(map[model.Refno]map[uint64]struct{}),
	}
}

// Key generates a cache key from query and parameters.
//
// The key is a fast hash suitable for map lookups.
// Same query with same params = same key.
func (c *QueryCache) Key(query string, params map[string]interface{}) uint64 {
	h := fnv.New64a()
	h.Write([]byte(query))

	// Include parameter keys (not values - they might differ)
	// This allows caching parameterized queries
	for k := range params {
		h.Write([]byte(k))
	}

	return h.Sum64()
}

// Get retrieves a cached plan if present and not expired.
//
// Returns (value, true) on cache hit, (nil, false) on miss.
// Moves the entry to front of LRU list on hit.
func (c *QueryCache) Get(key uint64) (interface{}, bool) {
	if !c.enabled {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	c.mu.RLock()
	elem, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)

	// Check TTL
	if c.ttl > 0 && time.Now().After(entry.expiresAt) {
		// Expired - remove and return miss
		c.mu.Lock()
		c.removeElement(elem)
		c.mu.Unlock()
		atomic.AddUint64(&c.misses, 1)
		atomic.AddUint64(&c.evictions, 1)
		return nil, false
	}

	// Move to front (most recently used)
	c.mu.Lock()
	c.list.MoveToFront(elem)
	c.mu.Unlock()

	atomic.AddUint64(&c.hits, 1)
	return entry.value, true
}

// Put adds a plan to the cache with no refno dependencies tracked.
func (c *QueryCache) Put(key uint64, value interface{}) {
	c.PutWithRefnos(key, value, nil)
}

// PutWithRefnos adds a result to the cache, tagging it with the refnos it
// was derived from. A later ClearByRefno(r) for any tagged refno evicts
// this entry. If the cache is full, the least recently used entry is
// evicted first; if the key already exists, its value and refno tags are
// replaced.
func (c *QueryCache) PutWithRefnos(key uint64, value interface{}, refnos []model.Refno) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*cacheEntry)
		c.untagRefnos(key, entry.refnos)
		entry.value = value
		entry.refnos = refnos
		if c.ttl > 0 {
			entry.expiresAt = time.Now().Add(c.ttl)
		}
		c.tagRefnos(key, refnos)
		c.list.MoveToFront(elem)
		return
	}

	for c.list.Len() >= c.maxSize {
		c.evictOldest()
	}

	entry := &cacheEntry{
		key:    key,
		value:  value,
		refnos: refnos,
	}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}

	elem := c.list.PushFront(entry)
	c.items[key] = elem
	c.tagRefnos(key, refnos)
}

// tagRefnos records that key's entry depends on each of refnos. Caller
// must hold the lock.
func (c *QueryCache) tagRefnos(key uint64, refnos []model.Refno) {
	for _, r := range refnos {
		set, ok := c.refnoIndex[r]
		if !ok {
			set = make(map[uint64]struct{})
			c.refnoIndex[r] = set
		}
		set[key] = struct{}{}
	}
}

// untagRefnos removes key from each of refnos' dependency sets. Caller
// must hold the lock.
func (c *QueryCache) untagRefnos(key uint64, refnos []model.Refno) {
	for _, r := range refnos {
		set, ok := c.refnoIndex[r]
		if !ok {
			continue
		}
		delete(set, key)
		if len(set) == 0 {
			delete(c.refnoIndex, r)
		}
	}
}

// ClearByRefno evicts every cached entry tagged with refno, the
// per-refno invalidation a write to one PE must trigger so stale query
// results for it never outlive their TTL.
func (c *QueryCache) ClearByRefno(refno model.Refno) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, ok := c.refnoIndex[refno]
	if !ok {
		return
	}
	for key := range keys {
		if elem, ok := c.items[key]; ok {
			c.removeElement(elem)
		}
	}
	delete(c.refnoIndex, refno)
}

// Remove removes an entry from the cache.
func (c *QueryCache) Remove(key uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes all entries from the cache.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.list.Init()
	c.items = make(map[uint64]*list.Element, c.maxSize)
	c.refnoIndex = make(map[model.Refno]map[uint64]struct{})
}

// Len returns the number of cached entries.
func (c *QueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Len()
}

// Stats returns cache statistics.
func (c *QueryCache) Stats() CacheStats {
	hits := atomic.LoadUint64(&c.hits)
	misses := atomic.LoadUint64(&c.misses)

	c.mu.RLock()
	size := c.list.Len()
	c.mu.RUnlock()

	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return CacheStats{
		Size:      size,
		MaxSize:   c.maxSize,
		Hits:      hits,
		Misses:    misses,
		Evictions: atomic.LoadUint64(&c.evictions),
		HitRate:   hitRate,
	}
}

// CacheStats holds cache performance statistics.
type CacheStats struct {
	Size      int     // Current number of entries
	MaxSize   int     // Maximum capacity
	Hits      uint64  // Number of cache hits
	Misses    uint64  // Number of cache misses
	Evictions uint64  // Number of entries dropped by TTL expiry or LRU pressure
	HitRate   float64 // Hit rate percentage (0-100)
}

// SetEnabled enables or disables the cache.
func (c *QueryCache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled

	if !enabled {
		c.list.Init()
		c.items = make(map[uint64]*list.Element, c.maxSize)
		c.refnoIndex = make(map[model.Refno]map[uint64]struct{})
	}
}

// evictOldest removes the least recently used entry.
// Caller must hold the lock.
func (c *QueryCache) evictOldest() {
	elem := c.list.Back()
	if elem != nil {
		c.removeElement(elem)
		atomic.AddUint64(&c.evictions, 1)
	}
}

// removeElement removes an element from the cache.
// Caller must hold the lock.
func (c *QueryCache) removeElement(elem *list.Element) {
	c.list.Remove(elem)
	entry := elem.Value.(*cacheEntry)
	delete(c.items, entry.key)
	c.untagRefnos(entry.key, entry.refnos)
}

// =============================================================================
// Global Query Cache (singleton for convenience)
// =============================================================================

var (
	globalQueryCache     *QueryCache
	globalQueryCacheOnce sync.Once
)

// GlobalQueryCache returns the global query cache instance.
//
// The global cache is lazily initialized with default settings.
// Use ConfigureGlobalCache to customize before first use.
func GlobalQueryCache() *QueryCache {
	globalQueryCacheOnce.Do(func() {
		globalQueryCache = NewQueryCache(1000, 5*time.Minute)
	})
	return globalQueryCache
}

// ConfigureGlobalCache configures the global query cache.
//
// Must be called before any Get/Put operations.
// Subsequent calls are no-ops.
func ConfigureGlobalCache(maxSize int, ttl time.Duration) {
	globalQueryCacheOnce.Do(func() {
		globalQueryCache = NewQueryCache(maxSize, ttl)
	})
}
