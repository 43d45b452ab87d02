package valuation

import (
	"container/list"
	"sync"
	"time"

	"github.com/upb/vehicle-valuation/models"
)

// cacheEntry represents a single cache entry with TTL
type cacheEntry struct {
	vrm        string
	valuation  models.Valuation
	insertedAt time.Time
	element    *list.Element // For LRU tracking
}

// Cache is an in-memory LRU cache with TTL in front of the valuation store.
// Persisted valuations never change, so entries are only dropped by TTL or eviction.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	lruList *list.List
	maxSize int
	ttl     time.Duration
	hits    uint64
	misses  uint64
	now     func() time.Time
}

// NewCache creates a new Cache with specified max size and TTL
func NewCache(maxSize int, ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// cacheKey matches the store, which compares VRMs exactly
func cacheKey(vrm string) string {
	return vrm
}

func (c *Cache) isExpired(e *cacheEntry) bool {
	return c.now().Sub(e.insertedAt) > c.ttl
}

// Get returns a copy of the cached valuation, or nil if missing or expired
func (c *Cache) Get(vrm string) *models.Valuation {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(vrm)
	entry, exists := c.entries[key]

	if !exists || c.isExpired(entry) {
		c.misses++
		if exists {
			c.removeEntry(key)
		}
		return nil
	}

	c.lruList.MoveToFront(entry.element)
	c.hits++

	v := entry.valuation
	return &v
}

// Set stores a copy of the valuation
func (c *Cache) Set(v *models.Valuation) {
	if v == nil || c.maxSize <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(v.VRM)

	if entry, exists := c.entries[key]; exists {
		entry.valuation = *v
		entry.insertedAt = c.now()
		c.lruList.MoveToFront(entry.element)
		return
	}

	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry{
		vrm:        key,
		valuation:  *v,
		insertedAt: c.now(),
	}
	entry.element = c.lruList.PushFront(key)
	c.entries[key] = entry
}

// Invalidate removes a specific cache entry
func (c *Cache) Invalidate(vrm string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeEntry(cacheKey(vrm))
}

// Clear removes all entries from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.lruList.Init()
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var hitRate float64
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return CacheStats{
		Size:    c.lruList.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: hitRate,
	}
}

// removeEntry must be called with lock held
func (c *Cache) removeEntry(key string) {
	if entry, exists := c.entries[key]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, key)
	}
}

// evictLRU must be called with lock held
func (c *Cache) evictLRU() {
	back := c.lruList.Back()
	if back != nil {
		key := back.Value.(string)
		c.lruList.Remove(back)
		delete(c.entries, key)
	}
}

// CleanupExpired removes all expired entries and returns how many were dropped
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expired []string
	for key, entry := range c.entries {
		if c.isExpired(entry) {
			expired = append(expired, key)
		}
	}

	for _, key := range expired {
		c.removeEntry(key)
	}

	return len(expired)
}

// StartCleanupWorker periodically drops expired entries until stopCh is closed
func (c *Cache) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-stopCh:
			return
		}
	}
}
