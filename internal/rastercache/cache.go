// Package rastercache holds decoded rasters and their bounds keyed by
// source file identity. Entries are never expired automatically; when the
// underlying file changes, callers invalidate the key explicitly. Capacity
// eviction is LRU, and concurrent first access to a key decodes once via
// single-flight.
package rastercache

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/floodwatch/floodmap/internal/georef"
	"github.com/floodwatch/floodmap/internal/raster"
)

// Entry is a decoded raster with its resolved geographic bounds.
type Entry struct {
	Grid   *raster.Grid
	Bounds georef.Bounds
}

// Stats reports cache performance counters.
type Stats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// Cache is a concurrent-safe LRU cache of raster entries.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	order      []string // LRU order: front=oldest, back=newest
	maxEntries int
	hits       atomic.Int64
	misses     atomic.Int64
	group      singleflight.Group
}

// New creates a Cache holding at most maxEntries rasters.
func New(maxEntries int) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Cache{
		entries:    make(map[string]*Entry),
		maxEntries: maxEntries,
	}
}

// Get returns the cached entry for key, if present.
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.touch(key)
	c.hits.Add(1)
	return e, true
}

// GetOrCompute returns the cached entry for key, computing and storing it
// on a miss. Concurrent callers for the same key share one compute call;
// a failed compute caches nothing.
func (c *Cache) GetOrCompute(key string, compute func() (*Entry, error)) (*Entry, error) {
	if e, ok := c.Get(key); ok {
		return e, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		// A racing caller may have populated the key while we queued.
		c.mu.Lock()
		if e, ok := c.entries[key]; ok {
			c.touch(key)
			c.mu.Unlock()
			return e, nil
		}
		c.mu.Unlock()

		e, err := compute()
		if err != nil {
			return nil, err
		}
		c.put(key, e)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// Invalidate drops one key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	c.removeFromOrder(key)
}

// Clear drops everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
	c.order = c.order[:0]
}

// Stats snapshots the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	entries := len(c.entries)
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	s := Stats{
		Entries:    entries,
		MaxEntries: c.maxEntries,
		Hits:       hits,
		Misses:     misses,
	}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}

func (c *Cache) put(key string, e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		c.entries[key] = e
		c.touch(key)
		return
	}
	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = e
	c.order = append(c.order, key)
}

func (c *Cache) touch(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *Cache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
