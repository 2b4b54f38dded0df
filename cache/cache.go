// Package cache implements the process-wide, reference-counted resource registry the loading
// pipeline shares decoded resources through. A key maps to at most one live resource: two
// acquires for the same key within a decode session return the same instance.
package cache

import (
	"sync"

	"go.uber.org/zap"
)

// Key identifies a cached resource. Keys must be deterministic and collision-free: they
// incorporate source identity plus every decode-time parameter that changes the output, so
// two requests with different parameters never collide.
type Key string

// Resource is anything the cache can own. Destroy is called exactly once, when the entry is
// evicted at zero references or when the cache itself is destroyed.
type Resource interface {
	Destroy()
}

// Stats reports cache effectiveness counters.
type Stats struct {
	// Hits counts acquires that found a live entry.
	Hits uint64

	// Misses counts acquires that constructed a new entry.
	Misses uint64

	// Live is the current number of entries, resident ones included.
	Live int

	// Resident is the number of keep-resident entries currently at zero references.
	Resident int
}

// Cache is the shared resource registry.
type Cache interface {
	// Acquire returns the resource stored under key, constructing it through factory when no
	// live entry exists. Each call increments the entry's reference count and must be paired
	// with exactly one Release on the returned handle. The factory must not call back into
	// the cache; dependencies are acquired by the resource itself after construction.
	//
	// Parameters:
	//   - key: the deterministic resource key
	//   - factory: constructs the resource on a cache miss
	//   - opts: acquire options (keep-resident)
	//
	// Returns:
	//   - Handle: the reference-counted handle to the shared resource
	Acquire(key Key, factory func() Resource, opts ...AcquireOption) Handle

	// RefCount reports the current reference count for a key.
	//
	// Parameters:
	//   - key: the key to inspect
	//
	// Returns:
	//   - int: the outstanding reference count, 0 for resident entries with no references
	//   - bool: false when no entry exists for the key
	RefCount(key Key) (int, bool)

	// Stats returns a snapshot of the cache counters.
	//
	// Returns:
	//   - Stats: the current counters
	Stats() Stats

	// Sweep evicts and destroys every zero-reference entry, keep-resident ones included.
	// Entries with outstanding references are untouched. Call between loads to reclaim
	// documents held resident for reuse.
	//
	// Returns:
	//   - int: the number of entries destroyed
	Sweep() int

	// Destroy tears down every remaining entry, including keep-resident ones. Entries that
	// still have outstanding references are destroyed anyway and logged, since that is a
	// release-pairing bug in the caller.
	Destroy()
}

type entry struct {
	resource     Resource
	refCount     int
	keepResident bool
}

type cacheImpl struct {
	mu      sync.Mutex
	entries map[Key]*entry
	logger  *zap.Logger

	hits   uint64
	misses uint64
}

var _ Cache = &cacheImpl{}

// NewCache creates an empty cache.
//
// Parameters:
//   - opts: optional configuration (logger)
//
// Returns:
//   - Cache: the initialized cache
func NewCache(opts ...CacheBuilderOption) Cache {
	c := &cacheImpl{
		entries: make(map[Key]*entry),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *cacheImpl) Acquire(key Key, factory func() Resource, opts ...AcquireOption) Handle {
	var cfg acquireConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		e.refCount++
		if cfg.keepResident {
			// Keep-resident is sticky: once any acquirer asks for residency the
			// entry survives its last release.
			e.keepResident = true
		}
		c.hits++
		c.mu.Unlock()
		c.logger.Debug("cache hit", zap.String("key", string(key)), zap.Int("refCount", e.refCount))
		return &handleImpl{cache: c, key: key, resource: e.resource}
	}

	resource := factory()
	c.entries[key] = &entry{
		resource:     resource,
		refCount:     1,
		keepResident: cfg.keepResident,
	}
	c.misses++
	c.mu.Unlock()
	c.logger.Debug("cache miss", zap.String("key", string(key)))
	return &handleImpl{cache: c, key: key, resource: resource}
}

// release decrements a key's reference count. Destruction happens outside the lock because a
// resource's Destroy can release its own dependency handles, which re-enters the cache.
func (c *cacheImpl) release(key Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}

	e.refCount--
	var toDestroy Resource
	if e.refCount <= 0 && !e.keepResident {
		delete(c.entries, key)
		toDestroy = e.resource
	}
	refCount := e.refCount
	c.mu.Unlock()

	c.logger.Debug("cache release", zap.String("key", string(key)), zap.Int("refCount", refCount))
	if toDestroy != nil {
		toDestroy.Destroy()
	}
}

func (c *cacheImpl) RefCount(key Key) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	return e.refCount, true
}

func (c *cacheImpl) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Hits:   c.hits,
		Misses: c.misses,
		Live:   len(c.entries),
	}
	for _, e := range c.entries {
		if e.keepResident && e.refCount == 0 {
			stats.Resident++
		}
	}
	return stats
}

// Sweep destroys outside the lock for the same reason release does: a swept document's
// Destroy releases the handles it holds on its own dependencies.
func (c *cacheImpl) Sweep() int {
	c.mu.Lock()
	var toDestroy []Resource
	for key, e := range c.entries {
		if e.refCount <= 0 {
			delete(c.entries, key)
			toDestroy = append(toDestroy, e.resource)
		}
	}
	c.mu.Unlock()

	for _, r := range toDestroy {
		r.Destroy()
	}
	if len(toDestroy) > 0 {
		c.logger.Debug("cache swept", zap.Int("destroyed", len(toDestroy)))
	}
	return len(toDestroy)
}

func (c *cacheImpl) Destroy() {
	c.mu.Lock()
	remaining := c.entries
	c.entries = make(map[Key]*entry)
	c.mu.Unlock()

	for key, e := range remaining {
		if e.refCount > 0 {
			c.logger.Warn("destroying cache entry with outstanding references",
				zap.String("key", string(key)),
				zap.Int("refCount", e.refCount),
			)
		}
		e.resource.Destroy()
	}
}
