// Package scheduler runs the block/strand task graph behind the engine:
// an LRU-backed, pin-aware cache of BlockData/StrandData, a
// dependency-ordered worker pool built on errgroup, precision-fallback
// stage tracking, and a 16-diagonal cancellation check.
package scheduler

import (
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Key addresses a single cache entry: a block spans [I, J] of a complex
// identified by complexKey, computed under the named rig; a strand-table
// entry uses I == J.
type Key struct {
	ComplexKey string
	Rig        string
	I, J       int
}

// entry wraps a cached value with a pin (reference) count; eviction may
// only remove entries with refcount zero.
type entry struct {
	value    any
	refCount int
}

// Cache is the LRU store of BlockData/StrandData:
// two lookups for the same key return the same object identity for the
// life of the batch, eviction only touches unpinned entries, and
// concurrent misses for the same key are deduped via singleflight.
type Cache struct {
	mu      sync.Mutex
	lru     *lru.Cache[Key, *entry]
	flight  singleflight.Group
	budget  int64
	used    int64
	sizeOf  map[Key]int64
}

// NewCache builds a Cache with the given memory budget in bytes. Capacity
// for the underlying LRU list is set generously since eviction is driven
// by the byte budget, not entry count; the LRU list order is what
// determines the victim once the budget is exceeded.
func NewCache(budgetBytes int64) *Cache {
	l, _ := lru.New[Key, *entry](1 << 20)
	return &Cache{lru: l, budget: budgetBytes, sizeOf: make(map[Key]int64)}
}

// GetOrCreate returns the cached value for key, creating it with create
// if absent. Concurrent callers racing on the same miss share one
// creation via singleflight. The returned release func must be called
// exactly once when the caller is done referencing the value, dropping
// its pin.
func (c *Cache) GetOrCreate(key Key, sizeBytes int64, create func() (any, error)) (value any, release func(), err error) {
	c.mu.Lock()
	if e, ok := c.lru.Get(key); ok {
		e.refCount++
		c.mu.Unlock()
		return e.value, c.releaseFunc(key), nil
	}
	c.mu.Unlock()

	v, err, _ := c.flight.Do(key.ComplexKey+sep+key.Rig+sep+strconv.Itoa(key.I)+sep+strconv.Itoa(key.J), func() (any, error) {
		c.mu.Lock()
		if e, ok := c.lru.Get(key); ok {
			c.mu.Unlock()
			return e.value, nil
		}
		c.mu.Unlock()

		created, err := create()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.lru.Add(key, &entry{value: created, refCount: 0})
		c.sizeOf[key] = sizeBytes
		c.used += sizeBytes
		c.mu.Unlock()
		c.evictIfOverBudget()
		return created, nil
	})
	if err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	if e, ok := c.lru.Get(key); ok {
		e.refCount++
	}
	c.mu.Unlock()
	return v, c.releaseFunc(key), nil
}

func (c *Cache) releaseFunc(key Key) func() {
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if e, ok := c.lru.Peek(key); ok && e.refCount > 0 {
			e.refCount--
		}
	}
}

// evictIfOverBudget removes least-recently-used unpinned entries until
// the cache fits its budget, or every remaining entry is pinned.
func (c *Cache) evictIfOverBudget() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.used > c.budget {
		victim, ok := c.findEvictionVictim()
		if !ok {
			return
		}
		c.used -= c.sizeOf[victim]
		delete(c.sizeOf, victim)
		c.lru.Remove(victim)
	}
}

// findEvictionVictim scans LRU order (oldest first) for the first
// unpinned entry. golang-lru/v2 does not expose "peek Nth oldest with a
// predicate", so keys are walked in the order Keys() reports (least
// recently used first).
func (c *Cache) findEvictionVictim() (Key, bool) {
	for _, k := range c.lru.Keys() {
		if e, ok := c.lru.Peek(k); ok && e.refCount == 0 {
			return k, true
		}
	}
	return Key{}, false
}

const sep = "\x00"
