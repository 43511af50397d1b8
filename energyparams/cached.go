package energyparams

import (
	"sync"

	"github.com/foldspace/thermo/rig"
)

// CachedModel wraps a Model with length-indexed Boltzmann-factor caches so
// the inner DP loops never re-evaluate DeltaG/Boltz for the same loop
// length twice. Capacity grows monotonically via Reserve, which is called
// by the scheduler once per complex with the largest length it will ever
// query; callers never need to resize mid-sweep. Reads take the shared
// lock; Reserve, and the first fill of an empty slot on a miss, take the
// exclusive one, so concurrent block workers never block each other on a
// cache hit.
type CachedModel[E any] struct {
	model   *Model
	algebra rig.Algebra[E]

	mu            sync.RWMutex
	hairpin       []cacheSlot[E]
	bulge         []cacheSlot[E]
	interior      []cacheSlot[E]
	asymmetry     []cacheSlot[E]
	multiUnpaired []cacheSlot[E]
}

type cacheSlot[E any] struct {
	valid bool
	value E
}

// NewCachedModel builds a CachedModel over the given algebra, with no
// reserved capacity; the first Reserve call allocates the tables.
func NewCachedModel[E any](m *Model, a rig.Algebra[E]) *CachedModel[E] {
	return &CachedModel[E]{model: m, algebra: a}
}

// Model returns the underlying temperature-scaled model.
func (c *CachedModel[E]) Model() *Model { return c.model }

// Reserve grows the internal caches so lengths up to n are servable
// without reallocation. Safe to call repeatedly with increasing n; calls
// with n no larger than the current capacity are no-ops.
func (c *CachedModel[E]) Reserve(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hairpin = growSlots(c.hairpin, n)
	c.bulge = growSlots(c.bulge, n)
	c.interior = growSlots(c.interior, n)
	c.asymmetry = growSlots(c.asymmetry, n)
	c.multiUnpaired = growSlots(c.multiUnpaired, n)
}

// Capacity reports the largest length currently servable without a cache
// miss allocating outside the tables.
func (c *CachedModel[E]) Capacity() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.hairpin) == 0 {
		return 0
	}
	return len(c.hairpin) - 1
}

func growSlots[E any](s []cacheSlot[E], n int) []cacheSlot[E] {
	if len(s) >= n+1 {
		return s
	}
	grown := make([]cacheSlot[E], n+1)
	copy(grown, s)
	return grown
}

// HairpinBoltz returns the Boltzmann factor for a hairpin loop of the
// given length, computing and caching it on first use.
func (c *CachedModel[E]) HairpinBoltz(length int) E {
	return c.cached(&c.hairpin, length, c.model.HairpinLoopPenalty)
}

// BulgeBoltz is the analogous accessor for bulge loops.
func (c *CachedModel[E]) BulgeBoltz(length int) E {
	return c.cached(&c.bulge, length, c.model.BulgeLoopPenalty)
}

// InteriorBoltz is the analogous accessor for interior loops.
func (c *CachedModel[E]) InteriorBoltz(length int) E {
	return c.cached(&c.interior, length, c.model.InteriorLoopPenalty)
}

// AsymmetryBoltz is the analogous accessor for interior-loop asymmetry,
// addressed by the absolute side-length difference.
func (c *CachedModel[E]) AsymmetryBoltz(diff int) E {
	return c.cached(&c.asymmetry, diff, c.model.InteriorAsymmetryPenalty)
}

// MultiUnpairedBoltz returns the per-unpaired-base multiloop penalty
// compounded count times.
func (c *CachedModel[E]) MultiUnpairedBoltz(count int) E {
	return c.cached(&c.multiUnpaired, count, func(k int) float64 {
		return c.model.MultiUnpairedPenalty() * float64(k)
	})
}

func (c *CachedModel[E]) cached(table *[]cacheSlot[E], length int, penalty func(int) float64) E {
	if length >= 0 {
		c.mu.RLock()
		if length < len(*table) {
			slot := (*table)[length]
			c.mu.RUnlock()
			if slot.valid {
				return slot.value
			}
		} else {
			c.mu.RUnlock()
		}
	}
	value := c.algebra.Boltz(penalty(length))
	if length >= 0 {
		c.mu.Lock()
		if length < len(*table) {
			(*table)[length] = cacheSlot[E]{valid: true, value: value}
		}
		c.mu.Unlock()
	}
	return value
}
