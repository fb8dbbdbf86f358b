// Package cache memoizes values that are expensive to build and never change
// for a given key, such as compiled predicate programs.
package cache

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// DefaultSize bounds a cache created with size <= 0
const DefaultSize = 1024

// Cache maps keys to immutable values. Concurrent misses on the same key
// share one loader call. When the cache is full it is emptied.
type Cache[V any] struct {
	mu     sync.RWMutex
	data   map[string]V
	size   int
	flight singleflight.Group
	hit    atomic.Uint64
	miss   atomic.Uint64
}

// New creates a cache holding at most size entries
func New[V any](size int) *Cache[V] {
	if size <= 0 {
		size = DefaultSize
	}
	return &Cache[V]{data: make(map[string]V), size: size}
}

// Take returns the cached value for key, calling loader on a miss.
// Loader errors are not cached.
func (c *Cache[V]) Take(key string, loader func() (V, error)) (V, error) {
	c.mu.RLock()
	v, ok := c.data[key]
	c.mu.RUnlock()
	if ok {
		c.hit.Add(1)
		return v, nil
	}
	c.miss.Add(1)

	out, err, _ := c.flight.Do(key, func() (any, error) {
		v, err := loader()
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		if len(c.data) >= c.size {
			clear(c.data)
		}
		c.data[key] = v
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return out.(V), nil
}

// Len returns the number of cached entries
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Stat is a snapshot of cache counters
type Stat struct {
	Hit     uint64
	Miss    uint64
	Entries int
}

// HitRatio returns hits over lookups in percent
func (s Stat) HitRatio() float64 {
	total := s.Hit + s.Miss
	if total == 0 {
		return 0
	}
	return 100 * float64(s.Hit) / float64(total)
}

// Stat returns the current counters
func (c *Cache[V]) Stat() Stat {
	return Stat{Hit: c.hit.Load(), Miss: c.miss.Load(), Entries: c.Len()}
}
