package registry

import (
	"context"
	"sync"
	"time"
)

// TTLCache is a small keyed cache with explicit staleness checking. It
// replaces the ambient module-level caches of earlier revisions with an
// injectable collaborator: callers pass the fetch function to [TTLCache.Get]
// and invalidate keys explicitly.
//
// All methods are safe for concurrent use. A fetch error is never cached —
// the next Get retries the fetch.
type TTLCache[T any] struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry[T]
}

type cacheEntry[T any] struct {
	value     T
	fetchedAt time.Time
}

// NewTTLCache returns a cache whose entries go stale after ttl.
// A non-positive ttl disables expiry.
func NewTTLCache[T any](ttl time.Duration) *TTLCache[T] {
	return &TTLCache[T]{
		ttl:     ttl,
		entries: map[string]cacheEntry[T]{},
	}
}

// Get returns the cached value for key when fresh; otherwise it invokes
// fetch, stores the result, and returns it. Concurrent callers for the same
// stale key may each invoke fetch; the last writer wins.
func (c *TTLCache[T]) Get(ctx context.Context, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && !c.stale(e) {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry[T]{value: value, fetchedAt: time.Now()}
	c.mu.Unlock()
	return value, nil
}

// Peek returns the cached value for key without fetching, reporting whether
// a fresh entry was present.
func (c *TTLCache[T]) Peek(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && !c.stale(e) {
		return e.value, true
	}
	var zero T
	return zero, false
}

// Invalidate removes a single key.
func (c *TTLCache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateAll removes every entry.
func (c *TTLCache[T]) InvalidateAll() {
	c.mu.Lock()
	c.entries = map[string]cacheEntry[T]{}
	c.mu.Unlock()
}

func (c *TTLCache[T]) stale(e cacheEntry[T]) bool {
	return c.ttl > 0 && time.Since(e.fetchedAt) >= c.ttl
}
