package answercache

import (
	"context"
	"sync"
	"time"
)

// Cache is a bounded, TTL-based answer cache keyed by a normalized
// (operation, query, scope) fingerprint.
//
// Eviction is by insertion order: when a new key arrives at capacity, the
// single oldest-inserted live entry is removed. Updating an existing key is
// not an insertion and never evicts. Expiry is absolute (insert time + ttl)
// and enforced lazily on Get/Has; there is no background sweep.
//
// GetOrCompute guarantees at most one in-flight computation per key within
// the process. Later callers await the first call's result instead of
// re-invoking the billed compute function. The flight marker is per key, so
// unrelated keys never serialize behind each other.
type Cache struct {
	capacity int

	mu      sync.Mutex
	entries map[string]*entry
	order   []string // live keys, oldest insertion first
	flights map[string]*flight
}

type entry struct {
	value      any
	insertedAt time.Time
	expiresAt  time.Time
}

type flight struct {
	done  chan struct{}
	value any
	err   error
}

func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 128
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*entry),
		flights:  make(map[string]*flight),
	}
}

// Get returns the cached value for key. The second return value
// distinguishes a cached zero value (false, 0, "") from absence.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.liveEntry(key)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with an absolute expiry of now + ttl. Re-setting
// an existing key overwrites it in place without counting as an insertion.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value, ttl)
}

func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.liveEntry(key)
	return ok
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.order = nil
}

// Len reports the number of stored entries, expired ones included until
// their lazy removal.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrCompute returns the cached value for key, or runs compute once and
// caches its result for ttl. Concurrent calls for the same uncached key
// share a single computation. A failed computation leaves no entry behind,
// so the next call retries.
//
// The computation is detached from the initiating caller's cancellation:
// once other callers may be waiting on it, one caller disconnecting must not
// abort the shared work. A waiter whose own context is canceled unblocks
// with ctx.Err() while the flight runs to completion.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	if e, ok := c.liveEntry(key); ok {
		value := e.value
		c.mu.Unlock()
		return value, nil
	}

	if f, ok := c.flights[key]; ok {
		c.mu.Unlock()
		select {
		case <-f.done:
			return f.value, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f := &flight{done: make(chan struct{})}
	c.flights[key] = f
	c.mu.Unlock()

	value, err := compute(context.WithoutCancel(ctx))

	c.mu.Lock()
	delete(c.flights, key)
	if err == nil {
		c.setLocked(key, value, ttl)
	}
	c.mu.Unlock()

	f.value, f.err = value, err
	close(f.done)

	return value, err
}

// liveEntry returns the entry for key, lazily removing it when expired.
// Caller must hold c.mu.
func (c *Cache) liveEntry(key string) (*entry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.removeLocked(key)
		return nil, false
	}
	return e, true
}

func (c *Cache) setLocked(key string, value any, ttl time.Duration) {
	now := time.Now()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = now.Add(ttl)
		return
	}

	if len(c.entries) >= c.capacity && len(c.order) > 0 {
		c.removeLocked(c.order[0])
	}

	c.entries[key] = &entry{
		value:      value,
		insertedAt: now,
		expiresAt:  now.Add(ttl),
	}
	c.order = append(c.order, key)
}

func (c *Cache) removeLocked(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
