// Package cache provides a bounded in-memory cache whose entries expire after
// a time-to-live.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a size-bounded LRU cache with per-entry expiry. It is safe for
// concurrent use.
type TTLCache[K comparable, V any] struct {
	mu    sync.Mutex
	items *lru.Cache[K, entry[V]]
	ttl   time.Duration
	now   func() time.Time
}

// Option configures a TTLCache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a cache holding at most size entries, each living for ttl
// unless set with SetWithTTL.
func New[K comparable, V any](size int, ttl time.Duration, opts ...Option) (*TTLCache[K, V], error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	items, err := lru.New[K, entry[V]](size)
	if err != nil {
		return nil, err
	}
	return &TTLCache[K, V]{items: items, ttl: ttl, now: o.now}, nil
}

// Get returns the cached value for key if present and not expired. Expired
// entries are removed on access.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items.Get(key)
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		c.items.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the default TTL.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with an explicit TTL. A non-positive ttl
// removes the key instead.
func (c *TTLCache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		c.items.Remove(key)
		return
	}
	c.items.Add(key, entry[V]{value: value, expiresAt: c.now().Add(ttl)})
}

// Delete removes key.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Remove(key)
}

// Purge removes every entry.
func (c *TTLCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Purge()
}

// PurgeExpired removes expired entries and returns how many were dropped.
func (c *TTLCache[K, V]) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, k := range c.items.Keys() {
		e, ok := c.items.Peek(k)
		if ok && !now.Before(e.expiresAt) {
			c.items.Remove(k)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries, expired or not.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Len()
}
