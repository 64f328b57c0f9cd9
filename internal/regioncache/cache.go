// Package regioncache is a short-lived memo of region codes that recently
// returned no appointments, so one sweep does not hammer the portal with
// searches it already knows are dry. The cache is advisory: a stale entry
// only delays discovery, it can never cause an incorrect booking.
package regioncache

import "time"

// Cache maps region codes to expiry times. It is owned by a single process
// and is never persisted; every process rebuilds it from scratch.
type Cache struct {
	ttl     time.Duration
	now     func() time.Time
	entries map[string]time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache whose entries expire after ttl.
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mark records that no slot was found for these regions right now.
func (c *Cache) Mark(codes []string) {
	expiry := c.now().Add(c.ttl)
	for _, code := range codes {
		c.entries[code] = expiry
	}
}

// AllCached reports whether every code is still inside its expiry window.
// Expired entries are purged as a side effect.
func (c *Cache) AllCached(codes []string) bool {
	c.purge()
	for _, code := range codes {
		if _, ok := c.entries[code]; !ok {
			return false
		}
	}
	return true
}

// Len returns the number of live entries, purging expired ones first.
func (c *Cache) Len() int {
	c.purge()
	return len(c.entries)
}

func (c *Cache) purge() {
	now := c.now()
	for code, expiry := range c.entries {
		if !expiry.After(now) {
			delete(c.entries, code)
		}
	}
}
