package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	username string
	expires  time.Time
}

// MemoryCache is a TTL-bounded, in-process id to username cache.
type MemoryCache struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.RWMutex
	items map[string]entry
}

// NewMemoryCache returns a cache whose entries expire after ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &MemoryCache{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]entry),
	}
}

// GetMany returns the cached, unexpired usernames among ids.
func (c *MemoryCache) GetMany(_ context.Context, ids []string) (map[string]string, error) {
	if c == nil {
		return nil, ErrUnavailable
	}

	now := c.now()
	out := make(map[string]string, len(ids))

	c.mu.RLock()
	for _, id := range ids {
		if e, ok := c.items[id]; ok && now.Before(e.expires) {
			out[id] = e.username
		}
	}
	c.mu.RUnlock()

	return out, nil
}

// SetMany stores the provided usernames and drops expired entries.
func (c *MemoryCache) SetMany(_ context.Context, names map[string]string) error {
	if c == nil {
		return ErrUnavailable
	}

	now := c.now()
	expires := now.Add(c.ttl)

	c.mu.Lock()
	for id, e := range c.items {
		if !now.Before(e.expires) {
			delete(c.items, id)
		}
	}
	for id, username := range names {
		c.items[id] = entry{username: username, expires: expires}
	}
	c.mu.Unlock()

	return nil
}

// Len reports the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
