package network

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	network   Network
	expiresAt time.Time
}

// CachedRepository serves network settings from memory for ttl before
// reloading them from the wrapped repository.
type CachedRepository struct {
	next NetworkRepository
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func NewCachedRepository(next NetworkRepository, ttl time.Duration) *CachedRepository {
	return &CachedRepository{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachedRepository) GetByID(ctx context.Context, id string) (Network, error) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if ok && now.Before(e.expiresAt) {
		return e.network, nil
	}

	n, err := c.next.GetByID(ctx, id)
	if err != nil {
		return Network{}, err
	}

	c.mu.Lock()
	c.entries[id] = cacheEntry{network: n, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
	return n, nil
}

func (c *CachedRepository) List(ctx context.Context) ([]Network, error) {
	return c.next.List(ctx)
}

// Invalidate drops one entry, or every entry when id is empty.
func (c *CachedRepository) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == "" {
		c.entries = make(map[string]cacheEntry)
		return
	}
	delete(c.entries, id)
}
