package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryConfig configures the in-process tier.
type MemoryConfig struct {
	Capacity int           // Maximum number of vectors (default: 1000)
	TTL      time.Duration // Entry lifetime when Set passes zero (default: 30 minutes)
}

// DefaultMemoryConfig returns the L1 defaults.
// 1000 vectors of 1024 dimensions take about 4 MiB.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Capacity: 1000,
		TTL:      30 * time.Minute,
	}
}

// MemoryCache is the L1 tier: a bounded LRU of encoded vectors.
// Expired vectors are dropped when read or when they reach the tail.
type MemoryCache struct {
	capacity int
	ttl      time.Duration

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front is most recently used
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates the L1 tier.
func NewMemoryCache(cfg MemoryConfig) *MemoryCache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1000
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	return &MemoryCache{
		capacity: cfg.Capacity,
		ttl:      cfg.TTL,
		entries:  make(map[string]*list.Element, cfg.Capacity),
		order:    list.New(),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := element.Value.(*memoryEntry)
	if time.Now().After(e.expiresAt) {
		c.remove(element)
		return nil, false
	}
	c.order.MoveToFront(element)
	return e.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	expiresAt := time.Now().Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.entries[key]; ok {
		e := element.Value.(*memoryEntry)
		e.value, e.expiresAt = value, expiresAt
		c.order.MoveToFront(element)
		return nil
	}
	for c.order.Len() >= c.capacity {
		c.remove(c.order.Back())
	}
	c.entries[key] = c.order.PushFront(&memoryEntry{key: key, value: value, expiresAt: expiresAt})
	return nil
}

// Len returns the number of cached vectors, expired ones included until evicted.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// remove must be called with mu held.
func (c *MemoryCache) remove(element *list.Element) {
	c.order.Remove(element)
	delete(c.entries, element.Value.(*memoryEntry).key)
}

var _ CacheService = (*MemoryCache)(nil)
