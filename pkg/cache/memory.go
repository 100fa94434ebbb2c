package cache

import (
	"context"
	"sync"
)

// MemoryCache is a process-local Cache used in tests and when no Redis
// server is configured.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string][]byte)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)

	c.mu.Lock()
	c.data[key] = cp
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Close() error { return nil }
