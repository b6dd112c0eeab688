// Package memory provides an in-memory cache implementation.
// The portal uses it to keep signed manuscript URLs until shortly before
// they expire, so repeated page renders do not presign the same object again.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/prn-tf/jmrh-portal/internal/repository"
)

// Cache implements repository.Cache using in-memory storage.
// This is NOT shared between server instances.
type Cache struct {
	mu      sync.RWMutex
	items   map[string]*cacheItem
	now     func() time.Time
	stopCh  chan struct{}
	stopped bool
}

// cacheItem represents a single cached item.
type cacheItem struct {
	value     []byte
	expiresAt time.Time
	noExpiry  bool
}

// isExpired checks if the item has expired at now.
func (i *cacheItem) isExpired(now time.Time) bool {
	if i.noExpiry {
		return false
	}
	return now.After(i.expiresAt)
}

// NewCache creates a new in-memory cache.
func NewCache() *Cache {
	c := newCache(time.Now)

	// Start cleanup goroutine.
	go c.cleanupLoop(60 * time.Second)

	return c
}

func newCache(now func() time.Time) *Cache {
	return &Cache{
		items:  make(map[string]*cacheItem),
		now:    now,
		stopCh: make(chan struct{}),
	}
}

// cleanupLoop periodically removes expired items.
func (c *Cache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes expired items.
func (c *Cache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if item.isExpired(now) {
			delete(c.items, key)
		}
	}
}

// Stop stops the cleanup goroutine.
func (c *Cache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stopped {
		close(c.stopCh)
		c.stopped = true
	}
}

// Get retrieves a value by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || item.isExpired(c.now()) {
		return nil, repository.ErrCacheMiss
	}

	// Return a copy to prevent mutation.
	result := make([]byte, len(item.value))
	copy(result, item.value)
	return result, nil
}

// Set stores a value with an optional TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	item := &cacheItem{value: valueCopy}
	if ttl > 0 {
		item.expiresAt = c.now().Add(ttl)
	} else {
		item.noExpiry = true
	}

	c.items[key] = item
	return nil
}

// Delete removes a value by key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

// Len returns the number of stored items, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Ensure Cache implements repository.Cache.
var _ repository.Cache = (*Cache)(nil)
