package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   []byte
	tags    []string
	expires time.Time
}

// MemoryCache keeps entries in process memory, guarded by a RWMutex.
type MemoryCache struct {
	mx      sync.RWMutex
	entries map[string]memoryEntry
	byTag   map[string]map[string]struct{}
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		byTag:   make(map[string]map[string]struct{}),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mx.RLock()
	defer c.mx.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expires) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, tags []string, life Lifetime) error {
	c.mx.Lock()
	defer c.mx.Unlock()

	c.removeLocked(key)
	c.entries[key] = memoryEntry{
		value:   value,
		tags:    append([]string(nil), tags...),
		expires: c.now().Add(life.Revalidate()),
	}
	for _, tag := range tags {
		keys, ok := c.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, tags ...string) error {
	c.mx.Lock()
	defer c.mx.Unlock()

	for _, tag := range tags {
		for key := range c.byTag[tag] {
			c.removeLocked(key)
		}
		delete(c.byTag, tag)
	}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mx.RLock()
	defer c.mx.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) removeLocked(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	for _, tag := range e.tags {
		if keys, ok := c.byTag[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.byTag, tag)
			}
		}
	}
}
