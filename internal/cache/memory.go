package cache

import (
	"context"
	"sync"

	"practice_service/internal/domain"
)

// MemoryCache is an in-process CompletionCache used in tests and as a
// degraded fallback when no Redis is configured.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]domain.CompletionEntry

	// FailOn, when set, aborts matching operations; op is get, set or
	// delete.
	FailOn func(op, key string) error
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]domain.CompletionEntry)}
}

func (c *MemoryCache) fail(op, key string) error {
	if c.FailOn != nil {
		return c.FailOn(op, key)
	}
	return nil
}

func (c *MemoryCache) Get(ctx context.Context, studentID, taskID string) (*domain.CompletionEntry, error) {
	return c.get(completionKey(studentID, taskID))
}

func (c *MemoryCache) GetLegacy(ctx context.Context, studentID, dateKey string) (*domain.CompletionEntry, error) {
	return c.get(completionKey(studentID, dateKey))
}

func (c *MemoryCache) get(key string) (*domain.CompletionEntry, error) {
	if err := c.fail("get", key); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (c *MemoryCache) Set(ctx context.Context, studentID, taskID string, entry domain.CompletionEntry) error {
	key := completionKey(studentID, taskID)
	if err := c.fail("set", key); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	return nil
}

// SeedLegacy plants a legacy date-keyed entry; only tests need this, the
// service never writes the legacy scheme.
func (c *MemoryCache) SeedLegacy(studentID, dateKey string, entry domain.CompletionEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[completionKey(studentID, dateKey)] = entry
}

func (c *MemoryCache) Delete(ctx context.Context, studentID, taskID string) error {
	return c.delete(completionKey(studentID, taskID))
}

func (c *MemoryCache) DeleteLegacy(ctx context.Context, studentID, dateKey string) error {
	return c.delete(completionKey(studentID, dateKey))
}

func (c *MemoryCache) delete(key string) error {
	if err := c.fail("delete", key); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Len reports the number of stored entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

var _ CompletionCache = (*MemoryCache)(nil)
