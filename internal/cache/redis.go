package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"practice_service/internal/domain"
)

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache wraps rdb. ttl bounds entry lifetime; zero keeps entries
// until deleted.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, studentID, taskID string) (*domain.CompletionEntry, error) {
	return c.get(ctx, completionKey(studentID, taskID))
}

func (c *RedisCache) GetLegacy(ctx context.Context, studentID, dateKey string) (*domain.CompletionEntry, error) {
	return c.get(ctx, completionKey(studentID, dateKey))
}

func (c *RedisCache) get(ctx context.Context, key string) (*domain.CompletionEntry, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache key: %w", err)
	}

	var entry domain.CompletionEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		// Unparseable entries count as misses; the reconciler falls
		// through to the submission store.
		return nil, nil
	}
	return &entry, nil
}

func (c *RedisCache) Set(ctx context.Context, studentID, taskID string, entry domain.CompletionEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := c.rdb.Set(ctx, completionKey(studentID, taskID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, studentID, taskID string) error {
	return c.delete(ctx, completionKey(studentID, taskID))
}

func (c *RedisCache) DeleteLegacy(ctx context.Context, studentID, dateKey string) error {
	return c.delete(ctx, completionKey(studentID, dateKey))
}

func (c *RedisCache) delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key: %w", err)
	}
	return nil
}

var _ CompletionCache = (*RedisCache)(nil)
