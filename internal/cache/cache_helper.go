package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheHelper provides prefixed hash operations over a redis client.
type CacheHelper struct {
	client *redis.Client
	prefix string
}

// NewCacheHelper creates a new cache helper instance
func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{
		client: client,
		prefix: prefix,
	}
}

// CacheConfig defines key prefix and lifetime for one kind of stored data
type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

var (
	// Runtime data model of one LMS launch. Kept well past a working day so a
	// learner can close the page and resume the next morning.
	RuntimeCacheConfig = CacheConfig{
		TTL:    7 * 24 * time.Hour,
		Prefix: "lms:cmi:",
	}

	// Launch bookkeeping (module, learner) used to rebuild a controller after restart
	LaunchCacheConfig = CacheConfig{
		TTL:    7 * 24 * time.Hour,
		Prefix: "lms:launch:",
	}
)

// Cache errors
var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
)

// Available reports whether a redis client is configured
func (c *CacheHelper) Available() bool {
	return c != nil && c.client != nil
}

// GetCacheKey generates a cache key with prefix
func (c *CacheHelper) GetCacheKey(key string) string {
	return fmt.Sprintf("%s%s", c.prefix, key)
}

// HashGetAll loads every field of a hash
func (c *CacheHelper) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	if !c.Available() {
		return nil, ErrCacheNotAvailable
	}

	values, err := c.client.HGetAll(ctx, c.GetCacheKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache hgetall error: %w", err)
	}
	return values, nil
}

// HashGet reads a single hash field
func (c *CacheHelper) HashGet(ctx context.Context, key, field string) (string, error) {
	if !c.Available() {
		return "", ErrCacheNotAvailable
	}

	value, err := c.client.HGet(ctx, c.GetCacheKey(key), field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheNotFound
		}
		return "", fmt.Errorf("cache hget error: %w", err)
	}
	return value, nil
}

// HashSetMany writes fields and refreshes the key lifetime in one pipeline
func (c *CacheHelper) HashSetMany(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	if !c.Available() {
		return ErrCacheNotAvailable
	}
	if len(fields) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(fields)*2)
	for field, value := range fields {
		values = append(values, field, value)
	}

	cacheKey := c.GetCacheKey(key)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, cacheKey, values...)
	if ttl > 0 {
		pipe.Expire(ctx, cacheKey, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache hset pipeline error: %w", err)
	}
	return nil
}

// HashSetDefaults writes fields that do not exist yet
func (c *CacheHelper) HashSetDefaults(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	if !c.Available() {
		return ErrCacheNotAvailable
	}

	cacheKey := c.GetCacheKey(key)
	pipe := c.client.TxPipeline()
	for field, value := range fields {
		pipe.HSetNX(ctx, cacheKey, field, value)
	}
	if ttl > 0 {
		pipe.Expire(ctx, cacheKey, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache hsetnx pipeline error: %w", err)
	}
	return nil
}

// HealthCheck verifies cache connectivity
func (c *CacheHelper) HealthCheck(ctx context.Context) error {
	if !c.Available() {
		return ErrCacheNotAvailable
	}
	if _, err := c.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}

// CacheManager groups the helpers used by the runtime
type CacheManager struct {
	Runtime *CacheHelper
	Launch  *CacheHelper
}

// NewCacheManager creates cache manager with all cache helpers
func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{
		Runtime: NewCacheHelper(client, RuntimeCacheConfig.Prefix),
		Launch:  NewCacheHelper(client, LaunchCacheConfig.Prefix),
	}
}
