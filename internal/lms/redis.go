package lms

import (
	"context"
	"fmt"
	"sync"

	"github.com/SAP-F-2025/placement-service/internal/cache"
	"github.com/SAP-F-2025/placement-service/internal/models"
)

// RedisConnector keeps the runtime data model of one launch in a redis hash.
// Writes are buffered until Commit, which flushes them in one pipeline.
type RedisConnector struct {
	cache    *cache.CacheHelper
	launchID string
	config   cache.CacheConfig

	mu      sync.Mutex
	state   state
	data    map[string]string
	pending map[string]string
}

func NewRedisConnector(helper *cache.CacheHelper, launchID string) *RedisConnector {
	return &RedisConnector{
		cache:    helper,
		launchID: launchID,
		config:   cache.RuntimeCacheConfig,
		pending:  make(map[string]string),
	}
}

func (c *RedisConnector) Available() bool {
	return c.cache.Available()
}

func (c *RedisConnector) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateActive:
		return ErrAlreadyInitialized
	case stateTerminated:
		return ErrTerminated
	}

	values, err := c.cache.HashGetAll(ctx, c.launchID)
	if err != nil {
		return fmt.Errorf("%w: failed to load runtime data: %v", ErrCallFailed, err)
	}
	if values == nil {
		values = make(map[string]string)
	}

	c.data = values
	c.state = stateActive
	return nil
}

func (c *RedisConnector) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.state.check(); err != nil {
		return "", err
	}
	return c.data[key], nil
}

func (c *RedisConnector) Set(ctx context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.state.check(); err != nil {
		return err
	}
	if isReadOnly(key) {
		return fmt.Errorf("%w: %s is read only", ErrCallFailed, key)
	}

	c.data[key] = value
	c.pending[key] = value
	return nil
}

func (c *RedisConnector) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.state.check(); err != nil {
		return err
	}
	return c.flush(ctx)
}

func (c *RedisConnector) Terminate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.state.check(); err != nil {
		return err
	}

	// LMSFinish persists whatever is still buffered
	err := c.flush(ctx)
	c.state = stateTerminated
	return err
}

func (c *RedisConnector) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateActive
}

// SeedDefaults writes values for elements the LMS has not set yet
func (c *RedisConnector) SeedDefaults(ctx context.Context, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := c.cache.HashSetDefaults(ctx, c.launchID, fields, c.config.TTL); err != nil {
		return fmt.Errorf("failed to seed runtime data: %w", err)
	}
	return nil
}

func (c *RedisConnector) flush(ctx context.Context) error {
	if len(c.pending) == 0 {
		return nil
	}
	if err := c.cache.HashSetMany(ctx, c.launchID, c.pending, c.config.TTL); err != nil {
		return fmt.Errorf("%w: commit failed: %v", ErrCallFailed, err)
	}
	c.pending = make(map[string]string)
	return nil
}

func isReadOnly(key string) bool {
	return key == models.CMIStudentID || key == models.CMIStudentName
}
