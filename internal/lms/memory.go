package lms

import (
	"context"
	"sync"
)

// MemoryConnector keeps the runtime data model in process. Used for local
// preview when no LMS store is configured.
type MemoryConnector struct {
	mu        sync.Mutex
	state     state
	committed map[string]string
	data      map[string]string
}

func NewMemoryConnector(seed map[string]string) *MemoryConnector {
	committed := make(map[string]string, len(seed))
	for k, v := range seed {
		committed[k] = v
	}
	return &MemoryConnector{committed: committed}
}

func (c *MemoryConnector) Available() bool { return true }

func (c *MemoryConnector) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateActive:
		return ErrAlreadyInitialized
	case stateTerminated:
		return ErrTerminated
	}

	c.data = make(map[string]string, len(c.committed))
	for k, v := range c.committed {
		c.data[k] = v
	}
	c.state = stateActive
	return nil
}

func (c *MemoryConnector) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.state.check(); err != nil {
		return "", err
	}
	return c.data[key], nil
}

func (c *MemoryConnector) Set(ctx context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.state.check(); err != nil {
		return err
	}
	c.data[key] = value
	return nil
}

func (c *MemoryConnector) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.state.check(); err != nil {
		return err
	}
	c.commitLocked()
	return nil
}

func (c *MemoryConnector) Terminate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.state.check(); err != nil {
		return err
	}
	c.commitLocked()
	c.state = stateTerminated
	return nil
}

func (c *MemoryConnector) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateActive
}

// Committed returns a copy of the values persisted by the last commit
func (c *MemoryConnector) Committed() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]string, len(c.committed))
	for k, v := range c.committed {
		out[k] = v
	}
	return out
}

func (c *MemoryConnector) commitLocked() {
	for k, v := range c.data {
		c.committed[k] = v
	}
}
