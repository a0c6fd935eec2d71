package bank

import (
	"fmt"
	"sync"

	"github.com/SAP-F-2025/placement-service/internal/validator"
)

// Catalog loads module banks from a directory on first use and keeps them
type Catalog struct {
	dir       string
	validator *validator.Validator

	mu    sync.RWMutex
	banks map[string]*Bank
}

func NewCatalog(dir string, v *validator.Validator) *Catalog {
	if v == nil {
		v = validator.New()
	}
	return &Catalog{
		dir:       dir,
		validator: v,
		banks:     make(map[string]*Bank),
	}
}

// Bank returns the validated bank of a module
func (c *Catalog) Bank(module string) (*Bank, error) {
	c.mu.RLock()
	b, ok := c.banks[module]
	c.mu.RUnlock()
	if ok {
		return b, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.banks[module]; ok {
		return b, nil
	}

	b, err := LoadModule(c.dir, module)
	if err != nil {
		return nil, err
	}
	if err := b.Validate(c.validator); err != nil {
		return nil, err
	}
	c.banks[module] = b
	return b, nil
}

// Put registers an already loaded bank
func (c *Catalog) Put(module string, b *Bank) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.banks[module] = b
}

// Preload loads every named module, failing on the first bad bank
func (c *Catalog) Preload(modules ...string) error {
	for _, m := range modules {
		if _, err := c.Bank(m); err != nil {
			return fmt.Errorf("failed to load %s bank: %w", m, err)
		}
	}
	return nil
}
