package lms

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Registration is the durable runtime data model of one launch
type Registration struct {
	LaunchID  string            `gorm:"primaryKey;size:128" json:"launch_id"`
	Data      datatypes.JSONMap `gorm:"type:jsonb;not null" json:"data"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (Registration) TableName() string {
	return "cmi_registrations"
}

// GormConnector stores the runtime data model in postgres. Commit upserts the row.
type GormConnector struct {
	db       *gorm.DB
	launchID string

	mu    sync.Mutex
	state state
	row   Registration
	dirty bool
}

func NewGormConnector(db *gorm.DB, launchID string) *GormConnector {
	return &GormConnector{db: db, launchID: launchID}
}

func (c *GormConnector) Available() bool {
	return c.db != nil
}

func (c *GormConnector) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateActive:
		return ErrAlreadyInitialized
	case stateTerminated:
		return ErrTerminated
	}

	row, err := c.load(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to load registration: %v", ErrCallFailed, err)
	}

	c.row = row
	c.state = stateActive
	return nil
}

func (c *GormConnector) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.state.check(); err != nil {
		return "", err
	}

	switch v := c.row.Data[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return fmt.Sprint(v), nil
	}
}

func (c *GormConnector) Set(ctx context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.state.check(); err != nil {
		return err
	}
	if isReadOnly(key) {
		return fmt.Errorf("%w: %s is read only", ErrCallFailed, key)
	}

	c.row.Data[key] = value
	c.dirty = true
	return nil
}

func (c *GormConnector) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.state.check(); err != nil {
		return err
	}
	return c.save(ctx)
}

func (c *GormConnector) Terminate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.state.check(); err != nil {
		return err
	}
	err := c.save(ctx)
	c.state = stateTerminated
	return err
}

func (c *GormConnector) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateActive
}

// SeedDefaults writes values for elements the LMS has not set yet
func (c *GormConnector) SeedDefaults(ctx context.Context, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := Registration{LaunchID: c.launchID}
		if err := tx.Where(Registration{LaunchID: c.launchID}).
			Attrs(Registration{Data: datatypes.JSONMap{}}).
			FirstOrCreate(&row).Error; err != nil {
			return fmt.Errorf("failed to load registration: %w", err)
		}
		if row.Data == nil {
			row.Data = datatypes.JSONMap{}
		}

		changed := false
		for key, value := range fields {
			if _, ok := row.Data[key]; !ok {
				row.Data[key] = value
				changed = true
			}
		}
		if !changed {
			return nil
		}
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("failed to seed registration: %w", err)
		}
		return nil
	})
}

func (c *GormConnector) load(ctx context.Context) (Registration, error) {
	row := Registration{LaunchID: c.launchID}
	err := c.db.WithContext(ctx).
		Where(Registration{LaunchID: c.launchID}).
		Attrs(Registration{Data: datatypes.JSONMap{}}).
		FirstOrCreate(&row).Error
	if err != nil {
		return Registration{}, err
	}
	if row.Data == nil {
		row.Data = datatypes.JSONMap{}
	}
	return row, nil
}

func (c *GormConnector) save(ctx context.Context) error {
	if !c.dirty {
		return nil
	}
	if err := c.db.WithContext(ctx).Save(&c.row).Error; err != nil {
		return fmt.Errorf("%w: commit failed: %v", ErrCallFailed, err)
	}
	c.dirty = false
	return nil
}

// MigrateRegistrations creates the registrations table
func MigrateRegistrations(db *gorm.DB) error {
	return db.AutoMigrate(&Registration{})
}
