package services

import (
	"context"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/placement-service/internal/cache"
	"github.com/SAP-F-2025/placement-service/internal/lms"
	"github.com/SAP-F-2025/placement-service/internal/models"
)

// Learner is the identity a launch seeds into an empty runtime data model
type Learner struct {
	ID   string
	Name string
}

func (l Learner) fields() map[string]string {
	fields := map[string]string{}
	if l.ID != "" {
		fields[models.CMIStudentID] = l.ID
	}
	if l.Name != "" {
		fields[models.CMIStudentName] = l.Name
	}
	return fields
}

// ConnectorFactory builds the LMS connector of one page load. The backend is
// chosen once at startup.
type ConnectorFactory interface {
	Backend() string
	Connector(ctx context.Context, launchID string, learner Learner) lms.Connector
}

// ===== REDIS =====

type redisConnectors struct {
	helper *cache.CacheHelper
	logger *slog.Logger
}

func NewRedisConnectors(helper *cache.CacheHelper, logger *slog.Logger) ConnectorFactory {
	return &redisConnectors{helper: helper, logger: logger}
}

func (f *redisConnectors) Backend() string { return "redis" }

func (f *redisConnectors) Connector(ctx context.Context, launchID string, learner Learner) lms.Connector {
	c := lms.NewRedisConnector(f.helper, launchID)
	if !c.Available() {
		return c
	}
	if err := c.SeedDefaults(ctx, learner.fields()); err != nil {
		f.logger.Warn("Failed to seed learner identity", "launch_id", launchID, "error", err)
	}
	return c
}

// ===== POSTGRES =====

type gormConnectors struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewGormConnectors(db *gorm.DB, logger *slog.Logger) ConnectorFactory {
	return &gormConnectors{db: db, logger: logger}
}

func (f *gormConnectors) Backend() string { return "postgres" }

func (f *gormConnectors) Connector(ctx context.Context, launchID string, learner Learner) lms.Connector {
	c := lms.NewGormConnector(f.db, launchID)
	if !c.Available() {
		return c
	}
	if err := c.SeedDefaults(ctx, learner.fields()); err != nil {
		f.logger.Warn("Failed to seed learner identity", "launch_id", launchID, "error", err)
	}
	return c
}

// ===== MEMORY =====

// memoryConnectors keeps committed runtime data in process so a reload of
// the same launch can resume until the server restarts
type memoryConnectors struct {
	mu   sync.Mutex
	last map[string]*lms.MemoryConnector
}

func NewMemoryConnectors() ConnectorFactory {
	return &memoryConnectors{last: make(map[string]*lms.MemoryConnector)}
}

func (f *memoryConnectors) Backend() string { return "memory" }

func (f *memoryConnectors) Connector(_ context.Context, launchID string, learner Learner) lms.Connector {
	f.mu.Lock()
	defer f.mu.Unlock()

	seed := learner.fields()
	if prev, ok := f.last[launchID]; ok {
		for k, v := range prev.Committed() {
			seed[k] = v
		}
	}
	c := lms.NewMemoryConnector(seed)
	f.last[launchID] = c
	return c
}

// ===== NONE =====

type noConnectors struct{}

// NewNoConnectors runs every page without an LMS
func NewNoConnectors() ConnectorFactory {
	return noConnectors{}
}

func (noConnectors) Backend() string { return "none" }

func (noConnectors) Connector(context.Context, string, Learner) lms.Connector {
	return lms.Unavailable{}
}
