package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/SAP-F-2025/placement-service/internal/attempt"
	"github.com/SAP-F-2025/placement-service/internal/bank"
	"github.com/SAP-F-2025/placement-service/internal/cache"
	"github.com/SAP-F-2025/placement-service/internal/lms"
	"github.com/SAP-F-2025/placement-service/internal/modules"
	"github.com/SAP-F-2025/placement-service/internal/progress"
	"github.com/SAP-F-2025/placement-service/internal/reporting"
	"github.com/SAP-F-2025/placement-service/internal/validator"
)

// Session manager errors
var (
	ErrSessionNotFound = errors.New("launch session not found")
	ErrModuleMismatch  = errors.New("launch belongs to another module")
	ErrShutdown        = errors.New("session manager is shut down")
)

// BankSource provides the question bank of a module
type BankSource interface {
	Bank(module string) (*bank.Bank, error)
}

// SessionManagerConfig holds configuration for the session manager
type SessionManagerConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
	SuspendLimit  int
}

func DefaultSessionManagerConfig() SessionManagerConfig {
	return SessionManagerConfig{
		IdleTTL:       2 * time.Hour,
		SweepInterval: time.Minute,
	}
}

// launch is one live page: its controller and when it was last used
type launch struct {
	id         string
	module     string
	controller *attempt.Controller
	lastSeen   time.Time
}

// SessionManager hosts one attempt controller per launch. Abandoned launches
// are terminated and evicted by a background job.
type SessionManager struct {
	// Dependencies
	banks      BankSource
	connectors ConnectorFactory
	reporter   reporting.Reporter
	launches   *cache.CacheHelper
	logger     *slog.Logger
	validator  *validator.Validator
	config     SessionManagerConfig
	now        func() time.Time

	scheduler *gocron.Scheduler

	mu       sync.RWMutex
	live     map[string]*launch
	started  bool
	shutdown bool
}

// NewSessionManager creates a session manager. launches may be nil, in which
// case launch bookkeeping only lives in memory.
func NewSessionManager(banks BankSource, connectors ConnectorFactory, reporter reporting.Reporter, launches *cache.CacheHelper, logger *slog.Logger, validator *validator.Validator, config SessionManagerConfig) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultSessionManagerConfig()
	if config.IdleTTL <= 0 {
		config.IdleTTL = defaults.IdleTTL
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaults.SweepInterval
	}
	if connectors == nil {
		connectors = NewNoConnectors()
	}

	return &SessionManager{
		banks:      banks,
		connectors: connectors,
		reporter:   reporter,
		launches:   launches,
		logger:     logger,
		validator:  validator,
		config:     config,
		now:        time.Now,
		live:       make(map[string]*launch),
	}
}

// ===== LIFECYCLE =====

// Initialize schedules the idle eviction job
func (m *SessionManager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}
	if m.shutdown {
		return ErrShutdown
	}

	m.scheduler = gocron.NewScheduler(time.UTC)
	if _, err := m.scheduler.Every(m.config.SweepInterval).SingletonMode().Do(m.EvictIdle); err != nil {
		return fmt.Errorf("failed to schedule idle eviction: %w", err)
	}
	m.scheduler.StartAsync()
	m.started = true

	m.logger.Info("Session manager started",
		"backend", m.connectors.Backend(),
		"idle_ttl", m.config.IdleTTL,
		"sweep_interval", m.config.SweepInterval)
	return nil
}

// Shutdown stops the eviction job and unloads every live launch
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	scheduler := m.scheduler
	live := m.live
	m.live = make(map[string]*launch)
	m.mu.Unlock()

	if scheduler != nil {
		scheduler.Stop()
	}
	for _, l := range live {
		l.controller.Unload(ctx, "shutdown")
	}
	m.logger.Info("Session manager shut down", "unloaded", len(live))
	return nil
}

// Backend names the LMS backend launches are connected to
func (m *SessionManager) Backend() string {
	return m.connectors.Backend()
}

// HealthCheck verifies the launch store
func (m *SessionManager) HealthCheck(ctx context.Context) error {
	m.mu.RLock()
	shutdown := m.shutdown
	m.mu.RUnlock()

	if shutdown {
		return ErrShutdown
	}
	if m.launches.Available() {
		if err := m.launches.HealthCheck(ctx); err != nil {
			return fmt.Errorf("launch store unhealthy: %w", err)
		}
	}
	return nil
}

// ===== LAUNCHES =====

// Launch opens a page of a module. An existing live launch is returned as is;
// a launch that was unloaded starts a new page load against the same LMS data.
func (m *SessionManager) Launch(ctx context.Context, req *validator.LaunchRequest) (string, *attempt.View, error) {
	if m.validator != nil {
		if err := m.validator.Validate(req); err != nil {
			return "", nil, fmt.Errorf("validation failed: %w", err)
		}
	}

	launchID := req.LaunchID
	if launchID == "" {
		launchID = uuid.NewString()
	}

	m.logger.Info("Launching module",
		"module", req.Module,
		"launch_id", launchID,
		"learner_id", req.LearnerID)

	if err := m.checkModule(ctx, launchID, req.Module); err != nil {
		return "", nil, err
	}

	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return "", nil, ErrShutdown
	}
	if l, ok := m.live[launchID]; ok && !l.controller.Unloaded() {
		if l.module != req.Module {
			m.mu.Unlock()
			return "", nil, fmt.Errorf("%w: %s is a %s launch", ErrModuleMismatch, launchID, l.module)
		}
		l.lastSeen = m.now()
		m.mu.Unlock()
		return launchID, l.controller.View(), nil
	}
	m.mu.Unlock()

	l, err := m.open(ctx, launchID, req.Module, Learner{ID: req.LearnerID, Name: req.LearnerName})
	if err != nil {
		return "", nil, err
	}

	view, err := l.controller.Boot(ctx)
	if err != nil {
		l.controller.Unload(ctx, "boot_failed")
		return "", nil, fmt.Errorf("failed to boot %s: %w", req.Module, err)
	}

	m.mu.Lock()
	if prev, ok := m.live[launchID]; ok && prev.controller != l.controller {
		prev.controller.Unload(ctx, "replaced")
	}
	m.live[launchID] = l
	m.mu.Unlock()

	m.remember(ctx, launchID, req.Module, req.LearnerID)
	return launchID, view, nil
}

// Get returns the controller of a launch. A launch recorded in the launch
// store but not hosted by this process (after a restart) is booted again.
func (m *SessionManager) Get(ctx context.Context, launchID string) (*attempt.Controller, error) {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil, ErrShutdown
	}
	if l, ok := m.live[launchID]; ok {
		l.lastSeen = m.now()
		m.mu.Unlock()
		return l.controller, nil
	}
	m.mu.Unlock()

	return m.restore(ctx, launchID)
}

// Unload handles a page exit event for a launch
func (m *SessionManager) Unload(ctx context.Context, launchID, event string) error {
	m.mu.RLock()
	l, ok := m.live[launchID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, launchID)
	}
	l.controller.Unload(ctx, event)
	return nil
}

// MarkPage records a static page of a launch as completed
func (m *SessionManager) MarkPage(ctx context.Context, req *validator.PageMarkRequest) (bool, error) {
	if m.validator != nil {
		if err := m.validator.Validate(req); err != nil {
			return false, fmt.Errorf("validation failed: %w", err)
		}
	}

	session := lms.NewSession(m.connectors.Connector(ctx, req.LaunchID, Learner{}), m.logger)
	defer session.Terminate(ctx)

	store := progress.NewStore(session, m.validator, m.logger, m.config.SuspendLimit)
	return attempt.MarkPage(ctx, session, store, req.Note, m.now(), m.logger), nil
}

// Live is the number of launches currently hosted
func (m *SessionManager) Live() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.live)
}

// EvictIdle unloads launches not used within the idle TTL. Each eviction
// terminates the launch's LMS session, which happens at most once.
func (m *SessionManager) EvictIdle() {
	cutoff := m.now().Add(-m.config.IdleTTL)

	m.mu.Lock()
	var idle []*launch
	for id, l := range m.live {
		if l.lastSeen.Before(cutoff) || l.controller.Unloaded() {
			idle = append(idle, l)
			delete(m.live, id)
		}
	}
	m.mu.Unlock()

	ctx := context.Background()
	for _, l := range idle {
		l.controller.Unload(ctx, "idle")
		m.logger.Info("Evicted launch", "launch_id", l.id, "module", l.module)
	}
}

func (m *SessionManager) open(ctx context.Context, launchID, module string, learner Learner) (*launch, error) {
	def, err := modules.Lookup(module)
	if err != nil {
		return nil, err
	}
	b, err := m.banks.Bank(module)
	if err != nil {
		return nil, fmt.Errorf("failed to load question bank: %w", err)
	}

	session := lms.NewSession(m.connectors.Connector(ctx, launchID, learner), m.logger.With("launch_id", launchID))
	controller := attempt.New(def, b, session, m.reporter, m.logger.With("launch_id", launchID), m.validator,
		attempt.WithSuspendLimit(m.config.SuspendLimit))

	return &launch{
		id:         launchID,
		module:     module,
		controller: controller,
		lastSeen:   m.now(),
	}, nil
}

// restore rebuilds a launch from its bookkeeping record
func (m *SessionManager) restore(ctx context.Context, launchID string) (*attempt.Controller, error) {
	if !m.launches.Available() {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, launchID)
	}
	record, err := m.launches.HashGetAll(ctx, launchID)
	if err != nil {
		return nil, fmt.Errorf("failed to read launch %s: %w", launchID, err)
	}
	module := record[fieldModule]
	if module == "" {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, launchID)
	}

	l, err := m.open(ctx, launchID, module, Learner{ID: record[fieldLearnerID]})
	if err != nil {
		return nil, err
	}
	if _, err := l.controller.Boot(ctx); err != nil {
		l.controller.Unload(ctx, "boot_failed")
		return nil, fmt.Errorf("failed to boot %s: %w", module, err)
	}

	m.mu.Lock()
	if prev, ok := m.live[launchID]; ok {
		// another request restored it first
		m.mu.Unlock()
		l.controller.Unload(ctx, "replaced")
		return prev.controller, nil
	}
	m.live[launchID] = l
	m.mu.Unlock()

	m.logger.Info("Restored launch", "launch_id", launchID, "module", module)
	return l.controller, nil
}

// ===== LAUNCH BOOKKEEPING =====

const (
	fieldModule     = "module"
	fieldLearnerID  = "learner_id"
	fieldLaunchedAt = "launched_at"
)

// checkModule refuses to reuse a launch id for a different module, since the
// runtime data of a launch belongs to one module
func (m *SessionManager) checkModule(ctx context.Context, launchID, module string) error {
	if !m.launches.Available() {
		return nil
	}
	known, err := m.launches.HashGet(ctx, launchID, fieldModule)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheNotFound) {
			m.logger.Warn("Failed to read launch bookkeeping", "launch_id", launchID, "error", err)
		}
		return nil
	}
	if known != module {
		return fmt.Errorf("%w: %s is a %s launch", ErrModuleMismatch, launchID, known)
	}
	return nil
}

func (m *SessionManager) remember(ctx context.Context, launchID, module, learnerID string) {
	if !m.launches.Available() {
		return
	}
	fields := map[string]string{fieldModule: module}
	if learnerID != "" {
		fields[fieldLearnerID] = learnerID
	}
	if err := m.launches.HashSetMany(ctx, launchID, fields, cache.LaunchCacheConfig.TTL); err != nil {
		m.logger.Warn("Failed to record launch", "launch_id", launchID, "error", err)
	}
	cache.SafeHashSetDefaults(ctx, m.launches, launchID,
		map[string]string{fieldLaunchedAt: m.now().UTC().Format(time.RFC3339)},
		cache.LaunchCacheConfig)
}
