package lms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/SAP-F-2025/placement-service/internal/models"
)

type ConnectResult string

const (
	Connected        ConnectResult = "connected"
	NotAvailable     ConnectResult = "unavailable"
	ConnectionFailed ConnectResult = "failed"
)

// Session owns the single connection of a page to the LMS runtime. Connector
// errors and panics never leave it; they are logged and turned into no-ops.
type Session struct {
	connector Connector
	available bool
	logger    *slog.Logger

	group singleflight.Group

	mu         sync.Mutex
	status     models.ConnectionStatus
	terminated bool
}

// NewSession selects the connector once. A nil connector or one failing its
// capability check leaves the session permanently unavailable.
func NewSession(connector Connector, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if connector == nil {
		connector = Unavailable{}
	}

	return &Session{
		connector: connector,
		available: connector.Available(),
		logger:    logger,
		status:    models.ConnectionDisconnected,
	}
}

// ===== CONNECTION LIFECYCLE =====

// Connect initializes the connector at most once per successful connection.
// Concurrent callers share the in-flight initialize.
func (s *Session) Connect(ctx context.Context) ConnectResult {
	if !s.available {
		return NotAvailable
	}

	s.mu.Lock()
	switch {
	case s.terminated:
		s.mu.Unlock()
		return ConnectionFailed
	case s.status == models.ConnectionConnected:
		s.mu.Unlock()
		return Connected
	}
	s.mu.Unlock()

	result, _, _ := s.group.Do("connect", func() (interface{}, error) {
		return s.initialize(ctx), nil
	})
	return result.(ConnectResult)
}

func (s *Session) initialize(ctx context.Context) ConnectResult {
	s.mu.Lock()
	if s.status == models.ConnectionConnected {
		s.mu.Unlock()
		return Connected
	}
	if s.terminated {
		s.mu.Unlock()
		return ConnectionFailed
	}
	s.status = models.ConnectionConnecting
	s.mu.Unlock()

	err := s.call("initialize", func() error {
		return s.connector.Initialize(ctx)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.status = models.ConnectionFailed
		s.logger.Warn("LMS connection failed", "error", err)
		return ConnectionFailed
	}

	s.status = models.ConnectionConnected
	s.logger.Info("LMS connection established")
	return Connected
}

// IsActive reports whether Connect succeeded and Terminate has not run
func (s *Session) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == models.ConnectionConnected && !s.terminated
}

func (s *Session) Status() models.ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// Terminate commits and terminates exactly once, whichever exit event fires
// first. A failed commit does not block the terminate call.
func (s *Session) Terminate(ctx context.Context) {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}
	s.terminated = true
	wasActive := s.status == models.ConnectionConnected
	s.status = models.ConnectionDisconnected
	s.mu.Unlock()

	if !wasActive {
		return
	}

	if err := s.call("commit", func() error { return s.connector.Commit(ctx) }); err != nil {
		s.logger.Warn("Final LMS commit failed", "error", err)
	}
	if err := s.call("terminate", func() error { return s.connector.Terminate(ctx) }); err != nil {
		s.logger.Warn("LMS terminate failed", "error", err)
		return
	}
	s.logger.Info("LMS session terminated")
}

// ===== DATA MODEL ACCESS =====

// Read returns the element value, or "" when inactive or on failure
func (s *Session) Read(ctx context.Context, key string) string {
	if !s.IsActive() {
		return ""
	}

	var value string
	err := s.call("get", func() error {
		v, err := s.connector.Get(ctx, key)
		value = v
		return err
	})
	if err != nil {
		s.logger.Warn("LMS read failed", "key", key, "error", err)
		return ""
	}
	return value
}

func (s *Session) Write(ctx context.Context, key, value string) bool {
	if !s.IsActive() {
		return false
	}

	err := s.call("set", func() error {
		return s.connector.Set(ctx, key, value)
	})
	if err != nil {
		s.logger.Warn("LMS write failed", "key", key, "error", err)
		return false
	}
	return true
}

// Commit flushes pending writes; a no-op when inactive
func (s *Session) Commit(ctx context.Context) bool {
	if !s.IsActive() {
		return false
	}

	if err := s.call("commit", func() error { return s.connector.Commit(ctx) }); err != nil {
		s.logger.Warn("LMS commit failed", "error", err)
		return false
	}
	return true
}

// LessonStatus reads cmi.core.lesson_status
func (s *Session) LessonStatus(ctx context.Context) models.LessonStatus {
	return models.LessonStatus(s.Read(ctx, models.CMILessonStatus))
}

// StudentIdentity reads the learner name and id, defaulting to "Anonymous"
func (s *Session) StudentIdentity(ctx context.Context) (name, id string) {
	name = s.Read(ctx, models.CMIStudentName)
	if name == "" {
		name = "Anonymous"
	}
	return name, s.Read(ctx, models.CMIStudentID)
}

// call runs a connector method, converting a panic into ErrCallFailed
func (s *Session) call(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", ErrCallFailed, op, r)
		}
	}()

	if err = fn(); err != nil && !errors.Is(err, ErrCallFailed) {
		err = fmt.Errorf("%w: %s: %v", ErrCallFailed, op, err)
	}
	return err
}
