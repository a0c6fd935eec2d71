package services

import (
	"context"

	"github.com/SAP-F-2025/placement-service/internal/attempt"
	"github.com/SAP-F-2025/placement-service/internal/validator"
)

// ===== SESSION SERVICE =====

// SessionService hosts the attempt controllers of live test pages
type SessionService interface {
	// Launches
	Launch(ctx context.Context, req *validator.LaunchRequest) (string, *attempt.View, error)
	Get(ctx context.Context, launchID string) (*attempt.Controller, error)
	Unload(ctx context.Context, launchID, event string) error
	MarkPage(ctx context.Context, req *validator.PageMarkRequest) (bool, error)

	// Health and lifecycle
	Backend() string
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

var _ SessionService = (*SessionManager)(nil)
