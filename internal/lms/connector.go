package lms

import (
	"context"
	"errors"
	"fmt"
)

// Lms errors
var (
	ErrConnectorUnavailable = errors.New("lms connector unavailable")
	ErrCallFailed           = errors.New("lms connector call failed")
	ErrNotInitialized       = fmt.Errorf("%w: not initialized", ErrCallFailed)
	ErrAlreadyInitialized   = fmt.Errorf("%w: already initialized", ErrCallFailed)
	ErrTerminated           = fmt.Errorf("%w: terminated", ErrCallFailed)
)

// Connector is the runtime API of the hosting LMS. Implementations are
// selected once when a session is created.
type Connector interface {
	// Available is the capability check. When it reports false no other
	// method is called.
	Available() bool

	Initialize(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Commit(ctx context.Context) error
	Terminate(ctx context.Context) error
	IsActive() bool
}

// Unavailable is the connector used when no LMS runtime hosts the page.
type Unavailable struct{}

func (Unavailable) Available() bool { return false }

func (Unavailable) Initialize(context.Context) error { return ErrConnectorUnavailable }

func (Unavailable) Get(context.Context, string) (string, error) {
	return "", ErrConnectorUnavailable
}

func (Unavailable) Set(context.Context, string, string) error { return ErrConnectorUnavailable }

func (Unavailable) Commit(context.Context) error { return ErrConnectorUnavailable }

func (Unavailable) Terminate(context.Context) error { return ErrConnectorUnavailable }

func (Unavailable) IsActive() bool { return false }

// state tracks the initialize/terminate lifecycle shared by live connectors
type state int

const (
	stateIdle state = iota
	stateActive
	stateTerminated
)

func (s state) check() error {
	switch s {
	case stateIdle:
		return ErrNotInitialized
	case stateTerminated:
		return ErrTerminated
	}
	return nil
}
