package core

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionBusy is returned by a session Close while a generation is in
	// flight. The session is left untouched.
	ErrSessionBusy = errors.New("session is busy")

	// ErrSessionClosed is returned when generating on a closed session.
	ErrSessionClosed = errors.New("session is closed")
)

// Backend operations reported in BackendError.Op.
const (
	OpOpenSession = "open_session"
	OpGenerate    = "generate"
)

// BackendError reports a failed inference backend call made by a leaf agent.
// It is always propagated, never retried.
type BackendError struct {
	Agent string
	Op    string
	Err   error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("agent %s: backend %s failed: %v", e.Agent, e.Op, e.Err)
}

// Unwrap returns the underlying backend error.
func (e *BackendError) Unwrap() error { return e.Err }

// ChildError reports that a sub-agent of a composite failed. The child's
// error is wrapped unchanged so errors.Is / errors.As reach the root cause
// at any nesting depth.
type ChildError struct {
	Parent string
	Child  string
	Err    error
}

// Error implements the error interface.
func (e *ChildError) Error() string {
	return fmt.Sprintf("agent %s: sub-agent %s failed: %v", e.Parent, e.Child, e.Err)
}

// Unwrap returns the child's error.
func (e *ChildError) Unwrap() error { return e.Err }
