// Package core provides the shared configuration, error kinds and event types.
package core

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the front end.
type Kind string

const (
	// KindValidation is a user input problem. Nothing was changed.
	KindValidation Kind = "validation"
	// KindStore is a database failure. The connection stays usable.
	KindStore Kind = "store"
	// KindProcess is a failure of an external executable or of its plumbing.
	KindProcess Kind = "process"
	// KindStatusRead is an unreadable session status. It is never shown to the user.
	KindStatusRead Kind = "status_read"
	// KindUnknown is anything that was not converted to one of the kinds above.
	KindUnknown Kind = "unknown"
)

var (
	ErrValidation = errors.New("validation error")
	ErrStore      = errors.New("store error")
	ErrProcess    = errors.New("process error")
	ErrStatusRead = errors.New("status read error")
)

var (
	ErrEmptyGroupName      = fmt.Errorf("%w: group name cannot be empty", ErrValidation)
	ErrNoSelection         = fmt.Errorf("%w: please select at least one contact to create a group", ErrValidation)
	ErrUnknownContact      = fmt.Errorf("%w: unknown contact", ErrValidation)
	ErrEmptyGroup          = fmt.Errorf("%w: no contacts found for the selected group", ErrValidation)
	ErrEmptyMessage        = fmt.Errorf("%w: message content is empty", ErrValidation)
	ErrSendInFlight        = fmt.Errorf("%w: a send is already in progress", ErrValidation)
	ErrUnsupportedPlatform = fmt.Errorf("%w: unsupported OS", ErrProcess)
)

// StoreError wraps a database failure with the operation that caused it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("database error: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is makes every StoreError match ErrStore.
func (e *StoreError) Is(target error) bool { return target == ErrStore }

// NewStoreError returns nil when err is nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// ProcessError reports a failure of an external executable.
// Code is the exit code when Op is "exit", zero otherwise.
type ProcessError struct {
	Op   string
	Code int
	Err  error
}

func (e *ProcessError) Error() string {
	switch {
	case e.Op == "exit":
		return fmt.Sprintf("Failed with return code %d", e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op
	}
}

func (e *ProcessError) Unwrap() error { return e.Err }

// Is makes every ProcessError match ErrProcess.
func (e *ProcessError) Is(target error) bool { return target == ErrProcess }

// KindOf maps an error to its kind. A nil error has no kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrStore):
		return KindStore
	case errors.Is(err, ErrProcess):
		return KindProcess
	case errors.Is(err, ErrStatusRead):
		return KindStatusRead
	default:
		return KindUnknown
	}
}
