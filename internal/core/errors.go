package core

import (
	"errors"
	"fmt"
)

// ErrDatabaseBusy signals that another process instance holds the exclusive
// lock. Callers must treat it as "retry or fail", never wait indefinitely.
var ErrDatabaseBusy = errors.New("database is in use by another instance")

// ErrValidation marks input rejected before reaching storage.
var ErrValidation = errors.New("validation failed")

// LockError reports a failed exclusive lock acquisition: either the lock is
// held elsewhere or the lock file/directory is not writable.
type LockError struct {
	Path string
	Err  error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("acquire lock %s: %v", e.Path, e.Err)
}

func (e *LockError) Unwrap() error { return e.Err }

// DatabaseError wraps any failure during connection setup, statement
// execution, or commit/rollback. The original driver message is carried.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// NewValidationError builds a validation failure for a single field.
func NewValidationError(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, reason)
}
