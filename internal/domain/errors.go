package domain

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Domain Errors
// These are the only failure kinds that cross the core boundary. Stores wrap
// backend errors into one of them; transports map them to responses.
// -----------------------------------------------------------------------------

var (
	ErrDuplicateIdentity  = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Lookup misses inside the core. They never reach a transport unchanged:
// the credential and session services translate them first.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
)

// InputError describes a rejected field. It matches ErrInvalidInput.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// StorageError wraps an infrastructure failure. It matches
// ErrStorageUnavailable and keeps the backend cause for logging.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err as a storage failure of op. Domain errors pass
// through untouched so callers can still branch on them.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrDuplicateIdentity, ErrInvalidCredentials, ErrUnauthenticated,
		ErrNotFound, ErrInvalidInput, ErrStorageUnavailable,
		ErrUserNotFound, ErrSessionNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
