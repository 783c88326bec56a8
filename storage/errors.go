package storage

import (
	"errors"
	"fmt"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
)

var (
	ErrNotFound         = errors.New("storage: not found")
	ErrInvalidCID       = errors.New("storage: invalid cid")
	ErrUnsupported      = errors.New("storage: operation not supported")
	ErrValidationFailed = errors.New("storage: validation failed")
	ErrBackendExists    = errors.New("storage: backend already registered")
	ErrInvalidBackend   = errors.New("storage: invalid backend")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// ValidationError is returned by Put when content fails its scheme.
// It matches ErrValidationFailed and, when the scheme errored rather
// than rejected the content, the underlying error.
type ValidationError struct {
	CID cid.CID
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err == nil || errors.Is(e.Err, ErrValidationFailed) {
		return fmt.Sprintf("storage: validation failed for %s", e.CID)
	}
	return fmt.Sprintf("storage: validation failed for %s: %v", e.CID, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidationFailed}
	}
	return []error{ErrValidationFailed, e.Err}
}

// BackendError records a single backend failure during fan-out. These
// are reported through Config.OnBackendError and the logger, never
// returned from Get, Put or Delete.
type BackendError struct {
	Backend string
	Op      Op
	CID     cid.CID
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("storage: backend %q %s %s: %v", e.Backend, e.Op, e.CID, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
