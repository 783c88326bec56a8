package registry

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("registry: not found")
	ErrKeyInUse        = errors.New("registry: key in use")
	ErrInvalidKey      = errors.New("registry: invalid key")
	ErrInvalidStrategy = errors.New("registry: invalid strategy")
	ErrNoKeyProvided   = errors.New("registry: no key provided")
)

// ScopeKind names the tier an operation targeted.
type ScopeKind string

const (
	ScopeDefault  ScopeKind = "default"
	ScopeGlobal   ScopeKind = "global"
	ScopeInstance ScopeKind = "instance"
)

// Scope is the tier plus, for ScopeInstance, the instance name.
type Scope struct {
	Kind     ScopeKind
	Instance string
}

func (s Scope) String() string {
	if s.Kind == ScopeInstance {
		return fmt.Sprintf("instance %q", s.Instance)
	}
	return string(s.Kind)
}

// Error is returned by registry operations. Err is one of the
// package sentinels, possibly wrapped with detail.
type Error struct {
	Op       string
	Registry string
	Scope    Scope
	Key      any
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	name := e.Registry
	if name == "" {
		name = "registry"
	}
	if e.Key == nil {
		return fmt.Sprintf("%s %s (%s): %v", name, e.Op, e.Scope, e.Err)
	}
	return fmt.Sprintf("%s %s %v (%s): %v", name, e.Op, e.Key, e.Scope, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
