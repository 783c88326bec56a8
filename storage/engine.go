// Package storage resolves get, put and delete requests against a set
// of pluggable, priority-ordered backends.
//
// Reads walk priority groups in order. All backends in a group are
// queried concurrently and the first response that passes the CID's
// scheme wins; the next group is only tried once every member of the
// current one has come back with nothing valid. Writes and deletes are
// broadcast to every applicable backend regardless of priority and
// succeed once all backends have settled, whatever their outcome.
//
// A backend that never returns stalls its read group. Bound Get with a
// context deadline when backends may hang.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/scheme"
)

// Registration attaches a backend to an Engine.
type Registration struct {
	// Name identifies the backend in logs and errors. It must be unique
	// within its scope.
	Name string

	// Backend implements one or more of Getter, Putter, Deleter and
	// Handler.
	Backend any

	// Priority orders read fallback; lower is queried earlier. Backends
	// sharing a priority are queried concurrently. Nil places the
	// backend after all prioritized ones, alone in its group.
	Priority *int

	// Instance restricts the backend to one instance. Empty means the
	// backend serves every instance.
	Instance string
}

// Priority returns a pointer to p for Registration.Priority.
func Priority(p int) *int { return &p }

// Config configures an Engine.
type Config struct {
	Logger *slog.Logger

	// OnBackendError observes backend failures during fan-out. It may be
	// called concurrently.
	OnBackendError func(*BackendError)

	// WriteConcurrency bounds concurrent backend calls per Put or
	// Delete. Zero means unbounded, with every backend written at once.
	// A positive value gives up that guarantee: with more backends than
	// the limit, later ones wait for earlier calls to finish, so one slow
	// backend delays writes to the rest.
	WriteConcurrency int
}

// Engine is safe for concurrent use.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	mu   sync.RWMutex
	regs []Registration
}

func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Register adds a backend. Registration order breaks ties between
// unprioritized backends.
func (e *Engine) Register(r Registration) error {
	if r.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidBackend)
	}
	if r.Backend == nil {
		return fmt.Errorf("%w: %q has no backend", ErrInvalidBackend, r.Name)
	}
	if !Supports(r.Backend, OpGet) && !Supports(r.Backend, OpPut) && !Supports(r.Backend, OpDelete) {
		return fmt.Errorf("%w: %q implements no backend operation", ErrInvalidBackend, r.Name)
	}
	if r.Priority != nil {
		p := *r.Priority
		r.Priority = &p
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.regs {
		if existing.Name == r.Name && existing.Instance == r.Instance {
			return fmt.Errorf("%w: %q", ErrBackendExists, r.Name)
		}
	}
	e.regs = append(e.regs, r)
	e.logger.Debug("backend registered", "backend", r.Name, "instance", r.Instance)
	return nil
}

// Unregister removes the backend registered under name in the given
// scope and reports whether it existed.
func (e *Engine) Unregister(name, instance string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.regs {
		if r.Name == name && r.Instance == instance {
			e.regs = append(e.regs[:i:i], e.regs[i+1:]...)
			return true
		}
	}
	return false
}

// Backends returns the registrations visible to instance in
// registration order.
func (e *Engine) Backends(instance string) []Registration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []Registration
	for _, r := range e.regs {
		if r.Instance == "" || r.Instance == instance {
			out = append(out, r)
		}
	}
	return out
}

func (e *Engine) applicable(instance string, op Op) []Registration {
	var out []Registration
	for _, r := range e.Backends(instance) {
		if Supports(r.Backend, op) {
			out = append(out, r)
		}
	}
	return out
}

// Result is a validated read.
type Result struct {
	// Value is what the scheme parser produced (for example an
	// *envelope.File).
	Value any

	// Data is the raw content as returned by the backend.
	Data []byte

	// Backend names the backend that supplied Data.
	Backend string
}

// Get returns the first valid content for id. ok is false when no
// backend has valid content; that is not an error. An error means the
// identifier cannot be resolved at all (no scheme for its prefix, an
// unregistered algorithm) or ctx ended.
func (e *Engine) Get(ctx context.Context, inst scheme.Instance, id cid.CID) (Result, bool, error) {
	if _, err := inst.Scheme(id.Prefix()); err != nil {
		return Result{}, false, err
	}
	for _, group := range e.Groups(inst.ID(), OpGet) {
		if err := ctx.Err(); err != nil {
			return Result{}, false, err
		}
		res, ok, err := e.raceGroup(ctx, inst, id, group)
		if err != nil || ok {
			return res, ok, err
		}
	}
	return Result{}, false, nil
}

// Has reports whether any backend holds valid content for id.
func (e *Engine) Has(ctx context.Context, inst scheme.Instance, id cid.CID) (bool, error) {
	_, ok, err := e.Get(ctx, inst, id)
	return ok, err
}

type putOptions struct {
	validate bool
}

// PutOption configures Put.
type PutOption func(*putOptions)

// WithoutValidation skips the scheme check before writing.
func WithoutValidation() PutOption {
	return func(o *putOptions) { o.validate = false }
}

// Put validates data against id's scheme and writes it to every
// applicable backend. Backend failures are reported, not returned.
// With no backends registered Put succeeds without effect.
func (e *Engine) Put(ctx context.Context, inst scheme.Instance, id cid.CID, data []byte, opts ...PutOption) error {
	o := putOptions{validate: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.validate {
		_, ok, err := scheme.ValidateAndParse(ctx, inst, id, data)
		if err != nil {
			return &ValidationError{CID: id, Err: err}
		}
		if !ok {
			return &ValidationError{CID: id}
		}
	}
	return e.broadcast(ctx, inst.ID(), OpPut, id, data)
}

// Delete removes id from every applicable backend. Backend failures
// are reported, not returned.
func (e *Engine) Delete(ctx context.Context, inst scheme.Instance, id cid.CID) error {
	return e.broadcast(ctx, inst.ID(), OpDelete, id, nil)
}

func (e *Engine) report(be *BackendError) {
	e.logger.Warn("backend operation failed",
		"backend", be.Backend,
		"op", string(be.Op),
		"cid", be.CID.String(),
		"error", be.Err,
	)
	if e.cfg.OnBackendError != nil {
		e.cfg.OnBackendError(be)
	}
}
