// Package registry implements a tiered, keyed lookup for pluggable
// strategies (codecs, hash functions, schemes, wrap types, drivers).
//
// Entries live in one of three scopes:
//
//   - default: supplied at construction, never mutated
//   - global: registered at runtime, visible to every instance
//   - instance: registered at runtime under a named instance
//
// Lookups consult instance, then global, then default.
package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Config configures a Registry. Only Name is required.
type Config[K comparable, V any] struct {
	// Name identifies the registry in error messages (e.g. "codec").
	Name string

	// Defaults are the immutable default-scope entries.
	Defaults map[K]V

	// KeysOf resolves keys from a strategy when RegisterOptions.Keys is empty.
	KeysOf func(V) []K

	// ValidateKey rejects keys before insertion.
	ValidateKey func(K) error

	// ValidateStrategy rejects strategies before insertion.
	ValidateStrategy func(V) error
}

// RegisterOptions controls a single Register call.
type RegisterOptions[K comparable] struct {
	// Keys overrides the keys resolved via Config.KeysOf.
	Keys []K

	// Instance names the target instance scope. Empty means global.
	Instance string

	// Force allows overwriting an existing entry in the target scope.
	Force bool
}

// Registry is safe for concurrent use. Registration is serialized so
// the key-in-use check cannot race with another writer.
type Registry[K comparable, V any] struct {
	cfg      Config[K, V]
	defaults map[K]V

	mu        sync.RWMutex
	global    map[K]V
	instances map[string]map[K]V
}

// New constructs a Registry. The defaults map is copied.
func New[K comparable, V any](cfg Config[K, V]) *Registry[K, V] {
	defaults := make(map[K]V, len(cfg.Defaults))
	for k, v := range cfg.Defaults {
		defaults[k] = v
	}
	return &Registry[K, V]{
		cfg:       cfg,
		defaults:  defaults,
		global:    map[K]V{},
		instances: map[string]map[K]V{},
	}
}

// Name returns the configured registry name.
func (r *Registry[K, V]) Name() string { return r.cfg.Name }

// Get returns the strategy registered for key as seen from instance.
// An empty instance skips the instance scope.
func (r *Registry[K, V]) Get(key K, instance string) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if instance != "" {
		if v, ok := r.instances[instance][key]; ok {
			return v, true
		}
	}
	if v, ok := r.global[key]; ok {
		return v, true
	}
	v, ok := r.defaults[key]
	return v, ok
}

// GetStrict is like Get but returns an *Error wrapping ErrNotFound when
// no scope has an entry for key.
func (r *Registry[K, V]) GetStrict(key K, instance string) (V, error) {
	if v, ok := r.Get(key, instance); ok {
		return v, nil
	}
	var zero V
	return zero, &Error{Op: "get", Registry: r.cfg.Name, Scope: scopeOf(instance), Key: key, Err: ErrNotFound}
}

// Register inserts v under every resolved key in the target scope.
//
// All keys are validated and collision-checked before any entry is
// written, so a failed call leaves the registry unchanged.
func (r *Registry[K, V]) Register(v V, opts RegisterOptions[K]) error {
	scope := scopeOf(opts.Instance)

	keys := opts.Keys
	if len(keys) == 0 && r.cfg.KeysOf != nil {
		keys = r.cfg.KeysOf(v)
	}
	if len(keys) == 0 {
		return &Error{Op: "register", Registry: r.cfg.Name, Scope: scope, Err: ErrNoKeyProvided}
	}

	if r.cfg.ValidateKey != nil {
		for _, k := range keys {
			if err := r.cfg.ValidateKey(k); err != nil {
				return &Error{Op: "register", Registry: r.cfg.Name, Scope: scope, Key: k, Err: fmt.Errorf("%w: %v", ErrInvalidKey, err)}
			}
		}
	}
	if r.cfg.ValidateStrategy != nil {
		if err := r.cfg.ValidateStrategy(v); err != nil {
			return &Error{Op: "register", Registry: r.cfg.Name, Scope: scope, Key: keys[0], Err: fmt.Errorf("%w: %v", ErrInvalidStrategy, err)}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	target := r.global
	if opts.Instance != "" {
		target = r.instances[opts.Instance]
		if target == nil {
			target = map[K]V{}
			r.instances[opts.Instance] = target
		}
	}

	if !opts.Force {
		for _, k := range keys {
			if _, exists := target[k]; exists {
				return &Error{Op: "register", Registry: r.cfg.Name, Scope: scope, Key: k, Err: ErrKeyInUse}
			}
		}
	}
	for _, k := range keys {
		target[k] = v
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry[K, V]) MustRegister(v V, opts RegisterOptions[K]) {
	if err := r.Register(v, opts); err != nil {
		panic(err)
	}
}

// Unregister removes key from the global scope (instance == "") or
// the named instance scope. Defaults cannot be removed.
func (r *Registry[K, V]) Unregister(key K, instance string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	target := r.global
	if instance != "" {
		target = r.instances[instance]
	}
	if _, ok := target[key]; !ok {
		return false
	}
	delete(target, key)
	return true
}

// Entries returns the effective key -> strategy view for instance,
// with instance entries shadowing global ones and global shadowing
// defaults.
func (r *Registry[K, V]) Entries(instance string) map[K]V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[K]V, len(r.defaults)+len(r.global))
	for k, v := range r.defaults {
		out[k] = v
	}
	for k, v := range r.global {
		out[k] = v
	}
	if instance != "" {
		for k, v := range r.instances[instance] {
			out[k] = v
		}
	}
	return out
}

// Reset drops every global and instance entry. Defaults survive.
// Intended for tests sharing a process-wide registry.
func (r *Registry[K, V]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = map[K]V{}
	r.instances = map[string]map[K]V{}
}

// Instances returns the names of instances with at least one entry, sorted.
func (r *Registry[K, V]) Instances() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.instances))
	for name, entries := range r.instances {
		if len(entries) > 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func scopeOf(instance string) Scope {
	if instance == "" {
		return Scope{Kind: ScopeGlobal}
	}
	return Scope{Kind: ScopeInstance, Instance: instance}
}
