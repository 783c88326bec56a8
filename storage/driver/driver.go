// Package driver is the catalog of storage backend drivers that can be
// opened by name from configuration.
package driver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/AstrobaseTech/Astrobase-sub000/registry"
)

// Options carries driver-specific settings, usually straight from a
// YAML or JSON document.
type Options map[string]any

// OpenFunc constructs a backend. The returned backend implements one or
// more of the storage capability interfaces. close may be nil.
type OpenFunc func(ctx context.Context, opts Options) (backend any, close func() error, err error)

// Driver is a build-time plugin that can open a storage backend.
//
// Drivers typically register themselves in init():
//
//	driver.MustRegister(driver.Driver{ ... })
type Driver struct {
	Name        string
	Description string
	Usage       Usage
	Open        OpenFunc
}

// Registry is the driver catalog, keyed by driver name.
type Registry = registry.Registry[string, Driver]

// ErrUnknown reports a driver name nobody registered.
var ErrUnknown = errors.New("driver: unknown driver")

// NewRegistry returns an empty catalog.
func NewRegistry() *Registry {
	return registry.New(registry.Config[string, Driver]{
		Name:   "driver",
		KeysOf: func(d Driver) []string { return []string{d.Name} },
		ValidateKey: func(name string) error {
			if name == "" {
				return errors.New("driver name is required")
			}
			return nil
		},
		ValidateStrategy: func(d Driver) error {
			if d.Open == nil {
				return fmt.Errorf("driver %q missing Open", d.Name)
			}
			if d.Usage == 0 {
				return fmt.Errorf("driver %q missing Usage", d.Name)
			}
			return nil
		},
	})
}

// Default is the process-wide catalog that backend packages register
// into.
var Default = NewRegistry()

// Register registers d in the default catalog.
func Register(d Driver) error {
	return Default.Register(d, registry.RegisterOptions[string]{})
}

// MustRegister is like Register but panics on error.
func MustRegister(d Driver) {
	if err := Register(d); err != nil {
		panic(err)
	}
}

// List returns drivers matching usage, sorted by name.
func List(r *Registry, usage Usage) []Driver {
	entries := r.Entries("")
	out := make([]Driver, 0, len(entries))
	for _, d := range entries {
		if d.Usage.allows(usage) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns driver names matching usage, sorted.
func Names(r *Registry, usage Usage) []string {
	ds := List(r, usage)
	n := make([]string, 0, len(ds))
	for _, d := range ds {
		n = append(n, d.Name)
	}
	return n
}

// Open opens the named driver if it exists and matches usage.
func Open(ctx context.Context, r *Registry, name string, usage Usage, opts Options) (any, func() error, error) {
	d, ok := r.Get(name, "")
	if !ok {
		return nil, nil, fmt.Errorf("%w %q", ErrUnknown, name)
	}
	if !d.Usage.allows(usage) {
		return nil, nil, fmt.Errorf("driver %q not supported in this binary", name)
	}
	b, closeFn, err := d.Open(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", name, err)
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return b, closeFn, nil
}

// Decode decodes opts into out, a pointer to a struct tagged with
// `mapstructure`. Strings are weakly converted so values coming from
// environment variables or flag-like configs ("true", "8") work.
// Unknown keys are rejected.
func Decode(opts Options, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(opts)); err != nil {
		return fmt.Errorf("driver options: %w", err)
	}
	return nil
}
