// Package config opens storage backends described by a YAML (or JSON)
// document and registers them with an Engine.
//
// Callers still need to link the desired drivers via blank imports.
//
// Example:
//
//	instance: default
//	backends:
//	  - name: hot
//	    driver: memory
//	    priority: 1
//	  - name: disk
//	    driver: localfs
//	    priority: 2
//	    options:
//	      dir: /var/lib/astrobase
//
// Option keys are driver-specific.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AstrobaseTech/Astrobase-sub000/storage"
	"github.com/AstrobaseTech/Astrobase-sub000/storage/driver"
)

// EnvVar names the environment variable commands consult for the
// config path when no flag is given.
const EnvVar = "ASTROBASE_CONFIG"

type Config struct {
	// Instance scopes every backend in this file. Empty registers them
	// for all instances.
	Instance string    `yaml:"instance,omitempty"`
	Backends []Backend `yaml:"backends"`

	// WriteConcurrency bounds concurrent backend writes per Put. Zero
	// writes every backend at once; see storage.Config.
	WriteConcurrency int `yaml:"write_concurrency,omitempty"`
}

type Backend struct {
	// Name identifies the backend in logs and errors.
	Name string `yaml:"name"`
	// Driver is the driver catalog entry to open (e.g. "localfs").
	Driver string `yaml:"driver"`
	// Priority orders read fallback. Omitted means unprioritized.
	Priority *int           `yaml:"priority,omitempty"`
	Options  driver.Options `yaml:"options,omitempty"`
}

// Load parses a config document and validates it against drivers.
func Load(data []byte, drivers *driver.Registry) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, cfg.Validate(drivers)
}

func LoadFile(path string, drivers *driver.Registry) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Load(b, drivers)
}

// Validate rejects empty or duplicate names and drivers missing from
// the catalog. A nil catalog skips the driver check.
func (c Config) Validate(drivers *driver.Registry) error {
	if len(c.Backends) == 0 {
		return errors.New("config: at least one backend is required")
	}
	seen := make(map[string]struct{}, len(c.Backends))
	for i, b := range c.Backends {
		if b.Name == "" {
			return fmt.Errorf("config: backends[%d]: name is required", i)
		}
		if _, ok := seen[b.Name]; ok {
			return fmt.Errorf("config: duplicate backend name %q", b.Name)
		}
		seen[b.Name] = struct{}{}
		if b.Driver == "" {
			return fmt.Errorf("config: backend %q: driver is required", b.Name)
		}
		if drivers != nil {
			if _, ok := drivers.Get(b.Driver, ""); !ok {
				return fmt.Errorf("config: backend %q: %w %q", b.Name, driver.ErrUnknown, b.Driver)
			}
		}
	}
	if c.WriteConcurrency < 0 {
		return fmt.Errorf("config: invalid write_concurrency %d", c.WriteConcurrency)
	}
	return nil
}

// Open opens every backend and registers it with engine. On failure
// backends opened so far are unregistered and closed. The returned
// function closes all backends in reverse order.
func (c Config) Open(ctx context.Context, engine *storage.Engine, drivers *driver.Registry, usage driver.Usage) (func() error, error) {
	if err := c.Validate(drivers); err != nil {
		return nil, err
	}

	var (
		closers    []func() error
		registered []string
	)
	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	fail := func(err error) (func() error, error) {
		for _, name := range registered {
			engine.Unregister(name, c.Instance)
		}
		_ = closeAll()
		return nil, err
	}

	for _, b := range c.Backends {
		backend, closeFn, err := driver.Open(ctx, drivers, b.Driver, usage, b.Options)
		if err != nil {
			return fail(fmt.Errorf("config: backend %q: %w", b.Name, err))
		}
		closers = append(closers, closeFn)
		err = engine.Register(storage.Registration{
			Name:     b.Name,
			Backend:  backend,
			Priority: b.Priority,
			Instance: c.Instance,
		})
		if err != nil {
			return fail(fmt.Errorf("config: backend %q: %w", b.Name, err))
		}
		registered = append(registered, b.Name)
	}
	return closeAll, nil
}
