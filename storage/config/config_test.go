package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AstrobaseTech/Astrobase-sub000/registry"
	"github.com/AstrobaseTech/Astrobase-sub000/storage"
	"github.com/AstrobaseTech/Astrobase-sub000/storage/driver"
	"github.com/AstrobaseTech/Astrobase-sub000/storage/localfs"
	"github.com/AstrobaseTech/Astrobase-sub000/storage/memory"
)

func TestLoad_YAML(t *testing.T) {
	doc := `
instance: default
write_concurrency: 4
backends:
  - name: hot
    driver: memory
    priority: 1
  - name: disk
    driver: localfs
    options:
      dir: /tmp/astrobase
`
	cfg, err := Load([]byte(doc), driver.Default)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Instance != "default" || cfg.WriteConcurrency != 4 || len(cfg.Backends) != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if p := cfg.Backends[0].Priority; p == nil || *p != 1 {
		t.Fatalf("expected priority 1, got %v", p)
	}
	if cfg.Backends[1].Priority != nil {
		t.Fatalf("omitted priority must stay nil")
	}
	if cfg.Backends[1].Options["dir"] != "/tmp/astrobase" {
		t.Fatalf("unexpected options: %v", cfg.Backends[1].Options)
	}
}

func TestLoad_JSON(t *testing.T) {
	cfg, err := Load([]byte(`{"backends":[{"name":"m","driver":"memory"}]}`), driver.Default)
	if err != nil || len(cfg.Backends) != 1 {
		t.Fatalf("Load JSON: %+v %v", cfg, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"empty", Config{}, "at least one backend"},
		{"no name", Config{Backends: []Backend{{Driver: "memory"}}}, "name is required"},
		{"dup", Config{Backends: []Backend{{Name: "a", Driver: "memory"}, {Name: "a", Driver: "memory"}}}, "duplicate"},
		{"no driver", Config{Backends: []Backend{{Name: "a"}}}, "driver is required"},
		{"unknown driver", Config{Backends: []Backend{{Name: "a", Driver: "nope"}}}, "unknown driver"},
		{"concurrency", Config{WriteConcurrency: -1, Backends: []Backend{{Name: "a", Driver: "memory"}}}, "write_concurrency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate(driver.Default)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestOpen_RegistersBackends(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Instance: "app",
		Backends: []Backend{
			{Name: "hot", Driver: "memory", Priority: storage.Priority(1)},
			{Name: "disk", Driver: "localfs", Options: driver.Options{"dir": dir}},
		},
	}
	engine := storage.New(storage.Config{})
	closeFn, err := cfg.Open(context.Background(), engine, driver.Default, driver.UsageCLI)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()

	regs := engine.Backends("app")
	if len(regs) != 2 {
		t.Fatalf("expected 2 backends, got %d", len(regs))
	}
	if _, ok := regs[0].Backend.(*memory.Backend); !ok || regs[0].Instance != "app" {
		t.Fatalf("unexpected first registration %+v", regs[0])
	}
	if _, ok := regs[1].Backend.(*localfs.Backend); !ok || regs[1].Priority != nil {
		t.Fatalf("unexpected second registration %+v", regs[1])
	}
	if len(engine.Backends("other")) != 0 {
		t.Fatalf("instance-scoped backends leaked")
	}
}

func TestOpen_RollsBackOnFailure(t *testing.T) {
	drivers := driver.NewRegistry()
	closed := 0
	drivers.MustRegister(driver.Driver{
		Name:  "ok",
		Usage: driver.UsageCLI,
		Open: func(context.Context, driver.Options) (any, func() error, error) {
			return memory.New(), func() error { closed++; return nil }, nil
		},
	}, registry.RegisterOptions[string]{})
	boom := errors.New("boom")
	drivers.MustRegister(driver.Driver{
		Name:  "broken",
		Usage: driver.UsageCLI,
		Open: func(context.Context, driver.Options) (any, func() error, error) {
			return nil, nil, boom
		},
	}, registry.RegisterOptions[string]{})

	cfg := Config{Backends: []Backend{{Name: "a", Driver: "ok"}, {Name: "b", Driver: "broken"}}}
	engine := storage.New(storage.Config{})
	if _, err := cfg.Open(context.Background(), engine, drivers, driver.UsageCLI); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if closed != 1 {
		t.Fatalf("expected opened backend to be closed, closed=%d", closed)
	}
	if n := len(engine.Backends("")); n != 0 {
		t.Fatalf("expected rollback, %d backends remain", n)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "astrobase.yaml")
	if err := os.WriteFile(path, []byte("backends:\n  - {name: m, driver: memory}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path, driver.Default); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if _, err := LoadFile("", driver.Default); err == nil {
		t.Fatalf("expected empty path error")
	}
}
