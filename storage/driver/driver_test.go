package driver

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/AstrobaseTech/Astrobase-sub000/registry"
)

func stub(name string, usage Usage) Driver {
	return Driver{
		Name:  name,
		Usage: usage,
		Open: func(context.Context, Options) (any, func() error, error) {
			return name, nil, nil
		},
	}
}

func TestRegistry_ListFiltersByUsage(t *testing.T) {
	r := NewRegistry()
	for _, d := range []Driver{stub("b", UsageCLI), stub("a", UsageCLI|UsageDaemon), stub("c", UsageDaemon)} {
		if err := r.Register(d, registry.RegisterOptions[string]{}); err != nil {
			t.Fatal(err)
		}
	}
	if got := Names(r, UsageCLI); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("cli names: %v", got)
	}
	if got := Names(r, UsageDaemon); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("daemon names: %v", got)
	}
}

func TestRegistry_RejectsIncompleteDrivers(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Driver{Name: "x", Usage: UsageCLI}, registry.RegisterOptions[string]{}); !errors.Is(err, registry.ErrInvalidStrategy) {
		t.Fatalf("missing Open: %v", err)
	}
	if err := r.Register(stub("y", 0), registry.RegisterOptions[string]{}); !errors.Is(err, registry.ErrInvalidStrategy) {
		t.Fatalf("missing Usage: %v", err)
	}
	if err := r.Register(stub("", UsageCLI), registry.RegisterOptions[string]{}); !errors.Is(err, registry.ErrInvalidKey) {
		t.Fatalf("empty name: %v", err)
	}
	_ = r.Register(stub("z", UsageCLI), registry.RegisterOptions[string]{})
	if err := r.Register(stub("z", UsageCLI), registry.RegisterOptions[string]{}); !errors.Is(err, registry.ErrKeyInUse) {
		t.Fatalf("duplicate: %v", err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	r.MustRegister(stub("cli-only", UsageCLI), registry.RegisterOptions[string]{})

	b, closeFn, err := Open(ctx, r, "cli-only", UsageCLI, nil)
	if err != nil || b != "cli-only" {
		t.Fatalf("Open: %v %v", b, err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("default close: %v", err)
	}
	if _, _, err := Open(ctx, r, "cli-only", UsageDaemon, nil); err == nil {
		t.Fatalf("expected usage mismatch")
	}
	if _, _, err := Open(ctx, r, "missing", UsageCLI, nil); !errors.Is(err, ErrUnknown) {
		t.Fatalf("expected ErrUnknown, got %v", err)
	}
}

func TestDecode(t *testing.T) {
	var o struct {
		Path    string        `mapstructure:"path"`
		Size    int           `mapstructure:"size"`
		Sync    bool          `mapstructure:"sync"`
		Timeout time.Duration `mapstructure:"timeout"`
		Tags    []string      `mapstructure:"tags"`
	}
	err := Decode(Options{"path": "/tmp/x", "size": "8", "sync": "true", "timeout": "2s", "tags": "a,b"}, &o)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if o.Path != "/tmp/x" || o.Size != 8 || !o.Sync || o.Timeout != 2*time.Second || len(o.Tags) != 2 {
		t.Fatalf("unexpected decode: %+v", o)
	}
	if err := Decode(Options{"unknown": 1}, &o); err == nil {
		t.Fatalf("expected unknown key to fail")
	}
}
