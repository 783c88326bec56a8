package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

type strategy struct {
	name string
	keys []string
}

func newTestRegistry(defaults map[string]strategy) *Registry[string, strategy] {
	return New(Config[string, strategy]{
		Name:     "test",
		Defaults: defaults,
		KeysOf:   func(s strategy) []string { return s.keys },
	})
}

func TestRegistry_Precedence(t *testing.T) {
	r := newTestRegistry(map[string]strategy{"k": {name: "default"}})

	if got, ok := r.Get("k", "any"); !ok || got.name != "default" {
		t.Fatalf("default lookup: got %+v ok=%v", got, ok)
	}

	if err := r.Register(strategy{name: "global"}, RegisterOptions[string]{Keys: []string{"k"}}); err != nil {
		t.Fatalf("register global: %v", err)
	}
	if err := r.Register(strategy{name: "inst"}, RegisterOptions[string]{Keys: []string{"k"}, Instance: "a"}); err != nil {
		t.Fatalf("register instance: %v", err)
	}

	if got, _ := r.Get("k", "a"); got.name != "inst" {
		t.Fatalf("instance lookup: got %q want inst", got.name)
	}
	if got, _ := r.Get("k", "b"); got.name != "global" {
		t.Fatalf("other instance lookup: got %q want global", got.name)
	}
	if got, _ := r.Get("k", ""); got.name != "global" {
		t.Fatalf("no instance lookup: got %q want global", got.name)
	}
}

func TestRegistry_GetStrictNotFound(t *testing.T) {
	r := newTestRegistry(nil)
	_, err := r.GetStrict("missing", "inst-1")
	if !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if rerr.Key != "missing" || rerr.Scope.Kind != ScopeInstance || rerr.Scope.Instance != "inst-1" {
		t.Fatalf("unexpected error detail: %+v", rerr)
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Fatalf("error message should name the key: %q", err.Error())
	}
}

func TestRegistry_CollisionRequiresForce(t *testing.T) {
	r := newTestRegistry(nil)
	first := strategy{name: "first", keys: []string{"k"}}
	second := strategy{name: "second", keys: []string{"k"}}

	if err := r.Register(first, RegisterOptions[string]{}); err != nil {
		t.Fatalf("register first: %v", err)
	}
	err := r.Register(second, RegisterOptions[string]{})
	if !errors.Is(err, ErrKeyInUse) {
		t.Fatalf("expected ErrKeyInUse, got %v", err)
	}
	if got, _ := r.Get("k", ""); got.name != "first" {
		t.Fatalf("original entry replaced without force: %q", got.name)
	}

	if err := r.Register(second, RegisterOptions[string]{Force: true}); err != nil {
		t.Fatalf("forced register: %v", err)
	}
	if got, _ := r.Get("k", ""); got.name != "second" {
		t.Fatalf("forced register did not replace: %q", got.name)
	}
}

func TestRegistry_DefaultsDoNotCollide(t *testing.T) {
	r := newTestRegistry(map[string]strategy{"k": {name: "default"}})
	if err := r.Register(strategy{name: "global"}, RegisterOptions[string]{Keys: []string{"k"}}); err != nil {
		t.Fatalf("global entry should shadow default without force: %v", err)
	}
}

func TestRegistry_NoKeyProvided(t *testing.T) {
	r := newTestRegistry(nil)
	err := r.Register(strategy{name: "nokeys"}, RegisterOptions[string]{})
	if !errors.Is(err, ErrNoKeyProvided) {
		t.Fatalf("expected ErrNoKeyProvided, got %v", err)
	}
}

func TestRegistry_ValidationIsAllOrNothing(t *testing.T) {
	r := New(Config[string, strategy]{
		Name: "validated",
		ValidateKey: func(k string) error {
			if strings.ToLower(k) != k {
				return fmt.Errorf("key %q must be lowercase", k)
			}
			return nil
		},
		ValidateStrategy: func(s strategy) error {
			if s.name == "" {
				return errors.New("missing name")
			}
			return nil
		},
	})

	err := r.Register(strategy{name: "x"}, RegisterOptions[string]{Keys: []string{"ok", "BAD"}})
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if _, ok := r.Get("ok", ""); ok {
		t.Fatalf("valid key registered although a sibling key failed validation")
	}

	err = r.Register(strategy{}, RegisterOptions[string]{Keys: []string{"ok"}})
	if !errors.Is(err, ErrInvalidStrategy) {
		t.Fatalf("expected ErrInvalidStrategy, got %v", err)
	}
}

func TestRegistry_CollisionOnAnyKeyLeavesOthersUnregistered(t *testing.T) {
	r := newTestRegistry(nil)
	if err := r.Register(strategy{name: "a"}, RegisterOptions[string]{Keys: []string{"b"}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := r.Register(strategy{name: "multi"}, RegisterOptions[string]{Keys: []string{"a", "b", "c"}})
	if !errors.Is(err, ErrKeyInUse) {
		t.Fatalf("expected ErrKeyInUse, got %v", err)
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := r.Get(k, ""); ok {
			t.Fatalf("key %q registered by a failed call", k)
		}
	}
}

func TestRegistry_UnregisterAndReset(t *testing.T) {
	r := newTestRegistry(map[string]strategy{"d": {name: "default"}})
	r.MustRegister(strategy{name: "g"}, RegisterOptions[string]{Keys: []string{"g"}})
	r.MustRegister(strategy{name: "i"}, RegisterOptions[string]{Keys: []string{"i"}, Instance: "x"})

	if got := r.Instances(); len(got) != 1 || got[0] != "x" {
		t.Fatalf("Instances: got %v", got)
	}
	if n := len(r.Entries("x")); n != 3 {
		t.Fatalf("Entries(x): got %d entries want 3", n)
	}
	if !r.Unregister("i", "x") {
		t.Fatalf("Unregister(i, x) returned false")
	}
	if r.Unregister("d", "") {
		t.Fatalf("defaults must not be removable")
	}

	r.Reset()
	if _, ok := r.Get("g", ""); ok {
		t.Fatalf("global entry survived Reset")
	}
	if _, ok := r.Get("d", ""); !ok {
		t.Fatalf("default entry lost on Reset")
	}
}

func TestRegistry_ConcurrentRegistrationSingleWinner(t *testing.T) {
	r := newTestRegistry(nil)
	const writers = 32

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := r.Register(strategy{name: fmt.Sprint(i)}, RegisterOptions[string]{Keys: []string{"contended"}})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, ErrKeyInUse) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one successful registration, got %d", wins)
	}
}
