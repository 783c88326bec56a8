package scheme_test

import (
	"context"
	"errors"
	"testing"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/envelope"
	"github.com/AstrobaseTech/Astrobase-sub000/hashing"
	"github.com/AstrobaseTech/Astrobase-sub000/instance"
	"github.com/AstrobaseTech/Astrobase-sub000/registry"
	"github.com/AstrobaseTech/Astrobase-sub000/scheme"
)

func TestImmutable(t *testing.T) {
	ctx := context.Background()
	inst := instance.NewIsolated("scheme", nil)
	f, _ := envelope.NewFile("text/plain", []byte("immutable"))

	for _, code := range []uint64{hashing.SHA2_256, hashing.SHA3_256, hashing.BLAKE3} {
		id, err := scheme.ImmutableCID(inst, f, code)
		if err != nil {
			t.Fatalf("ImmutableCID(%#x): %v", code, err)
		}
		v, ok, err := scheme.ValidateAndParse(ctx, inst, id, f.Bytes())
		if err != nil || !ok {
			t.Fatalf("valid content: ok=%v err=%v", ok, err)
		}
		if !v.(*envelope.File).Equal(f) {
			t.Fatalf("parsed file mismatch")
		}
		if _, ok, err := scheme.ValidateAndParse(ctx, inst, id, []byte("text/plain\x00mutated")); ok || err != nil {
			t.Fatalf("hash mismatch: ok=%v err=%v", ok, err)
		}
	}

	if _, ok, err := scheme.ValidateAndParse(ctx, inst, cid.MustNew(scheme.ImmutablePrefix, []byte{0x12}), f.Bytes()); ok || err != nil {
		t.Fatalf("malformed multihash must be absent: ok=%v err=%v", ok, err)
	}

	unknown := cid.MustNew(scheme.ImmutablePrefix, append([]byte{0x11, 0x14}, make([]byte, 20)...))
	if _, _, err := scheme.ValidateAndParse(ctx, inst, unknown, f.Bytes()); !registry.IsNotFound(err) {
		t.Fatalf("unregistered algorithm must be fatal, got %v", err)
	}
}

func TestImmutable_RequiresFile(t *testing.T) {
	ctx := context.Background()
	inst := instance.NewIsolated("scheme", nil)
	raw := []byte("no terminator")
	mh, err := hashing.Digest(inst, hashing.SHA2_256, raw)
	if err != nil {
		t.Fatal(err)
	}
	id := cid.MustNew(scheme.ImmutablePrefix, mh)
	if _, ok, err := scheme.ValidateAndParse(ctx, inst, id, raw); ok || err != nil {
		t.Fatalf("non-file content must be absent: ok=%v err=%v", ok, err)
	}
}

func TestMutable(t *testing.T) {
	ctx := context.Background()
	inst := instance.NewIsolated("scheme", nil)
	id, err := scheme.MutableCID("any/key with spaces")
	if err != nil {
		t.Fatalf("MutableCID: %v", err)
	}
	f, _ := envelope.NewFile("text/plain", []byte("v"))
	v, ok, err := scheme.ValidateAndParse(ctx, inst, id, f.Bytes())
	if err != nil || !ok || !v.(*envelope.File).Equal(f) {
		t.Fatalf("plain file: ok=%v err=%v", ok, err)
	}
	if _, ok, err := scheme.ValidateAndParse(ctx, inst, id, []byte("no nul")); ok || err != nil {
		t.Fatalf("invalid envelope must be absent: ok=%v err=%v", ok, err)
	}
	broken, _ := envelope.NewFile(envelope.WrapMediaType, []byte("truncated"))
	if _, ok, err := scheme.ValidateAndParse(ctx, inst, id, broken.Bytes()); ok || err != nil {
		t.Fatalf("malformed wrap must be absent: ok=%v err=%v", ok, err)
	}
	w, _ := envelope.Wrap{Type: "nosuch", Payload: f.Bytes()}.Encode()
	unknown, _ := envelope.NewFile(envelope.WrapMediaType, w)
	_, ok, err = scheme.ValidateAndParse(ctx, inst, id, unknown.Bytes())
	if ok || !errors.Is(err, scheme.ErrUnknownStrategy) || !registry.IsNotFound(err) {
		t.Fatalf("unknown wrap type: ok=%v err=%v", ok, err)
	}
}

func TestValidateAndParse_UnknownPrefix(t *testing.T) {
	inst := instance.NewIsolated("scheme", nil)
	_, ok, err := scheme.ValidateAndParse(context.Background(), inst, cid.MustNew("zzz", nil), nil)
	if ok || !registry.IsNotFound(err) {
		t.Fatalf("expected not found, got ok=%v err=%v", ok, err)
	}
}

func TestFunc_InstanceScoped(t *testing.T) {
	ctx := context.Background()
	inst := instance.NewIsolated("custom", nil)
	other := instance.New("other", instance.Options{Schemes: inst.Schemes()})

	nonEmpty := scheme.New("nonempty", func(_ context.Context, _ cid.CID, content []byte, _ scheme.Instance) (any, bool, error) {
		return string(content), len(content) > 0, nil
	})
	if err := inst.Schemes().Register(nonEmpty, registry.RegisterOptions[string]{Instance: inst.ID()}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	id := cid.MustNew("nonempty", []byte("k"))
	if v, ok, err := scheme.ValidateAndParse(ctx, inst, id, []byte("x")); err != nil || !ok || v != "x" {
		t.Fatalf("custom scheme: v=%v ok=%v err=%v", v, ok, err)
	}
	if _, ok, err := scheme.ValidateAndParse(ctx, inst, id, nil); err != nil || ok {
		t.Fatalf("custom scheme rejection: ok=%v err=%v", ok, err)
	}
	if _, _, err := scheme.ValidateAndParse(ctx, other, id, []byte("x")); !registry.IsNotFound(err) {
		t.Fatalf("scheme must be scoped to its instance, got %v", err)
	}
}

func TestRegistry_RejectsInvalidPrefix(t *testing.T) {
	r := scheme.NewRegistry()
	s := scheme.New("Upper", func(context.Context, cid.CID, []byte, scheme.Instance) (any, bool, error) { return nil, false, nil })
	if err := r.Register(s, registry.RegisterOptions[string]{}); err == nil {
		t.Fatalf("expected invalid prefix to be rejected")
	}
}
