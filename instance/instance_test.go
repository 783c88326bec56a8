package instance

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/AstrobaseTech/Astrobase-sub000/cidutil"
	"github.com/AstrobaseTech/Astrobase-sub000/codec"
	"github.com/AstrobaseTech/Astrobase-sub000/envelope"
	"github.com/AstrobaseTech/Astrobase-sub000/keys"
	"github.com/AstrobaseTech/Astrobase-sub000/registry"
	"github.com/AstrobaseTech/Astrobase-sub000/scheme"
	"github.com/AstrobaseTech/Astrobase-sub000/storage"
	"github.com/AstrobaseTech/Astrobase-sub000/storage/memory"
	"github.com/AstrobaseTech/Astrobase-sub000/wraps"
)

func newTestInstance(t *testing.T, id string) (*Instance, *memory.Backend) {
	t.Helper()
	e := storage.New(storage.Config{})
	mem := memory.New()
	if err := e.Register(storage.Registration{Name: "mem", Backend: mem}); err != nil {
		t.Fatal(err)
	}
	return NewIsolated(id, e), mem
}

func TestInstance_PutFileGetFile(t *testing.T) {
	ctx := context.Background()
	inst, mem := newTestInstance(t, "files")

	f, _ := envelope.NewFile("application/json", nil)
	if err := f.SetValue(ctx, map[string]any{"hello": "world"}, inst); err != nil {
		t.Fatal(err)
	}
	id, err := inst.PutFile(ctx, f, 0)
	if err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	if id.Prefix() != "blob" || mem.Len() != 1 {
		t.Fatalf("unexpected id %s / len %d", id, mem.Len())
	}
	got, ok, err := inst.GetFile(ctx, id)
	if err != nil || !ok || !got.Equal(f) {
		t.Fatalf("GetFile: ok=%v err=%v", ok, err)
	}
	if ok, err := inst.Has(ctx, id); err != nil || !ok {
		t.Fatalf("Has: ok=%v err=%v", ok, err)
	}
}

func TestInstance_SignedMutableContent(t *testing.T) {
	ctx := context.Background()
	inst, mem := newTestInstance(t, "signed")

	kr := keys.NewKeyring()
	pub, err := kr.AddEd25519Seed(bytes.Repeat([]byte{8}, ed25519.SeedSize))
	if err != nil {
		t.Fatal(err)
	}
	if err := wraps.Register(inst.Wraps(), inst.ID(), wraps.Defaults(kr)...); err != nil {
		t.Fatalf("register wraps: %v", err)
	}

	value, _ := envelope.NewFile("text/plain", []byte("profile v1"))
	meta, _ := envelope.NewFile("application/json", nil)
	if err := meta.SetValue(ctx, map[string]any{"publicKey": []byte(pub)}, inst); err != nil {
		t.Fatal(err)
	}
	signed, err := envelope.WrapFile(ctx, inst, envelope.Wrapped{Type: "ed25519", Metadata: meta, Value: value})
	if err != nil {
		t.Fatalf("WrapFile: %v", err)
	}

	id, err := inst.PutMutable(ctx, "profile", signed)
	if err != nil {
		t.Fatalf("PutMutable: %v", err)
	}
	got, ok, err := inst.GetFile(ctx, id)
	if err != nil || !ok {
		t.Fatalf("GetFile: ok=%v err=%v", ok, err)
	}
	if !got.Equal(value) {
		t.Fatalf("expected unwrapped value, got %q", got.Bytes())
	}

	tampered := signed.Clone()
	p := append([]byte(nil), tampered.Payload()...)
	p[len(p)-1] ^= 1
	tampered.SetPayload(p)
	if err := inst.Put(ctx, id, tampered.Bytes()); !errors.Is(err, storage.ErrValidationFailed) {
		t.Fatalf("expected tampered write to fail validation, got %v", err)
	}
	if err := mem.Put(ctx, id, tampered.Bytes()); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := inst.GetFile(ctx, id); ok || err != nil {
		t.Fatalf("tampered content must read as absent: ok=%v err=%v", ok, err)
	}
}

func TestInstance_UnknownWrapTypeIsFatal(t *testing.T) {
	ctx := context.Background()
	inst, mem := newTestInstance(t, "nowrap")
	w, err := envelope.Wrap{Type: "unregistered", Metadata: []byte("\x00"), Payload: []byte("\x00x")}.Encode()
	if err != nil {
		t.Fatal(err)
	}
	f, _ := envelope.NewFile(envelope.WrapMediaType, w)
	if _, err := inst.PutMutable(ctx, "k", f); !registry.IsNotFound(err) {
		t.Fatalf("expected registry not found from validation, got %v", err)
	}
	id, err := scheme.MutableCID("k")
	if err != nil {
		t.Fatal(err)
	}
	_ = mem.Put(ctx, id, f.Bytes())
	if _, _, err := inst.Get(ctx, id); !registry.IsNotFound(err) {
		t.Fatalf("expected not found error on read, got %v", err)
	}
}

func TestInstance_IPFSContent(t *testing.T) {
	ctx := context.Background()
	inst, _ := newTestInstance(t, "ipfs")
	data := []byte("raw ipfs block")
	id, err := cidutil.IPFSFor(data)
	if err != nil {
		t.Fatal(err)
	}
	if err := inst.Put(ctx, id, data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := inst.Put(ctx, id, []byte("other")); !errors.Is(err, storage.ErrValidationFailed) {
		t.Fatalf("expected mismatch to fail, got %v", err)
	}
	f, ok, err := inst.GetFile(ctx, id)
	if err != nil || !ok || !bytes.Equal(f.Payload(), data) {
		t.Fatalf("GetFile: ok=%v err=%v", ok, err)
	}
}

type upperCodec struct{ codec.Text }

func (upperCodec) MediaTypes() []string { return []string{"text/x-upper"} }

func TestInstance_ScopedRegistrations(t *testing.T) {
	codecs := codec.NewRegistry()
	a := New("a", Options{Codecs: codecs})
	b := New("b", Options{Codecs: codecs})
	if err := codecs.Register(upperCodec{}, registry.RegisterOptions[string]{Instance: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Codec("text/x-upper"); err != nil {
		t.Fatalf("instance a should see its codec: %v", err)
	}
	if _, err := b.Codec("text/x-upper"); !registry.IsNotFound(err) {
		t.Fatalf("instance b must not see a's codec, got %v", err)
	}
}

func TestNew_DefaultsToGlobals(t *testing.T) {
	inst := New("g", Options{})
	if inst.Codecs() != GlobalCodecs || inst.Engine() != GlobalEngine || inst.Schemes() != GlobalSchemes {
		t.Fatalf("expected global registries")
	}
}
