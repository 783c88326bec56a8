// Package testkit is a conformance suite for storage backends.
package testkit

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/envelope"
	"github.com/AstrobaseTech/Astrobase-sub000/instance"
	"github.com/AstrobaseTech/Astrobase-sub000/scheme"
	"github.com/AstrobaseTech/Astrobase-sub000/storage"
)

// Backend is the full capability set the suite exercises.
type Backend interface {
	storage.Getter
	storage.Putter
	storage.Deleter
}

// NewBackend constructs a fresh, empty backend for a test.
// The returned backend MUST be isolated from other tests.
type NewBackend func(t *testing.T) Backend

// RunBackendConformance checks the contract every backend adapter must
// meet: round trips, idempotent puts, ErrNotFound when reading or
// deleting absent content, and rejection of the undefined CID. It
// finishes by driving the backend through an Engine.
func RunBackendConformance(t *testing.T, newBackend NewBackend) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		b := newBackend(t)
		want := mustFile(t, "text/plain", "hello, astrobase storage")
		id := blobCID(t, want)

		if err := b.Put(ctx, id, want.Bytes()); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := b.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want.Bytes()) {
			t.Fatalf("Get bytes mismatch")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		b := newBackend(t)
		f := mustFile(t, "", "same bytes")
		id := blobCID(t, f)
		for i := 0; i < 2; i++ {
			if err := b.Put(ctx, id, f.Bytes()); err != nil {
				t.Fatalf("Put(%d) failed: %v", i+1, err)
			}
		}
		got, err := b.Get(ctx, id)
		if err != nil || !bytes.Equal(got, f.Bytes()) {
			t.Fatalf("Get after repeated Put: %v", err)
		}
	})

	t.Run("MutableOverwrite", func(t *testing.T) {
		b := newBackend(t)
		id, err := scheme.MutableCID("conformance/key")
		if err != nil {
			t.Fatalf("MutableCID: %v", err)
		}
		for _, v := range []string{"v1", "v2"} {
			if err := b.Put(ctx, id, mustFile(t, "text/plain", v).Bytes()); err != nil {
				t.Fatalf("Put(%s) failed: %v", v, err)
			}
		}
		got, err := b.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, mustFile(t, "text/plain", "v2").Bytes()) {
			t.Fatalf("expected last write to win, got %q", got)
		}
	})

	t.Run("NotFoundAndDelete", func(t *testing.T) {
		b := newBackend(t)
		f := mustFile(t, "", "missing")
		id := blobCID(t, f)

		if _, err := b.Get(ctx, id); !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}
		if err := b.Delete(ctx, id); !storage.IsNotFound(err) {
			t.Fatalf("Delete missing: got err=%v want ErrNotFound", err)
		}
		if err := b.Put(ctx, id, f.Bytes()); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := b.Delete(ctx, id); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := b.Get(ctx, id); !storage.IsNotFound(err) {
			t.Fatalf("Get after Delete: got err=%v want ErrNotFound", err)
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		b := newBackend(t)
		if _, err := b.Get(ctx, cid.Undef); err == nil || storage.IsNotFound(err) {
			t.Fatalf("Get should fail for undefined CID, got %v", err)
		}
		if err := b.Put(ctx, cid.Undef, []byte("x")); err == nil {
			t.Fatalf("Put should fail for undefined CID")
		}
	})

	t.Run("ThroughEngine", func(t *testing.T) {
		b := newBackend(t)
		engine := storage.New(storage.Config{})
		if err := engine.Register(storage.Registration{Name: "under-test", Backend: b}); err != nil {
			t.Fatalf("Register: %v", err)
		}
		inst := instance.NewIsolated("conformance", engine)

		f := mustFile(t, "application/json", `{"k":"v"}`)
		id, err := inst.PutFile(ctx, f, 0)
		if err != nil {
			t.Fatalf("PutFile: %v", err)
		}
		got, ok, err := inst.GetFile(ctx, id)
		if err != nil || !ok {
			t.Fatalf("GetFile: ok=%v err=%v", ok, err)
		}
		if !got.Equal(f) {
			t.Fatalf("GetFile mismatch")
		}

		if err := inst.Delete(ctx, id); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, ok, err := inst.GetFile(ctx, id); err != nil || ok {
			t.Fatalf("GetFile after delete: ok=%v err=%v", ok, err)
		}
		if err := inst.Put(ctx, id, []byte("\x00not the content")); !errors.Is(err, storage.ErrValidationFailed) {
			t.Fatalf("expected ErrValidationFailed, got %v", err)
		}
	})
}

func mustFile(t *testing.T, mediaType, payload string) *envelope.File {
	t.Helper()
	f, err := envelope.NewFile(mediaType, []byte(payload))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	return f
}

func blobCID(t *testing.T, f *envelope.File) cid.CID {
	t.Helper()
	inst := instance.NewIsolated("testkit", nil)
	id, err := scheme.ImmutableCID(inst, f, instance.DefaultHash)
	if err != nil {
		t.Fatalf("ImmutableCID: %v", err)
	}
	return id
}
