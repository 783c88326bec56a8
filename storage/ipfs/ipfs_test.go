package ipfs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/cidutil"
	"github.com/AstrobaseTech/Astrobase-sub000/instance"
	"github.com/AstrobaseTech/Astrobase-sub000/storage"
)

// fakeKubo emulates the block subcommands the backend uses. Blocks are
// files named by CID; block put answers with the CID the test staged
// in next-cid.
const fakeKubo = `#!/bin/sh
dir="$FAKE_IPFS_DIR"
case "$1 $2" in
"block put")
	id=$(cat "$dir/next-cid")
	cat > "$dir/$id"
	echo "$id"
	;;
"block get")
	if [ -f "$dir/$3" ]; then cat "$dir/$3"; else echo "Error: block not found locally" >&2; exit 1; fi
	;;
"block rm")
	if [ -f "$dir/$4" ]; then rm "$dir/$4"; else echo "Error: block not found" >&2; exit 1; fi
	;;
"block stat")
	[ -f "$dir/$3" ] || exit 1
	;;
*)
	exit 2
	;;
esac
`

func newFake(t *testing.T) (*Backend, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake ipfs binary is a shell script")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "ipfs")
	if err := os.WriteFile(bin, []byte(fakeKubo), 0o755); err != nil {
		t.Fatal(err)
	}
	blocks := filepath.Join(dir, "blocks")
	if err := os.Mkdir(blocks, 0o755); err != nil {
		t.Fatal(err)
	}
	b := New(Options{Bin: bin, Env: []string{"FAKE_IPFS_DIR=" + blocks, "PATH=" + os.Getenv("PATH")}})
	return b, blocks
}

func stage(t *testing.T, blocks string, data []byte) cid.CID {
	t.Helper()
	id, err := cidutil.IPFSFor(data)
	if err != nil {
		t.Fatal(err)
	}
	ic, err := cidutil.ToIPFS(id)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(blocks, "next-cid"), []byte(ic.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return id
}

func TestIPFS_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b, blocks := newFake(t)
	data := []byte("hello kubo")
	id := stage(t, blocks, data)

	if err := b.Put(ctx, id, data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !b.Has(ctx, id) {
		t.Fatalf("Has: expected true")
	}
	got, err := b.Get(ctx, id)
	if err != nil || !bytes.Equal(got, data) {
		t.Fatalf("Get: %q %v", got, err)
	}
	if err := b.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := b.Get(ctx, id); !storage.IsNotFound(err) {
		t.Fatalf("Get after delete: %v", err)
	}
	if err := b.Delete(ctx, id); !storage.IsNotFound(err) {
		t.Fatalf("Delete twice: %v", err)
	}
}

func TestIPFS_MismatchedPutOutput(t *testing.T) {
	ctx := context.Background()
	b, blocks := newFake(t)
	stage(t, blocks, []byte("something else"))
	id, _ := cidutil.IPFSFor([]byte("actual"))
	if err := b.Put(ctx, id, []byte("actual")); err == nil {
		t.Fatalf("expected CID mismatch error")
	}
}

func TestIPFS_OtherSchemesUnsupported(t *testing.T) {
	ctx := context.Background()
	b := New(Options{Bin: "/nonexistent/ipfs"})
	id := cid.MustNew("blob", []byte{1, 2, 3})
	if _, err := b.Get(ctx, id); !errors.Is(err, storage.ErrUnsupported) {
		t.Fatalf("Get: %v", err)
	}
	if err := b.Put(ctx, id, nil); !errors.Is(err, storage.ErrUnsupported) {
		t.Fatalf("Put: %v", err)
	}
	if _, err := b.Get(ctx, cid.Undef); !errors.Is(err, storage.ErrInvalidCID) {
		t.Fatalf("Get undef: %v", err)
	}
}

func TestIPFS_ThroughEngine(t *testing.T) {
	ctx := context.Background()
	b, blocks := newFake(t)
	engine := storage.New(storage.Config{})
	if err := engine.Register(storage.Registration{Name: "kubo", Backend: b}); err != nil {
		t.Fatal(err)
	}
	inst := instance.NewIsolated("ipfs", engine)

	data := []byte("engine to kubo")
	id := stage(t, blocks, data)
	if err := inst.Put(ctx, id, data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	res, ok, err := inst.Get(ctx, id)
	if err != nil || !ok || !bytes.Equal(res.Data, data) {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}

	// The block on disk is corrupted; the engine must not serve it.
	ic, _ := cidutil.ToIPFS(id)
	if err := os.WriteFile(filepath.Join(blocks, ic.String()), []byte("tampered"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := inst.Get(ctx, id); ok || err != nil {
		t.Fatalf("tampered block served: ok=%v err=%v", ok, err)
	}
}
