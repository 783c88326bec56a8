package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/storage"
	"github.com/AstrobaseTech/Astrobase-sub000/storage/driver"
	"github.com/AstrobaseTech/Astrobase-sub000/storage/testkit"
)

func openTest(t *testing.T) *Backend {
	t.Helper()
	b, err := Open(Config{Path: filepath.Join(t.TempDir(), "cas.db"), PoolSize: 2})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestSQLite_Conformance(t *testing.T) {
	testkit.RunBackendConformance(t, func(t *testing.T) testkit.Backend {
		return openTest(t)
	})
}

func TestSQLite_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	b := openTest(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := cid.MustNew("blob", []byte{byte(i)})
			if err := b.Put(ctx, id, []byte{byte(i), 0}); err != nil {
				t.Errorf("Put(%d): %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	n, err := b.Count(ctx)
	if err != nil || n != 16 {
		t.Fatalf("Count: %d %v", n, err)
	}
}

func TestSQLite_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cas.db")
	id := cid.MustNew("blob", []byte("persist"))

	b, err := Open(Config{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Put(ctx, id, []byte("kept")); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	b, err = Open(Config{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	got, err := b.Get(ctx, id)
	if err != nil || string(got) != "kept" {
		t.Fatalf("Get after reopen: %q %v", got, err)
	}
	if err := b.Delete(ctx, cid.MustNew("blob", []byte("absent"))); !storage.IsNotFound(err) {
		t.Fatalf("Delete absent: %v", err)
	}
}

func TestSQLite_Driver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.db")
	backend, closeFn, err := driver.Open(context.Background(), driver.Default, "sqlite", driver.UsageDaemon,
		driver.Options{"path": path, "pool_size": "2"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := backend.(*Backend); !ok {
		t.Fatalf("unexpected backend %T", backend)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
