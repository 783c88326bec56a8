package grpccas

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/envelope"
	"github.com/AstrobaseTech/Astrobase-sub000/instance"
	"github.com/AstrobaseTech/Astrobase-sub000/scheme"
	"github.com/AstrobaseTech/Astrobase-sub000/storage"
	"github.com/AstrobaseTech/Astrobase-sub000/storage/memory"
	"github.com/AstrobaseTech/Astrobase-sub000/storage/testkit"
)

// startServer serves an isolated instance backed by memory and returns
// a client connected to it over bufconn.
func startServer(t *testing.T) (*Client, *memory.Backend) {
	t.Helper()
	mem := memory.New()
	engine := storage.New(storage.Config{})
	if err := engine.Register(storage.Registration{Name: "mem", Backend: mem}); err != nil {
		t.Fatal(err)
	}
	inst := instance.NewIsolated("remote", engine)

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterStoreServer(srv, &Server{Store: inst})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.DialContext(ctx) }
	client, err := Dial("passthrough:///bufnet", DialOptions{Extra: []grpc.DialOption{grpc.WithContextDialer(dialer)}})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	client.Timeout = 2 * time.Second
	t.Cleanup(func() { client.Close() })
	return client, mem
}

func TestGRPC_Conformance(t *testing.T) {
	testkit.RunBackendConformance(t, func(t *testing.T) testkit.Backend {
		client, _ := startServer(t)
		return client
	})
}

func TestGRPC_RemoteValidation(t *testing.T) {
	ctx := context.Background()
	client, mem := startServer(t)

	f, _ := envelope.NewFile("text/plain", []byte("remote"))
	id, err := scheme.ImmutableCID(instance.NewIsolated("local", nil), f, instance.DefaultHash)
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Put(ctx, id, []byte("\x00forged")); !errors.Is(err, storage.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if mem.Len() != 0 {
		t.Fatalf("invalid content reached the remote backend")
	}
	if err := client.Put(ctx, id, f.Bytes()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ok, err := client.Has(ctx, id); err != nil || !ok {
		t.Fatalf("Has: ok=%v err=%v", ok, err)
	}
}

func TestGRPC_UnresolvableCID(t *testing.T) {
	client, _ := startServer(t)
	id := cid.MustNew("nope", []byte{1})
	if _, err := client.Get(context.Background(), id); !errors.Is(err, ErrRemoteResolution) {
		t.Fatalf("expected ErrRemoteResolution, got %v", err)
	}
}

func TestGRPC_ClientAsEngineBackend(t *testing.T) {
	ctx := context.Background()
	client, _ := startServer(t)

	local := storage.New(storage.Config{})
	cache := memory.New()
	if err := local.Register(storage.Registration{Name: "cache", Backend: cache, Priority: storage.Priority(1)}); err != nil {
		t.Fatal(err)
	}
	if err := local.Register(storage.Registration{Name: "remote", Backend: client, Priority: storage.Priority(2)}); err != nil {
		t.Fatal(err)
	}
	inst := instance.NewIsolated("local", local)

	f, _ := envelope.NewFile("text/plain", []byte("fallback over grpc"))
	id, err := inst.PutFile(ctx, f, 0)
	if err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	if err := cache.Delete(ctx, id); err != nil {
		t.Fatal(err)
	}
	res, ok, err := inst.Get(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if res.Backend != "remote" {
		t.Fatalf("expected fallback to remote, got %q", res.Backend)
	}
}

type failingStore struct{ Store }

func (failingStore) Get(context.Context, cid.CID) (storage.Result, bool, error) {
	return storage.Result{}, false, errors.New("disk on fire")
}

func TestToStatus_InternalErrorsPassThrough(t *testing.T) {
	s := &Server{Store: failingStore{}}
	_, err := s.Get(context.Background(), wrapperspb.String(cid.MustNew("blob", []byte{1}).String()))
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := mapRPC(err); errors.Is(got, storage.ErrNotFound) || errors.Is(got, storage.ErrValidationFailed) {
		t.Fatalf("internal error mapped to a storage sentinel: %v", got)
	}
}
