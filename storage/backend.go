package storage

import (
	"context"
	"fmt"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
)

// Op names a backend operation.
type Op string

const (
	OpGet    Op = "get"
	OpPut    Op = "put"
	OpDelete Op = "delete"
)

// Getter returns stored bytes for id, or ErrNotFound.
type Getter interface {
	Get(ctx context.Context, id cid.CID) ([]byte, error)
}

// Putter stores bytes under id. Put must be idempotent.
type Putter interface {
	Put(ctx context.Context, id cid.CID, data []byte) error
}

// Deleter removes id. Deleting an absent id returns ErrNotFound, which
// the engine does not report.
type Deleter interface {
	Delete(ctx context.Context, id cid.CID) error
}

// Request is the argument of a Handler call.
type Request struct {
	Op   Op
	CID  cid.CID
	Data []byte
}

// Response is the result of a Handler call. Data is set for OpGet.
type Response struct {
	Data []byte
}

// Handler is the catch-all backend capability. It serves any operation
// the backend does not implement through Getter, Putter or Deleter, and
// returns ErrUnsupported for operations it does not handle.
type Handler interface {
	Handle(ctx context.Context, req Request) (Response, error)
}

// Supports reports whether backend participates in op.
func Supports(backend any, op Op) bool {
	if _, ok := backend.(Handler); ok {
		return true
	}
	switch op {
	case OpGet:
		_, ok := backend.(Getter)
		return ok
	case OpPut:
		_, ok := backend.(Putter)
		return ok
	case OpDelete:
		_, ok := backend.(Deleter)
		return ok
	}
	return false
}

func call(ctx context.Context, backend any, op Op, id cid.CID, data []byte) ([]byte, error) {
	switch op {
	case OpGet:
		if g, ok := backend.(Getter); ok {
			return g.Get(ctx, id)
		}
	case OpPut:
		if p, ok := backend.(Putter); ok {
			return nil, p.Put(ctx, id, data)
		}
	case OpDelete:
		if d, ok := backend.(Deleter); ok {
			return nil, d.Delete(ctx, id)
		}
	}
	if h, ok := backend.(Handler); ok {
		resp, err := h.Handle(ctx, Request{Op: op, CID: id, Data: data})
		return resp.Data, err
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, op)
}
