package grpccas

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/storage"
)

// Store is what a Server exposes. *instance.Instance implements it.
type Store interface {
	Get(ctx context.Context, id cid.CID) (storage.Result, bool, error)
	Put(ctx context.Context, id cid.CID, data []byte, opts ...storage.PutOption) error
	Delete(ctx context.Context, id cid.CID) error
	Has(ctx context.Context, id cid.CID) (bool, error)
}

// Server exposes a Store over the Store gRPC service. Reads and writes
// go through the Store, so content is validated on the server side
// regardless of what the client checked.
type Server struct {
	UnimplementedStoreServer
	Store  Store
	Logger *slog.Logger
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	id, err := parseCID(in.GetValue())
	if err != nil {
		return nil, err
	}
	res, ok, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, s.mapErr("get", id, err)
	}
	if !ok {
		return nil, status.Error(codes.NotFound, storage.ErrNotFound.Error())
	}
	return wrapperspb.Bytes(res.Data), nil
}

func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get(CIDMetadataKey)
	if len(vals) != 1 {
		return nil, status.Errorf(codes.InvalidArgument, "expected exactly one %s metadata value", CIDMetadataKey)
	}
	id, err := parseCID(vals[0])
	if err != nil {
		return nil, err
	}
	if err := s.Store.Put(ctx, id, in.GetValue()); err != nil {
		return nil, s.mapErr("put", id, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) Delete(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	id, err := parseCID(in.GetValue())
	if err != nil {
		return nil, err
	}
	had, err := s.Store.Has(ctx, id)
	if err != nil {
		return nil, s.mapErr("delete", id, err)
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return nil, s.mapErr("delete", id, err)
	}
	if !had {
		return nil, s.mapErr("delete", id, storage.ErrNotFound)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	id, err := parseCID(in.GetValue())
	if err != nil {
		return nil, err
	}
	ok, err := s.Store.Has(ctx, id)
	if err != nil {
		return nil, s.mapErr("has", id, err)
	}
	return wrapperspb.Bool(ok), nil
}

func parseCID(s string) (cid.CID, error) {
	id, err := cid.Parse(s)
	if err != nil || id.IsZero() {
		return cid.Undef, status.Error(codes.InvalidArgument, storage.ErrInvalidCID.Error())
	}
	return id, nil
}

func (s *Server) mapErr(op string, id cid.CID, err error) error {
	st := toStatus(err)
	if st.Code() == codes.Internal {
		s.logger().Warn("store request failed", "op", op, "cid", id.String(), "error", err)
	}
	return st.Err()
}
