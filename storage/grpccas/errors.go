package grpccas

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/AstrobaseTech/Astrobase-sub000/registry"
	"github.com/AstrobaseTech/Astrobase-sub000/storage"
)

// ErrRemoteResolution reports that the server could not resolve a CID
// at all, for example because its prefix names no registered scheme.
var ErrRemoteResolution = errors.New("grpccas: remote cannot resolve identifier")

// ErrorInfo domain and reasons attached to FailedPrecondition statuses,
// which cover two distinct failures.
const (
	errorDomain        = "astrobase.storage"
	reasonValidation   = "VALIDATION_FAILED"
	reasonUnresolvable = "UNRESOLVABLE_CID"
)

func toStatus(err error) *status.Status {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err)
	case errors.Is(err, storage.ErrNotFound):
		return status.New(codes.NotFound, err.Error())
	case errors.Is(err, storage.ErrInvalidCID):
		return status.New(codes.InvalidArgument, err.Error())
	case errors.Is(err, storage.ErrValidationFailed):
		return withReason(codes.FailedPrecondition, err, reasonValidation)
	case errors.Is(err, storage.ErrUnsupported):
		return status.New(codes.Unimplemented, err.Error())
	case registry.IsNotFound(err):
		return withReason(codes.FailedPrecondition, err, reasonUnresolvable)
	default:
		return status.New(codes.Internal, err.Error())
	}
}

func withReason(code codes.Code, err error, reason string) *status.Status {
	st := status.New(code, err.Error())
	if detailed, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: errorDomain}); derr == nil {
		return detailed
	}
	return st
}

func reasonOf(st *status.Status) string {
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == errorDomain {
			return info.GetReason()
		}
	}
	return ""
}

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return storage.ErrNotFound
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", storage.ErrInvalidCID, st.Message())
	case codes.FailedPrecondition:
		switch reasonOf(st) {
		case reasonValidation:
			return fmt.Errorf("%w: remote: %s", storage.ErrValidationFailed, st.Message())
		case reasonUnresolvable:
			return fmt.Errorf("%w: %s", ErrRemoteResolution, st.Message())
		}
		return err
	case codes.Unimplemented:
		return fmt.Errorf("%w: %s", storage.ErrUnsupported, st.Message())
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	default:
		return err
	}
}
