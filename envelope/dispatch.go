package envelope

import (
	"context"
	"errors"
	"fmt"
)

// WrapMediaType tags a File whose payload is an encoded Wrap.
const WrapMediaType = "application/vnd.astrobase.wrap"

// WrapResult is the output of a strategy transform.
type WrapResult struct {
	Payload  []byte
	Metadata any
}

// WrapStrategy is a reversible transform such as signing or
// encryption. Unwrap must be the exact inverse of Wrap and must fail
// (not return altered data) when verification fails.
type WrapStrategy interface {
	Type() string
	Wrap(ctx context.Context, payload []byte, metadata any, inst Instance) (WrapResult, error)
	Unwrap(ctx context.Context, payload []byte, metadata any, inst Instance) (WrapResult, error)
}

// Instance is what wrap dispatch needs from its caller.
type Instance interface {
	CodecResolver
	ID() string
	WrapStrategy(typ string) (WrapStrategy, error)
}

// Wrapped is the decoded form of a wrap: the type tag, the strategy
// parameters and the value being transformed.
type Wrapped struct {
	Type     string
	Metadata *File
	Value    *File
}

// WrapValue applies the strategy registered for w.Type to w.Value and
// returns the encoded Wrap. The output metadata is re-encoded with the
// input metadata's media type.
func WrapValue(ctx context.Context, inst Instance, w Wrapped) ([]byte, error) {
	if w.Metadata == nil || w.Value == nil {
		return nil, errors.New("envelope: wrap requires metadata and value")
	}
	strategy, err := inst.WrapStrategy(w.Type)
	if err != nil {
		return nil, err
	}
	meta, err := w.Metadata.Value(ctx, inst)
	if err != nil {
		return nil, err
	}
	out, err := strategy.Wrap(ctx, w.Value.Bytes(), meta, inst)
	if err != nil {
		return nil, fmt.Errorf("envelope: wrap %s: %w", w.Type, err)
	}
	outMeta, err := metadataFile(ctx, inst, w.Metadata.MediaType(), out.Metadata)
	if err != nil {
		return nil, err
	}
	return Wrap{Type: w.Type, Metadata: outMeta.Bytes(), Payload: out.Payload}.Encode()
}

// UnwrapValue is the inverse of WrapValue.
func UnwrapValue(ctx context.Context, inst Instance, data []byte) (*Wrapped, error) {
	w, err := DecodeWrap(data)
	if err != nil {
		return nil, err
	}
	strategy, err := inst.WrapStrategy(w.Type)
	if err != nil {
		return nil, err
	}
	metaFile, err := DecodeFile(w.Metadata)
	if err != nil {
		return nil, fmt.Errorf("envelope: wrap metadata: %w", err)
	}
	meta, err := metaFile.Value(ctx, inst)
	if err != nil {
		return nil, err
	}
	out, err := strategy.Unwrap(ctx, w.Payload, meta, inst)
	if err != nil {
		return nil, fmt.Errorf("envelope: unwrap %s: %w", w.Type, err)
	}
	outMeta, err := metadataFile(ctx, inst, metaFile.MediaType(), out.Metadata)
	if err != nil {
		return nil, err
	}
	value, err := DecodeFile(out.Payload)
	if err != nil {
		return nil, fmt.Errorf("envelope: unwrapped value: %w", err)
	}
	return &Wrapped{Type: w.Type, Metadata: outMeta, Value: value}, nil
}

// WrapFile wraps w and stores the result in a File tagged WrapMediaType,
// which is the form wraps take inside storage and inside other wraps.
func WrapFile(ctx context.Context, inst Instance, w Wrapped) (*File, error) {
	b, err := WrapValue(ctx, inst, w)
	if err != nil {
		return nil, err
	}
	return build(WrapMediaType, b), nil
}

// IsWrap reports whether f carries an encoded Wrap.
func IsWrap(f *File) bool { return f != nil && f.MediaType() == WrapMediaType }

// UnwrapFile unwraps a single WrapMediaType File.
func UnwrapFile(ctx context.Context, inst Instance, f *File) (*Wrapped, error) {
	if !IsWrap(f) {
		return nil, fmt.Errorf("envelope: media type %q is not %s", f.MediaType(), WrapMediaType)
	}
	return UnwrapValue(ctx, inst, f.Payload())
}

// UnwrapAll peels wrap layers until the value is not a wrap and returns
// the innermost File together with the layers in outermost-first order.
// Depth is bounded only by the content.
func UnwrapAll(ctx context.Context, inst Instance, f *File) (*File, []*Wrapped, error) {
	var layers []*Wrapped
	for IsWrap(f) {
		w, err := UnwrapFile(ctx, inst, f)
		if err != nil {
			return nil, layers, err
		}
		layers = append(layers, w)
		f = w.Value
	}
	return f, layers, nil
}

func metadataFile(ctx context.Context, inst Instance, mediaType string, v any) (*File, error) {
	if mediaType == "" {
		raw, ok := v.([]byte)
		if !ok && v != nil {
			return nil, fmt.Errorf("%w: untyped wrap metadata must be []byte, got %T", ErrMediaTypeRequired, v)
		}
		return build("", raw), nil
	}
	f := build(mediaType, nil)
	if err := f.SetValue(ctx, v, inst); err != nil {
		return nil, err
	}
	return f, nil
}
