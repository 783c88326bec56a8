package codec

import (
	"context"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Core Deterministic Encoding (RFC 8949 §4.2): the same value always
// encodes to the same bytes.
var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		// Decode untyped maps as map[string]any so values are
		// interchangeable with the JSON codec's output.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBOR handles application/cbor.
type CBOR struct{}

func (CBOR) MediaTypes() []string { return []string{"application/cbor"} }

func (CBOR) Encode(_ context.Context, v any, _ string) ([]byte, error) {
	b, err := cborEnc.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: cbor: %v", ErrEncode, err)
	}
	return b, nil
}

func (CBOR) Decode(_ context.Context, data []byte, _ string) (any, error) {
	var v any
	if err := cborDec.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: cbor: %v", ErrDecode, err)
	}
	return v, nil
}
