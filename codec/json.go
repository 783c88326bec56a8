package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// JSON handles application/json. Numbers decode as json.Number so
// integers survive a round trip.
type JSON struct{}

func (JSON) MediaTypes() []string { return []string{"application/json"} }

func (JSON) Encode(_ context.Context, v any, _ string) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: json: %v", ErrEncode, err)
	}
	return b, nil
}

func (JSON) Decode(_ context.Context, data []byte, _ string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: json: %v", ErrDecode, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: json: trailing data", ErrDecode)
	}
	return v, nil
}
