package codec

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// Text handles text/plain. Values are strings; []byte is accepted on
// encode.
type Text struct{}

func (Text) MediaTypes() []string { return []string{"text/plain"} }

func (Text) Encode(_ context.Context, v any, _ string) ([]byte, error) {
	var b []byte
	switch s := v.(type) {
	case string:
		b = []byte(s)
	case []byte:
		b = append([]byte(nil), s...)
	case fmt.Stringer:
		b = []byte(s.String())
	default:
		return nil, fmt.Errorf("%w: text: unsupported value type %T", ErrEncode, v)
	}
	if !utf8.Valid(b) {
		return nil, fmt.Errorf("%w: text: invalid utf-8", ErrEncode)
	}
	return b, nil
}

func (Text) Decode(_ context.Context, data []byte, _ string) (any, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: text: invalid utf-8", ErrDecode)
	}
	return string(data), nil
}
