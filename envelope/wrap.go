package envelope

import (
	"bytes"
	"fmt"

	"github.com/multiformats/go-varint"
)

// Wrap is the nested transform envelope:
//
//	[type ASCII] 0x00 [uvarint metadata length] [metadata] [payload]
//
// Metadata is normally an encoded File holding strategy parameters;
// Payload is normally an encoded File (possibly itself wrapped). The
// length must be minimally encoded; DecodeWrap rejects padded varints
// such as 0x81 0x00 with ErrLengthOutOfRange.
type Wrap struct {
	Type     string
	Metadata []byte
	Payload  []byte
}

// Encode serializes w. The output is deterministic and unpadded.
func (w Wrap) Encode() ([]byte, error) {
	if err := validateWrapType(w.Type); err != nil {
		return nil, err
	}
	n := uint64(len(w.Metadata))
	buf := make([]byte, 0, len(w.Type)+1+varint.UvarintSize(n)+len(w.Metadata)+len(w.Payload))
	buf = append(buf, w.Type...)
	buf = append(buf, 0)
	buf = append(buf, varint.ToUvarint(n)...)
	buf = append(buf, w.Metadata...)
	buf = append(buf, w.Payload...)
	return buf, nil
}

// DecodeWrap parses a Wrap buffer. Metadata and Payload are copies.
func DecodeWrap(data []byte) (Wrap, error) {
	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		return Wrap{}, ErrMissingTerminator
	}
	typ := string(data[:nul])
	if err := validateWrapType(typ); err != nil {
		return Wrap{}, err
	}
	rest := data[nul+1:]
	n, read, err := varint.FromUvarint(rest)
	if err != nil {
		return Wrap{}, fmt.Errorf("%w: metadata length: %v", ErrLengthOutOfRange, err)
	}
	rest = rest[read:]
	if n > uint64(len(rest)) {
		return Wrap{}, fmt.Errorf("%w: metadata length %d exceeds %d remaining bytes", ErrLengthOutOfRange, n, len(rest))
	}
	return Wrap{
		Type:     typ,
		Metadata: append([]byte(nil), rest[:n]...),
		Payload:  append([]byte(nil), rest[n:]...),
	}, nil
}

func validateWrapType(typ string) error {
	if typ == "" {
		return fmt.Errorf("%w: empty", ErrInvalidWrapType)
	}
	for i := 0; i < len(typ); i++ {
		if typ[i] <= 0x20 || typ[i] >= 0x7f {
			return fmt.Errorf("%w: %q", ErrInvalidWrapType, typ)
		}
	}
	return nil
}
