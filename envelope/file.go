package envelope

import (
	"bytes"
	"context"

	"github.com/AstrobaseTech/Astrobase-sub000/codec"
)

// CodecResolver resolves the codec for a media type.
type CodecResolver interface {
	Codec(mediaType string) (codec.Codec, error)
}

// File is the media-type tagged payload container:
//
//	[media type ASCII]? 0x00 [payload]
//
// An empty media type means the payload is an opaque octet stream.
// The buffer is rebuilt on every mutation; equality is byte-for-byte.
type File struct {
	buf []byte
	nul int
}

// NewFile builds a File. An empty mediaType produces an untyped File.
func NewFile(mediaType string, payload []byte) (*File, error) {
	if mediaType != "" {
		if err := ValidateMediaType(mediaType); err != nil {
			return nil, err
		}
	}
	return build(mediaType, payload), nil
}

// DecodeFile parses a File buffer. The input is copied.
func DecodeFile(data []byte) (*File, error) {
	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		return nil, ErrMissingTerminator
	}
	return &File{buf: append([]byte(nil), data...), nul: nul}, nil
}

func build(mediaType string, payload []byte) *File {
	buf := make([]byte, 0, len(mediaType)+1+len(payload))
	buf = append(buf, mediaType...)
	buf = append(buf, 0)
	buf = append(buf, payload...)
	return &File{buf: buf, nul: len(mediaType)}
}

// MediaType returns the header media type, or "" when absent.
func (f *File) MediaType() string { return string(f.buf[:f.nul]) }

// Payload returns the bytes after the terminator. The slice aliases the
// File's buffer and must not be modified.
func (f *File) Payload() []byte { return f.buf[f.nul+1:] }

// Bytes returns the encoded File. The slice aliases the File's buffer
// and must not be modified.
func (f *File) Bytes() []byte { return f.buf }

// Equal reports byte-for-byte equality.
func (f *File) Equal(o *File) bool {
	if f == nil || o == nil {
		return f == o
	}
	return bytes.Equal(f.buf, o.buf)
}

// Clone returns an independent copy.
func (f *File) Clone() *File {
	return &File{buf: append([]byte(nil), f.buf...), nul: f.nul}
}

// SetMediaType validates and replaces the media type, preserving the
// payload. An empty string clears it.
func (f *File) SetMediaType(mediaType string) error {
	if mediaType != "" {
		if err := ValidateMediaType(mediaType); err != nil {
			return err
		}
	}
	*f = *build(mediaType, f.Payload())
	return nil
}

// SetPayload replaces the payload, preserving the media type.
func (f *File) SetPayload(payload []byte) {
	*f = *build(f.MediaType(), payload)
}

// Value decodes the payload with the codec for the File's media type.
// An untyped File yields its raw payload. Codec lookup and decode
// errors are returned unchanged.
func (f *File) Value(ctx context.Context, codecs CodecResolver) (any, error) {
	mt := f.MediaType()
	if mt == "" {
		return append([]byte(nil), f.Payload()...), nil
	}
	c, err := codecs.Codec(mt)
	if err != nil {
		return nil, err
	}
	return c.Decode(ctx, f.Payload(), mt)
}

// SetValue encodes v with the codec for the File's media type and
// replaces the payload. The media type must already be set.
func (f *File) SetValue(ctx context.Context, v any, codecs CodecResolver) error {
	mt := f.MediaType()
	if mt == "" {
		return ErrMediaTypeRequired
	}
	c, err := codecs.Codec(mt)
	if err != nil {
		return err
	}
	payload, err := c.Encode(ctx, v, mt)
	if err != nil {
		return err
	}
	f.SetPayload(payload)
	return nil
}
