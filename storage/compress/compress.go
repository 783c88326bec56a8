// Package compress is a storage backend decorator that compresses
// content on the way in and restores it on the way out.
//
// Stored values are framed as
//
//	tag (1 byte) | uncompressed length (uvarint) | body
//
// so values written with one algorithm stay readable after the
// decorator is reconfigured. Values that do not shrink are stored with
// the None tag.
package compress

import (
	"context"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/multiformats/go-varint"
	"github.com/pierrec/lz4/v4"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/storage"
)

// Algorithm identifies the compression used for one stored value.
// Values are persisted; changing them breaks existing data.
type Algorithm uint8

const (
	None Algorithm = 0
	LZ4  Algorithm = 1
	Zstd Algorithm = 2
)

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", a)
	}
}

func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "", "zstd":
		return Zstd, nil
	default:
		return 0, fmt.Errorf("compress: unknown algorithm %q", name)
	}
}

// ErrCorrupt reports a stored value whose framing or body is invalid.
var ErrCorrupt = errors.New("compress: corrupt value")

// maxUncompressed bounds the declared length of a stored value.
const maxUncompressed = 1 << 30

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxUncompressed))
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

// Backend wraps Inner. Operations Inner does not implement return
// storage.ErrUnsupported.
type Backend struct {
	Inner     any
	Algorithm Algorithm
}

var (
	_ storage.Getter  = (*Backend)(nil)
	_ storage.Putter  = (*Backend)(nil)
	_ storage.Deleter = (*Backend)(nil)
)

func New(inner any, alg Algorithm) *Backend {
	return &Backend{Inner: inner, Algorithm: alg}
}

func (b *Backend) Get(ctx context.Context, id cid.CID) ([]byte, error) {
	g, ok := b.Inner.(storage.Getter)
	if !ok {
		return nil, storage.ErrUnsupported
	}
	stored, err := g.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return Decode(stored)
}

func (b *Backend) Put(ctx context.Context, id cid.CID, data []byte) error {
	p, ok := b.Inner.(storage.Putter)
	if !ok {
		return storage.ErrUnsupported
	}
	framed, err := Encode(data, b.Algorithm)
	if err != nil {
		return err
	}
	return p.Put(ctx, id, framed)
}

func (b *Backend) Delete(ctx context.Context, id cid.CID) error {
	d, ok := b.Inner.(storage.Deleter)
	if !ok {
		return storage.ErrUnsupported
	}
	return d.Delete(ctx, id)
}

// Encode frames data compressed with alg, falling back to None when
// compression does not shrink it.
func Encode(data []byte, alg Algorithm) ([]byte, error) {
	body, used, err := compress(data, alg)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+varint.UvarintSize(uint64(len(data)))+len(body))
	out = append(out, byte(used))
	out = append(out, varint.ToUvarint(uint64(len(data)))...)
	return append(out, body...), nil
}

// Decode reverses Encode.
func Decode(framed []byte) ([]byte, error) {
	if len(framed) < 2 {
		return nil, fmt.Errorf("%w: short value", ErrCorrupt)
	}
	alg := Algorithm(framed[0])
	size, n, err := varint.FromUvarint(framed[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: length: %v", ErrCorrupt, err)
	}
	if size > maxUncompressed {
		return nil, fmt.Errorf("%w: declared length %d too large", ErrCorrupt, size)
	}
	body := framed[1+n:]
	out, err := decompress(body, alg, int(size))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return out, nil
}

func compress(data []byte, alg Algorithm) ([]byte, Algorithm, error) {
	switch alg {
	case None:
		return data, None, nil
	case LZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("lz4 compress: %w", err)
		}
		if n == 0 || n >= len(data) {
			return data, None, nil
		}
		return dst[:n], LZ4, nil
	case Zstd:
		out := zstdEncoder.EncodeAll(data, nil)
		if len(out) >= len(data) {
			return data, None, nil
		}
		return out, Zstd, nil
	default:
		return nil, 0, fmt.Errorf("compress: unsupported algorithm %s", alg)
	}
}

func decompress(body []byte, alg Algorithm, size int) ([]byte, error) {
	switch alg {
	case None:
		if len(body) != size {
			return nil, fmt.Errorf("size %d does not match expected %d", len(body), size)
		}
		return append([]byte(nil), body...), nil
	case LZ4:
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(body, dst)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if n != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", n, size)
		}
		return dst, nil
	case Zstd:
		var h zstd.Header
		if err := h.Decode(body); err != nil {
			return nil, fmt.Errorf("zstd header: %w", err)
		}
		if h.HasFCS && h.FrameContentSize != uint64(size) {
			return nil, fmt.Errorf("zstd frame declares %d bytes, expected %d", h.FrameContentSize, size)
		}
		out, err := zstdDecoder.DecodeAll(body, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(out) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(out), size)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown algorithm tag %d", alg)
	}
}
