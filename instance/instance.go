// Package instance ties the strategy registries and the storage engine
// together under a named instance.
//
// Registries are shared between instances; each Instance sees the
// default and global entries plus anything registered under its own
// ID. New with zero Options uses the process-wide Global registries
// and engine.
package instance

import (
	"context"
	"fmt"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/codec"
	"github.com/AstrobaseTech/Astrobase-sub000/envelope"
	"github.com/AstrobaseTech/Astrobase-sub000/hashing"
	"github.com/AstrobaseTech/Astrobase-sub000/scheme"
	"github.com/AstrobaseTech/Astrobase-sub000/storage"
	"github.com/AstrobaseTech/Astrobase-sub000/wraps"
)

// Process-wide defaults.
var (
	GlobalCodecs  = codec.NewRegistry()
	GlobalHashes  = hashing.NewRegistry()
	GlobalSchemes = scheme.NewRegistry()
	GlobalWraps   = wraps.NewRegistry()
	GlobalEngine  = storage.New(storage.Config{})
)

// DefaultHash is the algorithm PutFile uses when none is given.
const DefaultHash = hashing.SHA2_256

// Options selects the registries and engine of an Instance. Nil fields
// fall back to the Global values.
type Options struct {
	Codecs  *codec.Registry
	Hashes  *hashing.Registry
	Schemes *scheme.Registry
	Wraps   *wraps.Registry
	Engine  *storage.Engine
}

// Instance implements scheme.Instance (and therefore
// envelope.Instance).
type Instance struct {
	id      string
	codecs  *codec.Registry
	hashes  *hashing.Registry
	schemes *scheme.Registry
	wraps   *wraps.Registry
	engine  *storage.Engine
}

var _ scheme.Instance = (*Instance)(nil)

func New(id string, opts Options) *Instance {
	inst := &Instance{
		id:      id,
		codecs:  opts.Codecs,
		hashes:  opts.Hashes,
		schemes: opts.Schemes,
		wraps:   opts.Wraps,
		engine:  opts.Engine,
	}
	if inst.codecs == nil {
		inst.codecs = GlobalCodecs
	}
	if inst.hashes == nil {
		inst.hashes = GlobalHashes
	}
	if inst.schemes == nil {
		inst.schemes = GlobalSchemes
	}
	if inst.wraps == nil {
		inst.wraps = GlobalWraps
	}
	if inst.engine == nil {
		inst.engine = GlobalEngine
	}
	return inst
}

// NewIsolated returns an Instance with fresh registries and the given
// engine (a fresh one when nil). Tests use it to avoid global state.
func NewIsolated(id string, engine *storage.Engine) *Instance {
	if engine == nil {
		engine = storage.New(storage.Config{})
	}
	return New(id, Options{
		Codecs:  codec.NewRegistry(),
		Hashes:  hashing.NewRegistry(),
		Schemes: scheme.NewRegistry(),
		Wraps:   wraps.NewRegistry(),
		Engine:  engine,
	})
}

func (i *Instance) ID() string                { return i.id }
func (i *Instance) Codecs() *codec.Registry   { return i.codecs }
func (i *Instance) Hashes() *hashing.Registry { return i.hashes }
func (i *Instance) Schemes() *scheme.Registry { return i.schemes }
func (i *Instance) Wraps() *wraps.Registry    { return i.wraps }
func (i *Instance) Engine() *storage.Engine   { return i.engine }

func (i *Instance) Codec(mediaType string) (codec.Codec, error) {
	return codec.Lookup(i.codecs, mediaType, i.id)
}

func (i *Instance) HashFunc(code uint64) (hashing.Func, error) {
	return i.hashes.GetStrict(code, i.id)
}

func (i *Instance) Scheme(prefix string) (scheme.Scheme, error) {
	return i.schemes.GetStrict(prefix, i.id)
}

func (i *Instance) WrapStrategy(typ string) (envelope.WrapStrategy, error) {
	return i.wraps.GetStrict(typ, i.id)
}

// Get reads id through the engine.
func (i *Instance) Get(ctx context.Context, id cid.CID) (storage.Result, bool, error) {
	return i.engine.Get(ctx, i, id)
}

// Put writes data under id through the engine.
func (i *Instance) Put(ctx context.Context, id cid.CID, data []byte, opts ...storage.PutOption) error {
	return i.engine.Put(ctx, i, id, data, opts...)
}

func (i *Instance) Delete(ctx context.Context, id cid.CID) error {
	return i.engine.Delete(ctx, i, id)
}

func (i *Instance) Has(ctx context.Context, id cid.CID) (bool, error) {
	return i.engine.Has(ctx, i, id)
}

// PutFile stores f as immutable content and returns its blob CID. A
// zero code selects DefaultHash.
func (i *Instance) PutFile(ctx context.Context, f *envelope.File, code uint64) (cid.CID, error) {
	if code == 0 {
		code = DefaultHash
	}
	id, err := scheme.ImmutableCID(i, f, code)
	if err != nil {
		return cid.Undef, err
	}
	if err := i.Put(ctx, id, f.Bytes()); err != nil {
		return cid.Undef, err
	}
	return id, nil
}

// PutMutable stores f under the mutable key. f may be a wrap.
func (i *Instance) PutMutable(ctx context.Context, key string, f *envelope.File) (cid.CID, error) {
	id, err := scheme.MutableCID(key)
	if err != nil {
		return cid.Undef, err
	}
	if err := i.Put(ctx, id, f.Bytes()); err != nil {
		return cid.Undef, err
	}
	return id, nil
}

// GetFile reads id and returns the File the scheme produced. Schemes
// that do not produce a File (such as ipfs) have their raw bytes
// returned as an untyped File.
func (i *Instance) GetFile(ctx context.Context, id cid.CID) (*envelope.File, bool, error) {
	res, ok, err := i.Get(ctx, id)
	if err != nil || !ok {
		return nil, ok, err
	}
	switch v := res.Value.(type) {
	case *envelope.File:
		return v, true, nil
	case []byte:
		f, err := envelope.NewFile("", v)
		return f, err == nil, err
	default:
		return nil, false, fmt.Errorf("instance: scheme %q produced %T, not a file", id.Prefix(), res.Value)
	}
}
