package scheme

import (
	"context"
	"errors"
	"fmt"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/cidutil"
	"github.com/AstrobaseTech/Astrobase-sub000/envelope"
	"github.com/AstrobaseTech/Astrobase-sub000/hashing"
	"github.com/AstrobaseTech/Astrobase-sub000/registry"
)

const (
	ImmutablePrefix = "blob"
	MutablePrefix   = "mutable"
)

// Immutable identifies a File by the multihash of its encoded bytes.
// Parse returns the *envelope.File.
type Immutable struct{}

func (Immutable) Prefix() string { return ImmutablePrefix }

func (Immutable) Parse(_ context.Context, id cid.CID, content []byte, inst Instance) (any, bool, error) {
	ok, err := hashing.Verify(inst, id.Value(), content)
	if errors.Is(err, hashing.ErrMalformed) {
		return nil, false, nil
	}
	if err != nil || !ok {
		return nil, false, err
	}
	f, err := envelope.DecodeFile(content)
	if err != nil {
		return nil, false, nil
	}
	return f, true, nil
}

// ImmutableCID returns the blob CID of f under hash algorithm code.
func ImmutableCID(res hashing.Resolver, f *envelope.File, code uint64) (cid.CID, error) {
	mh, err := hashing.Digest(res, code, f.Bytes())
	if err != nil {
		return cid.Undef, err
	}
	return cid.New(ImmutablePrefix, mh)
}

// Mutable identifies content by an arbitrary key. The content must be
// a File; any wrap layers are unwrapped (verifying signatures and
// decrypting) and the innermost *envelope.File is returned.
type Mutable struct{}

func (Mutable) Prefix() string { return MutablePrefix }

func (Mutable) Parse(ctx context.Context, _ cid.CID, content []byte, inst Instance) (any, bool, error) {
	f, err := envelope.DecodeFile(content)
	if err != nil {
		return nil, false, nil
	}
	inner, _, err := envelope.UnwrapAll(ctx, inst, f)
	if err != nil {
		if registry.IsNotFound(err) {
			return nil, false, fmt.Errorf("%w: %w", ErrUnknownStrategy, err)
		}
		return nil, false, nil
	}
	return inner, true, nil
}

// MutableCID returns the mutable CID for key.
func MutableCID(key string) (cid.CID, error) {
	return cid.New(MutablePrefix, []byte(key))
}

// IPFS identifies raw bytes by a binary IPFS CID. The CID's multihash
// is recomputed through the instance's hash registry. Parse returns
// the content bytes.
type IPFS struct{}

func (IPFS) Prefix() string { return cidutil.IPFSPrefix }

func (IPFS) Parse(_ context.Context, id cid.CID, content []byte, inst Instance) (any, bool, error) {
	ic, err := cidutil.ToIPFS(id)
	if err != nil {
		return nil, false, nil
	}
	ok, err := hashing.Verify(inst, ic.Hash(), content)
	if errors.Is(err, hashing.ErrMalformed) {
		return nil, false, nil
	}
	if err != nil || !ok {
		return nil, false, err
	}
	return append([]byte(nil), content...), true, nil
}
