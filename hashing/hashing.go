// Package hashing provides digest functions keyed by multihash code.
package hashing

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"

	"github.com/multiformats/go-multihash"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"

	"github.com/AstrobaseTech/Astrobase-sub000/registry"
)

// Func computes a digest.
type Func func(data []byte) []byte

// Registry maps multihash codes to digest functions.
type Registry = registry.Registry[uint64, Func]

// Default algorithm codes.
const (
	SHA2_256 = multihash.SHA2_256
	SHA2_512 = multihash.SHA2_512
	SHA3_256 = multihash.SHA3_256
	BLAKE3   = multihash.BLAKE3
)

// NewRegistry returns a registry whose defaults are sha2-256,
// sha2-512, sha3-256 and blake3 (32-byte output).
func NewRegistry() *Registry {
	return registry.New(registry.Config[uint64, Func]{
		Name: "hash",
		Defaults: map[uint64]Func{
			SHA2_256: func(b []byte) []byte { s := sha256.Sum256(b); return s[:] },
			SHA2_512: func(b []byte) []byte { s := sha512.Sum512(b); return s[:] },
			SHA3_256: func(b []byte) []byte { s := sha3.Sum256(b); return s[:] },
			BLAKE3:   func(b []byte) []byte { s := blake3.Sum256(b); return s[:] },
		},
		ValidateStrategy: func(f Func) error {
			if f == nil {
				return errors.New("nil hash function")
			}
			return nil
		},
	})
}

// Sum hashes data with the algorithm registered for code and returns
// the self-describing multihash bytes.
func Sum(r *Registry, code uint64, data []byte, instance string) ([]byte, error) {
	return Digest(Scoped(r, instance), code, data)
}

// Digest is Sum over an arbitrary Resolver.
func Digest(res Resolver, code uint64, data []byte) ([]byte, error) {
	fn, err := res.HashFunc(code)
	if err != nil {
		return nil, err
	}
	mh, err := multihash.Encode(fn(data), code)
	if err != nil {
		return nil, fmt.Errorf("hashing: encode multihash: %w", err)
	}
	return mh, nil
}

// ErrMalformed reports a multihash that cannot be decoded.
var ErrMalformed = errors.New("hashing: malformed multihash")

// Resolver looks up a digest function by multihash code.
type Resolver interface {
	HashFunc(code uint64) (Func, error)
}

type scoped struct {
	r        *Registry
	instance string
}

func (s scoped) HashFunc(code uint64) (Func, error) { return s.r.GetStrict(code, s.instance) }

// Scoped returns a Resolver over r as seen by instance.
func Scoped(r *Registry, instance string) Resolver { return scoped{r, instance} }

// Verify recomputes the digest named by the multihash mh over data.
// It returns false on mismatch and an error only when mh is malformed
// (ErrMalformed) or its algorithm is not registered.
func Verify(res Resolver, mh []byte, data []byte) (bool, error) {
	decoded, err := multihash.Decode(mh)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	fn, err := res.HashFunc(decoded.Code)
	if err != nil {
		return false, err
	}
	return bytes.Equal(fn(data), decoded.Digest), nil
}
