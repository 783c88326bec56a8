package wraps

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"

	"github.com/AstrobaseTech/Astrobase-sub000/envelope"
)

// Ed25519Keys resolves signing keys by public key.
type Ed25519Keys interface {
	Ed25519PrivateKey(pub ed25519.PublicKey) (ed25519.PrivateKey, bool)
}

// Dilithium3Keys resolves signing keys by packed public key.
type Dilithium3Keys interface {
	Dilithium3PrivateKey(pub []byte) (*mode3.PrivateKey, bool)
}

type signatureMetadata struct {
	PublicKey []byte `mapstructure:"publicKey"`
	Signature []byte `mapstructure:"signature"`
	Hash      string `mapstructure:"hash"`
}

// Ed25519 signs the payload with the key named by metadata.publicKey.
// The payload passes through unchanged; Unwrap verifies the signature.
type Ed25519 struct {
	Keys Ed25519Keys
}

func (*Ed25519) Type() string { return "ed25519" }

func (s *Ed25519) Wrap(_ context.Context, payload []byte, metadata any, _ envelope.Instance) (envelope.WrapResult, error) {
	var m signatureMetadata
	if err := decodeMetadata(metadata, &m); err != nil {
		return envelope.WrapResult{}, err
	}
	if len(m.PublicKey) != ed25519.PublicKeySize {
		return envelope.WrapResult{}, fmt.Errorf("%w: publicKey must be %d bytes", ErrMetadata, ed25519.PublicKeySize)
	}
	if s.Keys == nil {
		return envelope.WrapResult{}, ErrKeyNotFound
	}
	priv, ok := s.Keys.Ed25519PrivateKey(m.PublicKey)
	if !ok {
		return envelope.WrapResult{}, fmt.Errorf("%w: ed25519 %x", ErrKeyNotFound, m.PublicKey)
	}
	return envelope.WrapResult{
		Payload:  payload,
		Metadata: map[string]any{"publicKey": m.PublicKey, "signature": ed25519.Sign(priv, payload)},
	}, nil
}

func (s *Ed25519) Unwrap(_ context.Context, payload []byte, metadata any, _ envelope.Instance) (envelope.WrapResult, error) {
	var m signatureMetadata
	if err := decodeMetadata(metadata, &m); err != nil {
		return envelope.WrapResult{}, err
	}
	if len(m.PublicKey) != ed25519.PublicKeySize || !ed25519.Verify(m.PublicKey, payload, m.Signature) {
		return envelope.WrapResult{}, ErrVerification
	}
	return envelope.WrapResult{Payload: payload, Metadata: map[string]any{"publicKey": m.PublicKey}}, nil
}

// Dilithium3 signs hash(payload) with a Dilithium3 key. metadata.hash
// selects sha256, sha512 or sha3-256 (the default).
type Dilithium3 struct {
	Keys Dilithium3Keys
}

func (*Dilithium3) Type() string { return "dilithium3" }

func (s *Dilithium3) Wrap(_ context.Context, payload []byte, metadata any, _ envelope.Instance) (envelope.WrapResult, error) {
	var m signatureMetadata
	if err := decodeMetadata(metadata, &m); err != nil {
		return envelope.WrapResult{}, err
	}
	if m.Hash == "" {
		m.Hash = "sha3-256"
	}
	digest, err := digestFor(m.Hash, payload)
	if err != nil {
		return envelope.WrapResult{}, err
	}
	if s.Keys == nil {
		return envelope.WrapResult{}, ErrKeyNotFound
	}
	sk, ok := s.Keys.Dilithium3PrivateKey(m.PublicKey)
	if !ok {
		return envelope.WrapResult{}, fmt.Errorf("%w: dilithium3", ErrKeyNotFound)
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(sk, digest, sig)
	return envelope.WrapResult{
		Payload:  payload,
		Metadata: map[string]any{"publicKey": m.PublicKey, "hash": m.Hash, "signature": sig},
	}, nil
}

func (s *Dilithium3) Unwrap(_ context.Context, payload []byte, metadata any, _ envelope.Instance) (envelope.WrapResult, error) {
	var m signatureMetadata
	if err := decodeMetadata(metadata, &m); err != nil {
		return envelope.WrapResult{}, err
	}
	digest, err := digestFor(m.Hash, payload)
	if err != nil {
		return envelope.WrapResult{}, err
	}
	var pk mode3.PublicKey
	if err := pk.UnmarshalBinary(m.PublicKey); err != nil {
		return envelope.WrapResult{}, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if len(m.Signature) != mode3.SignatureSize || !mode3.Verify(&pk, digest, m.Signature) {
		return envelope.WrapResult{}, ErrVerification
	}
	return envelope.WrapResult{Payload: payload, Metadata: map[string]any{"publicKey": m.PublicKey, "hash": m.Hash}}, nil
}

func digestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case "sha256":
		s := sha256.Sum256(message)
		return s[:], nil
	case "sha512":
		s := sha512.Sum512(message)
		return s[:], nil
	case "sha3-256":
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("%w: unsupported hash algorithm %q", ErrMetadata, hashAlg)
	}
}
