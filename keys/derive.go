package keys

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/hkdf"
)

const roleDomain = "astrobase-keys-v1"

// PublicKeyString formats an Ed25519 public key as "ed25519:" + base64.
func PublicKeyString(pub ed25519.PublicKey) (string, error) {
	if l := len(pub); l != ed25519.PublicKeySize {
		return "", fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, l)
	}
	return "ed25519:" + base64.StdEncoding.EncodeToString(pub), nil
}

// PublicKeyFromSeed returns the Ed25519 public key for seed.
func PublicKeyFromSeed(seed []byte) ed25519.PublicKey {
	return ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
}

// DeriveRoleSeed derives the Ed25519 seed for role from a root seed
// with HKDF-SHA256. The same root and role always give the same seed.
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}
	return expand(rootSeed, "role:"+role, ed25519.SeedSize)
}

func expand(seed []byte, info string, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, seed, nil, []byte(roleDomain+"\x00"+info)), out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeriveDilithium3Key derives a Dilithium3 keypair from an Ed25519 seed
// so one stored seed backs both signature wraps.
func DeriveDilithium3Key(seed []byte) (*mode3.PublicKey, *mode3.PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, nil, fmt.Errorf("seed must be %d bytes", ed25519.SeedSize)
	}
	material, err := expand(seed, "dilithium3", 32)
	if err != nil {
		return nil, nil, err
	}
	return mode3.GenerateKey(bytes.NewReader(material))
}

// GenerateDilithium3Keypair returns a new Dilithium3 keypair.
func GenerateDilithium3Keypair(rand io.Reader) (*mode3.PublicKey, *mode3.PrivateKey, error) {
	return mode3.GenerateKey(rand)
}
