package keys

import (
	"crypto/ed25519"
	"fmt"
	"sync"

	"filippo.io/age"
	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// SymmetricKeySize is the required length of keys added with
// AddSymmetricKey.
const SymmetricKeySize = 32

// Keyring is an in-memory set of private keys indexed by their public
// half (or by name, for symmetric keys). It is safe for concurrent use.
type Keyring struct {
	mu        sync.RWMutex
	ed25519   map[string]ed25519.PrivateKey
	dilithium map[string]*mode3.PrivateKey
	symmetric map[string][]byte
	age       []age.Identity
}

func NewKeyring() *Keyring {
	return &Keyring{
		ed25519:   map[string]ed25519.PrivateKey{},
		dilithium: map[string]*mode3.PrivateKey{},
		symmetric: map[string][]byte{},
	}
}

// AddEd25519Seed adds the key for seed and returns its public key.
func (k *Keyring) AddEd25519Seed(seed []byte) (ed25519.PublicKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	k.mu.Lock()
	k.ed25519[string(pub)] = priv
	k.mu.Unlock()
	return pub, nil
}

// Ed25519PrivateKey returns the private key for pub.
func (k *Keyring) Ed25519PrivateKey(pub ed25519.PublicKey) (ed25519.PrivateKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	priv, ok := k.ed25519[string(pub)]
	return priv, ok
}

// AddDilithium3 adds sk and returns the packed public key.
func (k *Keyring) AddDilithium3(sk *mode3.PrivateKey) []byte {
	pub := sk.Public().(*mode3.PublicKey).Bytes()
	k.mu.Lock()
	k.dilithium[string(pub)] = sk
	k.mu.Unlock()
	return pub
}

// Dilithium3PrivateKey returns the private key for a packed public key.
func (k *Keyring) Dilithium3PrivateKey(pub []byte) (*mode3.PrivateKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	sk, ok := k.dilithium[string(pub)]
	return sk, ok
}

// AddSymmetricKey stores a 32-byte key under id.
func (k *Keyring) AddSymmetricKey(id string, key []byte) error {
	if id == "" {
		return fmt.Errorf("symmetric key id cannot be empty")
	}
	if len(key) != SymmetricKeySize {
		return fmt.Errorf("symmetric key must be %d bytes, got %d", SymmetricKeySize, len(key))
	}
	k.mu.Lock()
	k.symmetric[id] = append([]byte(nil), key...)
	k.mu.Unlock()
	return nil
}

func (k *Keyring) SymmetricKey(id string) ([]byte, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	key, ok := k.symmetric[id]
	return key, ok
}

// AddAgeIdentity adds an identity used to decrypt age payloads.
func (k *Keyring) AddAgeIdentity(id age.Identity) {
	k.mu.Lock()
	k.age = append(k.age, id)
	k.mu.Unlock()
}

// AgeIdentities returns a snapshot of the configured age identities.
func (k *Keyring) AgeIdentities() []age.Identity {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return append([]age.Identity(nil), k.age...)
}

// addSeed adds the Ed25519 key for seed and the Dilithium3 key derived
// from it.
func (k *Keyring) addSeed(seed []byte) error {
	if _, err := k.AddEd25519Seed(seed); err != nil {
		return err
	}
	_, sk, err := DeriveDilithium3Key(seed)
	if err != nil {
		return err
	}
	k.AddDilithium3(sk)
	return nil
}
