package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrNoKey is returned by LoadSeed when no key source was given.
var ErrNoKey = errors.New("keys: no key provided")

// KeyStore is a filesystem store of hex-encoded Ed25519 seeds laid out as
//
//	<dir>/<identifier>/root.key
//	<dir>/<identifier>/roles/<role>.key
//
// Seeds are written with mode 0600 and appear atomically.
type KeyStore struct {
	Directory string
}

// KeyEntry lists the roles derived for one identifier.
type KeyEntry struct {
	Identifier string
	Roles      []string
}

// DefaultDirectory is ~/.astrobase/keys.
func DefaultDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".astrobase", "keys"), nil
}

// CreateKeyStore returns a store rooted at directory, or at
// DefaultDirectory when it is empty. Nothing is created until a key is
// written.
func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		if directory, err = DefaultDirectory(); err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

// CheckKeyName reports whether identifier is usable as a directory name.
func CheckKeyName(identifier string) error { return checkSegment("identifier", identifier) }

// CheckRole reports whether role is usable as a file name.
func CheckRole(role string) error { return checkSegment("role", role) }

func checkSegment(kind, s string) error {
	if s == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("invalid character %q in %s", r, kind)
		}
	}
	return nil
}

// ParseSeedHex decodes a 32-byte seed, tolerating surrounding space and
// a 0x prefix.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(seedHex), "0x"))
	if err != nil {
		return nil, err
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return seed, nil
}

// keyRef names a stored seed. An empty role is the root key.
type keyRef struct {
	identifier string
	role       string
}

func (r keyRef) check() error {
	if err := CheckKeyName(r.identifier); err != nil {
		return err
	}
	if r.role != "" {
		return CheckRole(r.role)
	}
	return nil
}

func (ks *KeyStore) path(r keyRef) string {
	if r.role == "" {
		return filepath.Join(ks.Directory, r.identifier, "root.key")
	}
	return filepath.Join(ks.Directory, r.identifier, "roles", r.role+".key")
}

func (ks *KeyStore) read(r keyRef) ([]byte, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return readSeedFile(ks.path(r))
}

func readSeedFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(string(data))
}

// write stores seed under r and returns the formatted public key and
// the file path. Without overwrite an existing key is left untouched
// and os.ErrExist is returned.
func (ks *KeyStore) write(r keyRef, seed []byte, overwrite bool) (string, string, error) {
	if err := r.check(); err != nil {
		return "", "", err
	}
	if len(seed) != ed25519.SeedSize {
		return "", "", fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	path := ks.path(r)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", "", err
	}

	tmp, err := os.CreateTemp(dir, ".key-*")
	if err != nil {
		return "", "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		tmp.Close()
		return "", "", err
	}
	if err := tmp.Close(); err != nil {
		return "", "", err
	}
	// CreateTemp already used 0600.
	if overwrite {
		err = os.Rename(tmp.Name(), path)
	} else {
		err = os.Link(tmp.Name(), path)
	}
	if err != nil {
		return "", "", err
	}

	pub, err := PublicKeyString(PublicKeyFromSeed(seed))
	return pub, path, err
}

// InitializeRootKey writes seed as the root key for identifier and
// returns the formatted public key.
func (ks *KeyStore) InitializeRootKey(identifier string, seed []byte, overwrite bool) (publicKey string, filePath string, err error) {
	return ks.write(keyRef{identifier: identifier}, seed, overwrite)
}

// DeriveKeyFromRole derives the role seed from the root key of from and
// stores it.
func (ks *KeyStore) DeriveKeyFromRole(from, role string, overwrite bool) (publicKey string, filePath string, err error) {
	if err := CheckRole(role); err != nil {
		return "", "", err
	}
	root, err := ks.read(keyRef{identifier: from})
	if err != nil {
		return "", "", err
	}
	seed, err := DeriveRoleSeed(root, role)
	if err != nil {
		return "", "", err
	}
	return ks.write(keyRef{identifier: from, role: role}, seed, overwrite)
}

// ExportKey returns the formatted public key of a stored root (empty
// role) or role key.
func (ks *KeyStore) ExportKey(identifier, role string) (string, error) {
	seed, err := ks.read(keyRef{identifier: identifier, role: role})
	if err != nil {
		return "", err
	}
	return PublicKeyString(PublicKeyFromSeed(seed))
}

// LoadSeed returns a seed from the first source given: a hex string, a
// key file, or a stored identifier (and optional role).
func (ks *KeyStore) LoadSeed(seedHex, identifier, role, keyFile string) ([]byte, error) {
	switch {
	case seedHex != "":
		return ParseSeedHex(seedHex)
	case keyFile != "":
		return readSeedFile(keyFile)
	case identifier != "":
		return ks.read(keyRef{identifier: identifier, role: role})
	default:
		return nil, ErrNoKey
	}
}

// ListKeys returns every identifier directory with its roles, both
// sorted. A missing store directory lists nothing.
func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	dirs, err := os.ReadDir(ks.Directory)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []KeyEntry
	for _, d := range dirs {
		if !d.IsDir() || CheckKeyName(d.Name()) != nil {
			continue
		}
		files, err := filepath.Glob(filepath.Join(ks.Directory, d.Name(), "roles", "*.key"))
		if err != nil {
			return nil, err
		}
		entry := KeyEntry{Identifier: d.Name()}
		for _, f := range files {
			role := strings.TrimSuffix(filepath.Base(f), ".key")
			if CheckRole(role) == nil {
				entry.Roles = append(entry.Roles, role)
			}
		}
		slices.Sort(entry.Roles)
		out = append(out, entry)
	}
	slices.SortFunc(out, func(a, b KeyEntry) int { return strings.Compare(a.Identifier, b.Identifier) })
	return out, nil
}

// LoadKeyring loads every stored seed into a new Keyring. Each seed
// contributes its Ed25519 key and the Dilithium3 key derived from it.
func (ks *KeyStore) LoadKeyring() (*Keyring, error) {
	entries, err := ks.ListKeys()
	if err != nil {
		return nil, err
	}
	kr := NewKeyring()
	for _, e := range entries {
		refs := []keyRef{{identifier: e.Identifier}}
		for _, role := range e.Roles {
			refs = append(refs, keyRef{identifier: e.Identifier, role: role})
		}
		for _, r := range refs {
			seed, err := ks.read(r)
			if r.role == "" && errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", ks.path(r), err)
			}
			if err := kr.addSeed(seed); err != nil {
				return nil, err
			}
		}
	}
	return kr, nil
}
