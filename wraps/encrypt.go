package wraps

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"filippo.io/age"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/AstrobaseTech/Astrobase-sub000/envelope"
)

// AgeIdentities supplies the identities tried when decrypting.
type AgeIdentities interface {
	AgeIdentities() []age.Identity
}

// SymmetricKeys resolves 32-byte keys by id.
type SymmetricKeys interface {
	SymmetricKey(id string) ([]byte, bool)
}

type ageMetadata struct {
	Recipients []string `mapstructure:"recipients"`
}

// Age encrypts the payload to the X25519 recipients listed in
// metadata.recipients ("age1..." strings).
type Age struct {
	Identities AgeIdentities
}

func (*Age) Type() string { return "age" }

func (s *Age) Wrap(_ context.Context, payload []byte, metadata any, _ envelope.Instance) (envelope.WrapResult, error) {
	var m ageMetadata
	if err := decodeMetadata(metadata, &m); err != nil {
		return envelope.WrapResult{}, err
	}
	if len(m.Recipients) == 0 {
		return envelope.WrapResult{}, fmt.Errorf("%w: at least one recipient is required", ErrMetadata)
	}
	recipients := make([]age.Recipient, 0, len(m.Recipients))
	for _, key := range m.Recipients {
		r, err := age.ParseX25519Recipient(key)
		if err != nil {
			return envelope.WrapResult{}, fmt.Errorf("%w: parsing recipient key %q: %v", ErrMetadata, key, err)
		}
		recipients = append(recipients, r)
	}

	var out bytes.Buffer
	w, err := age.Encrypt(&out, recipients...)
	if err != nil {
		return envelope.WrapResult{}, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return envelope.WrapResult{}, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := w.Close(); err != nil {
		return envelope.WrapResult{}, fmt.Errorf("finalizing age encryption: %w", err)
	}
	return envelope.WrapResult{Payload: out.Bytes(), Metadata: map[string]any{"recipients": m.Recipients}}, nil
}

func (s *Age) Unwrap(_ context.Context, payload []byte, metadata any, _ envelope.Instance) (envelope.WrapResult, error) {
	var m ageMetadata
	if err := decodeMetadata(metadata, &m); err != nil {
		return envelope.WrapResult{}, err
	}
	var ids []age.Identity
	if s.Identities != nil {
		ids = s.Identities.AgeIdentities()
	}
	if len(ids) == 0 {
		return envelope.WrapResult{}, fmt.Errorf("%w: no age identities", ErrKeyNotFound)
	}
	r, err := age.Decrypt(bytes.NewReader(payload), ids...)
	if err != nil {
		return envelope.WrapResult{}, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return envelope.WrapResult{}, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	return envelope.WrapResult{Payload: plaintext, Metadata: map[string]any{"recipients": m.Recipients}}, nil
}

type aeadMetadata struct {
	KeyID string `mapstructure:"keyId"`
	Nonce []byte `mapstructure:"nonce"`
}

// XChaCha20Poly1305 encrypts the payload with the symmetric key named
// by metadata.keyId. The key id is authenticated as additional data.
type XChaCha20Poly1305 struct {
	Keys SymmetricKeys
}

func (*XChaCha20Poly1305) Type() string { return "xchacha20-poly1305" }

func (s *XChaCha20Poly1305) Wrap(_ context.Context, payload []byte, metadata any, _ envelope.Instance) (envelope.WrapResult, error) {
	var m aeadMetadata
	if err := decodeMetadata(metadata, &m); err != nil {
		return envelope.WrapResult{}, err
	}
	key, err := s.key(m.KeyID)
	if err != nil {
		return envelope.WrapResult{}, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return envelope.WrapResult{}, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return envelope.WrapResult{}, fmt.Errorf("generating random nonce: %w", err)
	}
	return envelope.WrapResult{
		Payload:  aead.Seal(nil, nonce, payload, []byte(m.KeyID)),
		Metadata: map[string]any{"keyId": m.KeyID, "nonce": nonce},
	}, nil
}

func (s *XChaCha20Poly1305) Unwrap(_ context.Context, payload []byte, metadata any, _ envelope.Instance) (envelope.WrapResult, error) {
	var m aeadMetadata
	if err := decodeMetadata(metadata, &m); err != nil {
		return envelope.WrapResult{}, err
	}
	key, err := s.key(m.KeyID)
	if err != nil {
		return envelope.WrapResult{}, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return envelope.WrapResult{}, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	if len(m.Nonce) != chacha20poly1305.NonceSizeX {
		return envelope.WrapResult{}, fmt.Errorf("%w: nonce must be %d bytes", ErrMetadata, chacha20poly1305.NonceSizeX)
	}
	plaintext, err := aead.Open(nil, m.Nonce, payload, []byte(m.KeyID))
	if err != nil {
		return envelope.WrapResult{}, ErrVerification
	}
	return envelope.WrapResult{Payload: plaintext, Metadata: map[string]any{"keyId": m.KeyID}}, nil
}

func (s *XChaCha20Poly1305) key(id string) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: keyId is required", ErrMetadata)
	}
	if s.Keys == nil {
		return nil, ErrKeyNotFound
	}
	key, ok := s.Keys.SymmetricKey(id)
	if !ok {
		return nil, fmt.Errorf("%w: symmetric key %q", ErrKeyNotFound, id)
	}
	return key, nil
}
