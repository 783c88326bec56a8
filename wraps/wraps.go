// Package wraps provides the built-in wrap strategies: Ed25519 and
// Dilithium3 signatures, age encryption and XChaCha20-Poly1305
// symmetric encryption.
//
// Strategy metadata is a map (as decoded from a JSON or CBOR File) and
// is decoded into typed parameters with mapstructure. Binary fields
// accept either raw bytes (CBOR) or standard base64 strings (JSON).
package wraps

import (
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"

	"github.com/AstrobaseTech/Astrobase-sub000/envelope"
	"github.com/AstrobaseTech/Astrobase-sub000/keys"
	"github.com/AstrobaseTech/Astrobase-sub000/registry"
)

var (
	// ErrVerification is returned by Unwrap when a signature or
	// authentication tag does not verify.
	ErrVerification = errors.New("wraps: verification failed")
	ErrKeyNotFound  = errors.New("wraps: key not found")
	ErrMetadata     = errors.New("wraps: invalid metadata")
)

// Registry maps wrap type tags to strategies.
type Registry = registry.Registry[string, envelope.WrapStrategy]

// NewRegistry returns an empty wrap registry. Strategies carry key
// material so there are no defaults; see Defaults.
func NewRegistry() *Registry {
	return registry.New(registry.Config[string, envelope.WrapStrategy]{
		Name:   "wrap",
		KeysOf: func(s envelope.WrapStrategy) []string { return []string{s.Type()} },
		ValidateKey: func(typ string) error {
			if _, err := (envelope.Wrap{Type: typ}).Encode(); err != nil {
				return err
			}
			return nil
		},
		ValidateStrategy: func(s envelope.WrapStrategy) error {
			if s == nil {
				return errors.New("nil wrap strategy")
			}
			return nil
		},
	})
}

// Defaults returns every built-in strategy backed by kr.
func Defaults(kr *keys.Keyring) []envelope.WrapStrategy {
	return []envelope.WrapStrategy{
		&Ed25519{Keys: kr},
		&Dilithium3{Keys: kr},
		&Age{Identities: kr},
		&XChaCha20Poly1305{Keys: kr},
	}
}

// Register adds strategies to r under instance ("" for global).
func Register(r *Registry, instance string, strategies ...envelope.WrapStrategy) error {
	for _, s := range strategies {
		if err := r.Register(s, registry.RegisterOptions[string]{Instance: instance}); err != nil {
			return err
		}
	}
	return nil
}

var bytesType = reflect.TypeOf([]byte(nil))

func base64BytesHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != bytesType {
		return data, nil
	}
	b, err := base64.StdEncoding.DecodeString(data.(string))
	if err != nil {
		return nil, fmt.Errorf("base64: %w", err)
	}
	return b, nil
}

func decodeMetadata(in any, out any) error {
	if _, ok := in.(map[string]any); !ok {
		return fmt.Errorf("%w: expected a map, got %T", ErrMetadata, in)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			base64BytesHook,
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	return nil
}
