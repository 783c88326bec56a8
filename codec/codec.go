// Package codec defines media-type keyed value codecs and the
// built-in JSON, CBOR and plain-text implementations.
package codec

import (
	"context"
	"errors"
	"strings"

	"github.com/AstrobaseTech/Astrobase-sub000/registry"
)

// Codec converts between payload bytes and values for one or more
// media types. Implementations must reject malformed input rather than
// return a semantically wrong value.
type Codec interface {
	MediaTypes() []string
	Encode(ctx context.Context, v any, mediaType string) ([]byte, error)
	Decode(ctx context.Context, data []byte, mediaType string) (any, error)
}

// Registry is a codec registry keyed by media type essence
// ("type/subtype" without parameters).
type Registry = registry.Registry[string, Codec]

var (
	ErrDecode = errors.New("codec: decode failed")
	ErrEncode = errors.New("codec: encode failed")
)

// NewRegistry returns a registry whose defaults are the built-in codecs.
func NewRegistry() *Registry {
	defaults := map[string]Codec{}
	for _, c := range []Codec{JSON{}, CBOR{}, Text{}} {
		for _, mt := range c.MediaTypes() {
			defaults[mt] = c
		}
	}
	return registry.New(registry.Config[string, Codec]{
		Name:     "codec",
		Defaults: defaults,
		KeysOf:   func(c Codec) []string { return c.MediaTypes() },
		ValidateKey: func(mt string) error {
			if Essence(mt) != mt || !strings.Contains(mt, "/") {
				return errors.New("codec keys must be lowercase type/subtype without parameters")
			}
			return nil
		},
		ValidateStrategy: func(c Codec) error {
			if c == nil {
				return errors.New("nil codec")
			}
			return nil
		},
	})
}

// Essence strips media-type parameters and lowercases the result:
// "Text/Plain; charset=utf-8" -> "text/plain".
func Essence(mediaType string) string {
	mt, _, _ := strings.Cut(mediaType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// Lookup resolves the codec for mediaType as seen by instance.
func Lookup(r *Registry, mediaType, instance string) (Codec, error) {
	return r.GetStrict(Essence(mediaType), instance)
}
