// Package scheme maps CID prefixes to validating parsers.
//
// A Scheme decides whether content is acceptable for an identifier.
// Parse returns ok=false for content that fails validation (a normal
// negative result) and an error only for conditions that make the
// identifier impossible to understand, such as an unregistered hash
// algorithm. Content that names an unregistered wrap type or codec
// fails with an error matching ErrUnknownStrategy.
package scheme

import (
	"context"
	"errors"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/envelope"
	"github.com/AstrobaseTech/Astrobase-sub000/hashing"
	"github.com/AstrobaseTech/Astrobase-sub000/registry"
)

// ErrUnknownStrategy marks a Parse failure caused by the content
// naming a wrap type or codec the instance does not have. It depends on
// the bytes being parsed, not on the identifier.
var ErrUnknownStrategy = errors.New("scheme: content names an unregistered strategy")

// Instance is the view of an instance that schemes validate against.
type Instance interface {
	envelope.Instance
	hashing.Resolver
	Scheme(prefix string) (Scheme, error)
}

type Scheme interface {
	Prefix() string
	Parse(ctx context.Context, id cid.CID, content []byte, inst Instance) (any, bool, error)
}

// Func is a Scheme parse function.
type Func func(ctx context.Context, id cid.CID, content []byte, inst Instance) (any, bool, error)

type funcScheme struct {
	prefix string
	fn     Func
}

func (s funcScheme) Prefix() string { return s.prefix }

func (s funcScheme) Parse(ctx context.Context, id cid.CID, content []byte, inst Instance) (any, bool, error) {
	return s.fn(ctx, id, content, inst)
}

// New adapts fn into a Scheme for prefix.
func New(prefix string, fn Func) Scheme { return funcScheme{prefix: prefix, fn: fn} }

// Registry maps CID prefixes to schemes.
type Registry = registry.Registry[string, Scheme]

// NewRegistry returns a registry whose defaults are Immutable, Mutable
// and IPFS.
func NewRegistry() *Registry {
	defaults := map[string]Scheme{}
	for _, s := range []Scheme{Immutable{}, Mutable{}, IPFS{}} {
		defaults[s.Prefix()] = s
	}
	return registry.New(registry.Config[string, Scheme]{
		Name:     "scheme",
		Defaults: defaults,
		KeysOf:   func(s Scheme) []string { return []string{s.Prefix()} },
		ValidateKey: func(prefix string) error {
			_, err := cid.New(prefix, nil)
			return err
		},
		ValidateStrategy: func(s Scheme) error {
			if s == nil {
				return errors.New("nil scheme")
			}
			return nil
		},
	})
}

// ValidateAndParse runs the scheme registered for id's prefix. A
// missing scheme is returned as an error, never as ok=false.
func ValidateAndParse(ctx context.Context, inst Instance, id cid.CID, content []byte) (any, bool, error) {
	s, err := inst.Scheme(id.Prefix())
	if err != nil {
		return nil, false, err
	}
	return s.Parse(ctx, id, content, inst)
}
