// Package cid implements bech32m content identifiers.
//
// A CID is a (prefix, value) pair. The prefix names the scheme that
// gives the value meaning (a multihash, a key, a binary IPFS CID); the
// canonical string form is the lowercase bech32m encoding with the
// prefix as the human-readable part.
package cid

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// CID is an immutable content identifier. The zero value is undefined
// (see IsZero). CIDs are comparable with ==.
type CID struct {
	prefix string
	value  string
	str    string
}

// Undef is the undefined CID.
var Undef CID

// New builds a CID from a prefix and value.
//
// The prefix must be a lowercase bech32 human-readable part. No scheme
// validation is performed here.
func New(prefix string, value []byte) (CID, error) {
	if err := checkPrefix(prefix); err != nil {
		return Undef, err
	}
	data, err := bech32.ConvertBits(value, 8, 5, true)
	if err != nil {
		return Undef, &DecodeError{Reason: ReasonPadding, Input: prefix, Err: err}
	}
	s, err := bech32.EncodeM(prefix, data)
	if err != nil {
		return Undef, classify(prefix, err)
	}
	return CID{prefix: prefix, value: string(value), str: s}, nil
}

// MustNew is like New but panics on error.
func MustNew(prefix string, value []byte) CID {
	c, err := New(prefix, value)
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes the bech32m string form. Input may be all-uppercase or
// all-lowercase; the result is normalized to lowercase.
func Parse(s string) (CID, error) {
	hrp, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return Undef, classify(s, err)
	}
	lower := strings.ToLower(s)

	// DecodeNoLimit accepts both checksum variants. Only bech32m is a CID.
	if want, err := bech32.EncodeM(hrp, data); err != nil || want != lower {
		return Undef, &DecodeError{Reason: ReasonChecksum, Input: s, Err: errNotBech32m}
	}

	value, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Undef, classify(s, err)
	}
	return CID{prefix: hrp, value: string(value), str: lower}, nil
}

// FromBytes parses the canonical binary form (the ASCII bytes of the
// string form).
func FromBytes(b []byte) (CID, error) {
	return Parse(string(b))
}

// Prefix returns the scheme prefix.
func (c CID) Prefix() string { return c.prefix }

// Value returns a copy of the scheme-defined value bytes.
func (c CID) Value() []byte { return []byte(c.value) }

// String returns the canonical lowercase bech32m form, or "" for Undef.
func (c CID) String() string { return c.str }

// Bytes returns the canonical binary form.
func (c CID) Bytes() []byte { return []byte(c.str) }

// IsZero reports whether c is the undefined CID.
func (c CID) IsZero() bool { return c.str == "" }

// Equal reports whether c and o have the same prefix and value.
func (c CID) Equal(o CID) bool {
	return c.prefix == o.prefix && c.value == o.value
}

// MarshalText implements encoding.TextMarshaler.
func (c CID) MarshalText() ([]byte, error) {
	return []byte(c.str), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*c = Undef
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func checkPrefix(prefix string) error {
	if prefix == "" {
		return ErrInvalidPrefix
	}
	for i := 0; i < len(prefix); i++ {
		ch := prefix[i]
		if ch < 33 || ch > 126 || (ch >= 'A' && ch <= 'Z') {
			return ErrInvalidPrefix
		}
	}
	return nil
}
