package cid

import (
	"bytes"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

func TestNew_KnownVector(t *testing.T) {
	// BIP-350 valid bech32m test vector with an empty data part.
	c, err := New("a", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.String() != "a1lqfn3a" {
		t.Fatalf("String: got %q want %q", c.String(), "a1lqfn3a")
	}
}

func TestCID_RoundTrip(t *testing.T) {
	cases := []struct {
		prefix string
		value  []byte
	}{
		{"blob", []byte{0x12, 0x20, 0xde, 0xad, 0xbe, 0xef}},
		{"mutable", []byte("my/key")},
		{"ipfs", bytes.Repeat([]byte{0xff}, 36)},
		{"k", []byte{0}},
		{"empty", nil},
		{"long", bytes.Repeat([]byte("x"), 200)},
	}
	for _, tc := range cases {
		t.Run(tc.prefix, func(t *testing.T) {
			c, err := New(tc.prefix, tc.value)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			parsed, err := Parse(c.String())
			if err != nil {
				t.Fatalf("Parse(%q): %v", c.String(), err)
			}
			if parsed != c {
				t.Fatalf("round trip mismatch: %+v vs %+v", parsed, c)
			}
			if !parsed.Equal(c) {
				t.Fatalf("Equal returned false after round trip")
			}
			if parsed.Prefix() != tc.prefix || !bytes.Equal(parsed.Value(), tc.value) {
				t.Fatalf("parts mismatch: %q %x", parsed.Prefix(), parsed.Value())
			}
		})
	}
}

func TestParse_UppercaseNormalized(t *testing.T) {
	c := MustNew("blob", []byte("hello"))
	parsed, err := Parse(strings.ToUpper(c.String()))
	if err != nil {
		t.Fatalf("Parse uppercase: %v", err)
	}
	if parsed.String() != c.String() {
		t.Fatalf("not normalized: %q", parsed.String())
	}
}

func TestParse_DistinctFailures(t *testing.T) {
	valid := MustNew("blob", []byte("hello")).String()

	flipped := []byte(valid)
	last := flipped[len(flipped)-1]
	if last == 'q' {
		flipped[len(flipped)-1] = 'p'
	} else {
		flipped[len(flipped)-1] = 'q'
	}

	mixed := strings.ToUpper(valid[:3]) + valid[3:]

	data, err := bech32.ConvertBits([]byte("hello"), 8, 5, true)
	if err != nil {
		t.Fatalf("ConvertBits: %v", err)
	}
	legacy, err := bech32.Encode("blob", data)
	if err != nil {
		t.Fatalf("bech32.Encode: %v", err)
	}

	// Two 5-bit groups carry 10 bits: one byte plus two set padding bits.
	badPadding, err := bech32.EncodeM("blob", []byte{0x1f, 0x1f})
	if err != nil {
		t.Fatalf("EncodeM: %v", err)
	}

	cases := []struct {
		name  string
		input string
		want  Reason
	}{
		{"checksum", string(flipped), ReasonChecksum},
		{"bech32-not-m", legacy, ReasonChecksum},
		{"mixed-case", mixed, ReasonMixedCase},
		{"charset", valid[:len(valid)-7] + "b" + valid[len(valid)-6:], ReasonCharset},
		{"non-printable", "blob1\x7fqqqqqqqq", ReasonCharset},
		{"too-short", "a1qq", ReasonLength},
		{"no-separator", "blobqqqqqqqqqq", ReasonSeparator},
		{"padding", badPadding, ReasonPadding},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.input)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded", tc.input)
			}
			if !IsReason(err, tc.want) {
				t.Fatalf("Parse(%q): got %v want reason %s", tc.input, err, tc.want)
			}
		})
	}
}

func TestNew_RejectsInvalidPrefix(t *testing.T) {
	for _, p := range []string{"", "Blob", "bl ob"} {
		if _, err := New(p, []byte("x")); err == nil {
			t.Fatalf("New(%q) succeeded", p)
		}
	}
}

func TestCID_TextMarshaling(t *testing.T) {
	c := MustNew("mutable", []byte("k"))
	text, err := c.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var got CID
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if got != c {
		t.Fatalf("text round trip mismatch")
	}
	fromBytes, err := FromBytes(c.Bytes())
	if err != nil || fromBytes != c {
		t.Fatalf("FromBytes: %v", err)
	}
	if !Undef.IsZero() || c.IsZero() {
		t.Fatalf("IsZero mismatch")
	}
}
