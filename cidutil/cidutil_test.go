package cidutil

import (
	"testing"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
)

func TestIPFSRoundTrip(t *testing.T) {
	data := []byte("hello ipfs")
	ic, err := CIDv1RawSHA256(data)
	if err != nil {
		t.Fatalf("CIDv1RawSHA256: %v", err)
	}
	c, err := FromIPFS(ic)
	if err != nil {
		t.Fatalf("FromIPFS: %v", err)
	}
	if c.Prefix() != IPFSPrefix {
		t.Fatalf("prefix = %q", c.Prefix())
	}
	parsed, err := cid.Parse(c.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	back, err := ToIPFS(parsed)
	if err != nil {
		t.Fatalf("ToIPFS: %v", err)
	}
	if !back.Equals(ic) {
		t.Fatalf("round trip mismatch: %s vs %s", back, ic)
	}
	again, _ := IPFSFor(data)
	if again != c {
		t.Fatalf("IPFSFor mismatch")
	}
}

func TestToIPFS_Rejects(t *testing.T) {
	if _, err := ToIPFS(cid.MustNew("blob", []byte{1, 2})); err == nil {
		t.Fatalf("expected prefix error")
	}
	if _, err := ToIPFS(cid.MustNew(IPFSPrefix, []byte{0xff})); err == nil {
		t.Fatalf("expected cast error")
	}
}
