// Package cidutil bridges IPFS CIDs and bech32m content identifiers.
//
// An IPFS CID is carried as the binary CID bytes in the value of a
// bech32m CID with prefix IPFSPrefix.
package cidutil

import (
	"fmt"

	gocid "github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
)

// IPFSPrefix is the bech32m prefix of IPFS-backed identifiers.
const IPFSPrefix = "ipfs"

// CIDv1RawSHA256 returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256(data []byte) (gocid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return gocid.Undef, err
	}
	return gocid.NewCidV1(gocid.Raw, sum), nil
}

// FromIPFS embeds c in a bech32m CID.
func FromIPFS(c gocid.Cid) (cid.CID, error) {
	if !c.Defined() {
		return cid.Undef, fmt.Errorf("cidutil: undefined ipfs cid")
	}
	return cid.New(IPFSPrefix, c.Bytes())
}

// ToIPFS extracts the IPFS CID carried by c.
func ToIPFS(c cid.CID) (gocid.Cid, error) {
	if c.Prefix() != IPFSPrefix {
		return gocid.Undef, fmt.Errorf("cidutil: prefix %q is not %q", c.Prefix(), IPFSPrefix)
	}
	ic, err := gocid.Cast(c.Value())
	if err != nil {
		return gocid.Undef, fmt.Errorf("cidutil: %w", err)
	}
	return ic, nil
}

// IPFSFor derives the raw sha2-256 IPFS CID of data as a bech32m CID.
func IPFSFor(data []byte) (cid.CID, error) {
	ic, err := CIDv1RawSHA256(data)
	if err != nil {
		return cid.Undef, err
	}
	return FromIPFS(ic)
}
