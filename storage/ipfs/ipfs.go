// Package ipfs is a storage backend backed by the local Kubo "ipfs" CLI.
//
// Only identifiers under the ipfs scheme are served; every other CID
// gets storage.ErrUnsupported. The adapter operates on the local IPFS
// repo and does not require a daemon. Transport is not validity: the
// Engine still verifies returned bytes against the CID.
package ipfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	gocid "github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/cidutil"
	"github.com/AstrobaseTech/Astrobase-sub000/storage"
)

type Backend struct {
	bin string
	env []string
}

var (
	_ storage.Getter  = (*Backend)(nil)
	_ storage.Putter  = (*Backend)(nil)
	_ storage.Deleter = (*Backend)(nil)
)

type Options struct {
	// Bin is the path to the ipfs binary. If empty, "ipfs" is used.
	Bin string `mapstructure:"bin"`
	// Env optionally overrides the command environment (e.g. to set IPFS_PATH).
	// If nil, the process environment is used.
	Env []string `mapstructure:"env"`
}

func New(opts Options) *Backend {
	bin := opts.Bin
	if bin == "" {
		bin = "ipfs"
	}
	return &Backend{bin: bin, env: opts.Env}
}

func toIPFS(id cid.CID) (gocid.Cid, error) {
	if id.IsZero() {
		return gocid.Undef, storage.ErrInvalidCID
	}
	if id.Prefix() != cidutil.IPFSPrefix {
		return gocid.Undef, storage.ErrUnsupported
	}
	ic, err := cidutil.ToIPFS(id)
	if err != nil {
		return gocid.Undef, fmt.Errorf("%w: %v", storage.ErrInvalidCID, err)
	}
	return ic, nil
}

func (b *Backend) Get(ctx context.Context, id cid.CID) ([]byte, error) {
	ic, err := toIPFS(id)
	if err != nil {
		return nil, err
	}
	out, err := b.run(ctx, nil, "block", "get", ic.String())
	if err != nil {
		if isLikelyNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

// Put stores data as a raw block using the CID's own multihash
// parameters, then checks that Kubo computed the same CID.
func (b *Backend) Put(ctx context.Context, id cid.CID, data []byte) error {
	ic, err := toIPFS(id)
	if err != nil {
		return err
	}
	pref := ic.Prefix()
	if pref.Codec != gocid.Raw || pref.Version != 1 {
		return fmt.Errorf("%w: only CIDv1 raw blocks can be written", storage.ErrUnsupported)
	}
	mhName, ok := mh.Codes[pref.MhType]
	if !ok {
		return fmt.Errorf("%w: unknown multihash 0x%x", storage.ErrUnsupported, pref.MhType)
	}

	out, err := b.run(ctx, data,
		"block", "put",
		"--quiet",
		"--cid-codec=raw",
		"--mhtype="+mhName,
		fmt.Sprintf("--mhlen=%d", pref.MhLength),
	)
	if err != nil {
		return err
	}
	got, err := gocid.Decode(strings.TrimSpace(string(out)))
	if err != nil {
		return fmt.Errorf("ipfs: unexpected block put output: %w", err)
	}
	if !got.Equals(ic) {
		return fmt.Errorf("ipfs: block stored as %s, expected %s", got, ic)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, id cid.CID) error {
	ic, err := toIPFS(id)
	if err != nil {
		return err
	}
	if _, err := b.run(ctx, nil, "block", "rm", "--quiet", ic.String()); err != nil {
		if isLikelyNotFound(err) {
			return storage.ErrNotFound
		}
		return err
	}
	return nil
}

// Has asks Kubo for block metadata without fetching the block.
func (b *Backend) Has(ctx context.Context, id cid.CID) bool {
	ic, err := toIPFS(id)
	if err != nil {
		return false
	}
	_, err = b.run(ctx, nil, "block", "stat", ic.String())
	return err == nil
}

func (b *Backend) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, b.bin, args...)
	if b.env != nil {
		cmd.Env = b.env
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		s := strings.TrimSpace(string(ee.Stderr))
		if s == "" {
			return nil, fmt.Errorf("ipfs: %v", err)
		}
		return nil, fmt.Errorf("ipfs: %s", s)
	}
	return nil, err
}

func isLikelyNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "block not found")
}
