package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/multiformats/go-multihash"
	"github.com/spf13/cobra"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/cidutil"
	"github.com/AstrobaseTech/Astrobase-sub000/envelope"
	"github.com/AstrobaseTech/Astrobase-sub000/instance"
	"github.com/AstrobaseTech/Astrobase-sub000/keys"
	"github.com/AstrobaseTech/Astrobase-sub000/scheme"
)

type putFlags struct {
	mediaType string
	mutable   string
	hash      string
	sign      string
	signAlg   string
	ipfs      bool
}

func (a *app) putCommand() *cobra.Command {
	var f putFlags
	cmd := &cobra.Command{
		Use:   "put <file|->",
		Short: "Store a file and print its CID",
		Long: `Store a file as immutable content and print its blob CID.

With --mutable the file is stored under the given key instead. With
--sign the file is first wrapped in a signature made with a key from
the key store (name or name:role). With --ipfs the raw bytes are
stored as an IPFS block.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			return a.withEnv(cmd.Context(), func(e *env) error {
				id, err := a.put(cmd.Context(), e.inst, args[0], data, f)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, id)
				return nil
			})
		},
	}
	addPutFlags(cmd, &f)
	cmd.Flags().StringVar(&f.mutable, "mutable", "", "store under this mutable key")
	cmd.Flags().StringVar(&f.sign, "sign", "", "sign with key name[:role] from the key store")
	cmd.Flags().StringVar(&f.signAlg, "sign-alg", "ed25519", "signature algorithm: ed25519 or dilithium3")
	cmd.Flags().BoolVar(&f.ipfs, "ipfs", false, "store raw bytes as an IPFS block (CIDv1 raw, sha2-256)")
	return cmd
}

func (a *app) cidCommand() *cobra.Command {
	var f putFlags
	cmd := &cobra.Command{
		Use:   "cid <file|->",
		Short: "Print the blob CID a file would be stored under",
		Args:  exactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			file, err := newFile(args[0], f.mediaType, data)
			if err != nil {
				return err
			}
			code, err := hashCode(f.hash)
			if err != nil {
				return err
			}
			id, err := scheme.ImmutableCID(instance.New("", instance.Options{}), file, code)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, id)
			return nil
		},
	}
	addPutFlags(cmd, &f)
	return cmd
}

func addPutFlags(cmd *cobra.Command, f *putFlags) {
	cmd.Flags().StringVar(&f.mediaType, "media-type", "", "media type (default: from the file extension)")
	cmd.Flags().StringVar(&f.hash, "hash", "sha2-256", "multihash algorithm name")
}

func (a *app) put(ctx context.Context, inst *instance.Instance, name string, data []byte, f putFlags) (cid.CID, error) {
	if f.ipfs {
		if f.mutable != "" || f.sign != "" {
			return cid.Undef, usagef("--ipfs cannot be combined with --mutable or --sign")
		}
		id, err := cidutil.IPFSFor(data)
		if err != nil {
			return cid.Undef, err
		}
		return id, inst.Put(ctx, id, data)
	}

	file, err := newFile(name, f.mediaType, data)
	if err != nil {
		return cid.Undef, err
	}
	if f.sign != "" {
		file, err = a.signFile(ctx, inst, file, f.sign, f.signAlg)
		if err != nil {
			return cid.Undef, err
		}
	}
	if f.mutable != "" {
		return inst.PutMutable(ctx, f.mutable, file)
	}
	code, err := hashCode(f.hash)
	if err != nil {
		return cid.Undef, err
	}
	return inst.PutFile(ctx, file, code)
}

func (a *app) signFile(ctx context.Context, inst *instance.Instance, value *envelope.File, signer, alg string) (*envelope.File, error) {
	name, role, _ := strings.Cut(signer, ":")
	ks, err := keys.CreateKeyStore(a.keyDir)
	if err != nil {
		return nil, err
	}
	seed, err := ks.LoadSeed("", name, role, "")
	if err != nil {
		return nil, fmt.Errorf("load signing key %q: %w", signer, err)
	}

	var pub []byte
	switch alg {
	case "ed25519":
		pub = keys.PublicKeyFromSeed(seed)
	case "dilithium3":
		pk, _, err := keys.DeriveDilithium3Key(seed)
		if err != nil {
			return nil, err
		}
		pub = pk.Bytes()
	default:
		return nil, usagef("unsupported --sign-alg %q", alg)
	}

	meta, err := envelope.NewFile("application/json", nil)
	if err != nil {
		return nil, err
	}
	if err := meta.SetValue(ctx, map[string]any{"publicKey": pub}, inst); err != nil {
		return nil, err
	}
	return envelope.WrapFile(ctx, inst, envelope.Wrapped{Type: alg, Metadata: meta, Value: value})
}

func (a *app) readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(a.in)
	}
	return os.ReadFile(path)
}

func newFile(name, mediaType string, data []byte) (*envelope.File, error) {
	if mediaType == "" {
		mediaType = guessMediaType(name)
	}
	return envelope.NewFile(mediaType, data)
}

func guessMediaType(name string) string {
	if mt := mime.TypeByExtension(filepath.Ext(name)); mt != "" {
		if essence, _, err := mime.ParseMediaType(mt); err == nil {
			return essence
		}
	}
	return "application/octet-stream"
}

func hashCode(name string) (uint64, error) {
	code, ok := multihash.Names[name]
	if !ok {
		return 0, usagef("unknown hash algorithm %q", name)
	}
	return code, nil
}
