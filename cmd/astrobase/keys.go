package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AstrobaseTech/Astrobase-sub000/keys"
)

func (a *app) keyStore() (*keys.KeyStore, error) {
	return keys.CreateKeyStore(a.keyDir)
}

func (a *app) keysCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage signing keys in the local key store",
	}
	cmd.AddCommand(a.keysInitCommand(), a.keysDeriveCommand(), a.keysListCommand(), a.keysExportCommand())
	return cmd
}

func (a *app) keysInitCommand() *cobra.Command {
	var (
		name    string
		seedHex string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a root key",
		Args:  exactArgs(0),
		RunE: func(*cobra.Command, []string) error {
			if err := keys.CheckKeyName(name); err != nil {
				return usagef("invalid --name: %v", err)
			}
			var seed []byte
			if seedHex != "" {
				var err error
				if seed, err = keys.ParseSeedHex(seedHex); err != nil {
					return usagef("invalid --seed-hex: %v", err)
				}
			} else {
				seed = make([]byte, ed25519.SeedSize)
				if _, err := rand.Read(seed); err != nil {
					return err
				}
			}
			ks, err := a.keyStore()
			if err != nil {
				return err
			}
			pub, path, err := ks.InitializeRootKey(name, seed, force)
			if err != nil {
				return fmt.Errorf("write key: %w", err)
			}
			fmt.Fprintf(a.out, "Created root key: %s\n", pub)
			fmt.Fprintf(a.out, "Stored at: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key name")
	cmd.Flags().StringVar(&seedHex, "seed-hex", "", "ed25519 seed as 64 hex chars (random when empty)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key")
	return cmd
}

func (a *app) keysDeriveCommand() *cobra.Command {
	var (
		from  string
		role  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive a role key from a root key",
		Args:  exactArgs(0),
		RunE: func(*cobra.Command, []string) error {
			if err := keys.CheckKeyName(from); err != nil {
				return usagef("invalid --from: %v", err)
			}
			if err := keys.CheckRole(role); err != nil {
				return usagef("invalid --role: %v", err)
			}
			ks, err := a.keyStore()
			if err != nil {
				return err
			}
			pub, path, err := ks.DeriveKeyFromRole(from, role, force)
			if err != nil {
				return fmt.Errorf("derive role key: %w", err)
			}
			fmt.Fprintf(a.out, "Created role key: %s\n", pub)
			fmt.Fprintf(a.out, "Stored at: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "root key name")
	cmd.Flags().StringVar(&role, "role", "", "role identifier (e.g. author, publisher)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key")
	return cmd
}

func (a *app) keysListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored keys and their roles",
		Args:  exactArgs(0),
		RunE: func(*cobra.Command, []string) error {
			ks, err := a.keyStore()
			if err != nil {
				return err
			}
			entries, err := ks.ListKeys()
			if err != nil {
				return fmt.Errorf("list keys: %w", err)
			}
			for _, e := range entries {
				fmt.Fprintln(a.out, e.Identifier)
				for _, r := range e.Roles {
					fmt.Fprintf(a.out, "  - %s\n", r)
				}
			}
			return nil
		},
	}
}

func (a *app) keysExportCommand() *cobra.Command {
	var (
		name string
		role string
		alg  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print a public key",
		Long: `Print the public key for a root or role key. ed25519 keys use the
key store's text form; dilithium3 keys are printed as base64 of the
packed key, which is what signature metadata carries.`,
		Args: exactArgs(0),
		RunE: func(*cobra.Command, []string) error {
			if err := keys.CheckKeyName(name); err != nil {
				return usagef("invalid --name: %v", err)
			}
			if role != "" {
				if err := keys.CheckRole(role); err != nil {
					return usagef("invalid --role: %v", err)
				}
			}
			ks, err := a.keyStore()
			if err != nil {
				return err
			}
			switch alg {
			case "ed25519":
				pub, err := ks.ExportKey(name, role)
				if err != nil {
					return fmt.Errorf("export key: %w", err)
				}
				fmt.Fprintln(a.out, pub)
			case "dilithium3":
				seed, err := ks.LoadSeed("", name, role, "")
				if err != nil {
					return fmt.Errorf("export key: %w", err)
				}
				pk, _, err := keys.DeriveDilithium3Key(seed)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, base64.StdEncoding.EncodeToString(pk.Bytes()))
			default:
				return usagef("unsupported --alg %q", alg)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key name")
	cmd.Flags().StringVar(&role, "role", "", "export the derived role key instead of the root")
	cmd.Flags().StringVar(&alg, "alg", "ed25519", "key algorithm: ed25519 or dilithium3")
	return cmd
}
