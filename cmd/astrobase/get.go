package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
)

// errNotFound is reported when no backend holds valid content.
var errNotFound = errors.New("content not found")

func parseCID(s string) (cid.CID, error) {
	id, err := cid.Parse(s)
	if err != nil {
		return cid.Undef, usageError{err}
	}
	return id, nil
}

func (a *app) getCommand() *cobra.Command {
	var (
		outPath string
		raw     bool
	)
	cmd := &cobra.Command{
		Use:   "get <cid>",
		Short: "Fetch content and write its payload",
		Long: `Fetch content by CID and write the payload of the resulting file.
Signed and encrypted content is verified and unwrapped first. With --raw
the stored bytes are written as returned by the backend.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCID(args[0])
			if err != nil {
				return err
			}
			return a.withEnv(cmd.Context(), func(e *env) error {
				var data []byte
				if raw {
					res, ok, err := e.inst.Get(cmd.Context(), id)
					if err != nil {
						return err
					}
					if !ok {
						return errNotFound
					}
					data = res.Data
				} else {
					f, ok, err := e.inst.GetFile(cmd.Context(), id)
					if err != nil {
						return err
					}
					if !ok {
						return errNotFound
					}
					a.logger.Info("fetched", "cid", id.String(), "media_type", f.MediaType())
					data = f.Payload()
				}
				if outPath == "" {
					_, err := a.out.Write(data)
					return err
				}
				return os.WriteFile(outPath, data, 0o644)
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to this file instead of stdout")
	cmd.Flags().BoolVar(&raw, "raw", false, "write the stored bytes without decoding")
	return cmd
}

func (a *app) hasCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "has <cid>",
		Short: "Report whether valid content exists for a CID",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCID(args[0])
			if err != nil {
				return err
			}
			return a.withEnv(cmd.Context(), func(e *env) error {
				ok, err := e.inst.Has(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, ok)
				if !ok {
					return errNotFound
				}
				return nil
			})
		},
	}
}

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <cid>",
		Short: "Delete content from every backend",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCID(args[0])
			if err != nil {
				return err
			}
			return a.withEnv(cmd.Context(), func(e *env) error {
				return e.inst.Delete(cmd.Context(), id)
			})
		},
	}
}

