package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/storage/bundle"
)

func (a *app) bundleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Move content between stores as tar archives",
	}
	cmd.AddCommand(a.bundleExportCommand(), a.bundleImportCommand())
	return cmd
}

func (a *app) bundleExportCommand() *cobra.Command {
	var (
		outPath string
		labels  []string
		index   bool
	)
	cmd := &cobra.Command{
		Use:   "export <cid>...",
		Short: "Write content to a bundle",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usagef("at least one CID is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]cid.CID, 0, len(args))
			for _, s := range args {
				id, err := parseCID(s)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			opts := bundle.ExportOptions{IncludeIndex: index || len(labels) > 0}
			if len(labels) > 0 {
				opts.Labels = make(map[string]cid.CID, len(labels))
				for _, l := range labels {
					name, value, ok := strings.Cut(l, "=")
					if !ok || name == "" {
						return usagef("invalid --label %q, want name=cid", l)
					}
					id, err := parseCID(value)
					if err != nil {
						return err
					}
					opts.Labels[name] = id
				}
			}

			return a.withEnv(cmd.Context(), func(e *env) (err error) {
				var w io.Writer = a.out
				if outPath != "" && outPath != "-" {
					var f *os.File
					if f, err = os.Create(outPath); err != nil {
						return err
					}
					defer func() {
						if cerr := f.Close(); cerr != nil && err == nil {
							err = cerr
						}
					}()
					w = f
				}
				return bundle.Export(cmd.Context(), w, e.inst, ids, opts)
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "bundle file (default stdout)")
	cmd.Flags().StringArrayVar(&labels, "label", nil, "name=cid label recorded in the index (repeatable)")
	cmd.Flags().BoolVar(&index, "index", false, "include an index.json")
	return cmd
}

func (a *app) bundleImportCommand() *cobra.Command {
	var ignoreUnknown bool
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Validate and store every block in a bundle",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = a.in
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			return a.withEnv(cmd.Context(), func(e *env) error {
				ids, err := bundle.Import(cmd.Context(), r, e.inst, bundle.ImportOptions{IgnoreUnknown: ignoreUnknown})
				for _, id := range ids {
					fmt.Fprintln(a.out, id)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&ignoreUnknown, "ignore-unknown", false, "skip entries that are not blocks")
	return cmd
}
