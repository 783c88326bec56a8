package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AstrobaseTech/Astrobase-sub000/storage/driver"
)

func (a *app) backendsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List storage drivers and the configured backends",
		Args:  exactArgs(0),
		RunE: func(*cobra.Command, []string) error {
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DRIVER\tDESCRIPTION")
			for _, d := range driver.List(driver.Default, driver.UsageCLI) {
				fmt.Fprintf(tw, "%s\t%s\n", d.Name, d.Description)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out)
			tw = tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "BACKEND\tDRIVER\tPRIORITY")
			for _, b := range cfg.Backends {
				prio := "-"
				if b.Priority != nil {
					prio = fmt.Sprint(*b.Priority)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Name, b.Driver, prio)
			}
			return tw.Flush()
		},
	}
}
