package ipfs

import (
	"context"

	"github.com/AstrobaseTech/Astrobase-sub000/storage/driver"
)

func init() {
	driver.MustRegister(driver.Driver{
		Name:        "ipfs",
		Description: "Local Kubo repo via the ipfs CLI (ipfs-scheme CIDs only)",
		Usage:       driver.UsageCLI | driver.UsageDaemon,
		Open: func(_ context.Context, opts driver.Options) (any, func() error, error) {
			var o Options
			if err := driver.Decode(opts, &o); err != nil {
				return nil, nil, err
			}
			return New(o), nil, nil
		},
	})
}
