package memory

import (
	"context"

	"github.com/AstrobaseTech/Astrobase-sub000/storage/driver"
)

func init() {
	driver.MustRegister(driver.Driver{
		Name:        "memory",
		Description: "In-process map, lost on exit",
		Usage:       driver.UsageCLI | driver.UsageDaemon,
		Open: func(_ context.Context, opts driver.Options) (any, func() error, error) {
			if err := driver.Decode(opts, &struct{}{}); err != nil {
				return nil, nil, err
			}
			return New(), nil, nil
		},
	})
}
