package localfs

import (
	"context"
	"fmt"

	"github.com/AstrobaseTech/Astrobase-sub000/storage/driver"
)

// Options configures the localfs driver.
type Options struct {
	Dir string `mapstructure:"dir"`
}

func init() {
	driver.MustRegister(driver.Driver{
		Name:        "localfs",
		Description: "Local filesystem directory",
		Usage:       driver.UsageCLI | driver.UsageDaemon,
		Open: func(_ context.Context, opts driver.Options) (any, func() error, error) {
			var o Options
			if err := driver.Decode(opts, &o); err != nil {
				return nil, nil, err
			}
			if o.Dir == "" {
				return nil, nil, fmt.Errorf("localfs: missing dir option")
			}
			b, err := New(o.Dir)
			return b, nil, err
		},
	})
}
