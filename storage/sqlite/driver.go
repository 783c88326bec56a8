package sqlite

import (
	"context"
	"fmt"

	"github.com/AstrobaseTech/Astrobase-sub000/storage/driver"
)

// Options configures the sqlite driver.
type Options struct {
	Path     string `mapstructure:"path"`
	PoolSize int    `mapstructure:"pool_size"`
}

func init() {
	driver.MustRegister(driver.Driver{
		Name:        "sqlite",
		Description: "SQLite database file",
		Usage:       driver.UsageCLI | driver.UsageDaemon,
		Open: func(_ context.Context, opts driver.Options) (any, func() error, error) {
			var o Options
			if err := driver.Decode(opts, &o); err != nil {
				return nil, nil, err
			}
			if o.Path == "" {
				return nil, nil, fmt.Errorf("sqlite: missing path option")
			}
			b, err := Open(Config{Path: o.Path, PoolSize: o.PoolSize})
			if err != nil {
				return nil, nil, err
			}
			return b, b.Close, nil
		},
	})
}
