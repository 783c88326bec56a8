package compress

import (
	"context"
	"fmt"

	"github.com/AstrobaseTech/Astrobase-sub000/storage/driver"
)

// Options configures the compress driver, which wraps another driver.
//
//	driver: compress
//	options:
//	  algorithm: zstd
//	  driver: localfs
//	  options: {dir: /var/lib/astrobase}
type Options struct {
	Algorithm string         `mapstructure:"algorithm"`
	Driver    string         `mapstructure:"driver"`
	Options   driver.Options `mapstructure:"options"`
}

func init() {
	driver.MustRegister(driver.Driver{
		Name:        "compress",
		Description: "zstd/lz4 compression around another driver",
		Usage:       driver.UsageCLI | driver.UsageDaemon,
		Open: func(ctx context.Context, opts driver.Options) (any, func() error, error) {
			var o Options
			if err := driver.Decode(opts, &o); err != nil {
				return nil, nil, err
			}
			alg, err := ParseAlgorithm(o.Algorithm)
			if err != nil {
				return nil, nil, err
			}
			if o.Driver == "" || o.Driver == "compress" {
				return nil, nil, fmt.Errorf("compress: invalid inner driver %q", o.Driver)
			}
			inner, closeFn, err := driver.Open(ctx, driver.Default, o.Driver, driver.UsageCLI|driver.UsageDaemon, o.Options)
			if err != nil {
				return nil, nil, err
			}
			return New(inner, alg), closeFn, nil
		},
	})
}
