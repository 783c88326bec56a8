package datastore

import (
	"context"

	ds "github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"

	"github.com/AstrobaseTech/Astrobase-sub000/storage/driver"
)

// Options configures the datastore driver.
type Options struct {
	Namespace string `mapstructure:"namespace"`
}

func init() {
	driver.MustRegister(driver.Driver{
		Name:        "datastore",
		Description: "go-datastore map datastore (in memory)",
		Usage:       driver.UsageCLI | driver.UsageDaemon,
		Open: func(_ context.Context, opts driver.Options) (any, func() error, error) {
			var o Options
			if err := driver.Decode(opts, &o); err != nil {
				return nil, nil, err
			}
			store := dssync.MutexWrap(ds.NewMapDatastore())
			return New(store, o.Namespace), store.Close, nil
		},
	})
}
