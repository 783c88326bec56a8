package grpccas

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AstrobaseTech/Astrobase-sub000/storage/driver"
)

// Options configures the grpc driver.
type Options struct {
	Target      string        `mapstructure:"target"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxMsgBytes int           `mapstructure:"max_msg_bytes"`
}

func init() {
	driver.MustRegister(driver.Driver{
		Name:        "grpc",
		Description: "Remote astrobased daemon over gRPC",
		Usage:       driver.UsageCLI,
		Open: func(_ context.Context, opts driver.Options) (any, func() error, error) {
			var o Options
			if err := driver.Decode(opts, &o); err != nil {
				return nil, nil, err
			}
			target := strings.TrimSpace(o.Target)
			if target == "" {
				return nil, nil, fmt.Errorf("grpccas: missing target option")
			}
			client, err := Dial(target, DialOptions{MaxMsgBytes: o.MaxMsgBytes})
			if err != nil {
				return nil, nil, err
			}
			client.Timeout = o.Timeout
			return client, client.Close, nil
		},
	})
}
