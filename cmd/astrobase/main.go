// Command astrobase stores and retrieves content through the backends
// named in a storage config file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AstrobaseTech/Astrobase-sub000/instance"
	"github.com/AstrobaseTech/Astrobase-sub000/keys"
	"github.com/AstrobaseTech/Astrobase-sub000/storage"
	"github.com/AstrobaseTech/Astrobase-sub000/storage/config"
	"github.com/AstrobaseTech/Astrobase-sub000/storage/driver"
	"github.com/AstrobaseTech/Astrobase-sub000/wraps"

	_ "github.com/AstrobaseTech/Astrobase-sub000/storage/compress"
	_ "github.com/AstrobaseTech/Astrobase-sub000/storage/datastore"
	_ "github.com/AstrobaseTech/Astrobase-sub000/storage/grpccas"
	_ "github.com/AstrobaseTech/Astrobase-sub000/storage/ipfs"
	_ "github.com/AstrobaseTech/Astrobase-sub000/storage/localfs"
	_ "github.com/AstrobaseTech/Astrobase-sub000/storage/memory"
	_ "github.com/AstrobaseTech/Astrobase-sub000/storage/sqlite"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// usageError marks failures caused by bad invocation; run maps them to
// exit code 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func run(args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{in: in, out: out, errOut: errOut}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(context.Background())
	if err == nil {
		return 0
	}
	fmt.Fprintln(errOut, "error:", err)
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

// app holds the global flags and the lazily opened environment.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	logLevel   string
	keyDir     string
	storeDir   string

	logger *slog.Logger
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "astrobase",
		Short: "Content-addressed storage client",
		Long: `astrobase writes and reads content-addressed files through the storage
backends listed in a config file.

The config path comes from --config or $` + config.EnvVar + `. Without
either, a single localfs backend under --store-dir is used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
				return usagef("invalid --log-level %q", a.logLevel)
			}
			a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", os.Getenv(config.EnvVar), "storage config file (YAML or JSON)")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flags.StringVar(&a.keyDir, "key-dir", "", "key store directory (default ~/.astrobase/keys)")
	flags.StringVar(&a.storeDir, "store-dir", "", "localfs directory used when no config is given (default ~/.astrobase/blocks)")

	root.AddCommand(
		a.putCommand(),
		a.cidCommand(),
		a.getCommand(),
		a.hasCommand(),
		a.deleteCommand(),
		a.backendsCommand(),
		a.keysCommand(),
		a.bundleCommand(),
	)
	return root
}

// env is an opened instance plus the function that closes its backends.
type env struct {
	inst  *instance.Instance
	cfg   config.Config
	close func() error
}

func (a *app) loadConfig() (config.Config, error) {
	if a.configPath != "" {
		return config.LoadFile(a.configPath, driver.Default)
	}
	dir := a.storeDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return config.Config{}, err
		}
		dir = filepath.Join(home, ".astrobase", "blocks")
	}
	return config.Config{
		Backends: []config.Backend{{
			Name:    "local",
			Driver:  "localfs",
			Options: driver.Options{"dir": dir},
		}},
	}, nil
}

func (a *app) openEnv(ctx context.Context) (*env, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	engine := storage.New(storage.Config{
		Logger:           a.logger,
		WriteConcurrency: cfg.WriteConcurrency,
	})
	closeFn, err := cfg.Open(ctx, engine, driver.Default, driver.UsageCLI)
	if err != nil {
		return nil, err
	}

	id := cfg.Instance
	if id == "" {
		id = "default"
	}
	inst := instance.New(id, instance.Options{Wraps: wraps.NewRegistry(), Engine: engine})

	ks, err := keys.CreateKeyStore(a.keyDir)
	if err != nil {
		_ = closeFn()
		return nil, err
	}
	kr, err := ks.LoadKeyring()
	if err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("load keys: %w", err)
	}
	if err := wraps.Register(inst.Wraps(), inst.ID(), wraps.Defaults(kr)...); err != nil {
		_ = closeFn()
		return nil, err
	}
	a.logger.Debug("environment ready", "instance", id, "backends", len(cfg.Backends))
	return &env{inst: inst, cfg: cfg, close: closeFn}, nil
}

// withEnv opens the environment for the duration of fn.
func (a *app) withEnv(ctx context.Context, fn func(*env) error) (err error) {
	e, err := a.openEnv(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(e)
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("expected %d argument(s), got %d", n, len(args))
		}
		return nil
	}
}
