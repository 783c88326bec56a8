// astrobased serves an Astrobase instance over gRPC. Backends come from
// a storage config file; every write is validated against its CID
// before it reaches them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"google.golang.org/grpc"

	"github.com/AstrobaseTech/Astrobase-sub000/instance"
	"github.com/AstrobaseTech/Astrobase-sub000/keys"
	"github.com/AstrobaseTech/Astrobase-sub000/storage"
	"github.com/AstrobaseTech/Astrobase-sub000/storage/config"
	"github.com/AstrobaseTech/Astrobase-sub000/storage/driver"
	"github.com/AstrobaseTech/Astrobase-sub000/storage/grpccas"
	"github.com/AstrobaseTech/Astrobase-sub000/wraps"

	_ "github.com/AstrobaseTech/Astrobase-sub000/storage/compress"
	_ "github.com/AstrobaseTech/Astrobase-sub000/storage/datastore"
	_ "github.com/AstrobaseTech/Astrobase-sub000/storage/ipfs"
	_ "github.com/AstrobaseTech/Astrobase-sub000/storage/localfs"
	_ "github.com/AstrobaseTech/Astrobase-sub000/storage/memory"
	_ "github.com/AstrobaseTech/Astrobase-sub000/storage/sqlite"
)

// exitError carries a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

func usageErr(format string, args ...any) error {
	return &exitError{code: 2, err: fmt.Errorf(format, args...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	listen      string
	logLevel    string
	keyDir      string
	listDrivers bool
	maxMsgBytes int
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("astrobased", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.configPath, "config", os.Getenv(config.EnvVar), "storage config file (YAML or JSON)")
	flagSet.StringVar(&opts.listen, "listen", "127.0.0.1:7777", "gRPC listen address")
	flagSet.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flagSet.StringVar(&opts.keyDir, "key-dir", "", "key store used to unwrap encrypted content during validation")
	flagSet.IntVar(&opts.maxMsgBytes, "max-msg-bytes", 64<<20, "largest gRPC message accepted")
	flagSet.BoolVar(&opts.listDrivers, "list-drivers", false, "list storage drivers and exit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &exitError{code: 2, err: err}
	}
	if flagSet.NArg() > 0 {
		return usageErr("unexpected argument: %s", flagSet.Arg(0))
	}

	if opts.listDrivers {
		for _, d := range driver.List(driver.Default, driver.UsageDaemon) {
			fmt.Fprintf(stdout, "%s\t%s\n", d.Name, d.Description)
		}
		return nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		return usageErr("invalid --log-level %q", opts.logLevel)
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if opts.configPath == "" {
		return usageErr("no storage config: pass --config or set %s", config.EnvVar)
	}
	cfg, err := config.LoadFile(opts.configPath, driver.Default)
	if err != nil {
		return &exitError{code: 2, err: err}
	}

	lis, err := net.Listen("tcp", opts.listen)
	if err != nil {
		return err
	}
	return serve(ctx, lis, cfg, opts, logger)
}

// serve runs the gRPC server on lis until ctx is cancelled.
func serve(ctx context.Context, lis net.Listener, cfg config.Config, opts options, logger *slog.Logger) error {
	engine := storage.New(storage.Config{Logger: logger, WriteConcurrency: cfg.WriteConcurrency})
	closeBackends, err := cfg.Open(ctx, engine, driver.Default, driver.UsageDaemon)
	if err != nil {
		lis.Close()
		return err
	}
	defer func() {
		if err := closeBackends(); err != nil {
			logger.Error("closing backends", "error", err)
		}
	}()

	id := cfg.Instance
	if id == "" {
		id = "default"
	}
	inst := instance.New(id, instance.Options{Wraps: wraps.NewRegistry(), Engine: engine})
	kr := keys.NewKeyring()
	if opts.keyDir != "" {
		ks, err := keys.CreateKeyStore(opts.keyDir)
		if err != nil {
			lis.Close()
			return err
		}
		if kr, err = ks.LoadKeyring(); err != nil {
			lis.Close()
			return fmt.Errorf("load keys: %w", err)
		}
	}
	if err := wraps.Register(inst.Wraps(), inst.ID(), wraps.Defaults(kr)...); err != nil {
		lis.Close()
		return err
	}

	var serverOpts []grpc.ServerOption
	if opts.maxMsgBytes > 0 {
		serverOpts = append(serverOpts,
			grpc.MaxRecvMsgSize(opts.maxMsgBytes),
			grpc.MaxSendMsgSize(opts.maxMsgBytes),
		)
	}
	server := grpc.NewServer(serverOpts...)
	grpccas.RegisterStoreServer(server, &grpccas.Server{Store: inst, Logger: logger})

	errc := make(chan error, 1)
	go func() { errc <- server.Serve(lis) }()
	logger.Info("astrobased listening",
		"address", lis.Addr().String(),
		"instance", id,
		"backends", len(cfg.Backends),
	)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		server.GracefulStop()
		if err := <-errc; err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	}
}
