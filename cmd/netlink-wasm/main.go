// Command netlink-wasm runs a WASI guest with the netlink socket module
// available as an import.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/OpenListTeam/wazero-netlink/internal/hostenv"
	"github.com/OpenListTeam/wazero-netlink/wasmhost"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-config file] guest.wasm [args...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := hostenv.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := hostenv.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	env, err := hostenv.New(cfg, logger)
	if err != nil {
		logger.Fatal("setup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code, err := run(ctx, env, flag.Arg(0), flag.Args())
	stop()
	if err != nil {
		logger.Error("guest failed", zap.Error(err))
		if code == 0 {
			code = 1
		}
	}
	if err := env.Close(); err != nil {
		logger.Warn("closing sockets", zap.Error(err))
	}
	os.Exit(int(code))
}

// run executes the guest at path and returns its exit code.
func run(ctx context.Context, env *hostenv.Env, path string, args []string) (uint32, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read guest: %w", err)
	}

	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	defer r.Close(ctx)

	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	host := wasmhost.New(env.Host, wasmhost.WithModuleName(env.Config.ModuleName))
	if _, err := host.Instantiate(ctx, r); err != nil {
		return 0, fmt.Errorf("instantiate %s: %w", host.Name(), err)
	}

	compiled, err := r.CompileModule(ctx, wasm)
	if err != nil {
		return 0, fmt.Errorf("compile guest: %w", err)
	}

	mc := wazero.NewModuleConfig().
		WithStdin(os.Stdin).
		WithStdout(os.Stdout).
		WithStderr(os.Stderr).
		WithArgs(args...).
		WithSysWalltime().
		WithSysNanotime()

	guest, err := r.InstantiateModule(ctx, compiled, mc)
	if guest != nil {
		host.Forget(guest)
	}
	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.ExitCode() == 0 {
				return 0, nil
			}
			return exitErr.ExitCode(), fmt.Errorf("guest exited with code %d", exitErr.ExitCode())
		}
		return 0, fmt.Errorf("run guest: %w", err)
	}
	return 0, nil
}
