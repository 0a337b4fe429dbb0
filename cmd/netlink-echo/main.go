// Command netlink-echo is a TCP echo server written against the netlink
// socket API. Every accepted connection is served by a worker from a
// bounded pool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/heptiolabs/healthcheck"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/OpenListTeam/wazero-netlink/internal/hostenv"
	"github.com/OpenListTeam/wazero-netlink/netlink"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

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
	defer stop()

	if err := run(ctx, env); err != nil {
		logger.Error("echo server stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, env *hostenv.Env) error {
	cfg := env.Config.Echo
	logger := env.Logger
	host := env.Host

	server, err := host.Construct("NetLinkSocketServerTCP", []any{cfg.ListenPort, cfg.ListenHost})
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	// The accept loop polls so that it can notice shutdown.
	if _, err := host.Call(server.Handle(), "setBlocking", []any{false}); err != nil {
		return err
	}

	health := healthcheck.NewMetricsHandler(env.Registry, env.Config.MetricsNamespace)
	var stopping atomic.Bool
	health.AddLivenessCheck("listener", func() error {
		if stopping.Load() {
			return errors.New("listener closing")
		}
		return nil
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(env.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/live", health.LiveEndpoint)
	mux.HandleFunc("/ready", health.ReadyEndpoint)
	httpServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server failed", zap.Error(err))
		}
	}()

	pool, err := ants.NewPool(cfg.Workers, ants.WithPanicHandler(func(p any) {
		logger.Error("echo worker panicked", zap.Any("panic", p))
	}))
	if err != nil {
		return err
	}

	logger.Info("echo server listening",
		zap.String("host", cfg.ListenHost),
		zap.Uint16("port", cfg.ListenPort),
		zap.String("metrics", cfg.MetricsAddr))

	acceptErr := acceptLoop(ctx, host, server, pool, logger)
	stopping.Store(true)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	// Workers own their sockets until they return.
	if err := pool.ReleaseTimeout(shutdownTimeout); err != nil {
		logger.Warn("echo workers still running at exit", zap.Error(err))
		return acceptErr
	}
	return errors.Join(acceptErr, env.Close())
}

// acceptLoop hands every accepted connection to the pool until ctx ends.
// Idle polls and accept errors are spaced by an exponential backoff.
func acceptLoop(ctx context.Context, host *netlink.Host, server *netlink.Socket, pool *ants.Pool, logger *zap.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 0

	for {
		select {
		case <-ctx.Done():
			return host.Release(server.Handle())
		default:
		}

		v, err := host.Call(server.Handle(), "accept", nil)
		if err != nil {
			logger.Warn("accept failed", zap.Error(err))
		}
		peer, ok := v.(*netlink.Socket)
		if !ok {
			select {
			case <-ctx.Done():
			case <-time.After(b.NextBackOff()):
			}
			continue
		}
		b.Reset()

		if err := pool.Submit(func() { serve(ctx, host, peer, logger) }); err != nil {
			logger.Warn("dropping connection", zap.Error(err))
			_ = host.Release(peer.Handle())
		}
	}
}

// serve echoes messages back until the peer closes its side.
func serve(ctx context.Context, host *netlink.Host, peer *netlink.Socket, logger *zap.Logger) {
	defer func() {
		if err := host.Release(peer.Handle()); err != nil {
			logger.Debug("release failed", zap.Error(err))
		}
	}()

	for ctx.Err() == nil {
		v, err := host.Call(peer.Handle(), "receive", nil)
		if err != nil {
			logger.Debug("receive failed", zap.Error(err))
			return
		}
		data, _ := v.([]byte)
		if len(data) == 0 {
			return
		}
		if _, err := host.Call(peer.Handle(), "send", []any{data}); err != nil {
			logger.Debug("send failed", zap.Error(err))
			return
		}
	}
}
