// Package hostenv assembles the logger, metrics and socket host the
// commands share.
package hostenv

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/OpenListTeam/wazero-netlink/config"
	"github.com/OpenListTeam/wazero-netlink/manager/sockets"
	"github.com/OpenListTeam/wazero-netlink/manager/transport"
	"github.com/OpenListTeam/wazero-netlink/netlink"
)

// Env is one assembled runtime environment.
type Env struct {
	Config   config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Host     *netlink.Host
}

// LoadConfig loads path, or returns the defaults for an empty path.
func LoadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// NewLogger builds a production logger at level.
func NewLogger(level zapcore.Level) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// New wires a Host from cfg. The package loggers of sockets and netlink are
// pointed at logger; spans go to the global OpenTelemetry provider.
func New(cfg config.Config, logger *zap.Logger) (*Env, error) {
	sockets.SetLogger(logger.Named("sockets"))
	netlink.SetLogger(logger.Named("netlink"))

	reg := prometheus.NewRegistry()
	metrics := sockets.NewMetrics(cfg.MetricsNamespace)
	if err := errors.Join(
		metrics.Register(reg),
		reg.Register(collectors.NewGoCollector()),
		reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})),
	); err != nil {
		return nil, err
	}

	tr := transport.New(
		transport.WithDialTimeout(cfg.DialTimeout),
		transport.WithResolverCacheSize(cfg.ResolverCacheSize),
	)
	host := netlink.NewHost(
		sockets.NewManager(tr, sockets.WithMetrics(metrics)),
		netlink.WithDefaultIPVersion(cfg.DefaultIPVersion),
		netlink.WithListenBacklog(cfg.ListenBacklog),
		netlink.WithTracerProvider(otel.GetTracerProvider()),
	)

	return &Env{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Host:     host,
	}, nil
}

// Close releases every socket still held and flushes the logger.
func (e *Env) Close() error {
	err := e.Host.Close()
	_ = e.Logger.Sync()
	return err
}
