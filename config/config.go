// Package config loads the TOML configuration shared by the host module and
// the echo server. Keys missing from the file keep their Default values.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"

	"github.com/OpenListTeam/wazero-netlink/manager/transport"
)

// Config is the resolved configuration.
type Config struct {
	DefaultIPVersion  transport.IPVersion
	DialTimeout       time.Duration
	ResolverCacheSize int
	// ListenBacklog applies to servers constructed without listenQueue.
	ListenBacklog    int
	ModuleName       string
	LogLevel         zapcore.Level
	MetricsNamespace string
	Echo             EchoConfig
}

// EchoConfig configures cmd/netlink-echo.
type EchoConfig struct {
	ListenHost  string
	ListenPort  uint16
	Workers     int
	MetricsAddr string
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DefaultIPVersion:  transport.IPv4,
		DialTimeout:       30 * time.Second,
		ResolverCacheSize: 64,
		ListenBacklog:     0,
		ModuleName:        "netlink",
		LogLevel:          zapcore.InfoLevel,
		MetricsNamespace:  "netlink",
		Echo: EchoConfig{
			ListenHost:  "127.0.0.1",
			ListenPort:  7070,
			Workers:     64,
			MetricsAddr: "127.0.0.1:9090",
		},
	}
}

type fileConfig struct {
	IPVersion         string `toml:"ip_version"`
	DialTimeout       string `toml:"dial_timeout"`
	ResolverCacheSize int    `toml:"resolver_cache_size"`
	ListenBacklog     int    `toml:"listen_backlog"`
	ModuleName        string `toml:"module_name"`
	LogLevel          string `toml:"log_level"`
	MetricsNamespace  string `toml:"metrics_namespace"`
	Echo              struct {
		ListenHost  string `toml:"listen_host"`
		ListenPort  int64  `toml:"listen_port"`
		Workers     int    `toml:"workers"`
		MetricsAddr string `toml:"metrics_addr"`
	} `toml:"echo"`
}

// Load reads the file at path.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load netlink config: %w", err)
	}
	return resolve(raw, meta)
}

// Parse reads configuration from TOML text.
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse netlink config: %w", err)
	}
	return resolve(raw, meta)
}

func resolve(raw fileConfig, meta toml.MetaData) (Config, error) {
	cfg := Default()

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}

	if meta.IsDefined("ip_version") {
		v, ok := transport.ParseIPVersion(strings.TrimSpace(raw.IPVersion))
		if !ok {
			return Config{}, fmt.Errorf("parse ip_version: %q is not IPv4, IPv6 or Any", raw.IPVersion)
		}
		cfg.DefaultIPVersion = v
	}

	if meta.IsDefined("dial_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.DialTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse dial_timeout: %w", err)
		}
		cfg.DialTimeout = d
	}

	if meta.IsDefined("resolver_cache_size") {
		if raw.ResolverCacheSize < 0 {
			return Config{}, fmt.Errorf("resolver_cache_size must not be negative")
		}
		cfg.ResolverCacheSize = raw.ResolverCacheSize
	}

	if meta.IsDefined("listen_backlog") {
		if raw.ListenBacklog < 0 {
			return Config{}, fmt.Errorf("listen_backlog must not be negative")
		}
		cfg.ListenBacklog = raw.ListenBacklog
	}

	if meta.IsDefined("module_name") {
		if name := strings.TrimSpace(raw.ModuleName); name != "" {
			cfg.ModuleName = name
		}
	}

	if meta.IsDefined("log_level") {
		level, err := zapcore.ParseLevel(strings.TrimSpace(raw.LogLevel))
		if err != nil {
			return Config{}, fmt.Errorf("parse log_level: %w", err)
		}
		cfg.LogLevel = level
	}

	if meta.IsDefined("metrics_namespace") {
		cfg.MetricsNamespace = strings.TrimSpace(raw.MetricsNamespace)
	}

	if meta.IsDefined("echo", "listen_host") {
		cfg.Echo.ListenHost = strings.TrimSpace(raw.Echo.ListenHost)
	}

	if meta.IsDefined("echo", "listen_port") {
		if raw.Echo.ListenPort < 1 || raw.Echo.ListenPort > math.MaxUint16 {
			return Config{}, fmt.Errorf("echo.listen_port %d out of range", raw.Echo.ListenPort)
		}
		cfg.Echo.ListenPort = uint16(raw.Echo.ListenPort)
	}

	if meta.IsDefined("echo", "workers") {
		if raw.Echo.Workers < 1 {
			return Config{}, fmt.Errorf("echo.workers must be positive")
		}
		cfg.Echo.Workers = raw.Echo.Workers
	}

	if meta.IsDefined("echo", "metrics_addr") {
		cfg.Echo.MetricsAddr = strings.TrimSpace(raw.Echo.MetricsAddr)
	}

	return cfg, nil
}
