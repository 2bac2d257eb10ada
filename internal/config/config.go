package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Stream   StreamConfig   `koanf:"stream"`
	Ordering OrderingConfig `koanf:"ordering"`
	Dedup    DedupConfig    `koanf:"dedup"`
	Pending  PendingConfig  `koanf:"pending"`
	Notify   NotifyConfig   `koanf:"notify"`
	Sweeper  SweeperConfig  `koanf:"sweeper"`
	Daemon   DaemonConfig   `koanf:"daemon"`
}

type ServerConfig struct {
	Port            int    `koanf:"port"`
	LogLevel        string `koanf:"log_level"`
	ReadTimeout     string `koanf:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

type StreamConfig struct {
	Endpoint       string `koanf:"endpoint"`
	ConnectTimeout string `koanf:"connect_timeout"`
	BackoffMin     string `koanf:"backoff_min"`
	BackoffMax     string `koanf:"backoff_max"`
	MaxRetries     int    `koanf:"max_retries"`
}

type OrderingConfig struct {
	Timeout      string `koanf:"timeout"`
	MaxQueueSize int    `koanf:"max_queue_size"`
}

type DedupConfig struct {
	MaxSize      int    `koanf:"max_size"`
	SnapshotPath string `koanf:"snapshot_path"`
}

type PendingConfig struct {
	MaxPerMessage int `koanf:"max_per_message"`
}

type NotifyConfig struct {
	BufferSize int `koanf:"buffer_size"`
}

type SweeperConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Interval string `koanf:"interval"`
}

type DaemonConfig struct {
	ShutdownTimeout        string `koanf:"shutdown_timeout"`
	HealthCheckInterval    string `koanf:"health_check_interval"`
	StartupShutdownTimeout string `koanf:"startup_shutdown_timeout"`
}

const (
	DefaultServerPort             = 7171
	DefaultServerLogLevel         = "info"
	DefaultServerReadTimeout      = "10s"
	DefaultServerWriteTimeout     = "10s"
	DefaultServerIdleTimeout      = "60s"
	DefaultServerShutdownTimeout  = "5s"
	DefaultStreamEndpoint         = "http://localhost:4096/event"
	DefaultStreamConnectTimeout   = "10s"
	DefaultStreamBackoffMin       = "500ms"
	DefaultStreamBackoffMax       = "30s"
	DefaultStreamMaxRetries       = 0 // 0 = retry forever
	DefaultOrderingTimeout        = "5s"
	DefaultOrderingMaxQueueSize   = 100
	DefaultDedupMaxSize           = 1000
	DefaultDedupSnapshotPath      = ""
	DefaultPendingMaxPerMessage   = 256
	DefaultNotifyBufferSize       = 64
	DefaultSweeperEnabled         = true
	DefaultSweeperInterval        = "30s"
	DefaultDaemonShutdownTimeout  = "30s"
	DefaultDaemonHealthInterval   = "30s"
	DefaultDaemonStartupShutdown  = "10s"
)

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	// Hardcoded Defaults
	defaults := map[string]interface{}{
		"server.port":                     DefaultServerPort,
		"server.log_level":                DefaultServerLogLevel,
		"server.read_timeout":             DefaultServerReadTimeout,
		"server.write_timeout":            DefaultServerWriteTimeout,
		"server.idle_timeout":             DefaultServerIdleTimeout,
		"server.shutdown_timeout":         DefaultServerShutdownTimeout,
		"stream.endpoint":                 DefaultStreamEndpoint,
		"stream.connect_timeout":          DefaultStreamConnectTimeout,
		"stream.backoff_min":              DefaultStreamBackoffMin,
		"stream.backoff_max":              DefaultStreamBackoffMax,
		"stream.max_retries":              DefaultStreamMaxRetries,
		"ordering.timeout":                DefaultOrderingTimeout,
		"ordering.max_queue_size":         DefaultOrderingMaxQueueSize,
		"dedup.max_size":                  DefaultDedupMaxSize,
		"dedup.snapshot_path":             DefaultDedupSnapshotPath,
		"pending.max_per_message":         DefaultPendingMaxPerMessage,
		"notify.buffer_size":              DefaultNotifyBufferSize,
		"sweeper.enabled":                 DefaultSweeperEnabled,
		"sweeper.interval":                DefaultSweeperInterval,
		"daemon.shutdown_timeout":         DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval":    DefaultDaemonHealthInterval,
		"daemon.startup_shutdown_timeout": DefaultDaemonStartupShutdown,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".seiri", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// Environment Variables
	k.Load(env.Provider("SEIRI_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "SEIRI_")), "_", ".", -1)
	}), nil)

	// CLI Flags
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
