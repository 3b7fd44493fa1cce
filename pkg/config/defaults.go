package config

import (
	"strings"

	"github.com/sharewire/sharewire/pkg/identity"
	"github.com/sharewire/sharewire/pkg/server"
)

// Legacy service ports, per the original betalk.h.
const (
	DefaultServicePort   = 9092
	DefaultDiscoveryPort = 9093
	DefaultAuthPort      = 9094
)

// DefaultMetricsPort is the HTTP port the Prometheus endpoint listens
// on when MetricsConfig.Port is left at zero.
const DefaultMetricsPort = 9095

// DefaultConfig returns a Config with every field set to its default
// value, ready to Validate once Shares and Identity.SQLitePath are
// filled in.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in zero-valued fields of cfg with their defaults.
// Values already set by the config file or environment are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyDiscoveryDefaults(&cfg.Discovery)
	applyAuthDefaults(&cfg.Auth)
	applyIdentityDefaults(&cfg.Identity)
	applyIndexDefaults(&cfg.Index)
	applyMetricsDefaults(&cfg.Metrics)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = server.DefaultShutdownTimeout
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultServicePort
	}
	if cfg.MaxSessions == 0 {
		cfg.MaxSessions = server.DefaultMaxSessions
	}
}

func applyDiscoveryDefaults(cfg *DiscoveryConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultDiscoveryPort
	}
}

func applyAuthDefaults(cfg *AuthConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultAuthPort
	}
}

func applyIdentityDefaults(cfg *identity.Config) {
	cfg.ApplyDefaults()
}

func applyIndexDefaults(cfg *IndexConfig) {
	if cfg.BaseDir == "" {
		cfg.BaseDir = "sharewire-index"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultMetricsPort
	}
}
