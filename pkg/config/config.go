// Package config loads the static, ambient configuration for the
// daemons: ports, timeouts, fan-out limits, and where the index engine
// and identity store keep their data. The legacy share grammar (§4.4)
// is a distinct, intentionally small language of its own and is not
// part of this package — see internal/shareconf.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sharewire/sharewire/internal/bytesize"
	"github.com/sharewire/sharewire/pkg/archive"
	"github.com/sharewire/sharewire/pkg/identity"
)

// Config is the static configuration for sharewired and
// sharewire-authd.
//
// Configuration sources, highest precedence first:
//  1. Environment variables (SHAREFS_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// ShutdownTimeout is defaulted and validated but not passed to the
	// server; Serve waits for in-flight sessions to drain after
	// Shutdown with no time bound.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Server configures the file-sharing service's TCP listener and
	// per-session limits (§4.3, §6).
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Discovery configures the UDP probe responder (§4.8, §6).
	Discovery DiscoveryConfig `mapstructure:"discovery" yaml:"discovery"`

	// Auth configures the authentication RPC peer's TCP listener (§4.5, §6).
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// Identity configures the principal/group store backing
	// authentication (pkg/identity).
	Identity identity.Config `mapstructure:"identity" yaml:"identity"`

	// Index is the base directory under which each share's index
	// engine (pkg/index) keeps its data.
	Index IndexConfig `mapstructure:"index" yaml:"index"`

	// Archive configures the optional S3 write-behind mirror
	// (pkg/archive, §11). Disabled by default.
	Archive archive.Config `mapstructure:"archive" yaml:"archive"`

	// Metrics configures the Prometheus metrics HTTP endpoint
	// (pkg/metrics, §11). Disabled by default.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Shares is the path to the legacy share-grammar file (§4.4),
	// parsed by internal/shareconf rather than by this package.
	Shares string `mapstructure:"shares" validate:"required" yaml:"shares"`
}

// LoggingConfig controls logging behavior, mapped directly onto
// internal/logger.Config.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format is the log output encoding: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// ServerConfig configures the file-sharing service (pkg/server.Config).
type ServerConfig struct {
	// Port is the TCP service port. Legacy default: 9092.
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`

	// MaxSessions bounds concurrent mounted sessions (§4.3 step 5). Zero
	// uses server.DefaultMaxSessions.
	MaxSessions int `mapstructure:"max_sessions" validate:"omitempty,min=1" yaml:"max_sessions"`

	// IdleTimeout closes a session that sits between requests longer
	// than this. Zero disables the idle timeout.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// ReadTimeout bounds a single in-flight frame read. Zero disables
	// the read timeout.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// AssertionTTL bounds how long a Mount's cached rights assertion
	// (§4.4, §11) is honored. Zero uses assertion.DefaultTTL.
	AssertionTTL time.Duration `mapstructure:"assertion_ttl" yaml:"assertion_ttl"`
}

// DiscoveryConfig configures the UDP broadcast-probe responder
// (pkg/discovery).
type DiscoveryConfig struct {
	// Enabled controls whether the discovery responder starts at all.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the UDP discovery port. Legacy default: 9093.
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`

	// HostName is parsed but not passed to the discovery responder,
	// which always advertises os.Hostname in HostProbe/HostInfo replies.
	HostName string `mapstructure:"host_name" yaml:"host_name"`
}

// AuthConfig configures the authentication RPC peer (pkg/authserver).
type AuthConfig struct {
	// Port is the TCP auth-server port. Legacy default: 9094.
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	// Enabled controls whether the metrics registry and HTTP server
	// start at all. Zero overhead when false.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port the /metrics endpoint listens on.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// IndexConfig configures where per-share index engines keep their data.
type IndexConfig struct {
	// BaseDir is the parent directory under which each share gets its
	// own index subdirectory, named after the share.
	BaseDir string `mapstructure:"base_dir" validate:"required" yaml:"base_dir"`

	// MaxEntrySize is a size for a single indexed attribute value.
	// Supports human-readable sizes ("1Mi", "512KB"). It is parsed but
	// pkg/index does not read it, so no size limit is enforced.
	MaxEntrySize bytesize.ByteSize `mapstructure:"max_entry_size" yaml:"max_entry_size,omitempty"`
}

// Load reads configuration from a YAML file (if present), overrides it
// with SHAREFS_* environment variables, fills in defaults, and
// validates the result. When no config file is found it returns
// DefaultConfig() as it is, without environment overrides or
// validation.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if !found {
		return cfg, nil
	}

	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// Save writes cfg to path as YAML, creating parent directories as
// needed. Config files may carry an identity DSN, so the file is
// written owner-only.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SHAREFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(configDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read file: %w", err)
	}
	return true, nil
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sharewire")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "sharewire")
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(DefaultConfigPath())
	return err == nil
}
