// Package config loads the formflow server configuration with viper.
//
// Values come from, in increasing priority: built-in defaults, an optional
// YAML config file and FORMFLOW_* environment variables (dots in keys become
// underscores, so storage.dsn is FORMFLOW_STORAGE_DSN).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "FORMFLOW"

// Config represents the complete formflow server configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Wizard  WizardConfig  `mapstructure:"wizard"`
	Storage StorageConfig `mapstructure:"storage"`
	Files   FilesConfig   `mapstructure:"files"`
	Outbox  OutboxConfig  `mapstructure:"outbox"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig controls the HTTP adapter.
type ServerConfig struct {
	Addr     string `mapstructure:"addr"`
	BasePath string `mapstructure:"base_path"`
	// CookieName is the session cookie (default: "formflow_session")
	CookieName   string `mapstructure:"cookie_name"`
	CookieSecure bool   `mapstructure:"cookie_secure"`
	// MaxMemory is the multipart parsing memory limit in bytes
	MaxMemory       int64         `mapstructure:"max_memory"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// WizardConfig points at the wizard definition.
type WizardConfig struct {
	// Definition is the path of a YAML wizard definition
	Definition string `mapstructure:"definition"`
}

// StorageConfig selects the per-step data store.
type StorageConfig struct {
	// Driver is one of "memory", "sqlite", "postgres", "redis", "mongo"
	Driver string `mapstructure:"driver"`
	// DSN is the file path (sqlite), connection string (postgres), address
	// (redis) or URI (mongo)
	DSN string `mapstructure:"dsn"`
	// Prefix namespaces Redis keys
	Prefix string `mapstructure:"prefix"`
	// Database is the MongoDB database name
	Database string `mapstructure:"database"`
	// TTL expires idle Redis sessions, 0 = never
	TTL time.Duration `mapstructure:"ttl"`
}

// FilesConfig controls upload storage.
type FilesConfig struct {
	// Dir is where uploads are written; empty keeps them in memory
	Dir     string `mapstructure:"dir"`
	MaxSize int64  `mapstructure:"max_size"`
}

// OutboxConfig controls asynchronous commit delivery.
type OutboxConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Driver is one of "memory", "sqlite", "redis"
	Driver      string        `mapstructure:"driver"`
	DSN         string        `mapstructure:"dsn"`
	Workers     int           `mapstructure:"workers"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
	// Format is "text" or "json"
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			BasePath:        "/",
			CookieName:      "formflow_session",
			MaxMemory:       32 << 20,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Driver:   "memory",
			Prefix:   "formflow:",
			Database: "formflow",
		},
		Files: FilesConfig{
			MaxSize: 10 << 20,
		},
		Outbox: OutboxConfig{
			Driver:      "memory",
			Workers:     1,
			MaxAttempts: 5,
			Backoff:     time.Second,
			MaxBackoff:  time.Minute,
			Timeout:     30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every key with v so env overrides and Unmarshal
// see them.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.base_path", d.Server.BasePath)
	v.SetDefault("server.cookie_name", d.Server.CookieName)
	v.SetDefault("server.cookie_secure", d.Server.CookieSecure)
	v.SetDefault("server.max_memory", d.Server.MaxMemory)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("wizard.definition", d.Wizard.Definition)

	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.dsn", d.Storage.DSN)
	v.SetDefault("storage.prefix", d.Storage.Prefix)
	v.SetDefault("storage.database", d.Storage.Database)
	v.SetDefault("storage.ttl", d.Storage.TTL)

	v.SetDefault("files.dir", d.Files.Dir)
	v.SetDefault("files.max_size", d.Files.MaxSize)

	v.SetDefault("outbox.enabled", d.Outbox.Enabled)
	v.SetDefault("outbox.driver", d.Outbox.Driver)
	v.SetDefault("outbox.dsn", d.Outbox.DSN)
	v.SetDefault("outbox.workers", d.Outbox.Workers)
	v.SetDefault("outbox.max_attempts", d.Outbox.MaxAttempts)
	v.SetDefault("outbox.backoff", d.Outbox.Backoff)
	v.SetDefault("outbox.max_backoff", d.Outbox.MaxBackoff)
	v.SetDefault("outbox.timeout", d.Outbox.Timeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// NewViper returns a viper instance with defaults and env overrides set up.
// A non-empty file is read as the config file.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	return v, nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}
