// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads holoauth settings. Values resolve in order: built-in
// defaults, an optional YAML file, then command-line flags the user set.
package config

import (
	"slices"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// DatabaseURLEnv is read when database.url is not configured.
const DatabaseURLEnv = "DATABASE_URL"

// HTTPConfig configures the endpoint listener.
type HTTPConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	SecureCookie      bool          `koanf:"secure_cookie"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig configures the Postgres store.
type DatabaseConfig struct {
	URL             string `koanf:"url"`
	ConnectAttempts uint64 `koanf:"connect_attempts"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// MigrateConfig controls schema migration at serve time.
type MigrateConfig struct {
	Auto bool `koanf:"auto"`
}

// Config is the full holoauth configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Database DatabaseConfig `koanf:"database"`
	Store    string         `koanf:"store"`
	Log      LogConfig      `koanf:"log"`
	Migrate  MigrateConfig  `koanf:"migrate"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:              ":5000",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Metrics:  MetricsConfig{Addr: "127.0.0.1:9100"},
		Database: DatabaseConfig{ConnectAttempts: 5},
		Store:    StorePostgres,
		Log:      LogConfig{Format: "json", Level: "info"},
	}
}

// flagKeys maps command-line flags to configuration keys. Flags not listed,
// such as --config, are not configuration values.
var flagKeys = map[string]string{
	"http-addr":        "http.addr",
	"metrics-addr":     "metrics.addr",
	"database-url":     "database.url",
	"connect-attempts": "database.connect_attempts",
	"store":            "store",
	"log-format":       "log.format",
	"log-level":        "log.level",
	"auto-migrate":     "migrate.auto",
	"secure-cookie":    "http.secure_cookie",
}

// RegisterFlags adds the configuration flags to fs with the built-in
// defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("http-addr", d.HTTP.Addr, "HTTP listen address")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("database-url", "", "PostgreSQL URL (default: $"+DatabaseURLEnv+")")
	fs.Uint64("connect-attempts", d.Database.ConnectAttempts, "database pings before giving up at startup")
	fs.String("store", d.Store, "credential store (postgres or memory)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.Bool("auto-migrate", d.Migrate.Auto, "apply pending migrations before serving")
	fs.Bool("secure-cookie", d.HTTP.SecureCookie, "mark the session cookie Secure")
}

// Load resolves the configuration. path may be empty; flags may be nil.
// getenv supplies the DATABASE_URL fallback and may be nil.
func Load(path string, flags *pflag.FlagSet, getenv func(string) string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	if cfg.Database.URL == "" && getenv != nil {
		cfg.Database.URL = getenv(DatabaseURLEnv)
	}
	return &cfg, nil
}

// Validate checks the configuration for values serve cannot run with.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return oops.Code("CONFIG_INVALID").With("key", "http.addr").Errorf("http.addr is required")
	}
	if !slices.Contains([]string{StorePostgres, StoreMemory}, c.Store) {
		return oops.Code("CONFIG_INVALID").
			With("key", "store").
			With("value", c.Store).
			Errorf("store must be %q or %q", StorePostgres, StoreMemory)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("key", "log.format").
			With("value", c.Log.Format).
			Errorf("log.format must be json or text")
	}
	if c.Store == StorePostgres && c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "database.url").
			Errorf("database.url or %s is required for the postgres store", DatabaseURLEnv)
	}
	return nil
}
