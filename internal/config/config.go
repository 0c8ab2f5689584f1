// Package config loads svg2avd settings from a TOML file with environment
// overrides.
//
// A missing file is not an error; defaults apply. Example:
//
//	[session]
//	entry = "file:///opt/svg2android/index.html"
//	request_timeout = "30s"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/svg2avd/pkg/cache"

	errs "github.com/matzehuels/svg2avd/pkg/errors"
)

const appName = "svg2avd"

// Environment variables that override file settings.
const (
	EnvEntry        = "SVG2AVD_ENTRY"
	EnvChrome       = "SVG2AVD_CHROME"
	EnvCacheBackend = "SVG2AVD_CACHE"
	EnvRedisAddr    = "SVG2AVD_REDIS_ADDR"
	EnvMongoURI     = "SVG2AVD_MONGO_URI"
	EnvServerAddr   = "SVG2AVD_ADDR"
)

// Defaults.
const (
	DefaultStartTimeout   = 30 * time.Second
	DefaultRequestTimeout = 60 * time.Second
	DefaultServerAddr     = ":8080"
	DefaultMaxBodyBytes   = 4 << 20
	DefaultConcurrency    = 4
)

// Config is the complete configuration.
type Config struct {
	Session SessionConfig `toml:"session"`
	Cache   CacheConfig   `toml:"cache"`
	Server  ServerConfig  `toml:"server"`
	Batch   BatchConfig   `toml:"batch"`
}

// SessionConfig configures the render session.
type SessionConfig struct {
	// Entry is the URL or path of the converter page.
	Entry string `toml:"entry"`

	// Chrome is the browser executable; empty searches PATH.
	Chrome string `toml:"chrome"`

	Headful   bool `toml:"headful"`
	NoSandbox bool `toml:"no_sandbox"`

	StartTimeout   Duration `toml:"start_timeout"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// CacheConfig selects the artifact cache backend.
type CacheConfig struct {
	Backend string   `toml:"backend"` // file, redis, mongo or none
	Dir     string   `toml:"dir"`
	TTL     Duration `toml:"ttl"`

	RedisAddr     string `toml:"redis_addr"`
	RedisDB       int    `toml:"redis_db"`
	RedisPassword string `toml:"redis_password"`
	RedisPrefix   string `toml:"redis_prefix"`

	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string `toml:"addr"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// BatchConfig configures multi-file conversion.
type BatchConfig struct {
	Concurrency int `toml:"concurrency"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			StartTimeout:   Duration{DefaultStartTimeout},
			RequestTimeout: Duration{DefaultRequestTimeout},
		},
		Cache: CacheConfig{
			Backend: cache.BackendFile,
			TTL:     Duration{cache.TTLArtifact},
		},
		Server: ServerConfig{
			Addr:         DefaultServerAddr,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		Batch: BatchConfig{Concurrency: DefaultConcurrency},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path means DefaultPath(). A missing file
// yields the defaults. Unknown keys are returned in the second value so the
// caller can warn about them.
func Load(path string) (*Config, []string, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	var unknown []string
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse %s", path)
		default:
			for _, key := range md.Undecoded() {
				unknown = append(unknown, key.String())
			}
		}
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, unknown, nil
}

// Parse decodes TOML text over the defaults without environment overrides.
func Parse(text string) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(text, cfg); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Session.Entry, EnvEntry)
	set(&c.Session.Chrome, EnvChrome)
	set(&c.Cache.Backend, EnvCacheBackend)
	set(&c.Cache.RedisAddr, EnvRedisAddr)
	set(&c.Cache.MongoURI, EnvMongoURI)
	set(&c.Server.Addr, EnvServerAddr)
}

// Validate checks value ranges and backend requirements.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case cache.BackendFile, cache.BackendNone:
	case cache.BackendRedis:
		if c.Cache.RedisAddr == "" {
			return errs.New(errs.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
		}
	case cache.BackendMongo:
		if c.Cache.MongoURI == "" {
			return errs.New(errs.ErrCodeInvalidConfig, "cache.mongo_uri is required for the mongo backend")
		}
	default:
		return errs.New(errs.ErrCodeInvalidConfig, "cache.backend: unknown backend %q", c.Cache.Backend)
	}

	if c.Session.StartTimeout.Duration < 0 || c.Session.RequestTimeout.Duration < 0 || c.Cache.TTL.Duration < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "durations must not be negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "server.max_body_bytes must be positive")
	}
	if c.Batch.Concurrency <= 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "batch.concurrency must be positive")
	}
	return nil
}

// EntryURL returns the session entry as a URL. Plain paths become file://
// URLs; an empty entry is an error.
func (c *Config) EntryURL() (string, error) {
	entry := c.Session.Entry
	if entry == "" {
		return "", errs.New(errs.ErrCodeInvalidConfig, "no converter page configured (set session.entry or %s)", EnvEntry)
	}
	if strings.Contains(entry, "://") {
		return entry, nil
	}
	abs, err := filepath.Abs(entry)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeInvalidConfig, err, "resolve %s", entry)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// CacheOptions converts the cache section. dir is used when no directory is
// configured.
func (c *Config) CacheOptions(dir string) cache.Options {
	if c.Cache.Dir != "" {
		dir = c.Cache.Dir
	}
	return cache.Options{
		Backend: c.Cache.Backend,
		Dir:     dir,
		Redis: cache.RedisOptions{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
			DB:       c.Cache.RedisDB,
			Prefix:   c.Cache.RedisPrefix,
		},
		Mongo: cache.MongoOptions{
			URI:        c.Cache.MongoURI,
			Database:   c.Cache.MongoDatabase,
			Collection: c.Cache.MongoCollection,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/svg2avd/config.toml, falling back to
// ~/.config.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Summary lists the effective settings as key/value pairs for logging.
// Secrets are omitted.
func (c *Config) Summary() []any {
	return []any{
		"entry", c.Session.Entry,
		"cache", c.Cache.Backend,
		"request_timeout", c.Session.RequestTimeout.Duration,
		"concurrency", c.Batch.Concurrency,
	}
}
