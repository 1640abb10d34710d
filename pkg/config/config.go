// Package config loads the server configuration from a YAML file and the
// environment. Environment variables override file values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"

	"github.com/samahstore/catalog/pkg/cache"
	"github.com/samahstore/catalog/pkg/logging"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Environment variables read by Load.
const (
	EnvAddr           = "CATALOG_ADDR"
	EnvLogLevel       = "CATALOG_LOG_LEVEL"
	EnvLogFormat      = "CATALOG_LOG_FORMAT"
	EnvStore          = "CATALOG_STORE"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvRedisAddr      = "REDIS_ADDR"
	EnvAdminToken     = "CATALOG_ADMIN_TOKEN"
	EnvSlowRequestMS  = "CATALOG_SLOW_REQUEST_MS"
	EnvAllowedOrigins = "CORS_ALLOWED_ORIGINS"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Duration accepts Go durations plus day and week units ("1d", "2w3d").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := str2duration.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("line %d: duration %q: %w", node.Line, raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return str2duration.String(time.Duration(d)), nil
}

// Config is the complete server configuration.
type Config struct {
	Server ServerConfig   `yaml:"server"`
	Log    logging.Config `yaml:"log"`
	Store  StoreConfig    `yaml:"store"`
	Cache  CacheConfig    `yaml:"cache"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	SlowRequestMS   int      `yaml:"slow_request_ms"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	AdminToken      string   `yaml:"admin_token"`
	AllowedOrigins  []string `yaml:"cors_allowed_origins"`
}

// SlowThreshold returns the slow request threshold.
func (s ServerConfig) SlowThreshold() time.Duration {
	return time.Duration(s.SlowRequestMS) * time.Millisecond
}

// StoreConfig selects and configures the data sources.
type StoreConfig struct {
	Driver      string `yaml:"driver"`
	DatabaseURL string `yaml:"database_url"`
	MaxConns    int32  `yaml:"max_conns"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisDB     int    `yaml:"redis_db"`
}

// CacheConfig holds the per-region cache settings keyed by region name.
type CacheConfig struct {
	Regions map[string]RegionConfig `yaml:"regions"`
}

// RegionConfig is the file form of cache.RegionConfig. TTL takes precedence
// over TTLMinutes when both are set; zero values fall back to the defaults.
type RegionConfig struct {
	TTLMinutes    int      `yaml:"ttl_minutes"`
	TTL           Duration `yaml:"ttl"`
	MaxEntries    int      `yaml:"max_entries"`
	SweepInterval Duration `yaml:"sweep_interval"`
}

func (r RegionConfig) ttl() time.Duration {
	if r.TTL != 0 {
		return time.Duration(r.TTL)
	}
	return time.Duration(r.TTLMinutes) * time.Minute
}

// Default returns the configuration used when no file is given.
func Default() Config {
	regions := make(map[string]RegionConfig)
	for region, rc := range cache.DefaultRegions() {
		regions[string(region)] = RegionConfig{
			TTLMinutes:    int(rc.TTL / time.Minute),
			MaxEntries:    rc.MaxEntries,
			SweepInterval: Duration(rc.SweepInterval),
		}
	}

	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			SlowRequestMS:   200,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Log: logging.Config{
			Level:  logging.LevelInfo,
			Format: logging.FormatJSON,
		},
		Store: StoreConfig{
			Driver:   DriverMemory,
			MaxConns: 10,
		},
		Cache: CacheConfig{Regions: regions},
	}
}

// Load reads path (optional) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode rejects unknown fields so typos in region or option names fail fast.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str(EnvAddr, &cfg.Server.Addr)
	str(EnvAdminToken, &cfg.Server.AdminToken)
	str(EnvStore, &cfg.Store.Driver)
	str(EnvDatabaseURL, &cfg.Store.DatabaseURL)
	str(EnvRedisAddr, &cfg.Store.RedisAddr)

	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Log.Level = logging.LogLevel(v)
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		cfg.Log.Format = logging.Format(v)
	}
	if v, ok := lookup(EnvSlowRequestMS); ok && v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalid, EnvSlowRequestMS, v)
		}
		cfg.Server.SlowRequestMS = ms
	}
	if v, ok := lookup(EnvAllowedOrigins); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.AllowedOrigins = origins
	}
	return nil
}

// Validate checks the configuration, including that every region name
// belongs to the closed region set.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalid)
	}
	if c.Server.SlowRequestMS <= 0 {
		return fmt.Errorf("%w: server.slow_request_ms must be positive", ErrInvalid)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("%w: store.database_url is required for the postgres driver", ErrInvalid)
		}
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("%w: store.redis_addr is required for the postgres driver", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalid, c.Store.Driver)
	}

	if _, err := c.Regions(); err != nil {
		return err
	}
	return nil
}

// Regions converts the cache section into registry input. Every region gets
// the single fixed key.
func (c Config) Regions() (map[cache.Region]cache.RegionConfig, error) {
	out := make(map[cache.Region]cache.RegionConfig, len(c.Cache.Regions))
	for name, rc := range c.Cache.Regions {
		region, err := cache.ParseRegion(name)
		if err != nil {
			return nil, fmt.Errorf("%w: cache.regions: %v", ErrInvalid, err)
		}
		ttl, maxEntries := rc.ttl(), rc.MaxEntries
		if ttl < 0 || maxEntries < 0 || rc.SweepInterval < 0 {
			return nil, fmt.Errorf("%w: cache.regions.%s: negative value", ErrInvalid, name)
		}
		if ttl == 0 {
			ttl = cache.DefaultTTL
		}
		if maxEntries == 0 {
			maxEntries = cache.DefaultMaxEntries
		}
		out[region] = cache.RegionConfig{
			TTL:           ttl,
			MaxEntries:    maxEntries,
			Keys:          []string{cache.FixedKey},
			SweepInterval: time.Duration(rc.SweepInterval),
		}
	}
	for _, region := range cache.Regions() {
		if _, ok := out[region]; !ok {
			return nil, fmt.Errorf("%w: cache.regions.%s is missing", ErrInvalid, region)
		}
	}
	return out, nil
}
