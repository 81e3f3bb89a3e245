// Package config loads PortPulse settings from defaults, an optional YAML
// file and the process environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	AppEnv   string `koanf:"app_env"`
	LogLevel string `koanf:"log_level"`

	HTTP     HTTPConfig     `koanf:"http"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Auth     AuthConfig     `koanf:"auth"`
	Rate     RateConfig     `koanf:"rate"`
	Features FeatureConfig  `koanf:"features"`
}

type HTTPConfig struct {
	Addr         string   `koanf:"addr"`
	AllowOrigins []string `koanf:"allow_origins"`
}

type DatabaseConfig struct {
	URL           string        `koanf:"url"`
	MinConns      int           `koanf:"min_conns"`
	MaxConns      int           `koanf:"max_conns"`
	ConnLifetime  time.Duration `koanf:"conn_lifetime"`
	Migrate       bool          `koanf:"migrate"`
	MigrationsDir string        `koanf:"migrations_dir"`
}

type CacheConfig struct {
	RedisURL string        `koanf:"redis_url"`
	CSVTTL   time.Duration `koanf:"csv_ttl"`
}

type AuthConfig struct {
	Required bool     `koanf:"required"`
	Keys     []string `koanf:"keys"`
	AdminKey string   `koanf:"admin_key"`
	DemoKey  string   `koanf:"demo_key"`
}

type RateConfig struct {
	Disabled bool    `koanf:"disabled"`
	RPS      float64 `koanf:"rps"`
	Burst    int     `koanf:"burst"`
}

type FeatureConfig struct {
	HSImports bool `koanf:"hs_imports"`
}

func Default() Config {
	return Config{
		AppEnv:   "prod",
		LogLevel: "info",
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Database: DatabaseConfig{
			MinConns:      1,
			MaxConns:      10,
			ConnLifetime:  30 * time.Minute,
			MigrationsDir: "db/migrations",
		},
		Cache: CacheConfig{
			CSVTTL: 60 * time.Second,
		},
		Auth: AuthConfig{
			Required: true,
			DemoKey:  "dev_demo_123",
		},
		Rate: RateConfig{
			RPS:   1,
			Burst: 60,
		},
	}
}

// Load reads configuration. CONFIG_FILE names the YAML file; without it
// ./config.yaml is used when present.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if err := splitLists(k); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := strings.TrimSpace(os.Getenv("CONFIG_FILE")); p != "" {
		return p
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

var envKeys = map[string]string{
	"app_env":                  "app_env",
	"log_level":                "log_level",
	"http_addr":                "http.addr",
	"port":                     "http.port",
	"allow_origins":            "http.allow_origins",
	"database_url":             "database.url",
	"db_min_conns":             "database.min_conns",
	"db_max_conns":             "database.max_conns",
	"db_conn_lifetime":         "database.conn_lifetime",
	"db_migrate":               "database.migrate",
	"db_migrations_dir":        "database.migrations_dir",
	"redis_url":                "cache.redis_url",
	"csv_cache_ttl":            "cache.csv_ttl",
	"require_api_key":          "auth.required",
	"api_keys":                 "auth.keys",
	"admin_api_key":            "auth.admin_key",
	"demo_api_key":             "auth.demo_key",
	"next_public_demo_api_key": "auth.demo_key",
	"disable_ratelimit":        "rate.disabled",
	"rate_rps":                 "rate.rps",
	"rate_burst":               "rate.burst",
	"hs_imports_enabled":       "features.hs_imports",
}

// envKey maps an environment variable to its config path. Variables that
// are not listed return "" and are ignored.
func envKey(key string) string {
	return envKeys[strings.ToLower(key)]
}

var listPaths = []string{"http.allow_origins", "auth.keys"}

func splitLists(k *koanf.Koanf) error {
	for _, path := range listPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		var out []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	// PORT is a shorthand for HTTP_ADDR=":<port>".
	if port := k.String("http.port"); port != "" {
		if err := k.Set("http.addr", ":"+strings.TrimPrefix(port, ":")); err != nil {
			return fmt.Errorf("set http.addr: %w", err)
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.AppEnv = strings.ToLower(strings.TrimSpace(c.AppEnv))
	c.Auth.AdminKey = strings.TrimSpace(c.Auth.AdminKey)
	c.Auth.DemoKey = strings.TrimSpace(c.Auth.DemoKey)
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, errors.New("database.min_conns must be >= 0"))
	}
	if c.Database.MaxConns < 1 {
		errs = append(errs, errors.New("database.max_conns must be >= 1"))
	}
	if c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, fmt.Errorf("database.min_conns (%d) exceeds max_conns (%d)", c.Database.MinConns, c.Database.MaxConns))
	}
	if c.Cache.CSVTTL <= 0 {
		errs = append(errs, errors.New("cache.csv_ttl must be positive"))
	}
	if !c.Rate.Disabled && (c.Rate.RPS <= 0 || c.Rate.Burst < 1) {
		errs = append(errs, errors.New("rate.rps must be > 0 and rate.burst >= 1"))
	}
	return errors.Join(errs...)
}

// IsDev reports whether the service runs in a development environment.
func (c Config) IsDev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development" || c.AppEnv == "local"
}

func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
