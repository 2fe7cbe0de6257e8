package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/pagepulse/pagepulse/internal/cache"
)

// Config represents the top-level application config plus the resolved
// refresh plan.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Catalog  CatalogConfig  `koanf:"catalog"`

	// RefreshPlan is populated by Load after parsing the plan files.
	RefreshPlan RefreshPlanConfig `koanf:"-"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	Type         string `koanf:"type"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type CacheConfig struct {
	PlanDir         string `koanf:"plan_dir"`
	RequireEntries  bool   `koanf:"require_entries"`
	RefreshEnabled  bool   `koanf:"refresh_enabled"`
	RefreshInterval string `koanf:"refresh_interval"` // parsed and validated on startup
	DefaultTTL      string `koanf:"default_ttl"`
}

type CatalogConfig struct {
	// SeedPath points at a YAML snapshot of the content catalog. Optional;
	// a missing file starts the engine with an empty catalog.
	SeedPath string `koanf:"seed_path"`
}

type RefreshPlanConfig struct {
	PlanDir string
	Entries []cache.PlanEntry
}

func (c CacheConfig) Interval() (time.Duration, error) {
	return time.ParseDuration(c.RefreshInterval)
}

func (c CacheConfig) TTL() (time.Duration, error) {
	return time.ParseDuration(c.DefaultTTL)
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}
	if c.Database.Type != "" && c.Database.Type != "postgres" && c.Database.Type != "memory" {
		return fmt.Errorf("unsupported database.type %q", c.Database.Type)
	}

	if strings.TrimSpace(c.Cache.PlanDir) == "" {
		return fmt.Errorf("cache.plan_dir is required")
	}
	interval, err := c.Cache.Interval()
	if err != nil {
		return fmt.Errorf("invalid cache.refresh_interval %q: %w", c.Cache.RefreshInterval, err)
	}
	if interval <= 0 {
		return fmt.Errorf("cache.refresh_interval must be > 0")
	}
	ttl, err := c.Cache.TTL()
	if err != nil {
		return fmt.Errorf("invalid cache.default_ttl %q: %w", c.Cache.DefaultTTL, err)
	}
	if ttl <= 0 {
		return fmt.Errorf("cache.default_ttl must be > 0")
	}

	return nil
}

// Load parses config from file + env, validates it, then loads and validates
// the cache refresh plan.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":             8080,
		"server.host":             "0.0.0.0",
		"server.max_body_size_mb": 1,
		"server.mode":             "release",
		"database.type":           "postgres",
		"database.dsn":            "postgres://localhost:5432/pagepulse?sslmode=disable",
		"database.max_open_conns": 25,
		"database.max_idle_conns": 25,
		"database.auto_migrate":   true,
		"cache.plan_dir":          "./config/refresh",
		"cache.require_entries":   false,
		"cache.refresh_enabled":   true,
		"cache.refresh_interval":  "2m",
		"cache.default_ttl":       "5m",
		"catalog.seed_path":       "./config/catalog.yaml",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("PAGEPULSE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "PAGEPULSE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repo, err := cache.NewFileSystemPlanRepository(cfg.Cache.PlanDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load refresh plan: %w", err)
	}
	entries := repo.Entries()
	if cfg.Cache.RefreshEnabled && cfg.Cache.RequireEntries && len(entries) == 0 {
		return nil, fmt.Errorf("no refresh plan entries found in %q", cfg.Cache.PlanDir)
	}

	cfg.RefreshPlan = RefreshPlanConfig{
		PlanDir: cfg.Cache.PlanDir,
		Entries: entries,
	}

	return &cfg, nil
}
