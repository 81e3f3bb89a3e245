package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("addr: got %q", cfg.HTTP.Addr)
	}
	if cfg.Cache.CSVTTL != 60*time.Second {
		t.Fatalf("csv ttl: got %v", cfg.Cache.CSVTTL)
	}
	if !cfg.Auth.Required || cfg.Auth.DemoKey != "dev_demo_123" {
		t.Fatalf("auth defaults: %+v", cfg.Auth)
	}
	if cfg.Features.HSImports {
		t.Fatalf("hs imports should default to off")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "9090")
	t.Setenv("API_KEYS", "pp_live_a, pp_live_b,,")
	t.Setenv("ADMIN_API_KEY", " pp_admin_x ")
	t.Setenv("DB_MAX_CONNS", "20")
	t.Setenv("CSV_CACHE_TTL", "5s")
	t.Setenv("HS_IMPORTS_ENABLED", "true")
	t.Setenv("SOME_UNRELATED_VAR", "ignored")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("addr: got %q", cfg.HTTP.Addr)
	}
	if len(cfg.Auth.Keys) != 2 || cfg.Auth.Keys[0] != "pp_live_a" || cfg.Auth.Keys[1] != "pp_live_b" {
		t.Fatalf("keys: got %#v", cfg.Auth.Keys)
	}
	if cfg.Auth.AdminKey != "pp_admin_x" {
		t.Fatalf("admin key: got %q", cfg.Auth.AdminKey)
	}
	if cfg.Database.MaxConns != 20 {
		t.Fatalf("max conns: got %d", cfg.Database.MaxConns)
	}
	if cfg.Cache.CSVTTL != 5*time.Second {
		t.Fatalf("csv ttl: got %v", cfg.Cache.CSVTTL)
	}
	if !cfg.Features.HSImports {
		t.Fatalf("hs imports should be on")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portpulse.yaml")
	body := "app_env: dev\nlog_level: debug\nrate:\n  rps: 5\n  burst: 10\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("RATE_BURST", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsDev() {
		t.Fatalf("expected dev env, got %q", cfg.AppEnv)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("level: got %v", cfg.SlogLevel())
	}
	if cfg.Rate.RPS != 5 {
		t.Fatalf("rps from file: got %v", cfg.Rate.RPS)
	}
	if cfg.Rate.Burst != 25 {
		t.Fatalf("env should override file burst: got %d", cfg.Rate.Burst)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.Database.MinConns = 30
	cfg.Database.MaxConns = 10
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected min>max error")
	}
	cfg = Default()
	cfg.Rate.RPS = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected rate error")
	}
	cfg.Rate.Disabled = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled limiter should skip rate checks: %v", err)
	}
}
