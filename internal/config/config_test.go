package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithSecrets(t *testing.T) {
	t.Setenv("YATUBE_JWT_ACCESS_SECRET", "a")
	t.Setenv("YATUBE_JWT_REFRESH_SECRET", "r")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerAddr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.ServerAddr)
	}
	if cfg.DBDriver != "mysql" {
		t.Fatalf("expected mysql driver, got %q", cfg.DBDriver)
	}
	if cfg.IndexCacheTTL != 20*time.Second {
		t.Fatalf("expected 20s index cache, got %v", cfg.IndexCacheTTL)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Fatalf("expected no brokers, got %v", cfg.KafkaBrokers)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("YATUBE_JWT_ACCESS_SECRET", "a")
	t.Setenv("YATUBE_JWT_REFRESH_SECRET", "r")
	t.Setenv("YATUBE_DATABASE_DRIVER", "SQLite")
	t.Setenv("YATUBE_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("YATUBE_CACHE_INDEX_TTL", "0s")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("expected sqlite, got %q", cfg.DBDriver)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.IndexCacheTTL != 0 {
		t.Fatalf("expected cache disabled, got %v", cfg.IndexCacheTTL)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "server:\n  addr: \":9000\"\njwt:\n  access_secret: x\n  refresh_secret: y\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerAddr != ":9000" || cfg.AccessSecret != "x" {
		t.Fatalf("config file not applied: %+v", cfg)
	}
}

func TestLoadRejectsMissingSecrets(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error without jwt secrets")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("YATUBE_JWT_ACCESS_SECRET", "a")
	t.Setenv("YATUBE_JWT_REFRESH_SECRET", "r")
	t.Setenv("YATUBE_DATABASE_DRIVER", "oracle")
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
