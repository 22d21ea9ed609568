package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultServerConfig()
	if cfg.Addr != ":3002" {
		t.Errorf("addr = %q, want :3002", cfg.Addr)
	}
	if cfg.SessionBackend != "sqlite" {
		t.Errorf("session backend = %q, want sqlite", cfg.SessionBackend)
	}
	if cfg.MaxDBConns != 10 {
		t.Errorf("max db conns = %d, want 10", cfg.MaxDBConns)
	}
}

func TestLoad_OverridesBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blogd.yaml")
	content := "addr: \":9000\"\nsession_backend: redis\nredis_addr: \"127.0.0.1:6380\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, DefaultServerConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("addr = %q, want :9000", cfg.Addr)
	}
	if cfg.SessionBackend != "redis" {
		t.Errorf("session backend = %q, want redis", cfg.SessionBackend)
	}
	// Unset fields keep defaults.
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q, want info", cfg.LogLevel)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/blogd.yaml", DefaultServerConfig()); err == nil {
		t.Fatal("expected error for missing file")
	}
}
