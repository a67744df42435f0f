package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetDefaults(t *testing.T) {
	cfg := GetDefaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Registry.URL == "" {
		t.Error("default registry URL must not be empty")
	}
	if cfg.Registry.BundleTTL != 5*time.Minute {
		t.Errorf("expected default bundle TTL 5m, got %v", cfg.Registry.BundleTTL)
	}
	if cfg.Scan.MinSeverity != "High" {
		t.Errorf("expected default min severity High, got %s", cfg.Scan.MinSeverity)
	}
	if cfg.Cache.Enabled {
		t.Error("result cache must be disabled by default")
	}

	if err := validateConfig(cfg); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"empty registry url online", func(c *Config) { c.Registry.URL = "" }, true},
		{"empty registry url offline", func(c *Config) {
			c.Registry.URL = ""
			c.Registry.Offline = true
		}, false},
		{"bad min severity", func(c *Config) { c.Scan.MinSeverity = "Fatal" }, true},
		{"lowercase min severity", func(c *Config) { c.Scan.MinSeverity = "high" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaults()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 9191\nregistry:\n  bundle_ttl: 30s\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SIGIL_REGISTRY_URL", "https://registry.internal.example.com")
	t.Setenv("SIGIL_MIN_SEVERITY", "Warn")
	t.Setenv("SIGIL_BUNDLE_TTL", "45")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9191 {
		t.Errorf("expected port 9191 from file, got %d", cfg.Server.Port)
	}
	// The environment variable carries bare seconds and wins over the file.
	if cfg.Registry.BundleTTL != 45*time.Second {
		t.Errorf("expected bundle TTL 45s from environment, got %v", cfg.Registry.BundleTTL)
	}
	if cfg.Registry.URL != "https://registry.internal.example.com" {
		t.Errorf("expected registry URL from environment, got %s", cfg.Registry.URL)
	}
	if cfg.Scan.MinSeverity != "Warn" {
		t.Errorf("expected min severity Warn from environment, got %s", cfg.Scan.MinSeverity)
	}

	// Untouched sections keep their defaults.
	if cfg.Events.Path != "/ws" {
		t.Errorf("expected default events path, got %s", cfg.Events.Path)
	}
}

func TestLoad_InvalidFileRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("scan:\n  min_severity: Fatal\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid min severity in file")
	}
}
