package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.BaseURL != "http://127.0.0.1:5000" {
		t.Errorf("BaseURL = %q, want default", cfg.Server.BaseURL)
	}
	if cfg.Channel.DialMaxAttempts != 5 {
		t.Errorf("DialMaxAttempts = %d, want 5", cfg.Channel.DialMaxAttempts)
	}
	if cfg.Feed.PageSize != 20 {
		t.Errorf("PageSize = %d, want 20", cfg.Feed.PageSize)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  base_url: https://ripple.example.com
channel:
  dial_max_attempts: 8
feed:
  reconcile_interval: 2m
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.BaseURL != "https://ripple.example.com" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Channel.DialMaxAttempts != 8 {
		t.Errorf("DialMaxAttempts = %d, want 8", cfg.Channel.DialMaxAttempts)
	}
	if cfg.Feed.ReconcileInterval != 2*time.Minute {
		t.Errorf("ReconcileInterval = %v, want 2m", cfg.Feed.ReconcileInterval)
	}
	// Unset keys keep their defaults.
	if cfg.Server.WSURL != "ws://127.0.0.1:5000/ws" {
		t.Errorf("WSURL = %q, want default", cfg.Server.WSURL)
	}
	if cfg.Feed.PageSize != 20 {
		t.Errorf("PageSize = %d, want default 20", cfg.Feed.PageSize)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load returned nil for malformed yaml")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  base_url: https://file.example.com\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RIPPLE_BASE_URL", "https://env.example.com")
	t.Setenv("RIPPLE_PAGE_SIZE", "50")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.BaseURL != "https://env.example.com" {
		t.Errorf("BaseURL = %q, want env value", cfg.Server.BaseURL)
	}
	if cfg.Feed.PageSize != 50 {
		t.Errorf("PageSize = %d, want 50", cfg.Feed.PageSize)
	}
}

func TestEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("RIPPLE_PAGE_SIZE", "not-a-number")
	t.Setenv("RIPPLE_RECONCILE_INTERVAL", "-5s")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Feed.PageSize != 20 {
		t.Errorf("PageSize = %d, want default 20", cfg.Feed.PageSize)
	}
	if cfg.Feed.ReconcileInterval != 60*time.Second {
		t.Errorf("ReconcileInterval = %v, want default 60s", cfg.Feed.ReconcileInterval)
	}
}
