package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reel/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatalf("expected exists=false for missing config file")
	}
	if cfg.Paths.APIBind != "127.0.0.1:7519" {
		t.Fatalf("unexpected default api_bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Encoder.MaxWidth != 1280 {
		t.Fatalf("unexpected default max_width: %d", cfg.Encoder.MaxWidth)
	}
	if !filepath.IsAbs(cfg.Paths.MediaRoot) {
		t.Fatalf("expected media_root to be absolute, got %q", cfg.Paths.MediaRoot)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
media_root = "` + filepath.Join(dir, "media") + `"
api_bind = "0.0.0.0:9000"

[public]
base_url = "https://cdn.example.com/"

[encoder]
max_width = 1920

[workflow]
max_concurrent_encodes = 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatalf("expected exists=true")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Fatalf("api_bind override not applied: %q", cfg.Paths.APIBind)
	}
	if cfg.Public.BaseURL != "https://cdn.example.com" {
		t.Fatalf("expected trailing slash trimmed from base_url, got %q", cfg.Public.BaseURL)
	}
	if cfg.Encoder.MaxWidth != 1920 {
		t.Fatalf("max_width override not applied: %d", cfg.Encoder.MaxWidth)
	}
	if cfg.Workflow.MaxConcurrentEncodes != 4 {
		t.Fatalf("max_concurrent_encodes override not applied: %d", cfg.Workflow.MaxConcurrentEncodes)
	}
	if cfg.Workflow.QueuePollInterval != 5 {
		t.Fatalf("unset field should keep default, got %d", cfg.Workflow.QueuePollInterval)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
api_bind = "not-an-address"

[encoder]
max_width = 0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "api_bind") {
		t.Fatalf("expected api_bind in error, got %v", err)
	}
	if !strings.Contains(err.Error(), "max_width") {
		t.Fatalf("expected max_width in error, got %v", err)
	}
}

func TestValidateHeartbeatOrdering(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.HeartbeatInterval = 60
	cfg.Workflow.HeartbeatTimeout = 30
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error when heartbeat_timeout <= heartbeat_interval")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[encoder]") {
		t.Fatalf("sample config missing encoder section")
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatalf("expected sample config to exist")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	got, err := config.ExpandPath("~/media")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "media") {
		t.Fatalf("ExpandPath = %q, want %q", got, filepath.Join(home, "media"))
	}
}
