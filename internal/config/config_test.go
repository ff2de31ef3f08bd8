package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"vaultgallery/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("VAULT_API_TOKEN", "secret-token")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantMedia := filepath.Join(tempHome, ".local", "share", "vaultgallery", "media")
	if cfg.Paths.MediaRoot != wantMedia {
		t.Fatalf("unexpected media root: got %q want %q", cfg.Paths.MediaRoot, wantMedia)
	}
	if cfg.DatabasePath() != filepath.Join(tempHome, ".local", "share", "vaultgallery", "catalog.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.API.Token != "secret-token" {
		t.Fatalf("expected api token from env, got %q", cfg.API.Token)
	}
	if cfg.Ingest.GroupCapacity != 100 {
		t.Fatalf("expected default group capacity 100, got %d", cfg.Ingest.GroupCapacity)
	}
	if cfg.Selection.MaxLatest != 5 {
		t.Fatalf("expected default max latest 5, got %d", cfg.Selection.MaxLatest)
	}
	if cfg.Storage.Backend != config.StorageLocal {
		t.Fatalf("expected local storage by default, got %q", cfg.Storage.Backend)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"media_root": "~/vault-media",
			"data_dir":   "~/vault-data",
		},
		"ingest": map[string]any{
			"debounce_ms":    250,
			"group_capacity": 10,
		},
		"access": map[string]any{
			"authorized_users": []int64{42, 7, 42},
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  "Debug",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q to be loaded, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.MediaRoot != filepath.Join(tempHome, "vault-media") {
		t.Fatalf("unexpected media root: %q", cfg.Paths.MediaRoot)
	}
	if cfg.DebounceWindow().Milliseconds() != 250 {
		t.Fatalf("unexpected debounce window: %s", cfg.DebounceWindow())
	}
	if cfg.Ingest.GroupCapacity != 10 {
		t.Fatalf("unexpected group capacity: %d", cfg.Ingest.GroupCapacity)
	}
	if got := cfg.Access.AuthorizedUsers; len(got) != 2 || got[0] != 42 || got[1] != 7 {
		t.Fatalf("expected deduplicated users [42 7], got %v", got)
	}
	if !cfg.IsAuthorized(7) || cfg.IsAuthorized(8) {
		t.Fatal("unexpected authorization result")
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging, got %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
}

func TestValidateRejectsBrokenSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"missing media root", func(c *config.Config) { c.Paths.MediaRoot = "" }, "paths.media_root"},
		{"zero capacity", func(c *config.Config) { c.Ingest.GroupCapacity = 0 }, "ingest.group_capacity"},
		{"zero debounce", func(c *config.Config) { c.Ingest.DebounceMS = 0 }, "ingest.debounce_ms"},
		{"negative retries", func(c *config.Config) { c.Rating.RetryAttempts = -1 }, "rating.retry_attempts"},
		{"unknown backend", func(c *config.Config) { c.Storage.Backend = "ftp" }, "storage.backend"},
		{"minio without endpoint", func(c *config.Config) { c.Storage.Backend = config.StorageMinIO }, "storage.minio.endpoint"},
		{"scoring without endpoint", func(c *config.Config) { c.Scoring.Enabled = true }, "scoring.endpoint"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestAuthorizedUsersFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VAULT_AUTHORIZED_USERS", "11, 12")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.IsAuthorized(11) || !cfg.IsAuthorized(12) || cfg.IsAuthorized(13) {
		t.Fatalf("unexpected allow-list: %v", cfg.Access.AuthorizedUsers)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(target); err != nil || !exists {
		t.Fatalf("expected sample config to load, exists=%v err=%v", exists, err)
	}
}
