package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Create temporary config file
	content := `
server:
  port: 9090
  host: "127.0.0.1"

database:
  host: "testdb"
  port: 5432
  user: "testuser"
  password: "testpass"
  dbname: "tubegate_test"

upstream:
  baseURL: "https://extract.example.com"
  timeout: "20s"

uploader:
  mode: "queue"
`

	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	// Load config
	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify loaded values
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}

	if cfg.Database.DBName != "tubegate_test" {
		t.Errorf("Expected database name tubegate_test, got %s", cfg.Database.DBName)
	}

	if cfg.Upstream.BaseURL != "https://extract.example.com" {
		t.Errorf("Expected upstream base URL overridden, got %s", cfg.Upstream.BaseURL)
	}

	if cfg.Upstream.Timeout != 20*time.Second {
		t.Errorf("Expected 20s upstream timeout, got %s", cfg.Upstream.Timeout)
	}

	if cfg.Uploader.Mode != "queue" {
		t.Errorf("Expected queue uploader mode, got %s", cfg.Uploader.Mode)
	}
}

func TestLoadDefaults(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte("server:\n  port: 8081\n")); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Unset sections fall back to defaults
	if cfg.Quota.DefaultDailyLimit != 100 {
		t.Errorf("Expected default daily limit 100, got %d", cfg.Quota.DefaultDailyLimit)
	}

	if cfg.Quota.DefaultExpiryDays != 365 {
		t.Errorf("Expected default expiry 365 days, got %d", cfg.Quota.DefaultExpiryDays)
	}

	if cfg.Redis.MetadataTTL != time.Hour {
		t.Errorf("Expected 1h metadata TTL, got %s", cfg.Redis.MetadataTTL)
	}

	if cfg.Uploader.Mode != "inline" {
		t.Errorf("Expected inline uploader mode by default, got %s", cfg.Uploader.Mode)
	}

	if cfg.Maintenance.LogRetentionDays != 30 {
		t.Errorf("Expected 30 day log retention, got %d", cfg.Maintenance.LogRetentionDays)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error when loading nonexistent file")
	}
}
