package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.IntervalSeconds != 60 {
		t.Errorf("IntervalSeconds = %d, want 60", c.IntervalSeconds)
	}
	if c.Capacity != 120 {
		t.Errorf("Capacity = %d, want 120", c.Capacity)
	}
	if c.Fetch.MaxAttempts != 3 {
		t.Errorf("Fetch.MaxAttempts = %d, want 3", c.Fetch.MaxAttempts)
	}
	if c.Fetch.ProviderTimeoutSeconds != 10 {
		t.Errorf("Fetch.ProviderTimeoutSeconds = %d, want 10", c.Fetch.ProviderTimeoutSeconds)
	}
	if c.Server.Port != "8090" {
		t.Errorf("Server.Port = %q, want 8090", c.Server.Port)
	}
	if c.Sources.IndexAPI.BaseURL == "" || c.Sources.BOC.URL == "" || c.Sources.MidRate.URL == "" {
		t.Error("expected default source URLs to be set")
	}
	if c.Sources.MidRate.SpreadPct != 0.3 {
		t.Errorf("MidRate.SpreadPct = %v, want 0.3", c.Sources.MidRate.SpreadPct)
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
interval_seconds: 15
capacity: 30
server:
  port: "9100"
fetch:
  max_attempts: 5
sources:
  index_api:
    base_url: "http://localhost:9999"
    rate_per_minute: 6
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.IntervalSeconds != 15 {
		t.Errorf("IntervalSeconds = %d, want 15", c.IntervalSeconds)
	}
	if c.Capacity != 30 {
		t.Errorf("Capacity = %d, want 30", c.Capacity)
	}
	if c.Server.Port != "9100" {
		t.Errorf("Server.Port = %q, want 9100", c.Server.Port)
	}
	if c.Fetch.MaxAttempts != 5 {
		t.Errorf("Fetch.MaxAttempts = %d, want 5", c.Fetch.MaxAttempts)
	}
	if c.Sources.IndexAPI.BaseURL != "http://localhost:9999" {
		t.Errorf("IndexAPI.BaseURL = %q", c.Sources.IndexAPI.BaseURL)
	}
	if c.Sources.IndexAPI.RatePerMinute != 6 {
		t.Errorf("IndexAPI.RatePerMinute = %d, want 6", c.Sources.IndexAPI.RatePerMinute)
	}
	// Untouched sections still get defaults.
	if c.Sources.BOC.URL == "" {
		t.Error("BOC.URL default missing")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative interval", "interval_seconds: -10\n"},
		{"negative capacity", "capacity: -1\n"},
		{"malformed yaml", "interval_seconds: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.body)
			if _, err := Load(path); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() error = nil, want error")
	}
}
