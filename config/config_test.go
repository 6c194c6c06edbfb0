package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Timezone != "America/Chicago" {
		t.Fatalf("Got default timezone %q, want America/Chicago", cfg.Timezone)
	}
	if cfg.Digest.SendHour != 5 {
		t.Fatalf("Got default send hour %d, want 5", cfg.Digest.SendHour)
	}
	if _, err := cfg.Location(); err != nil {
		t.Fatalf("Default timezone did not resolve: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prepdeck.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return path
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, "timezone: America/New_York\ndigest:\n  sendHour: 6\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Timezone != "America/New_York" {
		t.Fatalf("Got timezone %q, want America/New_York", cfg.Timezone)
	}
	if cfg.Digest.SendHour != 6 {
		t.Fatalf("Got send hour %d, want 6", cfg.Digest.SendHour)
	}
	if cfg.Digest.FromAddress == "" {
		t.Fatalf("Unset fields did not keep their defaults")
	}
}

func TestLoadRejectsBadTimezone(t *testing.T) {
	path := writeConfig(t, "timezone: Mars/Olympus_Mons\n")

	if _, err := Load(path); err == nil {
		t.Fatalf("Bad timezone was accepted")
	}
}

func TestLoadRejectsBadSendHour(t *testing.T) {
	path := writeConfig(t, "digest:\n  sendHour: 99\n")

	if _, err := Load(path); err == nil {
		t.Fatalf("Out-of-range send hour was accepted")
	}
}
