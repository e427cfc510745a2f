package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := load(t.TempDir())
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}

	if cfg.OutputFormat != "{{.Artist}} - {{.Title}}" {
		t.Errorf("OutputFormat = %q", cfg.OutputFormat)
	}
	if cfg.PollInterval != time.Second {
		t.Errorf("PollInterval = %v, want 1s", cfg.PollInterval)
	}
	if cfg.Scan.RetryDelay != 2*time.Second {
		t.Errorf("Scan.RetryDelay = %v, want 2s", cfg.Scan.RetryDelay)
	}
	if cfg.Scan.MaxRetries != 0 {
		t.Errorf("Scan.MaxRetries = %d, want 0", cfg.Scan.MaxRetries)
	}
	if cfg.MPV.Path != "mpv" {
		t.Errorf("MPV.Path = %q, want mpv", cfg.MPV.Path)
	}
	if !cfg.History.Enabled {
		t.Error("history should be enabled by default")
	}
	if cfg.LastFM.Enabled() {
		t.Error("Last.fm should be disabled without credentials")
	}
	if !errors.Is(cfg.Validate(), ErrNoServer) {
		t.Error("expected ErrNoServer without server_url")
	}
}

func TestLoadFile(t *testing.T) {
	dir := writeConfig(t, `
server_url: http://nas.local:8080
output_width: 40
poll_interval: 500
scan:
  retry_delay: 100
  max_retries: 5
data_dir: /tmp/crate
history:
  enabled: false
discord:
  app_id: "1234"
lastfm:
  api_key: key
  api_secret: secret
  session_key: session
`)

	cfg, err := load(dir)
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}

	if cfg.ServerURL != "http://nas.local:8080" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.OutputWidth != 40 {
		t.Errorf("OutputWidth = %d, want 40", cfg.OutputWidth)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", cfg.PollInterval)
	}
	if cfg.Scan.RetryDelay != 100*time.Millisecond || cfg.Scan.MaxRetries != 5 {
		t.Errorf("Scan = %+v", cfg.Scan)
	}
	if cfg.History.Enabled {
		t.Error("history should be disabled")
	}
	if cfg.HistoryPath() != filepath.Join("/tmp/crate", "history.db") {
		t.Errorf("HistoryPath() = %q", cfg.HistoryPath())
	}
	if cfg.Discord.AppID != "1234" {
		t.Errorf("Discord.AppID = %q", cfg.Discord.AppID)
	}
	if !cfg.LastFM.Enabled() {
		t.Error("Last.fm should be enabled with full credentials")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := writeConfig(t, "server_url: http://file\n")
	t.Setenv("CRATE_SERVER_URL", "http://env:9000")
	t.Setenv("CRATE_SCAN_MAX_RETRIES", "3")

	cfg, err := load(dir)
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}
	if cfg.ServerURL != "http://env:9000" {
		t.Errorf("ServerURL = %q, want env value", cfg.ServerURL)
	}
	if cfg.Scan.MaxRetries != 3 {
		t.Errorf("Scan.MaxRetries = %d, want 3", cfg.Scan.MaxRetries)
	}
}

func TestLoadBrokenFile(t *testing.T) {
	dir := writeConfig(t, "server_url: [unterminated\n")
	if _, err := load(dir); err == nil {
		t.Error("expected error for malformed config")
	}
}
