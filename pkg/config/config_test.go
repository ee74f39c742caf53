package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Addr != ":4000" {
		t.Errorf("Server.Addr = %q, want :4000", cfg.Server.Addr)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
	}
	if cfg.Database.Path != ":memory:" {
		t.Errorf("Database.Path = %q, want :memory:", cfg.Database.Path)
	}
	if cfg.Discovery.SessionIdle != 30*time.Minute {
		t.Errorf("Discovery.SessionIdle = %v, want 30m", cfg.Discovery.SessionIdle)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"SPOTIFY_CLIENT_ID":                "spotify.client_id",
		"DATABASE_PATH":                    "database.path",
		"MELOPICK_CACHE_TTL":               "cache.ttl",
		"MELOPICK_SPOTIFY_REQUEST_TIMEOUT": "spotify.request_timeout",
		"MELOPICK_CONFIG":                  "",
		"HOME":                             "",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "melopick.yaml")
	yaml := "cache:\n  ttl: 7m\n  max_entries: 50\nlog:\n  format: json\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(PathEnvVar, path)
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")
	t.Setenv("MELOPICK_CACHE_TTL", "9m")
	t.Setenv("MELOPICK_DISCOVERY_ENHANCED_DETECTION", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.TTL != 9*time.Minute {
		t.Errorf("env should override file: ttl = %v", cfg.Cache.TTL)
	}
	if cfg.Cache.MaxEntries != 50 {
		t.Errorf("file should override defaults: max_entries = %d", cfg.Cache.MaxEntries)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log.format = %q, want json", cfg.Log.Format)
	}
	if !cfg.Discovery.EnhancedDetection {
		t.Errorf("enhanced detection not enabled from env")
	}
	if cfg.Spotify.ClientID != "id" || cfg.Spotify.MaxRetries != 3 {
		t.Errorf("unexpected spotify config %+v", cfg.Spotify)
	}
}

func TestLoadRequiresCredentials(t *testing.T) {
	t.Setenv(PathEnvVar, "")
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Spotify.ClientID, cfg.Spotify.ClientSecret = "id", "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with credentials should be valid: %v", err)
	}
	cfg.Log.Format = "xml"
	cfg.Discovery.DefaultMarket = "USA"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}
