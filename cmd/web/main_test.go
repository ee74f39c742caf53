package main

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"Melopick-Go/pkg/config"
)

// TestConfigureLogging checks that level and format settings are applied and
// that an unknown level is rejected.
func TestConfigureLogging(t *testing.T) {
	defer func() {
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{})
	}()

	if err := configureLogging(config.LogConfig{Level: "debug", Format: "json"}); err != nil {
		t.Fatal(err)
	}
	if log.GetLevel() != log.DebugLevel {
		t.Errorf("level = %v, want debug", log.GetLevel())
	}
	if _, ok := log.StandardLogger().Formatter.(*log.JSONFormatter); !ok {
		t.Errorf("formatter = %T, want JSON", log.StandardLogger().Formatter)
	}
	if err := configureLogging(config.LogConfig{Level: "loud", Format: "text"}); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

// TestRunStopsOnCancel starts the server on an ephemeral port and verifies
// that cancelling the context shuts it down cleanly.
func TestRunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Spotify.ClientID, cfg.Spotify.ClientSecret = "id", "secret"
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewApplicationRejectsBadDatabase(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Path = t.TempDir() + "/missing/dir/melopick.db"
	if _, err := newApplication(cfg, nil); err == nil {
		t.Fatal("expected an error for an unwritable database path")
	}
}
