// Command web initializes the Melopick-Go application and starts the HTTP
// server. Configuration comes from defaults, an optional YAML file and the
// environment (see package config). The server listens on :4000 by default
// and serves a JSON API.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"Melopick-Go/pkg/config"
	"Melopick-Go/pkg/db"
	"Melopick-Go/pkg/discovery"
	"Melopick-Go/pkg/handlers"
	"Melopick-Go/pkg/spotify"
	"Melopick-Go/pkg/weighted"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := configureLogging(cfg.Log); err != nil {
		log.Fatalf("logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// configureLogging applies the level and format settings to the standard
// logrus logger.
func configureLogging(c config.LogConfig) error {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	if c.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// newApplication wires the catalog client, discovery engine and database
// into the handler bundle.
func newApplication(cfg *config.Config, httpClient *http.Client) (*handlers.Application, error) {
	sc := spotify.NewSpotifyClient(spotify.Config{
		ClientID:          cfg.Spotify.ClientID,
		ClientSecret:      cfg.Spotify.ClientSecret,
		TokenURL:          cfg.Spotify.TokenURL,
		BaseURL:           cfg.Spotify.APIBaseURL,
		HTTPClient:        httpClient,
		MaxRetries:        cfg.Spotify.MaxRetries,
		BaseDelay:         cfg.Spotify.BaseDelay,
		RequestTimeout:    cfg.Spotify.RequestTimeout,
		RequestsPerSecond: cfg.Spotify.RequestsPerSecond,
		Burst:             cfg.Spotify.Burst,
		CacheTTL:          cfg.Cache.TTL,
		CacheBucket:       cfg.Cache.Bucket,
		CacheMaxEntries:   cfg.Cache.MaxEntries,
		BreakerFailures:   uint32(max(cfg.Spotify.BreakerFailures, 0)),
		BreakerCooldown:   cfg.Spotify.BreakerCooldown,
	})

	engine := discovery.NewEngine(sc,
		discovery.WithRand(weighted.NewRand(cfg.Discovery.Seed)),
		discovery.WithSessionIdle(cfg.Discovery.SessionIdle),
		discovery.WithTargetedBudget(cfg.Discovery.TargetedBudget),
		discovery.WithEnhancedDetection(cfg.Discovery.EnhancedDetection),
	)

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("db init: %w", err)
	}
	return &handlers.Application{
		Engine:        engine,
		DB:            database,
		DefaultMarket: cfg.Discovery.DefaultMarket,
		RateLimit:     cfg.Server.RateLimit,
	}, nil
}

// run serves HTTP until ctx is cancelled, then drains in-flight requests.
func run(ctx context.Context, cfg *config.Config) error {
	app, err := newApplication(cfg, nil)
	if err != nil {
		return err
	}
	defer app.DB.Close()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      app.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
