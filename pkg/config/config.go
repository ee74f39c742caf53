// Package config loads application settings in layers: built-in defaults,
// an optional YAML file and finally environment variables. The Spotify
// credentials and database location keep their historical variable names
// (SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET, DATABASE_PATH); everything else
// can be set with MELOPICK_<SECTION>_<KEY>, for example
// MELOPICK_CACHE_TTL=10m.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar names the variable that points at a YAML config file.
const PathEnvVar = "MELOPICK_CONFIG"

// DefaultPath is read when PathEnvVar is unset and the file exists.
const DefaultPath = "melopick.yaml"

const envPrefix = "melopick_"

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Spotify   SpotifyConfig   `koanf:"spotify"`
	Cache     CacheConfig     `koanf:"cache"`
	Discovery DiscoveryConfig `koanf:"discovery"`
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// RateLimit is the number of API requests allowed per client IP per
	// minute. Zero disables limiting.
	RateLimit int `koanf:"rate_limit"`
}

type SpotifyConfig struct {
	ClientID          string        `koanf:"client_id"`
	ClientSecret      string        `koanf:"client_secret"`
	TokenURL          string        `koanf:"token_url"`
	APIBaseURL        string        `koanf:"api_base_url"`
	MaxRetries        int           `koanf:"max_retries"`
	BaseDelay         time.Duration `koanf:"base_delay"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
	BreakerFailures   int           `koanf:"breaker_failures"`
	BreakerCooldown   time.Duration `koanf:"breaker_cooldown"`
}

type CacheConfig struct {
	TTL        time.Duration `koanf:"ttl"`
	Bucket     time.Duration `koanf:"bucket"`
	MaxEntries int           `koanf:"max_entries"`
}

type DiscoveryConfig struct {
	DefaultMarket     string        `koanf:"default_market"`
	SessionIdle       time.Duration `koanf:"session_idle"`
	EnhancedDetection bool          `koanf:"enhanced_detection"`
	TargetedBudget    int           `koanf:"targeted_budget"`
	// Seed fixes the random source; zero seeds from the clock.
	Seed uint64 `koanf:"seed"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":4000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       120,
		},
		Spotify: SpotifyConfig{
			TokenURL:          "https://accounts.spotify.com/api/token",
			APIBaseURL:        "https://api.spotify.com/v1",
			MaxRetries:        3,
			BaseDelay:         500 * time.Millisecond,
			RequestTimeout:    10 * time.Second,
			RequestsPerSecond: 10,
			Burst:             5,
			BreakerFailures:   5,
			BreakerCooldown:   30 * time.Second,
		},
		Cache: CacheConfig{
			TTL:        5 * time.Minute,
			Bucket:     30 * time.Minute,
			MaxEntries: 500,
		},
		Discovery: DiscoveryConfig{
			DefaultMarket:  "US",
			SessionIdle:    30 * time.Minute,
			TargetedBudget: 12,
		},
		Database: DatabaseConfig{Path: ":memory:"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, the optional YAML file and
// the environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}
	if path := findFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return DefaultPath
	}
	return ""
}

// legacyEnv maps the variables the application has always read.
var legacyEnv = map[string]string{
	"spotify_client_id":     "spotify.client_id",
	"spotify_client_secret": "spotify.client_secret",
	"database_path":         "database.path",
}

// envKey turns an environment variable name into a koanf path. Unknown
// variables map to "" and are ignored.
func envKey(key string) string {
	key = strings.ToLower(key)
	if path, ok := legacyEnv[key]; ok {
		return path
	}
	rest, ok := strings.CutPrefix(key, envPrefix)
	if !ok {
		return ""
	}
	section, field, ok := strings.Cut(rest, "_")
	if !ok || field == "" {
		return ""
	}
	return section + "." + field
}

// Validate reports every invalid setting in one error.
func (c *Config) Validate() error {
	var errs []error
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		errs = append(errs, errors.New("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET must be set"))
	}
	if c.Spotify.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("spotify.max_retries must be at least 1, got %d", c.Spotify.MaxRetries))
	}
	if c.Spotify.RequestTimeout <= 0 {
		errs = append(errs, errors.New("spotify.request_timeout must be positive"))
	}
	if c.Cache.TTL <= 0 || c.Cache.MaxEntries <= 0 {
		errs = append(errs, errors.New("cache.ttl and cache.max_entries must be positive"))
	}
	if len(c.Discovery.DefaultMarket) != 2 {
		errs = append(errs, fmt.Errorf("discovery.default_market must be a 2 letter code, got %q", c.Discovery.DefaultMarket))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must be set"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
