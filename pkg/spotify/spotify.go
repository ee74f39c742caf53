// Package spotify implements the music.Catalog port against the Spotify Web
// API. It owns the HTTP layer itself so every request goes through the same
// pipeline: response cache, circuit breaker, bearer token, then the retrying
// Executor. The zmb3/spotify record types are used as JSON decode targets so
// handlers keep working with familiar fields.
//
// The wrapped library's client does not accept a context or a custom base
// URL, which is why requests are built here rather than delegated to it.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	libspotify "github.com/zmb3/spotify"

	"Melopick-Go/pkg/metrics"
	"Melopick-Go/pkg/music"
)

// DefaultAPIBaseURL is the catalog's REST root.
const DefaultAPIBaseURL = "https://api.spotify.com/v1"

const (
	defaultSearchLimit      = 50
	defaultArtistLimit      = 20
	defaultRecommendLimit   = 50
	defaultBreakerFailures  = 5
	defaultBreakerCooldown  = 30 * time.Second
	defaultBreakerHalfOpen  = 1
	earliestReleaseYear     = music.MinYear
	recommendationsEndpoint = "/recommendations"
)

// tokenSource is the subset of TokenManager used by the client. It allows
// the token exchange to be replaced in tests.
type tokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// Config carries the client settings. Zero values select the defaults of
// each component.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	BaseURL      string
	HTTPClient   *http.Client

	MaxRetries        int
	BaseDelay         time.Duration
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int

	CacheTTL        time.Duration
	CacheBucket     time.Duration
	CacheMaxEntries int

	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// SpotifyClient is the catalog client used by the discovery engine.
type SpotifyClient struct {
	baseURL string
	tokens  tokenSource
	exec    *Executor
	cache   *Cache
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// Compile-time interface check ensuring SpotifyClient satisfies the catalog
// port used by the rest of the application.
var _ music.Catalog = (*SpotifyClient)(nil)

// NewSpotifyClient builds a client from cfg. No network traffic happens until
// the first request; the token is obtained lazily.
func NewSpotifyClient(cfg Config) *SpotifyClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &SpotifyClient{
		baseURL: baseURL,
		tokens:  NewTokenManager(cfg.ClientID, cfg.ClientSecret, cfg.TokenURL, httpClient),
		exec: NewExecutor(
			WithHTTPClient(httpClient),
			WithMaxRetries(cfg.MaxRetries),
			WithBaseDelay(cfg.BaseDelay),
			WithRequestTimeout(cfg.RequestTimeout),
			WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
		),
		cache:   NewCache(cfg.CacheTTL, cfg.CacheBucket, cfg.CacheMaxEntries),
		breaker: newBreaker(cfg.BreakerFailures, cfg.BreakerCooldown),
	}
}

// newBreaker trips after a run of consecutive failures. Client errors,
// rejected credentials and cancellations do not count against the catalog.
func newBreaker(failures uint32, cooldown time.Duration) *gobreaker.CircuitBreaker[[]byte] {
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "spotify-catalog",
		MaxRequests: defaultBreakerHalfOpen,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, music.ErrAuthentication) {
				return true
			}
			var se *music.StatusError
			if errors.As(err, &se) {
				return se.StatusCode < 500
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.Set(float64(to))
			log.WithFields(log.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("circuit breaker state change")
		},
	})
}

// Cache exposes the response cache, mainly for stats and tests.
func (sc *SpotifyClient) Cache() *Cache { return sc.cache }

// Authenticate makes sure a bearer token is available, exchanging
// credentials if the cached one is missing or about to expire.
func (sc *SpotifyClient) Authenticate(ctx context.Context) error {
	_, err := sc.tokens.Token(ctx)
	return err
}

// get performs a cached GET of path and returns the raw payload.
func (sc *SpotifyClient) get(ctx context.Context, op, path string, params url.Values) ([]byte, error) {
	key := sc.cache.Key(op, params)
	if data, ok := sc.cache.Get(key); ok {
		return data, nil
	}
	data, err := sc.breaker.Execute(func() ([]byte, error) {
		return sc.fetch(ctx, op, path, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %w", music.ErrTransientNetwork, err)
		}
		return nil, fmt.Errorf("spotify: %s: %w", op, err)
	}
	sc.cache.Set(key, data)
	return data, nil
}

func (sc *SpotifyClient) fetch(ctx context.Context, op, path string, params url.Values) ([]byte, error) {
	token, err := sc.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	u := sc.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	data, err := sc.exec.Execute(req, op)
	var se *music.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized {
		sc.tokens.Invalidate()
	}
	return data, err
}

// SearchTracks queries the search endpoint for tracks.
func (sc *SpotifyClient) SearchTracks(ctx context.Context, q music.SearchQuery) ([]music.Track, error) {
	params := url.Values{}
	params.Set("q", q.Query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(limitOr(q.Limit, defaultSearchLimit)))
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Market != "" {
		params.Set("market", q.Market)
	}
	data, err := sc.get(ctx, "search_tracks", "/search", params)
	if err != nil {
		return nil, err
	}
	var res libspotify.SearchResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("spotify: decode search: %w", err)
	}
	if res.Tracks == nil {
		return nil, nil
	}
	return wrapTracks(res.Tracks.Tracks), nil
}

// SearchArtists queries the search endpoint for artists. limit defaults to
// 20 when zero.
func (sc *SpotifyClient) SearchArtists(ctx context.Context, query, market string, limit int) ([]music.Artist, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "artist")
	params.Set("limit", strconv.Itoa(limitOr(limit, defaultArtistLimit)))
	if market != "" {
		params.Set("market", market)
	}
	data, err := sc.get(ctx, "search_artists", "/search", params)
	if err != nil {
		return nil, err
	}
	var res libspotify.SearchResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("spotify: decode artist search: %w", err)
	}
	if res.Artists == nil {
		return nil, nil
	}
	return res.Artists.Artists, nil
}

// recommendationsResponse mirrors the endpoint payload. The endpoint returns
// full track objects; the library's Recommendations type keeps only the
// simplified form and would drop album and popularity.
type recommendationsResponse struct {
	Tracks []libspotify.FullTrack `json:"tracks"`
}

// Recommendations requests tracks related to the supplied seeds. Audio
// feature targets are expected on the catalog's 0..1 scale.
func (sc *SpotifyClient) Recommendations(ctx context.Context, q music.RecommendationQuery) ([]music.Track, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limitOr(q.Limit, defaultRecommendLimit)))
	if q.Market != "" {
		params.Set("market", q.Market)
	}
	if len(q.SeedArtists) > 0 {
		params.Set("seed_artists", strings.Join(q.SeedArtists, ","))
	}
	if len(q.SeedGenres) > 0 {
		params.Set("seed_genres", strings.Join(q.SeedGenres, ","))
	}
	for name, v := range q.Targets {
		params.Set("target_"+name, strconv.FormatFloat(v, 'f', 2, 64))
	}
	if q.TargetPopularity != nil {
		params.Set("target_popularity", strconv.Itoa(*q.TargetPopularity))
	}
	if q.MinYear > earliestReleaseYear {
		params.Set("min_release_date", strconv.Itoa(q.MinYear))
	}
	if q.MaxYear > 0 && q.MaxYear < time.Now().Year() {
		params.Set("max_release_date", strconv.Itoa(q.MaxYear))
	}
	data, err := sc.get(ctx, "recommendations", recommendationsEndpoint, params)
	if err != nil {
		return nil, err
	}
	var res recommendationsResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("spotify: decode recommendations: %w", err)
	}
	return wrapTracks(res.Tracks), nil
}

// Artist fetches an artist record, including its genre tags.
func (sc *SpotifyClient) Artist(ctx context.Context, id string) (*music.Artist, error) {
	data, err := sc.get(ctx, "artist", "/artists/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var a music.Artist
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("spotify: decode artist: %w", err)
	}
	return &a, nil
}

// Album fetches an album record, including its genre tags.
func (sc *SpotifyClient) Album(ctx context.Context, id string) (*music.Album, error) {
	data, err := sc.get(ctx, "album", "/albums/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var a music.Album
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("spotify: decode album: %w", err)
	}
	return &a, nil
}

// GenreSeeds lists the genres accepted by the recommendation endpoint.
func (sc *SpotifyClient) GenreSeeds(ctx context.Context) ([]string, error) {
	data, err := sc.get(ctx, "genre_seeds", recommendationsEndpoint+"/available-genre-seeds", nil)
	if err != nil {
		return nil, err
	}
	var res struct {
		Genres []string `json:"genres"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("spotify: decode genre seeds: %w", err)
	}
	return res.Genres, nil
}

func wrapTracks(in []libspotify.FullTrack) []music.Track {
	out := make([]music.Track, len(in))
	for i, t := range in {
		out[i] = music.Track{FullTrack: t}
	}
	return out
}

func limitOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
