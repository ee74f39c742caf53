package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"Melopick-Go/pkg/music"
)

const searchPayload = `{"tracks":{"items":[
 {"id":"t1","name":"Song","duration_ms":200000,"explicit":false,"popularity":55,
  "artists":[{"id":"a1","name":"Artist"}],
  "album":{"id":"al1","name":"Record","album_type":"album","release_date":"2019-04-01"}}
]}}`

// fakeCatalog serves the token endpoint and a few catalog routes while
// recording what was requested.
type fakeCatalog struct {
	mu       sync.Mutex
	hits     map[string]int
	queries  map[string]url.Values
	statuses map[string]int
}

func (f *fakeCatalog) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeCatalog) query(path string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[path]
}

func newFakeCatalog(t *testing.T) (*fakeCatalog, *httptest.Server) {
	t.Helper()
	f := &fakeCatalog{hits: map[string]int{}, queries: map[string]url.Values{}, statuses: map[string]int{}}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		f.queries[r.URL.Path] = r.URL.Query()
		status := f.statuses[r.URL.Path]
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/token" {
			w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		switch r.URL.Path {
		case "/v1/search":
			if r.URL.Query().Get("type") == "artist" {
				w.Write([]byte(`{"artists":{"items":[{"id":"a1","name":"Artist","genres":["indie"],"popularity":40}]}}`))
				return
			}
			w.Write([]byte(searchPayload))
		case "/v1/recommendations":
			w.Write([]byte(`{"tracks":[{"id":"r1","name":"Rec","popularity":70,"artists":[{"id":"a2","name":"Other"}],"album":{"id":"al2","name":"LP","release_date":"2016"}}]}`))
		case "/v1/recommendations/available-genre-seeds":
			w.Write([]byte(`{"genres":["pop","rock"]}`))
		case "/v1/artists/a1":
			w.Write([]byte(`{"id":"a1","name":"Artist","genres":["tamil pop"]}`))
		case "/v1/albums/al1":
			w.Write([]byte(`{"id":"al1","name":"Record","genres":["kollywood"]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return f, ts
}

func newTestClient(ts *httptest.Server) *SpotifyClient {
	sc := NewSpotifyClient(Config{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     ts.URL + "/token",
		BaseURL:      ts.URL + "/v1",
		HTTPClient:   ts.Client(),
		BaseDelay:    time.Millisecond,
		CacheBucket:  -1,
	})
	return sc
}

func TestSearchTracksDecodes(t *testing.T) {
	f, ts := newFakeCatalog(t)
	defer ts.Close()
	sc := newTestClient(ts)

	got, err := sc.SearchTracks(context.Background(), music.SearchQuery{Query: "q", Market: "US", Offset: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Song" || got[0].Key() != "t1" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got[0].ReleaseYear() != 2019 || got[0].PrimaryArtist() != "Artist" || got[0].Popularity != 55 {
		t.Errorf("fields not decoded: %+v", got[0])
	}
	q := f.query("/v1/search")
	if q.Get("q") != "q" || q.Get("type") != "track" || q.Get("limit") != "50" || q.Get("offset") != "10" || q.Get("market") != "US" {
		t.Errorf("unexpected query %v", q)
	}
}

// TestSearchTracksCached checks that a repeated query within the TTL is
// served from the cache and a fresh request is made after expiry.
func TestSearchTracksCached(t *testing.T) {
	f, ts := newFakeCatalog(t)
	defer ts.Close()
	sc := newTestClient(ts)
	now := time.Now()
	sc.cache.now = func() time.Time { return now }

	q := music.SearchQuery{Query: "same", Market: "US"}
	first, err := sc.SearchTracks(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	second, err := sc.SearchTracks(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if f.count("/v1/search") != 1 {
		t.Fatalf("expected a single network call, got %d", f.count("/v1/search"))
	}
	if first[0].Key() != second[0].Key() {
		t.Fatalf("cached result differs")
	}

	now = now.Add(6 * time.Minute)
	if _, err := sc.SearchTracks(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	if f.count("/v1/search") != 2 {
		t.Fatalf("expected refetch after ttl, got %d calls", f.count("/v1/search"))
	}
}

func TestRecommendationsParams(t *testing.T) {
	f, ts := newFakeCatalog(t)
	defer ts.Close()
	sc := newTestClient(ts)

	pop := 35
	got, err := sc.Recommendations(context.Background(), music.RecommendationQuery{
		SeedGenres:       []string{"indie"},
		SeedArtists:      []string{"a1"},
		Market:           "GB",
		Targets:          map[string]float64{"energy": 0.7},
		TargetPopularity: &pop,
		MinYear:          2015,
		MaxYear:          2020,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Album.Name != "LP" || got[0].Popularity != 70 {
		t.Fatalf("album or popularity lost: %+v", got)
	}
	q := f.query("/v1/recommendations")
	checks := map[string]string{
		"seed_genres":       "indie",
		"seed_artists":      "a1",
		"market":            "GB",
		"target_energy":     "0.70",
		"target_popularity": "35",
		"min_release_date":  "2015",
		"max_release_date":  "2020",
		"limit":             "50",
	}
	for k, want := range checks {
		if q.Get(k) != want {
			t.Errorf("%s: got %q want %q", k, q.Get(k), want)
		}
	}
}

func TestDetailLookups(t *testing.T) {
	_, ts := newFakeCatalog(t)
	defer ts.Close()
	sc := newTestClient(ts)
	ctx := context.Background()

	artist, err := sc.Artist(ctx, "a1")
	if err != nil || len(artist.Genres) != 1 || artist.Genres[0] != "tamil pop" {
		t.Fatalf("artist: %+v %v", artist, err)
	}
	album, err := sc.Album(ctx, "al1")
	if err != nil || len(album.Genres) != 1 {
		t.Fatalf("album: %+v %v", album, err)
	}
	artists, err := sc.SearchArtists(ctx, "Artist", "US", 0)
	if err != nil || len(artists) != 1 || artists[0].ID != "a1" {
		t.Fatalf("artist search: %+v %v", artists, err)
	}
	genres, err := sc.GenreSeeds(ctx)
	if err != nil || len(genres) != 2 {
		t.Fatalf("genres: %v %v", genres, err)
	}
}

func TestNotFoundIsNotRetried(t *testing.T) {
	f, ts := newFakeCatalog(t)
	defer ts.Close()
	sc := newTestClient(ts)

	_, err := sc.Artist(context.Background(), "missing")
	var se *music.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	if f.count("/v1/artists/missing") != 1 {
		t.Fatalf("404 should not be retried")
	}
}

func TestServerErrorsExhaustRetries(t *testing.T) {
	f, ts := newFakeCatalog(t)
	defer ts.Close()
	f.mu.Lock()
	f.statuses["/v1/search"] = http.StatusServiceUnavailable
	f.mu.Unlock()
	sc := newTestClient(ts)

	_, err := sc.SearchTracks(context.Background(), music.SearchQuery{Query: "x"})
	if !errors.Is(err, music.ErrExhaustedRetries) {
		t.Fatalf("expected exhausted retries, got %v", err)
	}
	if f.count("/v1/search") != 3 {
		t.Fatalf("expected 3 attempts, got %d", f.count("/v1/search"))
	}
}

func TestAuthenticationFailureSurfaces(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer ts.Close()
	sc := newTestClient(ts)

	_, err := sc.SearchTracks(context.Background(), music.SearchQuery{Query: "x"})
	if !errors.Is(err, music.ErrAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
}

// TestAuthenticationFailuresKeepBreakerClosed checks that repeated credential
// rejections keep surfacing as authentication errors instead of tripping the
// breaker into transient failures.
func TestAuthenticationFailuresKeepBreakerClosed(t *testing.T) {
	var (
		mu     sync.Mutex
		tokens int
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		tokens++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer ts.Close()
	sc := newTestClient(ts)

	calls := int(defaultBreakerFailures) + 2
	for i := 0; i < calls; i++ {
		_, err := sc.SearchTracks(context.Background(), music.SearchQuery{Query: "x"})
		if !errors.Is(err, music.ErrAuthentication) {
			t.Fatalf("call %d: expected authentication error, got %v", i, err)
		}
		if errors.Is(err, music.ErrTransientNetwork) {
			t.Fatalf("call %d: authentication error reported as transient: %v", i, err)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if tokens != calls {
		t.Fatalf("token endpoint hit %d times, want %d", tokens, calls)
	}
}
