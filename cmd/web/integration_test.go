package main

// Integration tests spin up the full HTTP stack against a fake catalog and an
// in-memory database and exercise a typical flow: discover, favorite and read
// insights. httptest keeps everything off the network.

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"Melopick-Go/pkg/config"
	"Melopick-Go/pkg/db"
)

const recommendationsPayload = `{"tracks":[
 {"id":"r1","name":"Morning Light","popularity":72,"duration_ms":215000,"artists":[{"id":"a1","name":"Harbor"}],"album":{"id":"al1","name":"Tides","album_type":"album","release_date":"2019-03-01"}},
 {"id":"r2","name":"Night Drive","popularity":45,"duration_ms":198000,"artists":[{"id":"a2","name":"Static Bloom"}],"album":{"id":"al2","name":"Neon","album_type":"album","release_date":"2021-08-20"}},
 {"id":"r3","name":"Paper Boats","popularity":30,"duration_ms":240000,"artists":[{"id":"a3","name":"The Quiet Hours"}],"album":{"id":"al3","name":"Rooms","album_type":"single","release_date":"2012-01-10"}}
]}`

const tamilSearchPayload = `{"tracks":{"items":[
 {"id":"ta1","name":"காதல் பாடல்","popularity":50,"duration_ms":250000,"artists":[{"id":"b1","name":"இசை குழு"}],"album":{"id":"bl1","name":"மழை","album_type":"album","release_date":"2018-05-05"}},
 {"id":"ta2","name":"நிலா","popularity":35,"duration_ms":230000,"artists":[{"id":"b2","name":"பாடகர்"}],"album":{"id":"bl2","name":"இரவு","album_type":"album","release_date":"2020-02-02"}},
 {"id":"en1","name":"Holiday","popularity":80,"duration_ms":200000,"artists":[{"id":"b3","name":"Sunny"}],"album":{"id":"bl3","name":"Beach","album_type":"album","release_date":"2020-06-06"}}
]}}`

type fakeSpotify struct {
	mu    sync.Mutex
	paths map[string]int
}

func newFakeSpotify(t *testing.T) (*fakeSpotify, *httptest.Server) {
	t.Helper()
	f := &fakeSpotify{paths: map[string]int{}}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.paths[r.URL.Path]++
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
		switch r.URL.Path {
		case "/v1/recommendations":
			w.Write([]byte(recommendationsPayload))
		case "/v1/recommendations/available-genre-seeds":
			w.Write([]byte(`{"genres":["ambient","indie","pop"]}`))
		case "/v1/search":
			if r.URL.Query().Get("type") == "artist" {
				w.Write([]byte(`{"artists":{"items":[{"id":"a1","name":"Harbor","genres":["indie"]}]}}`))
				return
			}
			w.Write([]byte(tamilSearchPayload))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.Close)
	return f, ts
}

func (f *fakeSpotify) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paths[path]
}

func newIntegrationServer(t *testing.T) (*fakeSpotify, *httptest.Server) {
	t.Helper()
	fake, catalog := newFakeSpotify(t)
	cfg := config.Default()
	cfg.Spotify.ClientID, cfg.Spotify.ClientSecret = "id", "secret"
	cfg.Spotify.TokenURL = catalog.URL + "/token"
	cfg.Spotify.APIBaseURL = catalog.URL + "/v1"
	cfg.Discovery.Seed = 7

	app, err := newApplication(cfg, catalog.Client())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { app.DB.Close() })
	srv := httptest.NewServer(app.Routes())
	t.Cleanup(srv.Close)
	return fake, srv
}

type discoverBody struct {
	Track struct {
		ID       string `json:"id"`
		Language string `json:"language"`
	} `json:"track"`
}

func getDiscover(t *testing.T, url string) discoverBody {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("discover status %d", res.StatusCode)
	}
	var body discoverBody
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body
}

// TestIntegrationGenericDiscovery runs the recommendation strategy end to end
// and checks that successive calls do not repeat a track.
func TestIntegrationGenericDiscovery(t *testing.T) {
	fake, srv := newIntegrationServer(t)

	seen := map[string]bool{}
	for range 3 {
		body := getDiscover(t, srv.URL+"/api/discover?genre=indie")
		if !strings.HasPrefix(body.Track.ID, "r") {
			t.Fatalf("unexpected track %+v", body.Track)
		}
		if seen[body.Track.ID] {
			t.Fatalf("track %s returned twice", body.Track.ID)
		}
		seen[body.Track.ID] = true
	}
	if fake.count("/token") != 1 {
		t.Errorf("token exchanged %d times, want 1", fake.count("/token"))
	}
}

// TestIntegrationTargetedDiscovery checks that a Tamil request only returns
// tracks whose own text is Tamil.
func TestIntegrationTargetedDiscovery(t *testing.T) {
	fake, srv := newIntegrationServer(t)

	body := getDiscover(t, srv.URL+"/api/discover?language=ta")
	if body.Track.Language != "ta" || !strings.HasPrefix(body.Track.ID, "ta") {
		t.Fatalf("unexpected track %+v", body.Track)
	}
	if fake.count("/v1/recommendations") != 0 {
		t.Error("targeted discovery should not call recommendations")
	}
}

// TestIntegrationFavoritesAndInsights saves a discovered track and reads the
// history aggregates back.
func TestIntegrationFavoritesAndInsights(t *testing.T) {
	_, srv := newIntegrationServer(t)
	body := getDiscover(t, srv.URL+"/api/discover")

	res, err := http.Post(srv.URL+"/api/favorites/"+body.Track.ID+"/toggle", "application/json",
		strings.NewReader(`{"trackName":"Saved"}`))
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("toggle status %d", res.StatusCode)
	}

	res, err = http.Get(srv.URL + "/api/favorites")
	if err != nil {
		t.Fatal(err)
	}
	var favs []db.Favorite
	json.NewDecoder(res.Body).Decode(&favs)
	res.Body.Close()
	if len(favs) != 1 || favs[0].TrackID != body.Track.ID {
		t.Fatalf("unexpected favorites %+v", favs)
	}

	res, err = http.Get(srv.URL + "/api/insights")
	if err != nil {
		t.Fatal(err)
	}
	var insights struct {
		TopArtists []db.ArtistCount `json:"topArtists"`
	}
	json.NewDecoder(res.Body).Decode(&insights)
	res.Body.Close()
	if len(insights.TopArtists) != 1 || insights.TopArtists[0].Count != 1 {
		t.Fatalf("unexpected insights %+v", insights)
	}

	res, err = http.Get(srv.URL + "/api/genres")
	if err != nil {
		t.Fatal(err)
	}
	var genres []string
	json.NewDecoder(res.Body).Decode(&genres)
	res.Body.Close()
	if len(genres) != 3 {
		t.Errorf("unexpected genres %v", genres)
	}
}
