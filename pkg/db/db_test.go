package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// TestAddAndListFavorites verifies that favorites can be persisted and
// subsequently retrieved from the database.
func TestAddAndListFavorites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := d.AddFavorite(ctx, Favorite{TrackID: "1", TrackName: "Song", ArtistName: "Artist", Language: "en", AddedAt: base}); err != nil {
		t.Fatal(err)
	}
	if err := d.AddFavorite(ctx, Favorite{TrackID: "2", TrackName: "Other", ArtistName: "Band", AddedAt: base.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	// Adding again is ignored.
	if err := d.AddFavorite(ctx, Favorite{TrackID: "1", TrackName: "Song", AddedAt: base}); err != nil {
		t.Fatal(err)
	}
	favs, err := d.ListFavorites(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(favs) != 2 || favs[0].TrackID != "2" || favs[1].TrackID != "1" {
		t.Fatalf("unexpected favorites: %+v", favs)
	}
	if favs[1].Language != "en" || favs[1].ArtistName != "Artist" {
		t.Errorf("fields not persisted: %+v", favs[1])
	}
}

func TestRemoveFavorite(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	if err := d.AddFavorite(ctx, Favorite{TrackID: "1", TrackName: "Song"}); err != nil {
		t.Fatal(err)
	}
	if err := d.RemoveFavorite(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	if err := d.RemoveFavorite(ctx, "1"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
	ok, err := d.IsFavorite(ctx, "1")
	if err != nil || ok {
		t.Fatalf("IsFavorite = %v, %v", ok, err)
	}
}

func TestToggleFavorite(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	f := Favorite{TrackID: "t1", TrackName: "Song", ArtistName: "Artist"}

	added, err := d.ToggleFavorite(ctx, f)
	if err != nil || !added {
		t.Fatalf("first toggle = %v, %v", added, err)
	}
	if ok, _ := d.IsFavorite(ctx, "t1"); !ok {
		t.Fatal("track should be a favorite")
	}
	added, err = d.ToggleFavorite(ctx, f)
	if err != nil || added {
		t.Fatalf("second toggle = %v, %v", added, err)
	}
	if ok, _ := d.IsFavorite(ctx, "t1"); ok {
		t.Fatal("track should no longer be a favorite")
	}
}

// TestHistoryAggregations checks the insight queries over logged tracks.
func TestHistoryAggregations(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	april := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
	may := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	rows := []struct {
		id, artist, lang string
		at               time.Time
	}{
		{"1", "A", "en", april},
		{"2", "A", "en", may},
		{"3", "B", "ta", may},
		{"4", "C", "ta", may},
		{"5", "A", "hi", may},
	}
	for _, r := range rows {
		if err := d.AddHistory(ctx, r.id, r.artist, r.lang, r.at); err != nil {
			t.Fatal(err)
		}
	}

	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	artists, err := d.TopArtistsSince(ctx, since, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(artists) != 2 || artists[0].Artist != "A" || artists[0].Count != 3 || artists[1].Artist != "B" {
		t.Fatalf("unexpected top artists: %+v", artists)
	}

	langs, err := d.LanguageCountsSince(ctx, may)
	if err != nil {
		t.Fatal(err)
	}
	if len(langs) != 3 || langs[0].Language != "ta" || langs[0].Count != 2 {
		t.Fatalf("unexpected language counts: %+v", langs)
	}

	months, err := d.MonthlyCountsSince(ctx, since)
	if err != nil {
		t.Fatal(err)
	}
	if len(months) != 2 || months[0].Month != "2024-04" || months[0].Count != 1 || months[1].Count != 4 {
		t.Fatalf("unexpected monthly counts: %+v", months)
	}
}
