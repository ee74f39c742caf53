// Package music defines the domain types shared by the discovery engine and
// the catalog port it depends on. Track embeds spotify.FullTrack so the
// catalog's JSON decodes straight into it and handlers operate on familiar
// fields (Name, Album, Artists etc). The only field the engine adds is
// Language, attached by the language detector after a track is fetched.
package music

import (
	"context"
	"strconv"
	"strings"

	libspotify "github.com/zmb3/spotify"
)

// Track represents a catalog item. It is a value object: once fetched only
// the Language tag is ever written.
type Track struct {
	libspotify.FullTrack

	// Language is a best-effort classification, not ground truth.
	Language string `json:"language,omitempty"`
}

// Artist and Album mirror the catalog's detail records.
type (
	Artist = libspotify.FullArtist
	Album  = libspotify.FullAlbum
)

// Key returns the catalog id as a plain string.
func (t Track) Key() string { return string(t.ID) }

// PrimaryArtist returns the name of the first credited artist or an empty
// string when the catalog omitted the artist list.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

// PrimaryArtistID returns the id of the first credited artist.
func (t Track) PrimaryArtistID() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return string(t.Artists[0].ID)
}

// ArtistKey identifies the primary artist for de-duplication. The id is
// preferred; the lower-cased name covers records without one.
func (t Track) ArtistKey() string {
	if id := t.PrimaryArtistID(); id != "" {
		return id
	}
	return strings.ToLower(strings.TrimSpace(t.PrimaryArtist()))
}

// ReleaseYear parses the year component of the album release date. Zero is
// returned when the date is missing or malformed.
func (t Track) ReleaseYear() int {
	d := t.Album.ReleaseDate
	if len(d) < 4 {
		return 0
	}
	y, err := strconv.Atoi(d[:4])
	if err != nil {
		return 0
	}
	return y
}

// IsSingle reports whether the track was released as a single rather than
// as part of an album.
func (t Track) IsSingle() bool {
	if strings.EqualFold(t.Album.AlbumType, "single") {
		return true
	}
	return strings.Contains(strings.ToLower(t.Album.Name), "single")
}

// Text concatenates the track, artist and album names. It is the input for
// script and keyword based classification.
func (t Track) Text() string {
	parts := make([]string, 0, len(t.Artists)+2)
	parts = append(parts, t.Name)
	for _, a := range t.Artists {
		parts = append(parts, a.Name)
	}
	parts = append(parts, t.Album.Name)
	return strings.Join(parts, " ")
}

// SearchQuery describes a track search against the catalog.
type SearchQuery struct {
	Query  string
	Market string
	Limit  int
	Offset int
}

// RecommendationQuery holds the parameters of a single recommendation
// request. Targets are keyed by audio feature name ("energy", "valence" ...)
// and already scaled to the catalog's 0..1 range.
type RecommendationQuery struct {
	SeedArtists      []string
	SeedGenres       []string
	Market           string
	Limit            int
	Targets          map[string]float64
	TargetPopularity *int
	MinYear          int
	MaxYear          int
}

// Catalog exposes the remote operations the discovery engine consumes. The
// context controls cancellation of each request.
type Catalog interface {
	// SearchTracks returns the tracks matching q. An empty slice is a
	// successful, empty result.
	SearchTracks(ctx context.Context, q SearchQuery) ([]Track, error)

	// SearchArtists returns artists whose names match query.
	SearchArtists(ctx context.Context, query, market string, limit int) ([]Artist, error)

	// Recommendations returns tracks related to the supplied seeds.
	Recommendations(ctx context.Context, q RecommendationQuery) ([]Track, error)

	// Artist and Album fetch detail records by id. They are used to read
	// genre tags for language classification.
	Artist(ctx context.Context, id string) (*Artist, error)
	Album(ctx context.Context, id string) (*Album, error)

	// GenreSeeds lists the genres accepted as recommendation seeds.
	GenreSeeds(ctx context.Context) ([]string, error)
}
