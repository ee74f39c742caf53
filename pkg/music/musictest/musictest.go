// Package musictest provides track builders for tests.
package musictest

import (
	libspotify "github.com/zmb3/spotify"

	"Melopick-Go/pkg/music"
)

// Option mutates a track under construction.
type Option func(*music.Track)

// Track builds a track with the given id, title and primary artist. The
// artist name doubles as its id unless ArtistID overrides it.
func Track(id, name, artist string, opts ...Option) music.Track {
	t := music.Track{FullTrack: libspotify.FullTrack{
		SimpleTrack: libspotify.SimpleTrack{
			ID:       libspotify.ID(id),
			Name:     name,
			Artists:  []libspotify.SimpleArtist{{ID: libspotify.ID(artist), Name: artist}},
			Duration: 210000,
		},
		Album: libspotify.SimpleAlbum{
			ID:          libspotify.ID("album-" + id),
			Name:        "Collection",
			AlbumType:   "album",
			ReleaseDate: "2015-06-01",
		},
		Popularity: 50,
	}}
	for _, o := range opts {
		o(&t)
	}
	return t
}

// ArtistID sets the id of the primary artist.
func ArtistID(id string) Option {
	return func(t *music.Track) { t.Artists[0].ID = libspotify.ID(id) }
}

// Album sets the album name and id.
func Album(id, name string) Option {
	return func(t *music.Track) {
		t.Album.ID = libspotify.ID(id)
		t.Album.Name = name
	}
}

// Single marks the release as a single.
func Single() Option {
	return func(t *music.Track) { t.Album.AlbumType = "single" }
}

// Released sets the album release date.
func Released(date string) Option {
	return func(t *music.Track) { t.Album.ReleaseDate = date }
}

// Popularity sets the catalog popularity score.
func Popularity(p int) Option {
	return func(t *music.Track) { t.Popularity = p }
}

// Duration sets the track length in milliseconds.
func Duration(ms int) Option {
	return func(t *music.Track) { t.Duration = ms }
}

// Explicit flags the track as explicit.
func Explicit() Option {
	return func(t *music.Track) { t.Explicit = true }
}

// Language presets the detected language.
func Language(lang string) Option {
	return func(t *music.Track) { t.Language = lang }
}
