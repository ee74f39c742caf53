// Package db provides the persistence layer used by the application. It wraps
// a SQLite database holding the favorites list, keyed by track id, and a log
// of every track the discovery engine returned. Callers open a single DB with
// New and reuse it. The default path ":memory:" keeps everything for the
// lifetime of the process only.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps a sql.DB connection and exposes helper methods for the
// application's persistence layer.
type DB struct {
	*sql.DB
}

// New opens the SQLite database located at path and creates the schema if
// needed.
func New(path string) (*DB, error) {
	d, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// Each connection to ":memory:" is its own database.
	d.SetMaxOpenConns(1)
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS favorites (track_id TEXT PRIMARY KEY, track_name TEXT NOT NULL, artist_name TEXT, album_name TEXT, language TEXT, added_at TIMESTAMP NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS history (id INTEGER PRIMARY KEY AUTOINCREMENT, track_id TEXT NOT NULL, artist_name TEXT, language TEXT, played_at TIMESTAMP NOT NULL)`,
		`CREATE INDEX IF NOT EXISTS idx_history_played ON history(played_at)`,
	}
	// Errors here likely mean the database file is not writable.
	for _, s := range stmts {
		if _, err := d.Exec(s); err != nil {
			d.Close()
			return nil, fmt.Errorf("init db: %w", err)
		}
	}
	return &DB{d}, nil
}

// Favorite is a saved track.
type Favorite struct {
	TrackID    string    `json:"trackId"`
	TrackName  string    `json:"trackName"`
	ArtistName string    `json:"artistName"`
	AlbumName  string    `json:"albumName,omitempty"`
	Language   string    `json:"language,omitempty"`
	AddedAt    time.Time `json:"addedAt"`
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertFavorite(ctx context.Context, e execer, f Favorite) error {
	if f.AddedAt.IsZero() {
		f.AddedAt = time.Now().UTC()
	}
	_, err := e.ExecContext(ctx, `INSERT OR IGNORE INTO favorites(track_id, track_name, artist_name, album_name, language, added_at) VALUES(?, ?, ?, ?, ?, ?)`,
		f.TrackID, f.TrackName, f.ArtistName, f.AlbumName, f.Language, f.AddedAt)
	return err
}

func deleteFavorite(ctx context.Context, e execer, trackID string) error {
	res, err := e.ExecContext(ctx, `DELETE FROM favorites WHERE track_id=?`, trackID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddFavorite saves f. Adding a track that is already a favorite is a
// no-op.
func (db *DB) AddFavorite(ctx context.Context, f Favorite) error {
	return insertFavorite(ctx, db, f)
}

// RemoveFavorite deletes a favorite. sql.ErrNoRows is returned when the
// track was not a favorite, which allows callers to respond with a 404.
func (db *DB) RemoveFavorite(ctx context.Context, trackID string) error {
	return deleteFavorite(ctx, db, trackID)
}

// IsFavorite reports whether trackID is saved.
func (db *DB) IsFavorite(ctx context.Context, trackID string) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM favorites WHERE track_id=?`, trackID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ToggleFavorite adds f when it is not saved and removes it otherwise. It
// returns true when the track is a favorite afterwards.
func (db *DB) ToggleFavorite(ctx context.Context, f Favorite) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM favorites WHERE track_id=?`, f.TrackID).Scan(&n); err != nil {
		return false, err
	}
	added := n == 0
	if added {
		err = insertFavorite(ctx, tx, f)
	} else {
		err = deleteFavorite(ctx, tx, f.TrackID)
	}
	if err != nil {
		return false, err
	}
	return added, tx.Commit()
}

// ListFavorites returns every favorite, most recently saved first.
func (db *DB) ListFavorites(ctx context.Context) ([]Favorite, error) {
	rows, err := db.QueryContext(ctx, `SELECT track_id, track_name, artist_name, album_name, language, added_at FROM favorites ORDER BY added_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fs []Favorite
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.TrackID, &f.TrackName, &f.ArtistName, &f.AlbumName, &f.Language, &f.AddedAt); err != nil {
			return nil, err
		}
		fs = append(fs, f)
	}
	// rows.Err returns the first error encountered while iterating.
	return fs, rows.Err()
}

// AddHistory logs a track returned by discovery.
func (db *DB) AddHistory(ctx context.Context, trackID, artistName, language string, playedAt time.Time) error {
	_, err := db.ExecContext(ctx, `INSERT INTO history(track_id, artist_name, language, played_at) VALUES(?,?,?,?)`, trackID, artistName, language, playedAt)
	return err
}

// ArtistCount represents how many times an artist was returned.
type ArtistCount struct {
	Artist string `json:"artist"`
	Count  int    `json:"count"`
}

// TopArtistsSince returns the most frequently returned artists since the
// provided time, at most limit rows.
func (db *DB) TopArtistsSince(ctx context.Context, since time.Time, limit int) ([]ArtistCount, error) {
	rows, err := db.QueryContext(ctx, `SELECT artist_name, COUNT(*) c FROM history WHERE played_at>=? GROUP BY artist_name ORDER BY c DESC, artist_name LIMIT ?`, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ArtistCount
	for rows.Next() {
		var ac ArtistCount
		if err := rows.Scan(&ac.Artist, &ac.Count); err != nil {
			return nil, err
		}
		res = append(res, ac)
	}
	return res, rows.Err()
}

// LanguageCount is the number of returned tracks tagged with a language.
type LanguageCount struct {
	Language string `json:"language"`
	Count    int    `json:"count"`
}

// LanguageCountsSince reports the language mix of returned tracks.
func (db *DB) LanguageCountsSince(ctx context.Context, since time.Time) ([]LanguageCount, error) {
	rows, err := db.QueryContext(ctx, `SELECT language, COUNT(*) c FROM history WHERE played_at>=? GROUP BY language ORDER BY c DESC, language`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []LanguageCount
	for rows.Next() {
		var lc LanguageCount
		if err := rows.Scan(&lc.Language, &lc.Count); err != nil {
			return nil, err
		}
		res = append(res, lc)
	}
	return res, rows.Err()
}

// MonthCount groups totals by month in YYYY-MM format.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// MonthlyCountsSince aggregates returned tracks per month starting from the
// provided time. Results are ordered chronologically.
func (db *DB) MonthlyCountsSince(ctx context.Context, since time.Time) ([]MonthCount, error) {
	rows, err := db.QueryContext(ctx, `SELECT strftime('%Y-%m', played_at) m, COUNT(*) c FROM history WHERE played_at>=? GROUP BY m ORDER BY m`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []MonthCount
	for rows.Next() {
		var mc MonthCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			return nil, err
		}
		res = append(res, mc)
	}
	return res, rows.Err()
}
