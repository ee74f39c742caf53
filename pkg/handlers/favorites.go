// Package handlers groups HTTP handlers for Melopick-Go. This file focuses
// on endpoints that manage the favorites list.

package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"Melopick-Go/pkg/db"
)

type favoriteRequest struct {
	TrackID    string `json:"trackId" validate:"required,max=64"`
	TrackName  string `json:"trackName" validate:"required,max=256"`
	ArtistName string `json:"artistName" validate:"max=256"`
	AlbumName  string `json:"albumName" validate:"max=256"`
	Language   string `json:"language" validate:"omitempty,max=3"`
}

func (req favoriteRequest) favorite() db.Favorite {
	return db.Favorite{
		TrackID:    req.TrackID,
		TrackName:  req.TrackName,
		ArtistName: req.ArtistName,
		AlbumName:  req.AlbumName,
		Language:   req.Language,
	}
}

func (app *Application) requireDB(w http.ResponseWriter) bool {
	if app.DB == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "db not configured")
		return false
	}
	return true
}

// AddFavorite accepts a JSON payload describing a track and saves it.
func (app *Application) AddFavorite(w http.ResponseWriter, r *http.Request) {
	if !app.requireDB(w) {
		return
	}
	var req favoriteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "trackId and trackName are required")
		return
	}
	f := req.favorite()
	f.AddedAt = app.clock()
	if err := app.DB.AddFavorite(r.Context(), f); err != nil {
		log.WithError(err).WithField("track", f.TrackID).Error("save favorite")
		respondJSONError(w, http.StatusInternalServerError, "failed to save favorite")
		return
	}
	respondJSON(w, http.StatusCreated, f)
}

// ListFavorites returns the saved tracks, newest first.
func (app *Application) ListFavorites(w http.ResponseWriter, r *http.Request) {
	if !app.requireDB(w) {
		return
	}
	favs, err := app.DB.ListFavorites(r.Context())
	if err != nil {
		log.WithError(err).Error("list favorites")
		respondJSONError(w, http.StatusInternalServerError, "failed to load favorites")
		return
	}
	if favs == nil {
		favs = []db.Favorite{}
	}
	respondJSON(w, http.StatusOK, favs)
}

// RemoveFavorite deletes the favorite named in the URL.
func (app *Application) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if !app.requireDB(w) {
		return
	}
	id := chi.URLParam(r, "id")
	err := app.DB.RemoveFavorite(r.Context(), id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		respondJSONError(w, http.StatusNotFound, "favorite not found")
	case err != nil:
		log.WithError(err).WithField("track", id).Error("remove favorite")
		respondJSONError(w, http.StatusInternalServerError, "failed to remove favorite")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// ToggleFavorite flips the favorite state of the track in the URL. The body
// is optional and only supplies the names stored when the track is added.
func (app *Application) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	if !app.requireDB(w) {
		return
	}
	var req favoriteRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.TrackID = chi.URLParam(r, "id")
	f := req.favorite()
	f.AddedAt = app.clock()
	added, err := app.DB.ToggleFavorite(r.Context(), f)
	if err != nil {
		log.WithError(err).WithField("track", f.TrackID).Error("toggle favorite")
		respondJSONError(w, http.StatusInternalServerError, "failed to update favorite")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"trackId": f.TrackID, "favorite": added})
}
