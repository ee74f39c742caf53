// This file contains the endpoint summarising what discovery has returned:
// the most frequent artists, the language mix and monthly totals.

package handlers

import (
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"Melopick-Go/pkg/db"
)

const (
	defaultInsightDays = 30
	maxInsightDays     = 365
	topArtistLimit     = 10
)

type insightsResponse struct {
	Days       int                `json:"days"`
	TopArtists []db.ArtistCount   `json:"topArtists"`
	Languages  []db.LanguageCount `json:"languages"`
	Monthly    []db.MonthCount    `json:"monthly"`
}

// Insights reports history aggregates for the period given by the 'days'
// query parameter (default 30, at most 365).
func (app *Application) Insights(w http.ResponseWriter, r *http.Request) {
	if !app.requireDB(w) {
		return
	}
	days := defaultInsightDays
	if s := r.URL.Query().Get("days"); s != "" {
		d, err := strconv.Atoi(s)
		if err != nil || d <= 0 {
			respondJSONError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = min(d, maxInsightDays)
	}
	since := app.clock().Add(-time.Duration(days) * 24 * time.Hour)
	ctx := r.Context()

	resp := insightsResponse{Days: days}
	var err error
	if resp.TopArtists, err = app.DB.TopArtistsSince(ctx, since, topArtistLimit); err == nil {
		if resp.Languages, err = app.DB.LanguageCountsSince(ctx, since); err == nil {
			resp.Monthly, err = app.DB.MonthlyCountsSince(ctx, since)
		}
	}
	if err != nil {
		log.WithError(err).Error("load insights")
		respondJSONError(w, http.StatusInternalServerError, "failed to load insights")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
