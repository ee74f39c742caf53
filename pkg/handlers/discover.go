package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"Melopick-Go/pkg/discovery"
	"Melopick-Go/pkg/music"
)

type discoverResponse struct {
	Track    music.Track           `json:"track"`
	Favorite bool                  `json:"favorite"`
	Session  discovery.SessionInfo `json:"session"`
}

// Discover returns one track for the filters given either as query
// parameters (GET) or as a JSON body (POST).
func (app *Application) Discover(w http.ResponseWriter, r *http.Request) {
	var (
		f   music.Filters
		err error
	)
	if r.Method == http.MethodPost {
		if err = decodeJSON(w, r, &f); errors.Is(err, errEmptyBody) {
			err = nil
		}
	} else {
		f, err = filtersFromQuery(r.URL.Query())
	}
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.Market == "" {
		f.Market = app.DefaultMarket
	}

	t, err := app.Engine.GetRecommendations(r.Context(), f)
	if err != nil {
		status := statusFor(err)
		if status != http.StatusBadRequest {
			log.WithError(err).WithField("status", status).Warn("discover request failed")
		}
		respondJSONError(w, status, messageFor(status, err))
		return
	}

	resp := discoverResponse{Track: t, Session: app.Engine.SessionInfo()}
	if app.DB != nil {
		ctx := r.Context()
		if err := app.DB.AddHistory(ctx, t.Key(), t.PrimaryArtist(), t.Language, app.clock()); err != nil {
			log.WithError(err).WithField("track", t.Key()).Warn("failed to record history")
		}
		if fav, err := app.DB.IsFavorite(ctx, t.Key()); err == nil {
			resp.Favorite = fav
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// statusFor maps engine errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, music.ErrInvalidFilters):
		return http.StatusBadRequest
	case errors.Is(err, music.ErrDiscoveryFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the client-facing text for a failed discovery. Only
// filter errors are echoed; anything else stays in the log.
func messageFor(status int, err error) string {
	switch status {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusBadGateway:
		return "no track could be found right now, please try again"
	default:
		return "something went wrong, please try again"
	}
}

var audioParams = []string{"energy", "danceability", "valence", "acousticness", "instrumentalness", "popularity"}

// filtersFromQuery builds Filters from URL parameters. Range checks are left
// to Filters.Validate; only malformed numbers are rejected here.
func filtersFromQuery(q url.Values) (music.Filters, error) {
	f := music.Filters{
		Genre:    q.Get("genre"),
		Artist:   q.Get("artist"),
		Market:   q.Get("market"),
		Language: q.Get("language"),
	}

	minYear, err := intParam(q, "minYear")
	if err != nil {
		return f, err
	}
	maxYear, err := intParam(q, "maxYear")
	if err != nil {
		return f, err
	}
	if minYear != nil || maxYear != nil {
		yr := &music.YearRange{Min: music.MinYear, Max: music.MinYear}
		if minYear != nil {
			yr.Min = *minYear
		}
		if maxYear != nil {
			yr.Max = *maxYear
		} else {
			yr.Max = max(yr.Min, currentYear())
		}
		f.Years = yr
	}

	targets := make(map[string]*int, len(audioParams))
	for _, name := range audioParams {
		v, err := intParam(q, name)
		if err != nil {
			return f, err
		}
		targets[name] = v
	}
	f.Energy = targets["energy"]
	f.Danceability = targets["danceability"]
	f.Valence = targets["valence"]
	f.Acousticness = targets["acousticness"]
	f.Instrumentalness = targets["instrumentalness"]
	f.Popularity = targets["popularity"]
	return f, nil
}

func currentYear() int { return time.Now().Year() }

func intParam(q url.Values, name string) (*int, error) {
	s := strings.TrimSpace(q.Get(name))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", music.ErrInvalidFilters, name)
	}
	return &v, nil
}

// Artists searches artists by name for the artist filter.
func (app *Application) Artists(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondJSONError(w, http.StatusBadRequest, "q is required")
		return
	}
	market := r.URL.Query().Get("market")
	if market == "" {
		market = app.DefaultMarket
	}
	artists, err := app.Engine.SearchArtists(r.Context(), query, market)
	if err != nil {
		log.WithError(err).WithField("query", query).Warn("artist search failed")
		respondJSONError(w, http.StatusBadGateway, "artist search failed")
		return
	}
	if artists == nil {
		artists = []music.Artist{}
	}
	respondJSON(w, http.StatusOK, artists)
}

// Genres lists the genres usable as a filter.
func (app *Application) Genres(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, app.Engine.GetGenres(r.Context()))
}

// Session describes the current discovery session.
func (app *Application) Session(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, app.Engine.SessionInfo())
}

// ResetSession forgets every track returned so far.
func (app *Application) ResetSession(w http.ResponseWriter, r *http.Request) {
	app.Engine.ResetSession()
	respondJSON(w, http.StatusOK, app.Engine.SessionInfo())
}
