// Package handlers exposes the discovery engine over a small JSON API. The
// Application struct carries the dependencies every handler needs and Routes
// assembles them on a chi router together with the common middleware.

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"Melopick-Go/pkg/db"
	"Melopick-Go/pkg/discovery"
	"Melopick-Go/pkg/music"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Discoverer is the part of discovery.Engine the handlers use.
type Discoverer interface {
	GetRecommendations(ctx context.Context, f music.Filters) (music.Track, error)
	SearchArtists(ctx context.Context, query, market string) ([]music.Artist, error)
	GetGenres(ctx context.Context) []string
	ResetSession()
	SessionInfo() discovery.SessionInfo
}

// Application holds the dependencies shared by the HTTP handlers. DB may be
// nil, in which case favorites and insights respond with 503.
type Application struct {
	Engine        Discoverer
	DB            *db.DB
	DefaultMarket string
	// RateLimit is the number of API requests allowed per client IP per
	// minute. Zero disables limiting.
	RateLimit int

	// now is stubbed in tests.
	now func() time.Time
}

func (app *Application) clock() time.Time {
	if app.now != nil {
		return app.now()
	}
	return time.Now().UTC()
}

// Routes returns the application's HTTP handler.
func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(SecurityHeaders)

	r.Get("/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if app.RateLimit > 0 {
			r.Use(httprate.LimitByIP(app.RateLimit, time.Minute))
		}
		r.Get("/discover", app.Discover)
		r.Post("/discover", app.Discover)
		r.Get("/artists", app.Artists)
		r.Get("/genres", app.Genres)
		r.Get("/session", app.Session)
		r.Post("/session/reset", app.ResetSession)

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", app.ListFavorites)
			r.Post("/", app.AddFavorite)
			r.Delete("/{id}", app.RemoveFavorite)
			r.Post("/{id}/toggle", app.ToggleFavorite)
		})
		r.Get("/insights", app.Insights)
	})
	return r
}

// Health reports liveness and, when a database is configured, whether it
// answers a ping.
func (app *Application) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if app.DB != nil {
		if err := app.DB.PingContext(r.Context()); err != nil {
			status["status"], status["db"] = "degraded", err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	respondJSON(w, code, status)
}

// requestLogger logs one line per request with its outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.WithFields(log.Fields{
			"request_id": chimiddleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
		}).Debug("request")
	})
}
