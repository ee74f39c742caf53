// Package discovery implements the "one track matching these filters"
// workflow. An Engine chooses between a targeted search strategy for
// languages the recommendation endpoint serves poorly and a generic
// recommendation strategy, falls back to keyword search when the primary
// strategy comes up empty, and then diversifies and samples the candidates.
// The Engine owns its session memory; the response cache lives in the
// catalog client it is given.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	log "github.com/sirupsen/logrus"

	"Melopick-Go/pkg/diversify"
	"Melopick-Go/pkg/language"
	"Melopick-Go/pkg/metrics"
	"Melopick-Go/pkg/music"
	"Melopick-Go/pkg/selector"
	"Melopick-Go/pkg/weighted"
)

// MaxDuplicateAttempts is how many times a call re-runs discovery when every
// candidate was already returned in the session. The last attempt accepts a
// repeat rather than failing.
const MaxDuplicateAttempts = 5

// DefaultTargetedBudget bounds the search requests issued by one targeted
// discovery run, excluding the underground top-up.
const DefaultTargetedBudget = 12

const (
	strategyGeneric  = "generic"
	strategyTargeted = "targeted"
	strategyFallback = "fallback"
)

// errOnlyRepeats signals that every candidate has already been seen.
var errOnlyRepeats = errors.New("discovery: only previously returned tracks found")

// State is a step of the discovery state machine.
type State int

const (
	StateIdle State = iota
	StateTokenAcquired
	StateSearchIssued
	StateResultsFound
	StateDiversified
	StateSelected
	StateDone
	StateEmpty
	StateFallbackSearch
	StateFailed
)

var stateNames = [...]string{
	"idle", "token_acquired", "search_issued", "results_found", "diversified",
	"selected", "done", "empty", "fallback_search", "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Authenticator is implemented by catalogs that can verify their
// credentials up front.
type Authenticator interface {
	Authenticate(ctx context.Context) error
}

// Engine is the discovery orchestrator. It is safe for concurrent use.
type Engine struct {
	catalog     music.Catalog
	detector    *language.Detector
	diversifier *diversify.Engine
	selector    *selector.Selector
	session     *Session
	rnd         weighted.Rand

	hook           func(State)
	targetedBudget int
	sessionIdle    time.Duration
	now            func() time.Time
	enhanced       bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source used by every sampling step.
func WithRand(r weighted.Rand) Option {
	return func(e *Engine) { e.rnd = r }
}

// WithStateHook registers fn to observe state transitions.
func WithStateHook(fn func(State)) Option {
	return func(e *Engine) { e.hook = fn }
}

// WithTargetedBudget overrides DefaultTargetedBudget.
func WithTargetedBudget(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.targetedBudget = n
		}
	}
}

// WithSessionIdle overrides DefaultSessionIdle.
func WithSessionIdle(d time.Duration) Option {
	return func(e *Engine) { e.sessionIdle = d }
}

// WithClock replaces time.Now for session bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithEnhancedDetection reads artist and album genre tags from the catalog
// when classifying candidates.
func WithEnhancedDetection(enabled bool) Option {
	return func(e *Engine) { e.enhanced = enabled }
}

// NewEngine wires an Engine around catalog.
func NewEngine(catalog music.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog:        catalog,
		targetedBudget: DefaultTargetedBudget,
		now:            time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.rnd == nil {
		e.rnd = weighted.NewRand(0)
	}
	var dopts []language.Option
	if e.enhanced {
		dopts = append(dopts, language.WithMetadata(catalog))
	}
	e.detector = language.NewDetector(dopts...)
	e.diversifier = diversify.New(e.rnd)
	e.selector = selector.New(e.rnd)
	e.session = newSession(e.sessionIdle, e.now)
	return e
}

func (e *Engine) transition(s State, fields log.Fields) {
	log.WithFields(fields).WithField("state", s.String()).Debug("discovery state")
	if e.hook != nil {
		e.hook(s)
	}
}

// GetRecommendations returns one track matching f and records it in the
// session. Invalid filters yield an error matching music.ErrInvalidFilters;
// exhaustion of every strategy yields a *music.DiscoveryFailedError.
func (e *Engine) GetRecommendations(ctx context.Context, f music.Filters) (music.Track, error) {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return music.Track{}, err
	}
	fields := log.Fields{"market": f.Market, "language": f.Language, "genre": f.Genre}
	e.transition(StateIdle, fields)

	if a, ok := e.catalog.(Authenticator); ok {
		if err := a.Authenticate(ctx); err != nil {
			e.transition(StateFailed, fields)
			metrics.DiscoveryOutcomes.WithLabelValues("auth", "failed").Inc()
			return music.Track{}, &music.DiscoveryFailedError{Strategy: "auth", Err: err}
		}
	}
	e.transition(StateTokenAcquired, fields)

	for attempt := 1; attempt <= MaxDuplicateAttempts; attempt++ {
		allowRepeat := attempt == MaxDuplicateAttempts
		t, strategy, err := e.discoverOnce(ctx, f, allowRepeat, fields)
		if errors.Is(err, errOnlyRepeats) {
			log.WithFields(fields).WithField("attempt", attempt).Debug("only repeats found, retrying")
			continue
		}
		if err != nil {
			e.transition(StateFailed, fields)
			metrics.DiscoveryOutcomes.WithLabelValues(strategy, "failed").Inc()
			log.WithFields(fields).WithError(err).Warn("discovery failed")
			return music.Track{}, err
		}
		e.session.Record(t.Key())
		e.transition(StateDone, fields)
		metrics.DiscoveryOutcomes.WithLabelValues(strategy, "ok").Inc()
		return t, nil
	}
	// Unreachable: the final attempt accepts repeats.
	return music.Track{}, &music.DiscoveryFailedError{Strategy: strategyGeneric, Err: music.ErrNoCandidates}
}

// discoverOnce runs one full strategy pass and picks a track.
func (e *Engine) discoverOnce(ctx context.Context, f music.Filters, allowRepeat bool, fields log.Fields) (music.Track, string, error) {
	var (
		cands    []music.Track
		strategy string
		err      error
	)
	if f.Language != "" && language.IsSearchPreferred(f.Language) {
		strategy = strategyTargeted
		cands, err = e.targeted(ctx, f, allowRepeat, fields)
	} else {
		strategy = strategyGeneric
		cands, err = e.generic(ctx, f, allowRepeat, fields)
	}
	if err != nil {
		return music.Track{}, strategy, err
	}

	fresh := slices.DeleteFunc(slices.Clone(cands), func(t music.Track) bool { return e.session.Seen(t.Key()) })
	if len(fresh) == 0 {
		if !allowRepeat {
			return music.Track{}, strategy, errOnlyRepeats
		}
		metrics.DuplicatesAccepted.Inc()
		log.WithFields(fields).Info("accepting a previously returned track")
		fresh = cands
	}

	pool := fresh
	if strategy != strategyTargeted {
		if f.Language != "" && hasLanguage(fresh, f.Language) {
			pool = e.diversifier.DiversifyFor(fresh, f.Language)
		} else {
			pool = e.diversifier.Diversify(fresh)
		}
		e.transition(StateDiversified, fields)
	}

	t, err := e.selector.SelectOne(pool)
	if err != nil {
		return music.Track{}, strategy, &music.DiscoveryFailedError{Strategy: strategy, Err: err}
	}
	e.transition(StateSelected, fields)
	return t, strategy, nil
}

// SearchArtists looks up artists by name for the artist filter.
func (e *Engine) SearchArtists(ctx context.Context, query, market string) ([]music.Artist, error) {
	if market == "" {
		market = music.DefaultMarket
	}
	artists, err := e.catalog.SearchArtists(ctx, query, market, 20)
	if err != nil {
		return nil, fmt.Errorf("discovery: search artists: %w", err)
	}
	return artists, nil
}

// fallbackGenres is served when the catalog's genre list is unavailable.
var fallbackGenres = []string{
	"acoustic", "alternative", "ambient", "blues", "classical", "country",
	"dance", "disco", "edm", "electronic", "folk", "funk", "hip-hop", "house",
	"indie", "jazz", "k-pop", "latin", "metal", "pop", "r-n-b", "rock",
}

// GetGenres lists seed genres, falling back to a static list when the
// catalog call fails or returns nothing.
func (e *Engine) GetGenres(ctx context.Context) []string {
	genres, err := e.catalog.GenreSeeds(ctx)
	if err != nil || len(genres) == 0 {
		if err != nil {
			log.WithError(err).Warn("genre seeds unavailable, using static list")
		}
		return slices.Clone(fallbackGenres)
	}
	return genres
}

// ResetSession forgets every returned track.
func (e *Engine) ResetSession() { e.session.Reset() }

// SessionInfo describes the current session.
func (e *Engine) SessionInfo() SessionInfo { return e.session.Info() }

func hasLanguage(tracks []music.Track, lang string) bool {
	return slices.ContainsFunc(tracks, func(t music.Track) bool { return t.Language == lang })
}
