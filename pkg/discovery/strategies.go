package discovery

import (
	"context"
	"errors"
	"fmt"
	"slices"

	log "github.com/sirupsen/logrus"

	"Melopick-Go/pkg/language"
	"Melopick-Go/pkg/music"
	"Melopick-Go/pkg/weighted"
)

const (
	recommendationLimit = 50
	searchLimit         = 50

	// targeted search
	maxOffset          = 300
	detectPerBatch     = 8
	batchTarget        = 25
	candidateTarget    = 20
	undergroundLimit   = 20
	undergroundOffset  = 100
	undergroundMaxPop  = 60
	undergroundPerTerm = 3
)

// seedGenres are used when the filters name neither an artist nor a genre.
var seedGenres = []string{"pop", "rock", "electronic", "indie", "alternative"}

// fallbackTerms are used by keyword search when no artist or genre is set.
var fallbackTerms = []string{"hits", "popular", "best", "top", "classic"}

func (e *Engine) pick(items []string) string {
	return items[e.rnd.IntN(len(items))]
}

// annotate tags tracks with their language and drops those outside the
// year range.
func (e *Engine) annotate(ctx context.Context, tracks []music.Track, f music.Filters) []music.Track {
	tracks = slices.DeleteFunc(tracks, func(t music.Track) bool { return !f.InYears(t) })
	e.detector.Annotate(ctx, tracks, f.Market, f.Language)
	return tracks
}

func onlyLanguage(tracks []music.Track, lang string) []music.Track {
	var out []music.Track
	for _, t := range tracks {
		if t.Language == lang {
			out = append(out, t)
		}
	}
	return out
}

// unseen drops tracks already returned in this session unless repeats are
// allowed, and reports how many were dropped.
func (e *Engine) unseen(tracks []music.Track, allowRepeat bool) ([]music.Track, int) {
	if allowRepeat {
		return tracks, 0
	}
	fresh := slices.DeleteFunc(slices.Clone(tracks), func(t music.Track) bool { return e.session.Seen(t.Key()) })
	return fresh, len(tracks) - len(fresh)
}

// generic asks the recommendation endpoint for tracks seeded from the
// filters and falls back to keyword search when that yields nothing new.
func (e *Engine) generic(ctx context.Context, f music.Filters, allowRepeat bool, fields log.Fields) ([]music.Track, error) {
	q := music.RecommendationQuery{Market: f.Market, Limit: recommendationLimit, TargetPopularity: f.Popularity}
	if f.Years != nil {
		q.MinYear, q.MaxYear = f.Years.Min, f.Years.Max
	}
	if f.Artist != "" {
		artists, err := e.catalog.SearchArtists(ctx, f.Artist, f.Market, 1)
		switch {
		case errors.Is(err, music.ErrAuthentication):
			return nil, &music.DiscoveryFailedError{Strategy: strategyGeneric, Err: err}
		case err != nil:
			log.WithFields(fields).WithError(err).Warn("artist seed lookup failed")
		case len(artists) > 0:
			q.SeedArtists = []string{string(artists[0].ID)}
		}
	}
	if f.Genre != "" {
		q.SeedGenres = []string{f.Genre}
	}
	if len(q.SeedArtists) == 0 && len(q.SeedGenres) == 0 {
		q.SeedGenres = []string{e.pick(seedGenres)}
	}
	if targets := f.AudioTargets(); len(targets) > 0 {
		q.Targets = make(map[string]float64, len(targets))
		for k, v := range targets {
			q.Targets[k] = float64(v) / 100
		}
	}

	e.transition(StateSearchIssued, fields)
	tracks, err := e.catalog.Recommendations(ctx, q)
	if err != nil {
		if errors.Is(err, music.ErrAuthentication) {
			return nil, &music.DiscoveryFailedError{Strategy: strategyGeneric, Err: err}
		}
		log.WithFields(fields).WithError(err).Warn("recommendations failed, falling back to search")
	}
	tracks = e.annotate(ctx, tracks, f)
	if f.Language != "" {
		tracks = onlyLanguage(tracks, f.Language)
	}
	fresh, repeats := e.unseen(tracks, allowRepeat)
	if len(fresh) > 0 {
		e.transition(StateResultsFound, fields)
		return fresh, nil
	}
	e.transition(StateEmpty, fields)
	return e.fallback(ctx, f, allowRepeat, repeats > 0, fields)
}

// fallback runs a plain keyword search built from whatever filters are set.
// When only previously returned tracks turn up here or in the strategy that
// fell back (sawRepeats) it reports errOnlyRepeats so the caller can retry.
func (e *Engine) fallback(ctx context.Context, f music.Filters, allowRepeat, sawRepeats bool, fields log.Fields) ([]music.Track, error) {
	e.transition(StateFallbackSearch, fields)
	term := f.Artist
	switch {
	case term != "":
	case f.Genre != "":
		term = "genre:" + f.Genre
	default:
		term = e.pick(fallbackTerms)
	}
	if f.Years != nil {
		term += fmt.Sprintf(" year:%d-%d", f.Years.Min, f.Years.Max)
	}

	tracks, err := e.catalog.SearchTracks(ctx, music.SearchQuery{Query: term, Market: f.Market, Limit: searchLimit})
	if err != nil {
		if sawRepeats && !errors.Is(err, music.ErrAuthentication) {
			return nil, errOnlyRepeats
		}
		return nil, &music.DiscoveryFailedError{Strategy: strategyFallback, Err: err}
	}
	tracks = e.annotate(ctx, tracks, f)
	if f.Language != "" {
		if matched := onlyLanguage(tracks, f.Language); len(matched) > 0 {
			tracks = matched
		}
	}
	fresh, repeats := e.unseen(tracks, allowRepeat)
	if len(fresh) == 0 {
		if sawRepeats || repeats > 0 {
			return nil, errOnlyRepeats
		}
		return nil, &music.DiscoveryFailedError{Strategy: strategyFallback, Err: music.ErrNoCandidates}
	}
	e.transition(StateResultsFound, fields)
	return fresh, nil
}

// targetedRun holds the de-duplication state of one targeted search.
type targetedRun struct {
	e           *Engine
	f           music.Filters
	allowRepeat bool
	usedIDs     map[string]bool
	usedArtists map[string]bool
	usedAlbums  map[string]bool
	cands       []music.Track
	// repeats counts target-language tracks skipped only because the
	// session already returned them.
	repeats int
}

// consider runs detection on up to limit unused tracks from batch and keeps
// those whose content says they are in the target language. Tracks the
// session already returned are classified from their own text only and
// counted in repeats when they match.
func (r *targetedRun) consider(ctx context.Context, batch []music.Track, market string, limit int) {
	var fresh []music.Track
	for _, t := range batch {
		if len(fresh) >= limit {
			break
		}
		id := t.Key()
		if r.usedIDs[id] || r.usedArtists[t.ArtistKey()] || r.usedAlbums[string(t.Album.ID)] {
			continue
		}
		if !r.f.InYears(t) {
			continue
		}
		r.usedIDs[id] = true
		if !r.allowRepeat && r.e.session.Seen(id) {
			res := r.e.detector.Classify(language.Input{Track: t, Market: market, Hint: r.f.Language})
			if res.Language == r.f.Language && res.Signal.ContentBased() {
				r.repeats++
			}
			continue
		}
		fresh = append(fresh, t)
	}
	results := r.e.detector.Annotate(ctx, fresh, market, r.f.Language)
	for i, t := range fresh {
		res := results[i]
		if res.Language != r.f.Language || !res.Signal.ContentBased() {
			continue
		}
		r.usedArtists[t.ArtistKey()] = true
		if t.Album.ID != "" {
			r.usedAlbums[string(t.Album.ID)] = true
		}
		r.cands = append(r.cands, t)
	}
}

// targeted searches curated terms for a language across its plausible
// markets with random pagination, keeping only tracks whose own metadata
// identifies the language.
func (e *Engine) targeted(ctx context.Context, f music.Filters, allowRepeat bool, fields log.Fields) ([]music.Track, error) {
	plan, _ := language.PlanFor(f.Language)
	groups := slices.Clone(plan.Groups)
	weighted.Shuffle(e.rnd, groups)
	markets := plan.Markets
	if len(markets) == 0 {
		markets = []string{f.Market}
	}

	run := &targetedRun{
		e: e, f: f, allowRepeat: allowRepeat,
		usedIDs: map[string]bool{}, usedArtists: map[string]bool{}, usedAlbums: map[string]bool{},
	}
	e.transition(StateSearchIssued, fields)

	requests := 0
search:
	for _, group := range groups {
		for _, term := range group {
			if requests >= e.targetedBudget {
				break search
			}
			if len(run.cands) >= batchTarget {
				break
			}
			market := e.pick(markets)
			batch, err := e.catalog.SearchTracks(ctx, music.SearchQuery{
				Query: term, Market: market, Limit: searchLimit, Offset: e.rnd.IntN(maxOffset),
			})
			requests++
			if err != nil {
				if errors.Is(err, music.ErrAuthentication) {
					return nil, &music.DiscoveryFailedError{Strategy: strategyTargeted, Err: err}
				}
				log.WithFields(fields).WithError(err).WithField("term", term).Debug("targeted search failed")
				continue
			}
			run.consider(ctx, batch, market, detectPerBatch)
		}
		if len(run.cands) >= candidateTarget {
			break
		}
	}

	if len(run.cands) < candidateTarget && ctx.Err() == nil {
		for _, term := range plan.Underground {
			market := e.pick(markets)
			batch, err := e.catalog.SearchTracks(ctx, music.SearchQuery{
				Query: term, Market: market, Limit: undergroundLimit, Offset: e.rnd.IntN(undergroundOffset),
			})
			if err != nil {
				log.WithFields(fields).WithError(err).WithField("term", term).Debug("underground search failed")
				continue
			}
			batch = slices.DeleteFunc(batch, func(t music.Track) bool { return t.Popularity >= undergroundMaxPop })
			run.consider(ctx, batch, market, undergroundPerTerm)
		}
	}

	log.WithFields(fields).WithFields(log.Fields{
		"requests":   requests,
		"candidates": len(run.cands),
		"repeats":    run.repeats,
	}).Debug("targeted search finished")

	if len(run.cands) == 0 {
		e.transition(StateEmpty, fields)
		if run.repeats > 0 {
			return nil, errOnlyRepeats
		}
		return e.fallback(ctx, f, allowRepeat, false, fields)
	}
	e.transition(StateResultsFound, fields)
	return run.cands, nil
}
