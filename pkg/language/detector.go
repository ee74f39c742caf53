// Package language classifies a track's natural language from independent
// signals evaluated in a fixed precedence order: writing script, well-known
// artists, catalog genre tags, keyword patterns and finally the request's
// market. Detection is a pure function of its inputs; the enhanced variant
// additionally reads genre tags from artist and album records and silently
// falls back to the baseline when those lookups fail.
package language

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"unicode"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"Melopick-Go/pkg/metrics"
	"Melopick-Go/pkg/music"
)

// DefaultLanguage is returned when no signal matches.
const DefaultLanguage = "en"

const annotateConcurrency = 4

// Signal identifies the stage that produced a classification.
type Signal int

const (
	SignalDefault Signal = iota
	SignalMarket
	SignalKeyword
	SignalGenre
	SignalArtist
	SignalScript
)

func (s Signal) String() string {
	switch s {
	case SignalMarket:
		return "market"
	case SignalKeyword:
		return "keyword"
	case SignalGenre:
		return "genre"
	case SignalArtist:
		return "artist"
	case SignalScript:
		return "script"
	default:
		return "default"
	}
}

// ContentBased reports whether the signal came from the track's own
// metadata rather than the request context.
func (s Signal) ContentBased() bool { return s >= SignalKeyword }

// DefaultPrecedence evaluates script first and the market last.
var DefaultPrecedence = []Signal{SignalScript, SignalArtist, SignalGenre, SignalKeyword, SignalMarket}

// Result is a language code together with the signal that produced it.
type Result struct {
	Language string
	Signal   Signal
}

// MetadataSource provides the detail records used by enhanced detection.
type MetadataSource interface {
	Artist(ctx context.Context, id string) (*music.Artist, error)
	Album(ctx context.Context, id string) (*music.Album, error)
}

// Input bundles everything a classification may look at.
type Input struct {
	Track  music.Track
	Market string
	Hint   string
	Genres []string
}

// Detector classifies tracks. The zero value is not usable; call
// NewDetector.
type Detector struct {
	precedence []Signal
	source     MetadataSource
	patterns   []compiledPatterns
}

type compiledPatterns struct {
	lang    string
	topical *regexp.Regexp
	names   *regexp.Regexp
}

// Option configures a Detector.
type Option func(*Detector)

// WithPrecedence overrides the order in which signals are consulted.
func WithPrecedence(order ...Signal) Option {
	return func(d *Detector) {
		if len(order) > 0 {
			d.precedence = append([]Signal(nil), order...)
		}
	}
}

// WithMetadata enables enhanced detection backed by src.
func WithMetadata(src MetadataSource) Option {
	return func(d *Detector) { d.source = src }
}

// NewDetector compiles the keyword tables and applies opts.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{precedence: DefaultPrecedence}
	for _, ps := range patternSets {
		d.patterns = append(d.patterns, compiledPatterns{
			lang:    ps.lang,
			topical: wordRegexp(ps.topical),
			names:   wordRegexp(ps.names),
		})
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func wordRegexp(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Detect returns the language code for t using the baseline signals.
func (d *Detector) Detect(t music.Track, market, hint string) string {
	return d.Classify(Input{Track: t, Market: market, Hint: hint}).Language
}

// Classify runs the stages in precedence order and stops at the first one
// that matches.
func (d *Detector) Classify(in Input) Result {
	text := normalize(in.Track.Text())
	for _, s := range d.precedence {
		var lang string
		switch s {
		case SignalScript:
			lang = byScript(in.Track.Text())
		case SignalArtist:
			lang = byKnownArtist(in.Track)
		case SignalGenre:
			lang = byGenres(in.Genres)
		case SignalKeyword:
			lang = d.byKeywords(text)
		case SignalMarket:
			lang = byMarket(strings.ToUpper(in.Market), strings.ToLower(in.Hint))
		}
		if lang != "" {
			return Result{Language: lang, Signal: s}
		}
	}
	return Result{Language: DefaultLanguage, Signal: SignalDefault}
}

// DetectEnhanced classifies t after reading genre tags from its artist and
// album records. Lookups run concurrently and failures are ignored.
func (d *Detector) DetectEnhanced(ctx context.Context, t music.Track, market, hint string) Result {
	base := d.Classify(Input{Track: t, Market: market, Hint: hint})
	if d.source == nil || d.outranksGenre(base.Signal) {
		return base
	}
	genres := d.lookupGenres(ctx, t)
	if len(genres) == 0 {
		return base
	}
	return d.Classify(Input{Track: t, Market: market, Hint: hint, Genres: genres})
}

// Annotate classifies every track, writes the Language field in place and
// returns the per-track results. With a metadata source configured the
// lookups fan out over a small bounded pool.
func (d *Detector) Annotate(ctx context.Context, tracks []music.Track, market, hint string) []Result {
	results := make([]Result, len(tracks))
	if d.source == nil {
		for i := range tracks {
			results[i] = d.Classify(Input{Track: tracks[i], Market: market, Hint: hint})
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(annotateConcurrency)
		for i := range tracks {
			i := i
			g.Go(func() error {
				results[i] = d.DetectEnhanced(gctx, tracks[i], market, hint)
				return nil
			})
		}
		_ = g.Wait()
	}
	for i := range tracks {
		tracks[i].Language = results[i].Language
		metrics.DetectedLanguages.WithLabelValues(results[i].Language, results[i].Signal.String()).Inc()
	}
	return results
}

// outranksGenre reports whether s is consulted before the genre stage, in
// which case genre tags cannot change the outcome.
func (d *Detector) outranksGenre(s Signal) bool {
	for _, p := range d.precedence {
		if p == SignalGenre {
			return false
		}
		if p == s {
			return true
		}
	}
	return false
}

func (d *Detector) lookupGenres(ctx context.Context, t music.Track) []string {
	var artistGenres, albumGenres []string
	g, gctx := errgroup.WithContext(ctx)
	if id := t.PrimaryArtistID(); id != "" {
		g.Go(func() error {
			a, err := d.source.Artist(gctx, id)
			if err != nil {
				log.WithError(err).WithField("artist", id).Debug("artist lookup failed")
				return nil
			}
			artistGenres = a.Genres
			return nil
		})
	}
	if id := string(t.Album.ID); id != "" {
		g.Go(func() error {
			a, err := d.source.Album(gctx, id)
			if err != nil {
				log.WithError(err).WithField("album", id).Debug("album lookup failed")
				return nil
			}
			albumGenres = a.Genres
			return nil
		})
	}
	_ = g.Wait()
	return append(artistGenres, albumGenres...)
}

// byScript counts runes per script and returns the dominant language.
// Kana anywhere marks Han characters as Japanese kanji.
func byScript(s string) string {
	counts := make([]int, len(scriptRules))
	urdu := false
	for _, r := range s {
		if r < 0x0370 {
			continue
		}
		for i, rule := range scriptRules {
			if unicode.Is(rule.table, r) {
				counts[i]++
				break
			}
		}
		if slices.Contains(urduLetters, r) {
			urdu = true
		}
	}
	byLang := make(map[string]int)
	kana := false
	for i, rule := range scriptRules {
		byLang[rule.lang] += counts[i]
		if rule.lang == "ja" && counts[i] > 0 {
			kana = true
		}
	}
	if kana {
		byLang["ja"] += byLang["zh"]
		byLang["zh"] = 0
	}
	best, bestCount := "", 0
	for _, rule := range scriptRules {
		if c := byLang[rule.lang]; c > bestCount {
			best, bestCount = rule.lang, c
		}
	}
	if best == "ar" && urdu {
		return "ur"
	}
	return best
}

func byKnownArtist(t music.Track) string {
	for _, a := range t.Artists {
		if lang, ok := knownArtists[normalize(a.Name)]; ok {
			return lang
		}
	}
	return ""
}

func byGenres(genres []string) string {
	for _, rule := range genreRules {
		for _, g := range genres {
			if strings.Contains(strings.ToLower(g), rule.keyword) {
				return rule.lang
			}
		}
	}
	return ""
}

// byKeywords scores every pattern set and returns the best language whose
// weighted hit count reaches the threshold.
func (d *Detector) byKeywords(text string) string {
	if text == "" {
		return ""
	}
	best, bestScore := "", 0
	for _, p := range d.patterns {
		score := topicalWeight*len(p.topical.FindAllStringIndex(text, -1)) +
			nameWeight*len(p.names.FindAllStringIndex(text, -1))
		if score >= keywordThreshold && score > bestScore {
			best, bestScore = p.lang, score
		}
	}
	return best
}

func byMarket(market, hint string) string {
	if hint != "" && multilingualMarkets[market] {
		return hint
	}
	return marketLanguages[market]
}

// normalize folds diacritics, lower-cases and reduces punctuation to single
// spaces so "A.R. Rahman" and "ar rahman" compare equal.
func normalize(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r == '.' || r == '\'' || r == '’':
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Region returns the coarse geographic region of a language.
func Region(lang string) string {
	if r, ok := regions[lang]; ok {
		return r
	}
	return "other"
}

// MarketLanguage returns the default language of a market, or "" when the
// market is unknown.
func MarketLanguage(market string) string {
	return marketLanguages[strings.ToUpper(market)]
}

// IsSearchPreferred reports whether lang is served poorly by the generic
// recommendation endpoint and should use the targeted search strategy.
func IsSearchPreferred(lang string) bool {
	_, ok := searchPlans[lang]
	return ok
}

// PlanFor returns the targeted search plan for lang. Underground terms are
// derived from the language's display name.
func PlanFor(lang string) (SearchPlan, bool) {
	plan, ok := searchPlans[lang]
	if !ok {
		return SearchPlan{}, false
	}
	name := strings.ToLower(Names[lang])
	if name == "" {
		name = lang
	}
	plan.Underground = make([]string, len(undergroundSuffixes))
	for i, s := range undergroundSuffixes {
		plan.Underground[i] = name + " " + s
	}
	return plan, true
}
