// Package diversify reshapes a raw candidate list so that a random pick from
// its head is unlikely to repeat the language, region, artist or era of its
// neighbours.
//
// The output is ordered in artist tiers: the first tier holds at most one
// track per primary artist, the second tier each artist's second track and so
// on. Reordering never moves a track across tiers, so no artist appears twice
// while another artist still has an unused track.
package diversify

import (
	"maps"
	"regexp"
	"slices"

	"Melopick-Go/pkg/language"
	"Melopick-Go/pkg/music"
	"Melopick-Go/pkg/weighted"
)

const (
	// MaxSelections caps the number of group draws per call.
	MaxSelections = 50

	antiClusterPasses = 3
	lookahead         = 8
)

// Popularity buckets on the catalog's 0..100 scale.
const (
	BucketLow  = "low"
	BucketMid  = "mid"
	BucketHigh = "high"
)

// bucketWeights favour the middle of the popularity range.
var bucketWeights = map[string]float64{
	BucketLow:  25,
	BucketMid:  40,
	BucketHigh: 35,
}

// PopularityBucket returns the coarse bucket for a popularity score.
func PopularityBucket(p int) string {
	switch {
	case p >= 70:
		return BucketHigh
	case p >= 40:
		return BucketMid
	default:
		return BucketLow
	}
}

// Engine performs diversification. It is safe for concurrent use when its
// random source is.
type Engine struct {
	rnd weighted.Rand
}

// New returns an Engine drawing from r.
func New(r weighted.Rand) *Engine {
	return &Engine{rnd: r}
}

// Diversify de-duplicates tracks by id and returns them reordered. When the
// pool spans several languages or regions the head of the list is built by
// repeatedly drawing the least used region, then the least used language
// inside it, then a track by a not yet used artist weighted by popularity
// bucket.
func (e *Engine) Diversify(tracks []music.Track) []music.Track {
	pool := dedupe(tracks)
	if len(pool) == 0 {
		return pool
	}
	weighted.Shuffle(e.rnd, pool)

	var picks []int
	if spansGroups(pool) {
		picks = e.drawGroups(pool)
	}
	return e.finish(pool, picks)
}

// DiversifyFor keeps only tracks tagged with lang and applies the artist
// tiering and anti-clustering passes. An empty lang behaves like Diversify.
func (e *Engine) DiversifyFor(tracks []music.Track, lang string) []music.Track {
	if lang == "" {
		return e.Diversify(tracks)
	}
	var kept []music.Track
	for _, t := range tracks {
		if t.Language == lang {
			kept = append(kept, t)
		}
	}
	pool := dedupe(kept)
	weighted.Shuffle(e.rnd, pool)
	return e.finish(pool, nil)
}

func (e *Engine) finish(pool []music.Track, picks []int) []music.Track {
	order, tiers := artistTiers(pool, picks)
	out := make([]music.Track, len(order))
	for i, idx := range order {
		out[i] = pool[idx]
	}
	antiCluster(out, tiers)
	return out
}

func dedupe(tracks []music.Track) []music.Track {
	seen := make(map[string]bool, len(tracks))
	out := make([]music.Track, 0, len(tracks))
	for _, t := range tracks {
		k := t.Key()
		if k != "" {
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		out = append(out, t)
	}
	return out
}

func spansGroups(pool []music.Track) bool {
	langs := map[string]bool{}
	regions := map[string]bool{}
	for _, t := range pool {
		langs[t.Language] = true
		regions[language.Region(t.Language)] = true
	}
	return len(langs) > 1 || len(regions) > 1
}

// drawGroups returns pool indices chosen by inverse usage weighting. Every
// chosen track has a distinct primary artist.
func (e *Engine) drawGroups(pool []music.Track) []int {
	maxPicks := min(len(pool), MaxSelections)
	attempts := maxPicks * 3

	regionUsage := map[string]int{}
	langUsage := map[string]int{}
	usedTrack := make([]bool, len(pool))
	usedArtist := map[string]bool{}
	picks := make([]int, 0, maxPicks)

	inverse := func(usage map[string]int) func(string) float64 {
		return func(k string) float64 { return 1 / float64(1+usage[k]) }
	}

	for a := 0; a < attempts && len(picks) < maxPicks; a++ {
		// region -> language -> available indices
		avail := map[string]map[string][]int{}
		for i, t := range pool {
			if usedTrack[i] || usedArtist[t.ArtistKey()] {
				continue
			}
			r := language.Region(t.Language)
			if avail[r] == nil {
				avail[r] = map[string][]int{}
			}
			avail[r][t.Language] = append(avail[r][t.Language], i)
		}
		if len(avail) == 0 {
			break
		}
		region, _ := weighted.Choose(e.rnd, slices.Sorted(maps.Keys(avail)), inverse(regionUsage))
		lang, _ := weighted.Choose(e.rnd, slices.Sorted(maps.Keys(avail[region])), inverse(langUsage))
		idx := e.byPopularity(pool, avail[region][lang])

		picks = append(picks, idx)
		usedTrack[idx] = true
		usedArtist[pool[idx].ArtistKey()] = true
		regionUsage[region]++
		langUsage[lang]++
	}
	return picks
}

// byPopularity chooses a bucket among the non-empty ones and then a uniform
// track from it.
func (e *Engine) byPopularity(pool []music.Track, candidates []int) int {
	buckets := map[string][]int{}
	for _, i := range candidates {
		b := PopularityBucket(pool[i].Popularity)
		buckets[b] = append(buckets[b], i)
	}
	names := slices.Sorted(maps.Keys(buckets))
	b, _ := weighted.Choose(e.rnd, names, func(n string) float64 { return bucketWeights[n] })
	members := buckets[b]
	return members[e.rnd.IntN(len(members))]
}

// artistTiers orders pool indices into artist tiers. picks lead the first
// tier; the rest keep pool order. tiers[i] is the tier of order[i].
func artistTiers(pool []music.Track, picks []int) (order []int, tiers []int) {
	placed := make([]bool, len(pool))
	perArtist := map[string]int{}
	tierOf := make([]int, len(pool))

	for _, i := range picks {
		placed[i] = true
		perArtist[pool[i].ArtistKey()]++
		order = append(order, i)
		tiers = append(tiers, 0)
	}
	maxTier := 0
	for i, t := range pool {
		if placed[i] {
			continue
		}
		k := t.ArtistKey()
		tierOf[i] = perArtist[k]
		perArtist[k]++
		if tierOf[i] > maxTier {
			maxTier = tierOf[i]
		}
	}
	for tier := 0; tier <= maxTier; tier++ {
		for i := range pool {
			if !placed[i] && tierOf[i] == tier {
				order = append(order, i)
				tiers = append(tiers, tier)
			}
		}
	}
	return order, tiers
}

type features struct {
	lang, artist, genre, era string
}

func featuresOf(t music.Track) features {
	return features{
		lang:   t.Language,
		artist: t.ArtistKey(),
		genre:  InferGenre(t),
		era:    Era(t.ReleaseYear()),
	}
}

func (a features) similarity(b features) int {
	n := 0
	if a.lang == b.lang {
		n++
	}
	if a.artist == b.artist {
		n++
	}
	if a.genre == b.genre {
		n++
	}
	if a.era == b.era {
		n++
	}
	return n
}

func (a features) clusters(b features) bool {
	return a.lang == b.lang || a.artist == b.artist || a.genre == b.genre
}

// antiCluster repairs adjacent near-duplicates by swapping the second entry
// with a strictly less similar one from a short window ahead in the same
// tier.
func antiCluster(tracks []music.Track, tiers []int) {
	if len(tracks) <= 2 {
		return
	}
	fs := make([]features, len(tracks))
	for i, t := range tracks {
		fs[i] = featuresOf(t)
	}
	for pass := 0; pass < antiClusterPasses; pass++ {
		for i := 0; i < len(tracks)-1; i++ {
			cur, next := fs[i], fs[i+1]
			if !cur.clusters(next) {
				continue
			}
			base := cur.similarity(next)
			for j := i + 2; j < min(i+lookahead, len(tracks)); j++ {
				if tiers[j] != tiers[i+1] || cur.similarity(fs[j]) >= base {
					continue
				}
				tracks[i+1], tracks[j] = tracks[j], tracks[i+1]
				fs[i+1], fs[j] = fs[j], fs[i+1]
				break
			}
		}
	}
}

var genrePatterns = []struct {
	genre string
	re    *regexp.Regexp
}{
	{"bollywood", regexp.MustCompile(`(?i)bollywood|hindi|indian|bharat`)},
	{"rock", regexp.MustCompile(`(?i)rock|metal|punk|grunge`)},
	{"pop", regexp.MustCompile(`(?i)pop|chart|hit|radio`)},
	{"electronic", regexp.MustCompile(`(?i)electronic|edm|techno|house|dance`)},
	{"hip-hop", regexp.MustCompile(`(?i)hip.hop|rap|trap|urban`)},
	{"jazz", regexp.MustCompile(`(?i)jazz|swing|blues|soul`)},
	{"classical", regexp.MustCompile(`(?i)classical|symphony|orchestra|instrumental`)},
	{"rnb", regexp.MustCompile(`(?i)r&b|rnb|rhythm`)},
	{"country", regexp.MustCompile(`(?i)country|folk|acoustic`)},
	{"reggae", regexp.MustCompile(`(?i)reggae|ska|dub`)},
	{"latin", regexp.MustCompile(`(?i)latin|salsa|merengue|bachata`)},
	{"alternative", regexp.MustCompile(`(?i)alternative|indie|underground`)},
}

var languageGenres = map[string]string{
	"hi": "bollywood", "ta": "tamil", "te": "telugu", "pa": "punjabi",
	"ko": "k-pop", "ja": "j-pop", "es": "latin", "fr": "chanson",
}

// InferGenre guesses a coarse genre from a track's names, falling back to
// its language and then to "popular".
func InferGenre(t music.Track) string {
	text := t.Text()
	for _, p := range genrePatterns {
		if p.re.MatchString(text) {
			return p.genre
		}
	}
	if g, ok := languageGenres[t.Language]; ok {
		return g
	}
	return "popular"
}

// Era buckets a release year.
func Era(year int) string {
	switch {
	case year == 0:
		return "unknown"
	case year >= 2020:
		return "modern"
	case year >= 2010:
		return "2010s"
	case year >= 2000:
		return "2000s"
	case year >= 1990:
		return "90s"
	default:
		return "classic"
	}
}
