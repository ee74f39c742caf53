// Package selector makes the final weighted pick from a diversified
// candidate list.
package selector

import (
	"time"

	"Melopick-Go/pkg/diversify"
	"Melopick-Go/pkg/music"
	"Melopick-Go/pkg/weighted"
)

// Window is the number of leading candidates considered by SelectOne.
const Window = 20

var popularityBonus = map[string]float64{
	diversify.BucketLow:  0.25,
	diversify.BucketMid:  0.40,
	diversify.BucketHigh: 0.35,
}

// Selector weights candidates by freshness, popularity, provenance and
// shape and draws one.
type Selector struct {
	rnd weighted.Rand
	now func() time.Time
}

// New returns a Selector drawing from r.
func New(r weighted.Rand) *Selector {
	return &Selector{rnd: r, now: time.Now}
}

// Weight returns the sampling weight of t. Every track starts at 1.
func (s *Selector) Weight(t music.Track) float64 {
	w := 1.0
	if y := t.ReleaseYear(); y > 0 {
		w += recencyBonus(s.now().Year() - y)
	}
	w += popularityBonus[diversify.PopularityBucket(t.Popularity)]
	if !t.IsSingle() {
		w += 0.2
	}
	if t.Explicit {
		w += 0.05
	}
	if t.Duration >= 120_000 && t.Duration <= 360_000 {
		w += 0.1
	}
	return w
}

// recencyBonus favours fresh releases and, separately, tracks old enough to
// resurface, leaving a trough in between.
func recencyBonus(age int) float64 {
	switch {
	case age < 2:
		return 0.25
	case age <= 5:
		return 0.2
	case age <= 10:
		return 0.1
	case age <= 20:
		return 0
	default:
		return 0.15
	}
}

// SelectOne draws a track from the first Window candidates. It returns
// music.ErrNoCandidates for an empty list.
func (s *Selector) SelectOne(tracks []music.Track) (music.Track, error) {
	if len(tracks) == 0 {
		return music.Track{}, music.ErrNoCandidates
	}
	pool := tracks[:min(len(tracks), Window)]
	t, _ := weighted.Choose(s.rnd, pool, s.Weight)
	return t, nil
}
