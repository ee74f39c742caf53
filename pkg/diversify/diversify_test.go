package diversify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Melopick-Go/pkg/music"
	"Melopick-Go/pkg/music/musictest"
	"Melopick-Go/pkg/weighted"
)

func mixedPool() []music.Track {
	var pool []music.Track
	langs := []string{"en", "hi", "ta", "es", "ko"}
	for i := 0; i < 20; i++ {
		artist := fmt.Sprintf("artist-%d", i%6)
		pool = append(pool, musictest.Track(
			fmt.Sprintf("t%d", i), fmt.Sprintf("Song %d", i), artist,
			musictest.Language(langs[i%len(langs)]),
			musictest.Popularity((i*17)%100),
		))
	}
	return pool
}

// assertArtistTiers checks that no artist repeats before every artist in the
// list has appeared once.
func assertArtistTiers(t *testing.T, out []music.Track) {
	t.Helper()
	distinct := map[string]bool{}
	for _, tr := range out {
		distinct[tr.ArtistKey()] = true
	}
	seen := map[string]bool{}
	for i, tr := range out[:len(distinct)] {
		require.False(t, seen[tr.ArtistKey()], "artist %s repeated at %d", tr.ArtistKey(), i)
		seen[tr.ArtistKey()] = true
	}
}

func TestDiversifyArtistDedup(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		e := New(weighted.NewRand(seed))
		out := e.Diversify(mixedPool())
		require.Len(t, out, 20)
		assertArtistTiers(t, out)
	}
}

func TestDiversifyRemovesDuplicateIDs(t *testing.T) {
	e := New(weighted.NewRand(3))
	a := musictest.Track("same", "One", "x", musictest.Language("en"))
	b := musictest.Track("same", "One", "x", musictest.Language("en"))
	c := musictest.Track("other", "Two", "y", musictest.Language("hi"))
	out := e.Diversify([]music.Track{a, b, c})
	assert.Len(t, out, 2)
}

func TestDiversifySingleLanguage(t *testing.T) {
	e := New(weighted.NewRand(5))
	pool := []music.Track{
		musictest.Track("1", "A", "x", musictest.Language("en")),
		musictest.Track("2", "B", "x", musictest.Language("en")),
		musictest.Track("3", "C", "y", musictest.Language("en")),
		musictest.Track("4", "D", "z", musictest.Language("en")),
	}
	out := e.Diversify(pool)
	require.Len(t, out, 4)
	assertArtistTiers(t, out)
	assert.Equal(t, "x", out[3].ArtistKey())
}

func TestDiversifyEmpty(t *testing.T) {
	e := New(weighted.NewRand(1))
	assert.Empty(t, e.Diversify(nil))
	assert.Empty(t, e.DiversifyFor(nil, "ta"))
}

func TestDiversifyForFiltersLanguage(t *testing.T) {
	e := New(weighted.NewRand(9))
	out := e.DiversifyFor(mixedPool(), "ta")
	require.NotEmpty(t, out)
	for _, tr := range out {
		assert.Equal(t, "ta", tr.Language)
	}
	assertArtistTiers(t, out)
}

func TestAntiClusterSeparatesSameLanguage(t *testing.T) {
	tracks := []music.Track{
		musictest.Track("1", "A", "a", musictest.Language("en")),
		musictest.Track("2", "B", "b", musictest.Language("en")),
		musictest.Track("3", "C", "c", musictest.Language("hi")),
	}
	antiCluster(tracks, []int{0, 0, 0})
	assert.Equal(t, "hi", tracks[1].Language)
}

func TestAntiClusterKeepsTiers(t *testing.T) {
	tracks := []music.Track{
		musictest.Track("1", "A", "a", musictest.Language("en")),
		musictest.Track("2", "B", "b", musictest.Language("en")),
		musictest.Track("3", "C", "a", musictest.Language("hi")),
	}
	antiCluster(tracks, []int{0, 0, 1})
	assert.Equal(t, "2", tracks[1].Key())
}

func TestPopularityBucket(t *testing.T) {
	assert.Equal(t, BucketLow, PopularityBucket(39))
	assert.Equal(t, BucketMid, PopularityBucket(40))
	assert.Equal(t, BucketMid, PopularityBucket(69))
	assert.Equal(t, BucketHigh, PopularityBucket(70))
}

func TestInferGenreAndEra(t *testing.T) {
	assert.Equal(t, "rock", InferGenre(musictest.Track("1", "Punk Anthem", "x")))
	assert.Equal(t, "tamil", InferGenre(musictest.Track("2", "Vaa", "x", musictest.Language("ta"))))
	assert.Equal(t, "popular", InferGenre(musictest.Track("3", "Vaa", "x")))

	assert.Equal(t, "modern", Era(2021))
	assert.Equal(t, "2010s", Era(2015))
	assert.Equal(t, "90s", Era(1994))
	assert.Equal(t, "classic", Era(1975))
	assert.Equal(t, "unknown", Era(0))
}
