// Package weighted implements weighted random sampling over cumulative
// weights. When every weight is zero or negative the draw falls back to a
// uniform choice so callers never need a special case.
package weighted

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"
)

// Rand is the subset of *rand.Rand the sampler needs.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Index draws an index in [0, len(weights)) with probability proportional to
// its weight. Non-positive weights are never chosen unless all of them are,
// in which case the draw is uniform. It returns -1 for an empty slice.
func Index(r Rand, weights []float64) int {
	if len(weights) == 0 {
		return -1
	}
	cumulative := make([]float64, len(weights))
	total := 0.0
	for i, w := range weights {
		if w > 0 {
			total += w
		}
		cumulative[i] = total
	}
	if total <= 0 {
		return r.IntN(len(weights))
	}
	target := r.Float64() * total
	i := sort.Search(len(cumulative), func(i int) bool { return cumulative[i] > target })
	if i >= len(cumulative) {
		// Float rounding can leave target at total; take the last positive weight.
		for i = len(weights) - 1; weights[i] <= 0; i-- {
		}
	}
	return i
}

// Choose returns an element of items drawn by weight. The boolean is false
// when items is empty.
func Choose[T any](r Rand, items []T, weight func(T) float64) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	ws := make([]float64, len(items))
	for i, it := range items {
		ws[i] = weight(it)
	}
	return items[Index(r, ws)], true
}

// Shuffle permutes items in place.
func Shuffle[T any](r Rand, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

// NewRand returns a generator safe for concurrent use. A zero seed picks one
// from the clock.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(&lockedSource{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)})
}
