// Package roll collects the random draws used by zone logic behind a
// swappable source, so tests can pin every outcome.
package roll

import "math/rand/v2"

// Source is the subset of *rand.Rand zone code draws from.
type Source interface {
	Float64() float64
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }
func (globalSource) IntN(n int) int   { return rand.IntN(n) }

// Default returns the process-wide math/rand/v2 source.
func Default() Source { return globalSource{} }

// Chance reports whether a draw lands under p. p ≤ 0 never hits, p ≥ 1 always does.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Float64() < p
}

// Between returns a uniform float in [lo, hi).
func Between(src Source, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + src.Float64()*(hi-lo)
}

// IntBetween returns a uniform int in [lo, hi].
func IntBetween(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.IntN(hi-lo+1)
}

// Weighted picks an index by cumulative weight. Entries with weight ≤ 0 are
// never picked. Returns false when the total weight is zero.
func Weighted[T any](src Source, items []T, weight func(T) float64) (int, bool) {
	var total float64
	for _, it := range items {
		if w := weight(it); w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return 0, false
	}

	r := src.Float64() * total
	var cumulative float64
	last := -1
	for i, it := range items {
		w := weight(it)
		if w <= 0 {
			continue
		}
		cumulative += w
		last = i
		if r < cumulative {
			return i, true
		}
	}
	// float rounding: r can land exactly on total
	return last, true
}
