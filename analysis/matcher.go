package analysis

import "math"

// Cosine returns the cosine similarity of two term vectors in [0, 1].
// Weights are non-negative, so similarity cannot be negative; similarity
// against a zero vector is defined as 0, never NaN.
func Cosine(a, b TermVector) float64 {
	// Iterate the smaller vector, in sorted term order so the floating
	// point sum is identical across runs.
	if len(b) < len(a) {
		a, b = b, a
	}

	var dot float64
	for _, term := range a.sortedTerms() {
		if wb, ok := b[term]; ok {
			dot += a[term] * wb
		}
	}
	if dot == 0 {
		return 0
	}

	denom := a.norm() * b.norm()
	if denom == 0 {
		return 0
	}

	sim := dot / denom
	// Guard against floating point drift past 1.0.
	if sim > 1 {
		sim = 1
	}
	return sim
}

// match holds the outcome of scoring one requirement against the full
// design list.
type match struct {
	// best is the maximum similarity across all design items.
	best float64

	// matched lists indices of design items scoring at or above the
	// threshold, in original design order.
	matched []int

	// bestIndex is the first-seen design item achieving the best score,
	// or -1 when best is 0. Ties break to the earliest item so output is
	// bit-stable across runs.
	bestIndex int
}

// similarity is the coverage score for one requirement/design pair: the
// square root of the raw cosine. Statements are only a handful of content
// terms, so raw cosine understates short pairs whose overlap is one
// decisive shared term; the square root lifts that range to scoring
// weight while keeping 0 and 1 fixed and preserving relative order.
func similarity(req, design TermVector) float64 {
	return math.Sqrt(Cosine(req, design))
}

// scoreAgainst computes the similarity of one requirement vector against
// every design vector, retaining the maximum and all threshold matches.
func scoreAgainst(req TermVector, design []TermVector, threshold float64) match {
	m := match{bestIndex: -1}
	for i, dv := range design {
		sim := similarity(req, dv)
		if sim > m.best {
			m.best = sim
			m.bestIndex = i
		}
		if sim >= threshold {
			m.matched = append(m.matched, i)
		}
	}
	if m.best == 0 {
		m.bestIndex = -1
	}
	return m
}
