package search

import "github.com/ocrprov/engine/internal/hashutil"

// Normalize maps every score into [0, 1] via (score-min)/(max-min), for
// merging scores drawn from heterogeneous sources (BM25 and vector) for
// display. When every score is equal the range is zero and every value
// maps to the neutral midpoint 0.5, never 1.0.
func Normalize(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	min, _ := hashutil.SafeMin(scores)
	max, _ := hashutil.SafeMax(scores)

	if max == min {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}

	span := max - min
	for i, s := range scores {
		out[i] = (s - min) / span
	}
	return out
}
