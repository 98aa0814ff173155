package search

import "sort"

// DefaultRRFConstant is the standard RRF smoothing parameter.
// k=60 is empirically validated across domains (used by Azure AI Search, OpenSearch, etc.).
const DefaultRRFConstant = 60

// Weights holds the per-source RRF weights, each clamped to [0, 2] by the
// caller before use.
type Weights struct {
	BM25     float64
	Semantic float64
}

// RankedHit is one ranked result from a single search source (BM25 or
// vector), keyed by its primary identifier (chunk_id, image_id, or
// extraction_id).
type RankedHit struct {
	ID           string
	Score        float64
	MatchedTerms []string
}

// FusedResult represents a single result after RRF fusion.
type FusedResult struct {
	ID           string   // primary identifier (chunk_id, image_id, extraction_id)
	RRFScore     float64  // combined RRF score, unnormalized
	BM25Score    float64  // original BM25 score (preserved)
	BM25Rank     int      // position in BM25 list (1-indexed, 0 if absent)
	VecScore     float64  // original vector similarity score (preserved)
	VecRank      int      // position in vector list (1-indexed, 0 if absent)
	InBothLists  bool     // document appeared in both result lists
	MatchedTerms []string // BM25 matched terms (for highlighting)
}

// RRFFusion combines BM25 and vector search results using
// Reciprocal Rank Fusion algorithm.
//
// Algorithm: RRF_score(d) = Σ weight_i / (k + rank_i), summed only over the
// sources d actually appears in. A document absent from one source
// contributes nothing for that source — there is no missing-rank
// substitute, and the final scores are not renormalized.
//
// Where:
//   - k = smoothing constant (default: 60)
//   - rank_i = position in ranked list i (1-indexed)
//   - weight_i = weight for search source i
type RRFFusion struct {
	K int // RRF smoothing constant (default: 60)
}

// NewRRFFusion creates a new RRF fusion instance with default k=60.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// NewRRFFusionWithK creates a new RRF fusion with custom k value.
// If k <= 0, defaults to 60.
func NewRRFFusionWithK(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Fuse combines bm25 and vec (already quality-reranked and deduplicated by
// their own layers) using reciprocal rank fusion and returns results sorted
// by fused score descending.
//
// Results are sorted by: RRFScore (desc) → InBothLists (true first) → BM25Score (desc) → ID (asc)
func (f *RRFFusion) Fuse(bm25, vec []RankedHit, weights Weights) []*FusedResult {
	if len(bm25) == 0 && len(vec) == 0 {
		return []*FusedResult{}
	}

	capacity := len(bm25) + len(vec)
	scores := make(map[string]*FusedResult, capacity)

	for rank, r := range bm25 {
		result := f.getOrCreate(scores, r.ID)
		result.BM25Score = r.Score
		result.BM25Rank = rank + 1
		result.MatchedTerms = r.MatchedTerms
		result.RRFScore += weights.BM25 / float64(f.K+rank+1)
	}

	for rank, r := range vec {
		result := f.getOrCreate(scores, r.ID)
		result.VecScore = r.Score
		result.VecRank = rank + 1
		result.RRFScore += weights.Semantic / float64(f.K+rank+1)

		if result.BM25Rank > 0 {
			result.InBothLists = true
		}
	}

	return f.toSortedSlice(scores)
}

// getOrCreate returns existing result or creates new one.
func (f *RRFFusion) getOrCreate(m map[string]*FusedResult, id string) *FusedResult {
	if r, ok := m[id]; ok {
		return r
	}
	r := &FusedResult{ID: id}
	m[id] = r
	return r
}

// toSortedSlice converts map to slice and sorts by RRF score with tie-breaking.
func (f *RRFFusion) toSortedSlice(m map[string]*FusedResult) []*FusedResult {
	results := make([]*FusedResult, 0, len(m))
	for _, r := range m {
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		return f.compare(results[i], results[j])
	})

	return results
}

// compare implements deterministic comparison for sorting.
// Returns true if a should rank before b.
//
// Priority:
//  1. Higher RRF score
//  2. In both lists (true before false)
//  3. Higher BM25 score (exact match indicator)
//  4. Lexicographically smaller ID (deterministic)
func (f *RRFFusion) compare(a, b *FusedResult) bool {
	if a.RRFScore != b.RRFScore {
		return a.RRFScore > b.RRFScore
	}

	if a.InBothLists != b.InBothLists {
		return a.InBothLists
	}

	if a.BM25Score != b.BM25Score {
		return a.BM25Score > b.BM25Score
	}

	return a.ID < b.ID
}
