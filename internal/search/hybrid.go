package search

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// PageRange bounds image page numbers; either end may be nil for
// unbounded.
type PageRange struct {
	From *int
	To   *int
}

func (r *PageRange) contains(page *int) bool {
	if r == nil {
		return true
	}
	if page == nil {
		return false
	}
	if r.From != nil && *page < *r.From {
		return false
	}
	if r.To != nil && *page > *r.To {
		return false
	}
	return true
}

// embeddingRef resolves one embedding_id to the primary key of the entity
// it was derived from, and (for VLM embeddings) the image's page number.
type embeddingRef struct {
	primaryKey string
	isVLM      bool
	pageNumber *int
}

// resolveEmbeddingRefs joins embedding_id back to its owning
// chunk/image/extraction primary key. VLM-type embeddings are detected by
// chunk_id IS NULL (an embedding is always derived from exactly one of
// chunk/image/extraction; image_id non-null with chunk_id null marks it as
// VLM rather than a plain image-pixel embedding, since only VLM
// descriptions are embedded).
func resolveEmbeddingRefs(db *sql.DB, embeddingIDs []string) (map[string]embeddingRef, error) {
	refs := make(map[string]embeddingRef, len(embeddingIDs))
	if len(embeddingIDs) == 0 {
		return refs, nil
	}

	placeholders := make([]any, len(embeddingIDs))
	qs := make([]byte, 0, len(embeddingIDs)*2)
	for i, id := range embeddingIDs {
		placeholders[i] = id
		if i > 0 {
			qs = append(qs, ',')
		}
		qs = append(qs, '?')
	}

	query := fmt.Sprintf(`
		SELECT e.id, e.chunk_id, e.image_id, e.extraction_id, i.page_number
		FROM embeddings e
		LEFT JOIN images i ON i.id = e.image_id
		WHERE e.id IN (%s)`, string(qs))

	rows, err := db.Query(query, placeholders...)
	if err != nil {
		return nil, fmt.Errorf("resolve embedding refs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var embeddingID string
		var chunkID, imageID, extractionID *string
		var pageNumber *int
		if err := rows.Scan(&embeddingID, &chunkID, &imageID, &extractionID, &pageNumber); err != nil {
			return nil, fmt.Errorf("scan embedding ref: %w", err)
		}

		switch {
		case chunkID != nil:
			refs[embeddingID] = embeddingRef{primaryKey: *chunkID}
		case imageID != nil:
			refs[embeddingID] = embeddingRef{primaryKey: *imageID, isVLM: true, pageNumber: pageNumber}
		case extractionID != nil:
			refs[embeddingID] = embeddingRef{primaryKey: *extractionID}
		}
	}
	return refs, rows.Err()
}

// VectorQuery parameterizes a vector kNN search.
type VectorQuery struct {
	Vector    []float32
	K         int
	PageRange *PageRange // applies only to VLM-type results (chunk_id IS NULL)
}

// VectorSearch returns the top-K nearest neighbors to q.Vector, resolved to
// their owning entity's primary key and with the VLM page-range filter
// applied. Because filtering can drop rows, it overfetches from the ANN
// index before truncating to K so the caller still gets up to K results
// whenever enough unfiltered candidates exist.
func VectorSearch(db *sql.DB, idx *VectorIndex, q VectorQuery) ([]RankedHit, error) {
	if q.K <= 0 {
		q.K = 10
	}

	overfetch := q.K * 4
	if overfetch > idx.Len() {
		overfetch = idx.Len()
	}
	if overfetch < q.K {
		overfetch = q.K
	}

	raw := idx.Search(q.Vector, overfetch)
	if len(raw) == 0 {
		return []RankedHit{}, nil
	}

	embeddingIDs := make([]string, len(raw))
	for i, h := range raw {
		embeddingIDs[i] = h.ID
	}

	refs, err := resolveEmbeddingRefs(db, embeddingIDs)
	if err != nil {
		return nil, err
	}

	out := make([]RankedHit, 0, q.K)
	for _, h := range raw {
		ref, ok := refs[h.ID]
		if !ok {
			continue
		}
		if ref.isVLM && !q.PageRange.contains(ref.pageNumber) {
			continue
		}
		out = append(out, RankedHit{ID: ref.primaryKey, Score: h.Score})
		if len(out) == q.K {
			break
		}
	}
	return out, nil
}

// HybridQuery parameterizes a combined BM25 + vector search. Kind selects
// which FTS index (and therefore which entity's primary key) BM25 searches
// against; the vector side is always searched against the full ANN index
// and left to the caller to scope (e.g. via PageRange for VLM results).
type HybridQuery struct {
	RawQuery     string
	SanitizeHint bool // true if RawQuery was already sanitized by the caller
	Phrase       bool
	Kind         Kind
	Limit        int
	Vector       []float32 // nil to skip the vector leg entirely (BM25-only)
	PageRange    *PageRange
	Weights      Weights
	FusionK      int
}

// HybridSearch runs the BM25 and (optionally) vector legs of q, quality-
// reranks the BM25 leg, and fuses both with reciprocal rank fusion.
func HybridSearch(db *sql.DB, idx *VectorIndex, q HybridQuery) ([]*FusedResult, error) {
	sanitized := q.RawQuery
	if q.Phrase {
		sanitized = Phrase(q.RawQuery)
	} else if q.SanitizeHint {
		sanitized = SanitizeDefensive(q.RawQuery)
	} else {
		sanitized = Sanitize(q.RawQuery)
	}

	var bm25Hits []BM25Hit
	var vecRanked []RankedHit

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		hits, err := BM25Search(db, q.Kind, sanitized, q.Limit)
		if err != nil {
			return err
		}
		bm25Hits = hits
		return gctx.Err()
	})
	if q.Vector != nil {
		g.Go(func() error {
			hits, err := VectorSearch(db, idx, VectorQuery{Vector: q.Vector, K: q.Limit, PageRange: q.PageRange})
			if err != nil {
				return err
			}
			vecRanked = hits
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reranked := ApplyQualityMultiplier(bm25Hits)
	bm25Ranked := make([]RankedHit, len(reranked))
	for i, h := range reranked {
		bm25Ranked[i] = RankedHit{ID: h.ID, Score: h.Score}
	}

	fusion := NewRRFFusionWithK(q.FusionK)
	return fusion.Fuse(bm25Ranked, vecRanked, q.Weights), nil
}
