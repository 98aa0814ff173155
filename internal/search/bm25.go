package search

import (
	"database/sql"
	"fmt"
)

// Kind identifies which of the four parallel FTS5 indexes a query targets.
type Kind string

const (
	KindChunks      Kind = "chunks"
	KindVLM         Kind = "vlm"
	KindExtractions Kind = "extractions"
	KindDocuments   Kind = "documents"
)

// bm25Queries maps each Kind to the SQL that joins its FTS table back to
// its base table and the owning ocr_results row for quality scoring.
// sqlite's bm25() auxiliary function returns increasingly negative values
// for better matches, so every query negates it to a positive score where
// higher is better.
var bm25Queries = map[Kind]string{
	KindChunks: `
		SELECT c.id, -bm25(fts_chunks) AS score, o.quality_score
		FROM fts_chunks
		JOIN chunks c ON c.id = fts_chunks.chunk_id
		JOIN ocr_results o ON o.id = c.ocr_result_id
		WHERE fts_chunks MATCH ?
		ORDER BY score DESC
		LIMIT ?`,
	KindVLM: `
		SELECT i.id, -bm25(fts_vlm) AS score, o.quality_score
		FROM fts_vlm
		JOIN images i ON i.id = fts_vlm.image_id
		JOIN ocr_results o ON o.id = i.ocr_result_id
		WHERE fts_vlm MATCH ?
		ORDER BY score DESC
		LIMIT ?`,
	KindExtractions: `
		SELECT e.id, -bm25(fts_extractions) AS score, o.quality_score
		FROM fts_extractions
		JOIN extractions e ON e.id = fts_extractions.extraction_id
		JOIN ocr_results o ON o.id = e.ocr_result_id
		WHERE fts_extractions MATCH ?
		ORDER BY score DESC
		LIMIT ?`,
	KindDocuments: `
		SELECT d.id, -bm25(fts_documents) AS score, o.quality_score
		FROM fts_documents
		JOIN documents d ON d.id = fts_documents.document_id
		LEFT JOIN ocr_results o ON o.document_id = d.id
		WHERE fts_documents MATCH ?
		ORDER BY score DESC
		LIMIT ?`,
}

// BM25Search runs a sanitized query against the given kind's FTS5 index and
// returns hits ordered by raw BM25 score, each carrying the source
// document's OCR quality score (nil if absent) for the caller to apply
// ApplyQualityMultiplier exactly once before any fusion step.
func BM25Search(db *sql.DB, kind Kind, sanitizedQuery string, limit int) ([]BM25Hit, error) {
	query, ok := bm25Queries[kind]
	if !ok {
		return nil, fmt.Errorf("unknown search kind %q", kind)
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := db.Query(query, sanitizedQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("bm25 search (%s): %w", kind, err)
	}
	defer rows.Close()

	var hits []BM25Hit
	for rows.Next() {
		var h BM25Hit
		if err := rows.Scan(&h.ID, &h.Score, &h.Quality); err != nil {
			return nil, fmt.Errorf("scan bm25 hit (%s): %w", kind, err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bm25 hits (%s): %w", kind, err)
	}
	return hits, nil
}
