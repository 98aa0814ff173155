package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHybridSearch_FusesBM25AndVector(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO ocr_results (id, document_id, quality_score) VALUES ('o1', 'd1', 5.0)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO chunks (id, ocr_result_id, text, text_hash) VALUES
		('c1', 'o1', 'invoice total amount due', 'h1'),
		('c2', 'o1', 'completely unrelated shipping notice', 'h2')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO embeddings (id, chunk_id, vector, dimension) VALUES
		('e1', 'c1', ?, 2), ('e2', 'c2', ?, 2)`,
		encodeFloat32Vector([]float32{1, 0}), encodeFloat32Vector([]float32{0, 1}))
	require.NoError(t, err)

	idx := NewVectorIndex(2)
	idx.Upsert("e1", []float32{1, 0})
	idx.Upsert("e2", []float32{0, 1})

	results, err := HybridSearch(db, idx, HybridQuery{
		RawQuery: "invoice total",
		Kind:     KindChunks,
		Limit:    10,
		Vector:   []float32{1, 0},
		Weights:  Weights{BM25: 1, Semantic: 1},
		FusionK:  60,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "c1", results[0].ID)
	require.True(t, results[0].InBothLists)
}

func TestHybridSearch_BM25OnlyWhenVectorOmitted(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`INSERT INTO ocr_results (id, document_id, quality_score) VALUES ('o1', 'd1', NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO chunks (id, ocr_result_id, text, text_hash) VALUES ('c1', 'o1', 'alpha beta gamma', 'h1')`)
	require.NoError(t, err)

	idx := NewVectorIndex(2)
	results, err := HybridSearch(db, idx, HybridQuery{
		RawQuery: "alpha",
		Kind:     KindChunks,
		Limit:    10,
		Weights:  Weights{BM25: 1, Semantic: 1},
		FusionK:  60,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 0, results[0].VecRank)
}

func TestHybridSearch_PhraseQueryWrapsInQuotes(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`INSERT INTO ocr_results (id, document_id, quality_score) VALUES ('o1', 'd1', NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO chunks (id, ocr_result_id, text, text_hash) VALUES ('c1', 'o1', 'the exact phrase here', 'h1')`)
	require.NoError(t, err)

	idx := NewVectorIndex(2)
	results, err := HybridSearch(db, idx, HybridQuery{
		RawQuery: "exact phrase",
		Phrase:   true,
		Kind:     KindChunks,
		Limit:    10,
		Weights:  Weights{BM25: 1, Semantic: 1},
		FusionK:  60,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "c1", results[0].ID)
}
