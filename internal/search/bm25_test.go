package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBM25Search_ChunksRankedByRelevance(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO ocr_results (id, document_id, quality_score) VALUES ('o1', 'd1', 4.0)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO chunks (id, ocr_result_id, text, text_hash) VALUES
		('c1', 'o1', 'the quick brown fox jumps over the lazy dog', 'h1'),
		('c2', 'o1', 'a completely unrelated sentence about cats', 'h2')`)
	require.NoError(t, err)

	hits, err := BM25Search(db, KindChunks, "fox AND dog", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "c1", hits[0].ID)
	require.NotNil(t, hits[0].Quality)
	require.Equal(t, 4.0, *hits[0].Quality)
}

func TestBM25Search_UnknownKindErrors(t *testing.T) {
	db := openTestDB(t)
	_, err := BM25Search(db, Kind("bogus"), "x", 10)
	require.Error(t, err)
}

func TestBM25Search_VLMJoinsThroughImages(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO ocr_results (id, document_id, quality_score) VALUES ('o1', 'd1', NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO images (id, ocr_result_id, page_number, vlm_description, content_hash)
		VALUES ('i1', 'o1', 1, 'a scanned invoice with a signature block', 'sha256:x')`)
	require.NoError(t, err)

	hits, err := BM25Search(db, KindVLM, "invoice AND signature", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "i1", hits[0].ID)
	require.Nil(t, hits[0].Quality) // neutral multiplier applies for absent quality
}
