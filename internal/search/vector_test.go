package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVectorIndex_SearchReturnsNearestFirst(t *testing.T) {
	idx := NewVectorIndex(3)
	idx.Upsert("a", []float32{1, 0, 0})
	idx.Upsert("b", []float32{0, 1, 0})
	idx.Upsert("c", []float32{0.9, 0.1, 0})

	hits := idx.Search([]float32{1, 0, 0}, 2)
	require.NotEmpty(t, hits)
	require.Equal(t, "a", hits[0].ID)
}

func TestVectorIndex_UpsertReplacesExisting(t *testing.T) {
	idx := NewVectorIndex(2)
	idx.Upsert("a", []float32{1, 0})
	require.Equal(t, 1, idx.Len())
	idx.Upsert("a", []float32{0, 1})
	require.Equal(t, 1, idx.Len(), "re-upserting the same id must not grow the live count")
}

func TestVectorIndex_DeleteRemovesFromResults(t *testing.T) {
	idx := NewVectorIndex(2)
	idx.Upsert("a", []float32{1, 0})
	idx.Delete("a")
	require.Equal(t, 0, idx.Len())

	hits := idx.Search([]float32{1, 0}, 5)
	for _, h := range hits {
		require.NotEqual(t, "a", h.ID)
	}
}

func TestRebuildVectorIndex_ReadsFromSQL(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`INSERT INTO vector_ann (embedding_id, vector, dimension) VALUES (?, ?, ?)`,
		"e1", encodeFloat32Vector([]float32{1, 0, 0}), 3)
	require.NoError(t, err)

	idx, err := RebuildVectorIndex(db, 3)
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())
}

func TestVectorSearch_FiltersVLMResultsOutsidePageRange(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO images (id, ocr_result_id, page_number) VALUES
		('img1', 'o1', 2), ('img2', 'o1', 10)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO embeddings (id, image_id, vector, dimension) VALUES
		('e1', 'img1', ?, 3), ('e2', 'img2', ?, 3)`,
		encodeFloat32Vector([]float32{1, 0, 0}), encodeFloat32Vector([]float32{0.99, 0.01, 0}))
	require.NoError(t, err)

	idx := NewVectorIndex(3)
	idx.Upsert("e1", []float32{1, 0, 0})
	idx.Upsert("e2", []float32{0.99, 0.01, 0})

	from := 1
	to := 5
	hits, err := VectorSearch(db, idx, VectorQuery{
		Vector: []float32{1, 0, 0}, K: 5, PageRange: &PageRange{From: &from, To: &to},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "img1", hits[0].ID)
}

func TestVectorSearch_ChunkResultsIgnorePageRange(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`INSERT INTO embeddings (id, chunk_id, vector, dimension) VALUES ('e1', 'c1', ?, 2)`,
		encodeFloat32Vector([]float32{1, 0}))
	require.NoError(t, err)

	idx := NewVectorIndex(2)
	idx.Upsert("e1", []float32{1, 0})

	from := 1
	to := 1
	hits, err := VectorSearch(db, idx, VectorQuery{
		Vector: []float32{1, 0}, K: 5, PageRange: &PageRange{From: &from, To: &to},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1, "chunk embeddings are not VLM results and must not be page-filtered")
	require.Equal(t, "c1", hits[0].ID)
}
