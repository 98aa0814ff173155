package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatus_CountsAndHashTrackBaseTable(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`INSERT INTO ocr_results (id, document_id) VALUES ('o1', 'd1')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO chunks (id, ocr_result_id, text, text_hash) VALUES
		('c1', 'o1', 'hello world', 'h1'), ('c2', 'o1', 'goodbye world', 'h2')`)
	require.NoError(t, err)

	status, err := Status(db, KindChunks)
	require.NoError(t, err)
	require.Equal(t, 2, status.BaseCount)
	require.Equal(t, 2, status.FTSCount)
	require.True(t, status.TriggersPresent)
	require.False(t, status.Stale)
	require.NotEmpty(t, status.ContentHash)
}

func TestStatus_StaleWhenCountsDivergeBeyondTenPercent(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`INSERT INTO ocr_results (id, document_id) VALUES ('o1', 'd1')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO chunks (id, ocr_result_id, text, text_hash) VALUES
		('c1', 'o1', 'hello world', 'h1'), ('c2', 'o1', 'goodbye world', 'h2')`)
	require.NoError(t, err)

	// Desync fts_chunks from chunks directly (bypassing triggers) to
	// simulate drift.
	_, err = db.Exec(`DELETE FROM fts_chunks`)
	require.NoError(t, err)

	status, err := Status(db, KindChunks)
	require.NoError(t, err)
	require.True(t, status.Stale)
}

func TestStatus_StaleWhenTriggerMissing(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`DROP TRIGGER trg_fts_chunks_au`)
	require.NoError(t, err)

	status, err := Status(db, KindChunks)
	require.NoError(t, err)
	require.False(t, status.TriggersPresent)
	require.True(t, status.Stale)
}

func TestRebuild_RepopulatesFTSAndRecordsTimestamp(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`INSERT INTO ocr_results (id, document_id) VALUES ('o1', 'd1')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO chunks (id, ocr_result_id, text, text_hash) VALUES ('c1', 'o1', 'hello world', 'h1')`)
	require.NoError(t, err)
	_, err = db.Exec(`DELETE FROM fts_chunks`) // simulate desync
	require.NoError(t, err)

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	require.NoError(t, Rebuild(db, KindChunks, now))

	status, err := Status(db, KindChunks)
	require.NoError(t, err)
	require.Equal(t, 1, status.FTSCount)
	require.NotNil(t, status.LastRebuiltAt)
	require.True(t, status.LastRebuiltAt.Equal(now))
}

func TestRebuildVLMVectorIndex_OnlyTouchesImageEmbeddings(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`INSERT INTO embeddings (id, chunk_id, vector, dimension) VALUES ('e_chunk', 'c1', ?, 2)`,
		encodeFloat32Vector([]float32{1, 0}))
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO embeddings (id, image_id, vector, dimension) VALUES ('e_img', 'img1', ?, 2)`,
		encodeFloat32Vector([]float32{0, 1}))
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO vector_ann (embedding_id, vector, dimension) VALUES
		('e_chunk', ?, 2), ('e_img', ?, 2)`,
		encodeFloat32Vector([]float32{1, 0}), encodeFloat32Vector([]float32{0, 1}))
	require.NoError(t, err)

	// Corrupt the VLM row's mirror to prove rebuild actually resyncs it.
	_, err = db.Exec(`UPDATE vector_ann SET vector = ? WHERE embedding_id = 'e_img'`,
		encodeFloat32Vector([]float32{9, 9}))
	require.NoError(t, err)

	require.NoError(t, RebuildVLMVectorIndex(db))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM vector_ann WHERE embedding_id = 'e_chunk'`).Scan(&count))
	require.Equal(t, 1, count, "chunk-derived vector_ann rows must be untouched")

	var blob []byte
	require.NoError(t, db.QueryRow(`SELECT vector FROM vector_ann WHERE embedding_id = 'e_img'`).Scan(&blob))
	require.Equal(t, encodeFloat32Vector([]float32{0, 1}), blob, "VLM row must be resynced from embeddings")
}
