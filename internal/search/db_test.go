package search

import (
	"database/sql"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// openTestDB builds an in-memory database carrying just the tables and
// triggers the search layer touches, mirroring the engine's real schema
// migrations closely enough to exercise FTS5 and the vector_ann mirror.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	statements := []string{
		`CREATE TABLE documents (
			id TEXT PRIMARY KEY, file_name TEXT, file_hash TEXT,
			doc_title TEXT, doc_author TEXT, doc_subject TEXT
		)`,
		`CREATE TABLE ocr_results (
			id TEXT PRIMARY KEY, document_id TEXT, quality_score REAL
		)`,
		`CREATE TABLE chunks (
			id TEXT PRIMARY KEY, ocr_result_id TEXT, text TEXT, text_hash TEXT
		)`,
		`CREATE TABLE images (
			id TEXT PRIMARY KEY, ocr_result_id TEXT, page_number INTEGER,
			vlm_description TEXT, content_hash TEXT
		)`,
		`CREATE TABLE extractions (
			id TEXT PRIMARY KEY, ocr_result_id TEXT, extraction_json TEXT, content_hash TEXT
		)`,
		`CREATE TABLE embeddings (
			id TEXT PRIMARY KEY, chunk_id TEXT, image_id TEXT, extraction_id TEXT,
			vector BLOB, dimension INTEGER
		)`,
		`CREATE TABLE vector_ann (
			embedding_id TEXT PRIMARY KEY, vector BLOB NOT NULL, dimension INTEGER NOT NULL
		)`,
		`CREATE TABLE index_rebuilds (
			index_name TEXT PRIMARY KEY, last_rebuilt_at TEXT NOT NULL
		)`,

		`CREATE VIRTUAL TABLE fts_chunks USING fts5(chunk_id UNINDEXED, text, tokenize = 'porter unicode61')`,
		`CREATE TRIGGER trg_fts_chunks_ai AFTER INSERT ON chunks BEGIN
			INSERT INTO fts_chunks (chunk_id, text) VALUES (new.id, new.text);
		END`,
		`CREATE TRIGGER trg_fts_chunks_ad AFTER DELETE ON chunks BEGIN
			DELETE FROM fts_chunks WHERE chunk_id = old.id;
		END`,
		`CREATE TRIGGER trg_fts_chunks_au AFTER UPDATE OF text ON chunks BEGIN
			DELETE FROM fts_chunks WHERE chunk_id = old.id;
			INSERT INTO fts_chunks (chunk_id, text) VALUES (new.id, new.text);
		END`,

		`CREATE VIRTUAL TABLE fts_vlm USING fts5(image_id UNINDEXED, description, tokenize = 'porter unicode61')`,
		`CREATE TRIGGER trg_fts_vlm_ai AFTER INSERT ON images WHEN new.vlm_description IS NOT NULL BEGIN
			INSERT INTO fts_vlm (image_id, description) VALUES (new.id, new.vlm_description);
		END`,
		`CREATE TRIGGER trg_fts_vlm_ad AFTER DELETE ON images BEGIN
			DELETE FROM fts_vlm WHERE image_id = old.id;
		END`,
		`CREATE TRIGGER trg_fts_vlm_au AFTER UPDATE OF vlm_description ON images BEGIN
			DELETE FROM fts_vlm WHERE image_id = old.id;
			INSERT INTO fts_vlm (image_id, description)
				SELECT new.id, new.vlm_description WHERE new.vlm_description IS NOT NULL;
		END`,

		`CREATE VIRTUAL TABLE fts_extractions USING fts5(extraction_id UNINDEXED, content, tokenize = 'porter unicode61')`,
		`CREATE TRIGGER trg_fts_extractions_ai AFTER INSERT ON extractions BEGIN
			INSERT INTO fts_extractions (extraction_id, content) VALUES (new.id, new.extraction_json);
		END`,
		`CREATE TRIGGER trg_fts_extractions_ad AFTER DELETE ON extractions BEGIN
			DELETE FROM fts_extractions WHERE extraction_id = old.id;
		END`,
		`CREATE TRIGGER trg_fts_extractions_au AFTER UPDATE OF extraction_json ON extractions BEGIN
			DELETE FROM fts_extractions WHERE extraction_id = old.id;
			INSERT INTO fts_extractions (extraction_id, content) VALUES (new.id, new.extraction_json);
		END`,

		`CREATE VIRTUAL TABLE fts_documents USING fts5(document_id UNINDEXED, title, author, subject, file_name, tokenize = 'porter unicode61')`,
		`CREATE TRIGGER trg_fts_documents_ai AFTER INSERT ON documents BEGIN
			INSERT INTO fts_documents (document_id, title, author, subject, file_name)
				VALUES (new.id, new.doc_title, new.doc_author, new.doc_subject, new.file_name);
		END`,
		`CREATE TRIGGER trg_fts_documents_ad AFTER DELETE ON documents BEGIN
			DELETE FROM fts_documents WHERE document_id = old.id;
		END`,
		`CREATE TRIGGER trg_fts_documents_au AFTER UPDATE OF doc_title, doc_author, doc_subject, file_name ON documents BEGIN
			DELETE FROM fts_documents WHERE document_id = old.id;
			INSERT INTO fts_documents (document_id, title, author, subject, file_name)
				VALUES (new.id, new.doc_title, new.doc_author, new.doc_subject, new.file_name);
		END`,
	}

	for _, stmt := range statements {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	return db
}

func encodeFloat32Vector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
