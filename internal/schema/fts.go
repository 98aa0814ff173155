package schema

import "database/sql"

// migrateSearchIndexes creates the four parallel FTS5 indexes the search
// layer queries (chunks, VLM descriptions, extractions, document metadata)
// plus the synchronous triggers that keep each one in lockstep with its
// base table. A successful write commit therefore always implies a
// synchronized index; the search layer never needs to poll for staleness
// on the happy path, only to detect it after an out-of-band schema change.
func migrateSearchIndexes(tx *sql.Tx) error {
	statements := []string{
		// chunks: indexed by the chunk's own text.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_chunks USING fts5(
			chunk_id UNINDEXED,
			text,
			tokenize = 'porter unicode61'
		)`,
		`CREATE TRIGGER IF NOT EXISTS trg_fts_chunks_ai AFTER INSERT ON chunks BEGIN
			INSERT INTO fts_chunks (chunk_id, text) VALUES (new.id, new.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS trg_fts_chunks_ad AFTER DELETE ON chunks BEGIN
			DELETE FROM fts_chunks WHERE chunk_id = old.id;
		END`,
		`CREATE TRIGGER IF NOT EXISTS trg_fts_chunks_au AFTER UPDATE OF text ON chunks BEGIN
			DELETE FROM fts_chunks WHERE chunk_id = old.id;
			INSERT INTO fts_chunks (chunk_id, text) VALUES (new.id, new.text);
		END`,

		// VLM descriptions: indexed by the image's generated description,
		// populated once VLM processing fills it in.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_vlm USING fts5(
			image_id UNINDEXED,
			description,
			tokenize = 'porter unicode61'
		)`,
		`CREATE TRIGGER IF NOT EXISTS trg_fts_vlm_ai AFTER INSERT ON images
			WHEN new.vlm_description IS NOT NULL BEGIN
			INSERT INTO fts_vlm (image_id, description) VALUES (new.id, new.vlm_description);
		END`,
		`CREATE TRIGGER IF NOT EXISTS trg_fts_vlm_ad AFTER DELETE ON images BEGIN
			DELETE FROM fts_vlm WHERE image_id = old.id;
		END`,
		`CREATE TRIGGER IF NOT EXISTS trg_fts_vlm_au AFTER UPDATE OF vlm_description ON images BEGIN
			DELETE FROM fts_vlm WHERE image_id = old.id;
			INSERT INTO fts_vlm (image_id, description)
				SELECT new.id, new.vlm_description WHERE new.vlm_description IS NOT NULL;
		END`,

		// extractions: indexed by the raw extraction JSON.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_extractions USING fts5(
			extraction_id UNINDEXED,
			content,
			tokenize = 'porter unicode61'
		)`,
		`CREATE TRIGGER IF NOT EXISTS trg_fts_extractions_ai AFTER INSERT ON extractions BEGIN
			INSERT INTO fts_extractions (extraction_id, content) VALUES (new.id, new.extraction_json);
		END`,
		`CREATE TRIGGER IF NOT EXISTS trg_fts_extractions_ad AFTER DELETE ON extractions BEGIN
			DELETE FROM fts_extractions WHERE extraction_id = old.id;
		END`,
		`CREATE TRIGGER IF NOT EXISTS trg_fts_extractions_au AFTER UPDATE OF extraction_json ON extractions BEGIN
			DELETE FROM fts_extractions WHERE extraction_id = old.id;
			INSERT INTO fts_extractions (extraction_id, content) VALUES (new.id, new.extraction_json);
		END`,

		// document metadata: indexed by title/author/subject/file_name so a
		// metadata-only query doesn't need to touch the chunk index at all.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_documents USING fts5(
			document_id UNINDEXED,
			title, author, subject, file_name,
			tokenize = 'porter unicode61'
		)`,
		`CREATE TRIGGER IF NOT EXISTS trg_fts_documents_ai AFTER INSERT ON documents BEGIN
			INSERT INTO fts_documents (document_id, title, author, subject, file_name)
				VALUES (new.id, new.doc_title, new.doc_author, new.doc_subject, new.file_name);
		END`,
		`CREATE TRIGGER IF NOT EXISTS trg_fts_documents_ad AFTER DELETE ON documents BEGIN
			DELETE FROM fts_documents WHERE document_id = old.id;
		END`,
		`CREATE TRIGGER IF NOT EXISTS trg_fts_documents_au AFTER UPDATE OF doc_title, doc_author, doc_subject, file_name ON documents BEGIN
			DELETE FROM fts_documents WHERE document_id = old.id;
			INSERT INTO fts_documents (document_id, title, author, subject, file_name)
				VALUES (new.id, new.doc_title, new.doc_author, new.doc_subject, new.file_name);
		END`,

		`CREATE TABLE IF NOT EXISTS index_rebuilds (
			index_name TEXT PRIMARY KEY,
			last_rebuilt_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
