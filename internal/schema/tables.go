package schema

import "database/sql"

// migrateInitialSchema creates every base table the engine needs: the
// entity tables, the provenance DAG, polymorphic tags, the SQL-resident
// vector ANN store, and the auxiliary tables the cascade-delete engine
// probes for (comparisons, form_fills, uploaded_files) as optional.
func migrateInitialSchema(tx *sql.Tx) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			file_path TEXT NOT NULL,
			file_name TEXT NOT NULL,
			file_hash TEXT NOT NULL,
			file_size INTEGER NOT NULL,
			file_type TEXT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('pending','processing','complete','failed')),
			page_count INTEGER,
			doc_title TEXT,
			doc_author TEXT,
			doc_subject TEXT,
			error_message TEXT,
			provenance_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_file_type ON documents(file_type)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at, id)`,

		`CREATE TABLE IF NOT EXISTS ocr_results (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id),
			extracted_text TEXT NOT NULL,
			text_length INTEGER NOT NULL,
			page_count INTEGER,
			quality_score REAL,
			page_offsets TEXT,
			processor TEXT NOT NULL,
			processor_version TEXT NOT NULL,
			request_id TEXT,
			duration_ms INTEGER,
			cost REAL,
			content_hash TEXT NOT NULL,
			provenance_id TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ocr_results_document_id ON ocr_results(document_id)`,

		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			ocr_result_id TEXT NOT NULL REFERENCES ocr_results(id),
			text TEXT NOT NULL,
			text_hash TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			char_start INTEGER NOT NULL,
			char_end INTEGER NOT NULL,
			page_number INTEGER,
			page_range TEXT,
			overlap_prev INTEGER,
			overlap_next INTEGER,
			heading_context TEXT,
			heading_level INTEGER,
			section_path TEXT,
			content_type_tags TEXT,
			is_atomic INTEGER NOT NULL DEFAULT 0,
			chunking_strategy TEXT,
			embedding_status TEXT NOT NULL DEFAULT 'pending',
			provenance_id TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_ocr_result_id ON chunks(ocr_result_id)`,

		`CREATE TABLE IF NOT EXISTS images (
			id TEXT PRIMARY KEY,
			ocr_result_id TEXT NOT NULL REFERENCES ocr_results(id),
			page_number INTEGER NOT NULL,
			bbox TEXT,
			image_index INTEGER NOT NULL,
			format TEXT,
			width INTEGER,
			height INTEGER,
			extracted_file_path TEXT,
			file_size INTEGER,
			vlm_status TEXT NOT NULL DEFAULT 'pending',
			vlm_description TEXT,
			vlm_confidence REAL,
			vlm_model TEXT,
			vlm_embedding_id TEXT,
			vlm_provenance_id TEXT,
			content_hash TEXT NOT NULL,
			block_type TEXT,
			is_header_footer INTEGER NOT NULL DEFAULT 0,
			provenance_id TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_images_ocr_result_id ON images(ocr_result_id)`,
		`CREATE INDEX IF NOT EXISTS idx_images_vlm_embedding_id ON images(vlm_embedding_id)`,

		`CREATE TABLE IF NOT EXISTS extractions (
			id TEXT PRIMARY KEY,
			ocr_result_id TEXT NOT NULL REFERENCES ocr_results(id),
			schema_json TEXT NOT NULL,
			extraction_json TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			provenance_id TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_extractions_ocr_result_id ON extractions(ocr_result_id)`,

		`CREATE TABLE IF NOT EXISTS embeddings (
			id TEXT PRIMARY KEY,
			chunk_id TEXT REFERENCES chunks(id),
			image_id TEXT REFERENCES images(id),
			extraction_id TEXT REFERENCES extractions(id),
			vector BLOB NOT NULL,
			dimension INTEGER NOT NULL,
			model_name TEXT NOT NULL,
			model_version TEXT NOT NULL,
			task_type TEXT,
			inference_mode TEXT,
			source_file_metadata TEXT,
			content_hash TEXT NOT NULL,
			provenance_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			CHECK (
				(chunk_id IS NOT NULL AND image_id IS NULL AND extraction_id IS NULL) OR
				(chunk_id IS NULL AND image_id IS NOT NULL AND extraction_id IS NULL) OR
				(chunk_id IS NULL AND image_id IS NULL AND extraction_id IS NOT NULL)
			)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_embeddings_chunk_id ON embeddings(chunk_id)`,
		`CREATE INDEX IF NOT EXISTS idx_embeddings_image_id ON embeddings(image_id)`,
		`CREATE INDEX IF NOT EXISTS idx_embeddings_extraction_id ON embeddings(extraction_id)`,

		`CREATE TABLE IF NOT EXISTS vector_ann (
			embedding_id TEXT PRIMARY KEY REFERENCES embeddings(id),
			vector BLOB NOT NULL,
			dimension INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS clusters (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			algorithm TEXT NOT NULL,
			parameters TEXT,
			document_count INTEGER NOT NULL DEFAULT 0,
			top_terms TEXT,
			content_hash TEXT NOT NULL,
			provenance_id TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS cluster_documents (
			cluster_id TEXT NOT NULL REFERENCES clusters(id),
			document_id TEXT NOT NULL REFERENCES documents(id),
			PRIMARY KEY (cluster_id, document_id)
		)`,

		`CREATE TABLE IF NOT EXISTS provenance_records (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL CHECK (type IN (
				'DOCUMENT','OCR_RESULT','CHUNK','IMAGE','VLM_DESCRIPTION',
				'EMBEDDING','EXTRACTION','CLUSTERING'
			)),
			source_type TEXT,
			source_id TEXT,
			root_document_id TEXT,
			content_hash TEXT NOT NULL,
			input_hash TEXT,
			processor TEXT,
			processor_version TEXT,
			processing_params TEXT,
			duration_ms INTEGER,
			quality_score REAL,
			parent_id TEXT REFERENCES provenance_records(id),
			parent_ids TEXT NOT NULL DEFAULT '[]',
			chain_depth INTEGER NOT NULL,
			chain_path TEXT NOT NULL DEFAULT '[]',
			chain_hash TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_provenance_parent_id ON provenance_records(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_provenance_root_document_id ON provenance_records(root_document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_provenance_chain_depth ON provenance_records(chain_depth)`,

		`CREATE TABLE IF NOT EXISTS tags (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			color TEXT,
			description TEXT,
			created_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS entity_tags (
			tag_id TEXT NOT NULL REFERENCES tags(id),
			entity_id TEXT NOT NULL,
			entity_type TEXT NOT NULL CHECK (entity_type IN ('document','chunk','image','extraction','cluster')),
			UNIQUE (tag_id, entity_id, entity_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entity_tags_entity ON entity_tags(entity_id, entity_type)`,

		// Optional tables the cascade-delete engine probes for by existence
		// check; absence is not an error, only a skipped stage.
		`CREATE TABLE IF NOT EXISTS comparisons (
			id TEXT PRIMARY KEY,
			document_id_a TEXT NOT NULL,
			document_id_b TEXT NOT NULL,
			result TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS form_fills (
			id TEXT PRIMARY KEY,
			document_file_hash TEXT NOT NULL,
			form_data TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS uploaded_files (
			id TEXT PRIMARY KEY,
			provenance_id TEXT NOT NULL,
			storage_path TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
