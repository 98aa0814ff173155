package schema

import "database/sql"

// expectedTables and expectedIndexes enumerate what a fully migrated
// database must contain; VerifySchema reports deviations without
// attempting any repair.
var expectedTables = []string{
	"documents", "ocr_results", "chunks", "images", "extractions",
	"embeddings", "vector_ann", "clusters", "cluster_documents",
	"provenance_records", "tags", "entity_tags",
	"fts_chunks", "fts_vlm", "fts_extractions", "fts_documents", "index_rebuilds",
}

var expectedIndexes = []string{
	"idx_documents_status", "idx_documents_file_type", "idx_documents_created_at",
	"idx_ocr_results_document_id", "idx_chunks_ocr_result_id",
	"idx_images_ocr_result_id", "idx_images_vlm_embedding_id",
	"idx_extractions_ocr_result_id", "idx_embeddings_chunk_id",
	"idx_embeddings_image_id", "idx_embeddings_extraction_id",
	"idx_provenance_parent_id", "idx_provenance_root_document_id",
	"idx_provenance_chain_depth", "idx_entity_tags_entity",
}

// VerificationReport lists what VerifySchema found missing.
type VerificationReport struct {
	MissingTables  []string
	MissingIndexes []string
}

// OK reports whether the schema is complete.
func (r VerificationReport) OK() bool {
	return len(r.MissingTables) == 0 && len(r.MissingIndexes) == 0
}

// VerifySchema reports missing tables and indexes against the expected set.
// It never attempts repair; callers decide what to do with a non-OK report.
func VerifySchema(db *sql.DB) (VerificationReport, error) {
	existingTables, err := sqliteNames(db, "table")
	if err != nil {
		return VerificationReport{}, err
	}
	existingIndexes, err := sqliteNames(db, "index")
	if err != nil {
		return VerificationReport{}, err
	}

	var report VerificationReport
	for _, name := range expectedTables {
		if !existingTables[name] {
			report.MissingTables = append(report.MissingTables, name)
		}
	}
	for _, name := range expectedIndexes {
		if !existingIndexes[name] {
			report.MissingIndexes = append(report.MissingIndexes, name)
		}
	}

	return report, nil
}

func sqliteNames(db *sql.DB, kind string) (map[string]bool, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = ?`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = true
	}

	return names, rows.Err()
}
