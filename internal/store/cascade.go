package store

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ocrprov/engine/internal/errtax"
	"github.com/ocrprov/engine/internal/hashutil"
)

// cascadeDeleteDocument removes a document and everything that hangs off it:
// embeddings and their vector_ann mirrors, images (including cross-document
// VLM-description re-queueing), entity tags, cluster memberships, chunks,
// extractions, OCR results, optional auxiliary rows, the document row
// itself, and finally its provenance chain. Everything runs in one
// transaction.
func (s *Store) cascadeDeleteDocument(documentID string) error {
	return s.cascadeDelete(documentID, true)
}

// ResetDocument reruns stages 1-10 of the cascade against documentID,
// leaving the document row and its depth-0 provenance record intact so the
// document can be reprocessed from scratch.
func (s *Store) ResetDocument(documentID string) error {
	return s.cascadeDelete(documentID, false)
}

func (s *Store) cascadeDelete(documentID string, full bool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errtax.New(errtax.CategoryInternal, "begin cascade delete", err)
	}
	defer tx.Rollback()

	ocrResult, err := txGetOCRResultByDocument(tx, documentID)
	if err != nil {
		return err
	}

	var chunkIDs, imageIDs, extractionIDs, embeddingIDs []string
	if ocrResult != "" {
		if chunkIDs, err = txListIDs(tx, `SELECT id FROM chunks WHERE ocr_result_id = ?`, ocrResult); err != nil {
			return err
		}
		if imageIDs, err = txListIDs(tx, `SELECT id FROM images WHERE ocr_result_id = ?`, ocrResult); err != nil {
			return err
		}
		if extractionIDs, err = txListIDs(tx, `SELECT id FROM extractions WHERE ocr_result_id = ?`, ocrResult); err != nil {
			return err
		}
	}
	embeddingIDs, err = txEmbeddingIDsFor(tx, chunkIDs, imageIDs, extractionIDs)
	if err != nil {
		return err
	}

	// Stage 1: count and delete vector_ann rows keyed by this document's
	// embedding ids, via a subquery rather than a materialized id list.
	if ocrResult != "" {
		const embeddingIDSubquery = `SELECT id FROM embeddings WHERE
			chunk_id IN (SELECT id FROM chunks WHERE ocr_result_id = ?)
			OR image_id IN (SELECT id FROM images WHERE ocr_result_id = ?)
			OR extraction_id IN (SELECT id FROM extractions WHERE ocr_result_id = ?)`

		var vectorAnnCount int
		if err := tx.QueryRow(
			`SELECT COUNT(*) FROM vector_ann WHERE embedding_id IN (`+embeddingIDSubquery+`)`,
			ocrResult, ocrResult, ocrResult,
		).Scan(&vectorAnnCount); err != nil {
			return errtax.New(errtax.CategoryInternal, "count vector_ann rows", err)
		}
		if _, err := tx.Exec(
			`DELETE FROM vector_ann WHERE embedding_id IN (`+embeddingIDSubquery+`)`,
			ocrResult, ocrResult, ocrResult,
		); err != nil {
			return errtax.New(errtax.CategoryInternal, "delete vector_ann rows", err)
		}
		if vectorAnnCount > 0 {
			slog.Debug("deleted vector_ann rows", "count", vectorAnnCount, "document_id", documentID)
		}
	}

	// Stage 2: break the images->embeddings circular reference for this
	// document's own images before any embedding row disappears.
	for _, id := range imageIDs {
		if _, err := tx.Exec(`UPDATE images SET vlm_embedding_id = NULL WHERE id = ?`, id); err != nil {
			return errtax.New(errtax.CategoryInternal, "null image vlm_embedding_id", err)
		}
	}

	// Stage 3: a VLM-description embedding can be shared across documents
	// via deduplication. Any image in ANOTHER document still pointing at an
	// embedding we are about to delete must be re-queued rather than left
	// dangling.
	for _, embID := range embeddingIDs {
		aliased, err := s.ImagesReferencingEmbedding(tx, embID)
		if err != nil {
			return err
		}
		var affectedDocs []string
		for _, img := range aliased {
			if _, err := tx.Exec(`UPDATE images SET vlm_embedding_id = NULL, vlm_status = ? WHERE id = ?`,
				VLMStatusPending, img.ID); err != nil {
				return errtax.New(errtax.CategoryInternal, "requeue aliased vlm image", err)
			}
			if docID, err := txDocumentIDForOCRResult(tx, img.OCRResultID); err == nil {
				affectedDocs = append(affectedDocs, docID)
			}
		}
		if len(affectedDocs) > 0 {
			slog.Warn("requeued cross-document VLM embedding after deletion",
				"deleted_embedding_id", embID, "affected_documents", affectedDocs)
		}
	}

	// Stage 4: polymorphic entity-tag cleanup for document, chunks, images,
	// extractions.
	if err := deleteEntityTags(tx, documentID, EntityTypeDocument); err != nil {
		return err
	}
	for _, id := range chunkIDs {
		if err := deleteEntityTags(tx, id, EntityTypeChunk); err != nil {
			return err
		}
	}
	for _, id := range imageIDs {
		if err := deleteEntityTags(tx, id, EntityTypeImage); err != nil {
			return err
		}
	}
	for _, id := range extractionIDs {
		if err := deleteEntityTags(tx, id, EntityTypeExtraction); err != nil {
			return err
		}
	}

	// Stage 5: embeddings, images, and cluster membership (with
	// document_count decrement).
	for _, id := range embeddingIDs {
		if _, err := tx.Exec(`DELETE FROM embeddings WHERE id = ?`, id); err != nil {
			return errtax.New(errtax.CategoryInternal, "delete embedding", err)
		}
	}
	for _, id := range imageIDs {
		if _, err := tx.Exec(`DELETE FROM images WHERE id = ?`, id); err != nil {
			return errtax.New(errtax.CategoryInternal, "delete image", err)
		}
	}
	clusterIDs, err := ClustersReferencingDocument(tx, documentID)
	if err != nil {
		return err
	}
	for _, cid := range clusterIDs {
		if _, err := tx.Exec(`DELETE FROM cluster_documents WHERE cluster_id = ? AND document_id = ?`, cid, documentID); err != nil {
			return errtax.New(errtax.CategoryInternal, "delete cluster membership", err)
		}
		if _, err := tx.Exec(`UPDATE clusters SET document_count = document_count - 1 WHERE id = ? AND document_count > 0`, cid); err != nil {
			return errtax.New(errtax.CategoryInternal, "decrement cluster document count", err)
		}
	}

	// Stage 6: comparisons (optional table).
	if ok, err := tableExists(tx, "comparisons"); err != nil {
		return err
	} else if ok {
		if _, err := tx.Exec(`DELETE FROM comparisons WHERE document_id_a = ? OR document_id_b = ?`, documentID, documentID); err != nil {
			return errtax.New(errtax.CategoryInternal, "delete comparisons", err)
		}
	} else {
		slog.Warn("skipping comparisons cascade stage: table not present")
	}

	// Stage 7: form fills (optional table), keyed by file hash.
	if ok, err := tableExists(tx, "form_fills"); err != nil {
		return err
	} else if ok {
		fileHash, err := txDocumentFileHash(tx, documentID)
		if err == nil && fileHash != "" {
			if _, err := tx.Exec(`DELETE FROM form_fills WHERE document_file_hash = ?`, fileHash); err != nil {
				return errtax.New(errtax.CategoryInternal, "delete form fills", err)
			}
		}
	} else {
		slog.Warn("skipping form_fills cascade stage: table not present")
	}

	// Stage 8: chunks.
	for _, id := range chunkIDs {
		if _, err := tx.Exec(`DELETE FROM chunks WHERE id = ?`, id); err != nil {
			return errtax.New(errtax.CategoryInternal, "delete chunk", err)
		}
	}

	// Stage 9: extractions (must precede OCR result deletion).
	for _, id := range extractionIDs {
		if _, err := tx.Exec(`DELETE FROM extractions WHERE id = ?`, id); err != nil {
			return errtax.New(errtax.CategoryInternal, "delete extraction", err)
		}
	}

	// Stage 10: OCR results.
	if ocrResult != "" {
		if _, err := tx.Exec(`DELETE FROM ocr_results WHERE id = ?`, ocrResult); err != nil {
			return errtax.New(errtax.CategoryInternal, "delete ocr result", err)
		}
	}

	if !full {
		if err := tx.Commit(); err != nil {
			return errtax.New(errtax.CategoryInternal, "commit partial reset", err)
		}
		return nil
	}

	// Stage 11: uploaded files (optional table), keyed by provenance tree.
	if ok, err := tableExists(tx, "uploaded_files"); err != nil {
		return err
	} else if ok {
		docProvenanceID, err := txDocumentProvenanceID(tx, documentID)
		if err == nil && docProvenanceID != "" {
			if _, err := tx.Exec(`DELETE FROM uploaded_files WHERE provenance_id = ?`, docProvenanceID); err != nil {
				return errtax.New(errtax.CategoryInternal, "delete uploaded files", err)
			}
		}
	} else {
		slog.Warn("skipping uploaded_files cascade stage: table not present")
	}

	// Stage 12: the document row itself.
	docProvenanceID, err := txDocumentProvenanceID(tx, documentID)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, documentID); err != nil {
		return errtax.New(errtax.CategoryInternal, "delete document", err)
	}

	// Stage 13: provenance records for this document's whole tree, deepest
	// first, with self-references pre-cleared and orphan re-parenting for
	// records still referenced by a surviving cluster.
	if err := s.deleteProvenanceTree(tx, docProvenanceID); err != nil {
		return err
	}

	// Stage 14: FTS-metadata counters are maintained by the synchronous
	// triggers defined in internal/schema as rows disappear from chunks, images,
	// and extractions above; no separate bookkeeping step is needed here.

	if err := tx.Commit(); err != nil {
		return errtax.New(errtax.CategoryInternal, "commit cascade delete", err)
	}
	return nil
}

// deleteProvenanceTree removes rootID and every provenance record that
// shares its root_document_id, descending chain_depth first so that children
// are always gone before their parent. Records still referenced by a surviving
// cluster (a clusters row whose provenance_id names them) are re-parented to a lazily created
// ORPHANED_ROOT record instead of being deleted outright.
func (s *Store) deleteProvenanceTree(tx *sql.Tx, rootID string) error {
	if rootID == "" {
		return nil
	}

	rows, err := tx.Query(`SELECT id, chain_depth FROM provenance_records WHERE root_document_id = (
		SELECT root_document_id FROM provenance_records WHERE id = ?
	) OR id = ? ORDER BY chain_depth DESC`, rootID, rootID)
	if err != nil {
		return errtax.New(errtax.CategoryInternal, "query provenance tree", err)
	}
	type rec struct {
		id    string
		depth int
	}
	var recs []rec
	for rows.Next() {
		var r rec
		if err := rows.Scan(&r.id, &r.depth); err != nil {
			rows.Close()
			return errtax.New(errtax.CategoryInternal, "scan provenance record", err)
		}
		recs = append(recs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errtax.New(errtax.CategoryInternal, "iterate provenance tree", err)
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].depth > recs[j].depth })

	var orphanRootID string
	for _, r := range recs {
		if _, err := tx.Exec(`UPDATE provenance_records SET parent_id = NULL, source_id = NULL WHERE id = ?`, r.id); err != nil {
			return errtax.New(errtax.CategoryInternal, "clear provenance self-reference", err)
		}
		s.chain.Invalidate(r.id)

		stillReferenced, err := clusterReferencesProvenance(tx, r.id)
		if err != nil {
			return err
		}
		if stillReferenced {
			if orphanRootID == "" {
				orphanRootID, err = ensureOrphanedRoot(tx)
				if err != nil {
					return err
				}
			}
			if _, err := tx.Exec(`UPDATE provenance_records SET parent_id = ? WHERE id = ?`, orphanRootID, r.id); err != nil {
				return errtax.New(errtax.CategoryInternal, "reparent orphaned provenance record", err)
			}
			s.chain.Invalidate(r.id)
			continue
		}

		if _, err := tx.Exec(`DELETE FROM provenance_records WHERE id = ?`, r.id); err != nil {
			return errtax.New(errtax.CategoryInternal, "delete provenance record", err)
		}
	}
	return nil
}

func clusterReferencesProvenance(tx *sql.Tx, provenanceID string) (bool, error) {
	var n int
	err := tx.QueryRow(`SELECT COUNT(*) FROM clusters WHERE provenance_id = ?`, provenanceID).Scan(&n)
	if err != nil {
		return false, errtax.New(errtax.CategoryInternal, "check cluster provenance reference", err)
	}
	return n > 0, nil
}

func ensureOrphanedRoot(tx *sql.Tx) (string, error) {
	var id string
	err := tx.QueryRow(`SELECT id FROM provenance_records WHERE type = 'DOCUMENT' AND source_type = 'ORPHANED_ROOT' LIMIT 1`).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", errtax.New(errtax.CategoryInternal, "query orphaned root", err)
	}

	id = uuid.NewString()
	contentHash := hashutil.ContentHashString(id)
	chainHash := hashutil.ChainHash(contentHash, "")
	_, err = tx.Exec(`INSERT INTO provenance_records (
		id, type, source_type, source_id, root_document_id, content_hash, input_hash,
		processor, processor_version, processing_params, duration_ms, quality_score,
		parent_id, parent_ids, chain_depth, chain_path, chain_hash, created_at
	) VALUES (?, 'DOCUMENT', 'ORPHANED_ROOT', NULL, ?, ?, NULL, NULL, NULL, NULL, NULL, NULL,
		NULL, '[]', 0, ?, ?, ?)`,
		id, id, contentHash, mustJSONArray(id), chainHash, time.Now().UTC())
	if err != nil {
		return "", errtax.New(errtax.CategoryInternal, "create orphaned root", err)
	}
	return id, nil
}

func mustJSONArray(id string) string {
	b, err := json.Marshal([]string{id})
	if err != nil {
		return "[]"
	}
	return string(b)
}

func tableExists(tx *sql.Tx, name string) (bool, error) {
	var found string
	err := tx.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errtax.New(errtax.CategoryInternal, "check table existence", err)
	}
	return true, nil
}

func txListIDs(tx *sql.Tx, query string, arg string) ([]string, error) {
	rows, err := tx.Query(query, arg)
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "query ids", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errtax.New(errtax.CategoryInternal, "scan id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func txGetOCRResultByDocument(tx *sql.Tx, documentID string) (string, error) {
	var id string
	err := tx.QueryRow(`SELECT id FROM ocr_results WHERE document_id = ?`, documentID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errtax.New(errtax.CategoryInternal, "query ocr result for document", err)
	}
	return id, nil
}

func txDocumentIDForOCRResult(tx *sql.Tx, ocrResultID string) (string, error) {
	var id string
	err := tx.QueryRow(`SELECT document_id FROM ocr_results WHERE id = ?`, ocrResultID).Scan(&id)
	return id, err
}

func txDocumentFileHash(tx *sql.Tx, documentID string) (string, error) {
	var hash string
	err := tx.QueryRow(`SELECT file_hash FROM documents WHERE id = ?`, documentID).Scan(&hash)
	if err != nil {
		return "", err
	}
	return hash, nil
}

func txDocumentProvenanceID(tx *sql.Tx, documentID string) (string, error) {
	var id string
	err := tx.QueryRow(`SELECT provenance_id FROM documents WHERE id = ?`, documentID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errtax.New(errtax.CategoryInternal, "query document provenance id", err)
	}
	return id, nil
}

// txEmbeddingIDsFor returns the embeddings attached to any of the given
// chunk, image, or extraction ids.
func txEmbeddingIDsFor(tx *sql.Tx, chunkIDs, imageIDs, extractionIDs []string) ([]string, error) {
	var ids []string
	collect := func(column string, parentIDs []string) error {
		for _, pid := range parentIDs {
			rows, err := tx.Query(`SELECT id FROM embeddings WHERE `+column+` = ?`, pid)
			if err != nil {
				return errtax.New(errtax.CategoryInternal, "query embeddings for parent", err)
			}
			for rows.Next() {
				var id string
				if err := rows.Scan(&id); err != nil {
					rows.Close()
					return errtax.New(errtax.CategoryInternal, "scan embedding id", err)
				}
				ids = append(ids, id)
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return err
			}
			rows.Close()
		}
		return nil
	}
	if err := collect("chunk_id", chunkIDs); err != nil {
		return nil, err
	}
	if err := collect("image_id", imageIDs); err != nil {
		return nil, err
	}
	if err := collect("extraction_id", extractionIDs); err != nil {
		return nil, err
	}
	return ids, nil
}
