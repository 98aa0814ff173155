package store

import (
	"database/sql"

	"github.com/ocrprov/engine/internal/errtax"
)

func (s *Store) InsertOCRResult(r *OCRResult) error {
	_, err := s.db.Exec(`
		INSERT INTO ocr_results (
			id, document_id, extracted_text, text_length, page_count, quality_score,
			page_offsets, processor, processor_version, request_id, duration_ms, cost,
			content_hash, provenance_id, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.DocumentID, r.ExtractedText, r.TextLength, r.PageCount, r.QualityScore,
		r.PageOffsetsJSON, r.Processor, r.ProcessorVersion, r.RequestID, r.DurationMS, r.Cost,
		r.ContentHash, r.ProvenanceID, r.CreatedAt.UTC(),
	)
	return liftFK(err, "ocr_results.document_id")
}

func (s *Store) GetOCRResult(id string) (*OCRResult, error) {
	row := s.db.QueryRow(`
		SELECT id, document_id, extracted_text, text_length, page_count, quality_score,
			page_offsets, processor, processor_version, request_id, duration_ms, cost,
			content_hash, provenance_id, created_at
		FROM ocr_results WHERE id = ?`, id)

	var r OCRResult
	err := row.Scan(
		&r.ID, &r.DocumentID, &r.ExtractedText, &r.TextLength, &r.PageCount, &r.QualityScore,
		&r.PageOffsetsJSON, &r.Processor, &r.ProcessorVersion, &r.RequestID, &r.DurationMS, &r.Cost,
		&r.ContentHash, &r.ProvenanceID, &r.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "get ocr result", err)
	}
	return &r, nil
}

func (s *Store) GetOCRResultByDocument(documentID string) (*OCRResult, error) {
	row := s.db.QueryRow(`
		SELECT id, document_id, extracted_text, text_length, page_count, quality_score,
			page_offsets, processor, processor_version, request_id, duration_ms, cost,
			content_hash, provenance_id, created_at
		FROM ocr_results WHERE document_id = ?`, documentID)

	var r OCRResult
	err := row.Scan(
		&r.ID, &r.DocumentID, &r.ExtractedText, &r.TextLength, &r.PageCount, &r.QualityScore,
		&r.PageOffsetsJSON, &r.Processor, &r.ProcessorVersion, &r.RequestID, &r.DurationMS, &r.Cost,
		&r.ContentHash, &r.ProvenanceID, &r.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "get ocr result by document", err)
	}
	return &r, nil
}
