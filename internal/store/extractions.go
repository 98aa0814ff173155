package store

import (
	"database/sql"

	"github.com/ocrprov/engine/internal/errtax"
)

func (s *Store) InsertExtraction(e *Extraction) error {
	_, err := s.db.Exec(`
		INSERT INTO extractions (id, ocr_result_id, schema_json, extraction_json, content_hash, provenance_id, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		e.ID, e.OCRResultID, e.SchemaJSON, e.ExtractionJSON, e.ContentHash, e.ProvenanceID, e.CreatedAt.UTC(),
	)
	return liftFK(err, "extractions.ocr_result_id")
}

func (s *Store) GetExtraction(id string) (*Extraction, error) {
	row := s.db.QueryRow(`
		SELECT id, ocr_result_id, schema_json, extraction_json, content_hash, provenance_id, created_at
		FROM extractions WHERE id = ?`, id)

	var e Extraction
	err := row.Scan(&e.ID, &e.OCRResultID, &e.SchemaJSON, &e.ExtractionJSON, &e.ContentHash, &e.ProvenanceID, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "get extraction", err)
	}
	return &e, nil
}

func (s *Store) ListExtractionsByOCRResult(ocrResultID string) ([]*Extraction, error) {
	rows, err := s.db.Query(`
		SELECT id, ocr_result_id, schema_json, extraction_json, content_hash, provenance_id, created_at
		FROM extractions WHERE ocr_result_id = ?`, ocrResultID)
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "list extractions", err)
	}
	defer rows.Close()

	var out []*Extraction
	for rows.Next() {
		var e Extraction
		if err := rows.Scan(&e.ID, &e.OCRResultID, &e.SchemaJSON, &e.ExtractionJSON, &e.ContentHash, &e.ProvenanceID, &e.CreatedAt); err != nil {
			return nil, errtax.New(errtax.CategoryInternal, "scan extraction row", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
