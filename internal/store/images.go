package store

import (
	"database/sql"

	"github.com/ocrprov/engine/internal/errtax"
)

func (s *Store) InsertImage(img *Image) error {
	_, err := s.db.Exec(`
		INSERT INTO images (
			id, ocr_result_id, page_number, bbox, image_index, format, width, height,
			extracted_file_path, file_size, vlm_status, vlm_description, vlm_confidence,
			vlm_model, vlm_embedding_id, vlm_provenance_id, content_hash, block_type,
			is_header_footer, provenance_id, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		img.ID, img.OCRResultID, img.PageNumber, img.BBoxJSON, img.ImageIndex, img.Format,
		img.Width, img.Height, img.ExtractedFilePath, img.FileSize, img.VLMStatus,
		img.VLMDescription, img.VLMConfidence, img.VLMModel, img.VLMEmbeddingID, img.VLMProvenanceID,
		img.ContentHash, img.BlockType, img.IsHeaderFooter, img.ProvenanceID, img.CreatedAt.UTC(),
	)
	return liftFK(err, "images.ocr_result_id")
}

func (s *Store) GetImage(id string) (*Image, error) {
	row := s.db.QueryRow(`
		SELECT id, ocr_result_id, page_number, bbox, image_index, format, width, height,
			extracted_file_path, file_size, vlm_status, vlm_description, vlm_confidence,
			vlm_model, vlm_embedding_id, vlm_provenance_id, content_hash, block_type,
			is_header_footer, provenance_id, created_at
		FROM images WHERE id = ?`, id)

	img, err := scanImage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "get image", err)
	}
	return img, nil
}

func scanImage(row *sql.Row) (*Image, error) {
	var img Image
	err := row.Scan(
		&img.ID, &img.OCRResultID, &img.PageNumber, &img.BBoxJSON, &img.ImageIndex, &img.Format,
		&img.Width, &img.Height, &img.ExtractedFilePath, &img.FileSize, &img.VLMStatus,
		&img.VLMDescription, &img.VLMConfidence, &img.VLMModel, &img.VLMEmbeddingID, &img.VLMProvenanceID,
		&img.ContentHash, &img.BlockType, &img.IsHeaderFooter, &img.ProvenanceID, &img.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// SetImageVLMEmbedding updates the vlm_embedding_id / vlm_status of an image
// after (re)queueing or completing VLM description embedding.
func (s *Store) SetImageVLMEmbedding(imageID string, embeddingID *string, status string) error {
	_, err := s.db.Exec(`UPDATE images SET vlm_embedding_id = ?, vlm_status = ? WHERE id = ?`,
		embeddingID, status, imageID)
	if err != nil {
		return errtax.New(errtax.CategoryInternal, "update image vlm embedding", err)
	}
	return nil
}

// ImagesReferencingEmbedding returns every image whose vlm_embedding_id
// equals embeddingID, across all documents (used by cascade delete to find
// deduplication-aliased descriptions before the embedding is removed).
func (s *Store) ImagesReferencingEmbedding(tx *sql.Tx, embeddingID string) ([]*Image, error) {
	rows, err := tx.Query(`
		SELECT id, ocr_result_id, page_number, bbox, image_index, format, width, height,
			extracted_file_path, file_size, vlm_status, vlm_description, vlm_confidence,
			vlm_model, vlm_embedding_id, vlm_provenance_id, content_hash, block_type,
			is_header_footer, provenance_id, created_at
		FROM images WHERE vlm_embedding_id = ?`, embeddingID)
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "query images referencing embedding", err)
	}
	defer rows.Close()

	var images []*Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(
			&img.ID, &img.OCRResultID, &img.PageNumber, &img.BBoxJSON, &img.ImageIndex, &img.Format,
			&img.Width, &img.Height, &img.ExtractedFilePath, &img.FileSize, &img.VLMStatus,
			&img.VLMDescription, &img.VLMConfidence, &img.VLMModel, &img.VLMEmbeddingID, &img.VLMProvenanceID,
			&img.ContentHash, &img.BlockType, &img.IsHeaderFooter, &img.ProvenanceID, &img.CreatedAt,
		); err != nil {
			return nil, errtax.New(errtax.CategoryInternal, "scan image row", err)
		}
		images = append(images, &img)
	}
	return images, rows.Err()
}
