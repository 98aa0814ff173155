package store

import (
	"database/sql"

	"github.com/ocrprov/engine/internal/errtax"
)

func (s *Store) InsertChunk(c *Chunk) error {
	_, err := s.db.Exec(`
		INSERT INTO chunks (
			id, ocr_result_id, text, text_hash, chunk_index, char_start, char_end,
			page_number, page_range, overlap_prev, overlap_next, heading_context,
			heading_level, section_path, content_type_tags, is_atomic,
			chunking_strategy, embedding_status, provenance_id, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.OCRResultID, c.Text, c.TextHash, c.ChunkIndex, c.CharStart, c.CharEnd,
		c.PageNumber, c.PageRange, c.OverlapPrev, c.OverlapNext, c.HeadingContext,
		c.HeadingLevel, c.SectionPath, c.ContentTypeTagsJSON, c.IsAtomic,
		c.ChunkingStrategy, c.EmbeddingStatus, c.ProvenanceID, c.CreatedAt.UTC(),
	)
	return liftFK(err, "chunks.ocr_result_id")
}

// InsertChunksBatch inserts all of chunks inside a single transaction.
func (s *Store) InsertChunksBatch(chunks []*Chunk) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errtax.New(errtax.CategoryInternal, "begin chunk batch insert", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO chunks (
			id, ocr_result_id, text, text_hash, chunk_index, char_start, char_end,
			page_number, page_range, overlap_prev, overlap_next, heading_context,
			heading_level, section_path, content_type_tags, is_atomic,
			chunking_strategy, embedding_status, provenance_id, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return errtax.New(errtax.CategoryInternal, "prepare chunk batch insert", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.Exec(
			c.ID, c.OCRResultID, c.Text, c.TextHash, c.ChunkIndex, c.CharStart, c.CharEnd,
			c.PageNumber, c.PageRange, c.OverlapPrev, c.OverlapNext, c.HeadingContext,
			c.HeadingLevel, c.SectionPath, c.ContentTypeTagsJSON, c.IsAtomic,
			c.ChunkingStrategy, c.EmbeddingStatus, c.ProvenanceID, c.CreatedAt.UTC(),
		); err != nil {
			return liftFK(err, "chunks.ocr_result_id")
		}
	}

	if err := tx.Commit(); err != nil {
		return errtax.New(errtax.CategoryInternal, "commit chunk batch insert", err)
	}
	return nil
}

func (s *Store) GetChunk(id string) (*Chunk, error) {
	row := s.db.QueryRow(`
		SELECT id, ocr_result_id, text, text_hash, chunk_index, char_start, char_end,
			page_number, page_range, overlap_prev, overlap_next, heading_context,
			heading_level, section_path, content_type_tags, is_atomic,
			chunking_strategy, embedding_status, provenance_id, created_at
		FROM chunks WHERE id = ?`, id)

	c, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "get chunk", err)
	}
	return c, nil
}

func scanChunk(row *sql.Row) (*Chunk, error) {
	var c Chunk
	err := row.Scan(
		&c.ID, &c.OCRResultID, &c.Text, &c.TextHash, &c.ChunkIndex, &c.CharStart, &c.CharEnd,
		&c.PageNumber, &c.PageRange, &c.OverlapPrev, &c.OverlapNext, &c.HeadingContext,
		&c.HeadingLevel, &c.SectionPath, &c.ContentTypeTagsJSON, &c.IsAtomic,
		&c.ChunkingStrategy, &c.EmbeddingStatus, &c.ProvenanceID, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListChunksByOCRResult(ocrResultID string) ([]*Chunk, error) {
	rows, err := s.db.Query(`
		SELECT id, ocr_result_id, text, text_hash, chunk_index, char_start, char_end,
			page_number, page_range, overlap_prev, overlap_next, heading_context,
			heading_level, section_path, content_type_tags, is_atomic,
			chunking_strategy, embedding_status, provenance_id, created_at
		FROM chunks WHERE ocr_result_id = ? ORDER BY chunk_index ASC`, ocrResultID)
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "list chunks", err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(
			&c.ID, &c.OCRResultID, &c.Text, &c.TextHash, &c.ChunkIndex, &c.CharStart, &c.CharEnd,
			&c.PageNumber, &c.PageRange, &c.OverlapPrev, &c.OverlapNext, &c.HeadingContext,
			&c.HeadingLevel, &c.SectionPath, &c.ContentTypeTagsJSON, &c.IsAtomic,
			&c.ChunkingStrategy, &c.EmbeddingStatus, &c.ProvenanceID, &c.CreatedAt,
		); err != nil {
			return nil, errtax.New(errtax.CategoryInternal, "scan chunk row", err)
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}
