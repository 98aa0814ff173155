package store

import (
	"database/sql"
	"encoding/binary"
	"math"

	"github.com/ocrprov/engine/internal/errtax"
)

// InsertEmbedding inserts the embedding row and its mirror row in vector_ann
// (the ANN store's SQL-resident source of truth) inside one transaction.
func (s *Store) InsertEmbedding(e *Embedding) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errtax.New(errtax.CategoryInternal, "begin embedding insert", err)
	}
	defer tx.Rollback()

	vectorBlob := encodeVector(e.Vector)

	_, err = tx.Exec(`
		INSERT INTO embeddings (
			id, chunk_id, image_id, extraction_id, vector, dimension, model_name,
			model_version, task_type, inference_mode, source_file_metadata,
			content_hash, provenance_id, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.ChunkID, e.ImageID, e.ExtractionID, vectorBlob, e.Dimension, e.ModelName,
		e.ModelVersion, e.TaskType, e.InferenceMode, e.SourceFileMetadata,
		e.ContentHash, e.ProvenanceID, e.CreatedAt.UTC(),
	)
	if err != nil {
		return liftFK(err, "embeddings.{chunk_id,image_id,extraction_id}")
	}

	if _, err := tx.Exec(`INSERT INTO vector_ann (embedding_id, vector, dimension) VALUES (?,?,?)`,
		e.ID, vectorBlob, e.Dimension); err != nil {
		return errtax.New(errtax.CategoryInternal, "insert vector_ann row", err)
	}

	if err := tx.Commit(); err != nil {
		return errtax.New(errtax.CategoryInternal, "commit embedding insert", err)
	}
	return nil
}

func (s *Store) GetEmbedding(id string) (*Embedding, error) {
	row := s.db.QueryRow(`
		SELECT id, chunk_id, image_id, extraction_id, vector, dimension, model_name,
			model_version, task_type, inference_mode, source_file_metadata,
			content_hash, provenance_id, created_at
		FROM embeddings WHERE id = ?`, id)

	var e Embedding
	var vectorBlob []byte
	err := row.Scan(
		&e.ID, &e.ChunkID, &e.ImageID, &e.ExtractionID, &vectorBlob, &e.Dimension, &e.ModelName,
		&e.ModelVersion, &e.TaskType, &e.InferenceMode, &e.SourceFileMetadata,
		&e.ContentHash, &e.ProvenanceID, &e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "get embedding", err)
	}
	e.Vector = decodeVector(vectorBlob, e.Dimension)
	return &e, nil
}

// encodeVector packs a []float32 as a little-endian byte blob.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte, dimension int) []float32 {
	out := make([]float32, dimension)
	for i := range out {
		if (i+1)*4 > len(buf) {
			break
		}
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}
