package store

import (
	"database/sql"

	"github.com/ocrprov/engine/internal/errtax"
)

func (s *Store) InsertCluster(c *Cluster) error {
	_, err := s.db.Exec(`
		INSERT INTO clusters (id, name, algorithm, parameters, document_count, top_terms, content_hash, provenance_id, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		c.ID, c.Name, c.Algorithm, c.ParametersJSON, c.DocumentCount, c.TopTermsJSON, c.ContentHash, c.ProvenanceID, c.CreatedAt.UTC(),
	)
	return liftFK(err, "clusters.provenance_id")
}

func (s *Store) GetCluster(id string) (*Cluster, error) {
	row := s.db.QueryRow(`
		SELECT id, name, algorithm, parameters, document_count, top_terms, content_hash, provenance_id, created_at
		FROM clusters WHERE id = ?`, id)

	var c Cluster
	err := row.Scan(&c.ID, &c.Name, &c.Algorithm, &c.ParametersJSON, &c.DocumentCount, &c.TopTermsJSON, &c.ContentHash, &c.ProvenanceID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "get cluster", err)
	}
	return &c, nil
}

// AddDocumentToCluster associates documentID with clusterID and increments
// the cluster's document_count.
func (s *Store) AddDocumentToCluster(clusterID, documentID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errtax.New(errtax.CategoryInternal, "begin add document to cluster", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT OR IGNORE INTO cluster_documents (cluster_id, document_id) VALUES (?, ?)`, clusterID, documentID); err != nil {
		return liftFK(err, "cluster_documents")
	}
	if _, err := tx.Exec(`UPDATE clusters SET document_count = document_count + 1 WHERE id = ?`, clusterID); err != nil {
		return errtax.New(errtax.CategoryInternal, "increment cluster document count", err)
	}

	if err := tx.Commit(); err != nil {
		return errtax.New(errtax.CategoryInternal, "commit add document to cluster", err)
	}
	return nil
}

// ClustersReferencingDocument returns the cluster IDs that a document
// belongs to, used by cascade delete to decrement document_count.
func ClustersReferencingDocument(tx *sql.Tx, documentID string) ([]string, error) {
	rows, err := tx.Query(`SELECT cluster_id FROM cluster_documents WHERE document_id = ?`, documentID)
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "query clusters referencing document", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errtax.New(errtax.CategoryInternal, "scan cluster id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
