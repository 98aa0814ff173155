package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ocrprov/engine/internal/errtax"
)

// InsertDocument inserts a single document row.
func (s *Store) InsertDocument(d *Document) error {
	_, err := s.db.Exec(`
		INSERT INTO documents (
			id, file_path, file_name, file_hash, file_size, file_type, status,
			page_count, doc_title, doc_author, doc_subject, error_message,
			provenance_id, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.FilePath, d.FileName, d.FileHash, d.FileSize, d.FileType, d.Status,
		d.PageCount, d.DocTitle, d.DocAuthor, d.DocSubject, d.ErrorMessage,
		d.ProvenanceID, d.CreatedAt.UTC(), d.UpdatedAt.UTC(),
	)
	return liftFK(err, "documents.provenance_id")
}

// InsertDocumentsBatch inserts all of docs inside a single transaction.
func (s *Store) InsertDocumentsBatch(docs []*Document) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errtax.New(errtax.CategoryInternal, "begin batch insert", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO documents (
			id, file_path, file_name, file_hash, file_size, file_type, status,
			page_count, doc_title, doc_author, doc_subject, error_message,
			provenance_id, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return errtax.New(errtax.CategoryInternal, "prepare batch insert", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		if _, err := stmt.Exec(
			d.ID, d.FilePath, d.FileName, d.FileHash, d.FileSize, d.FileType, d.Status,
			d.PageCount, d.DocTitle, d.DocAuthor, d.DocSubject, d.ErrorMessage,
			d.ProvenanceID, d.CreatedAt.UTC(), d.UpdatedAt.UTC(),
		); err != nil {
			return liftFK(err, "documents.provenance_id")
		}
	}

	if err := tx.Commit(); err != nil {
		return errtax.New(errtax.CategoryInternal, "commit batch insert", err)
	}
	return nil
}

// GetDocument returns the document with id, or nil if it doesn't exist.
func (s *Store) GetDocument(id string) (*Document, error) {
	row := s.db.QueryRow(`
		SELECT id, file_path, file_name, file_hash, file_size, file_type, status,
			page_count, doc_title, doc_author, doc_subject, error_message,
			provenance_id, created_at, updated_at
		FROM documents WHERE id = ?`, id)

	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "get document", err)
	}
	return d, nil
}

func scanDocument(row *sql.Row) (*Document, error) {
	var d Document
	err := row.Scan(
		&d.ID, &d.FilePath, &d.FileName, &d.FileHash, &d.FileSize, &d.FileType, &d.Status,
		&d.PageCount, &d.DocTitle, &d.DocAuthor, &d.DocSubject, &d.ErrorMessage,
		&d.ProvenanceID, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDocuments returns documents matching filter, plus the cursor to pass
// for the next page (empty when there are no more results). When
// filter.Cursor is set it is used as a keyset predicate in preference to
// filter.Offset.
func (s *Store) ListDocuments(filter ListFilter) ([]*Document, string, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var conditions []string
	var args []any

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.FileType != "" {
		conditions = append(conditions, "file_type = ?")
		args = append(args, filter.FileType)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, filter.DateTo.UTC())
	}

	useCursor := filter.Cursor != nil
	if useCursor {
		conditions = append(conditions, "(created_at, id) > (?, ?)")
		args = append(args, filter.Cursor.CreatedAt.UTC(), filter.Cursor.ID)
	}

	query := `SELECT id, file_path, file_name, file_hash, file_size, file_type, status,
		page_count, doc_title, doc_author, doc_subject, error_message,
		provenance_id, created_at, updated_at FROM documents`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC LIMIT ?"
	args = append(args, limit+1)

	if !useCursor && filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, "", errtax.New(errtax.CategoryInternal, "list documents", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(
			&d.ID, &d.FilePath, &d.FileName, &d.FileHash, &d.FileSize, &d.FileType, &d.Status,
			&d.PageCount, &d.DocTitle, &d.DocAuthor, &d.DocSubject, &d.ErrorMessage,
			&d.ProvenanceID, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, "", errtax.New(errtax.CategoryInternal, "scan document row", err)
		}
		docs = append(docs, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, "", errtax.New(errtax.CategoryInternal, "iterate document rows", err)
	}

	var nextCursor string
	if len(docs) > limit {
		last := docs[limit-1]
		nextCursor = EncodeCursor(last.CreatedAt, last.ID)
		docs = docs[:limit]
	}

	return docs, nextCursor, nil
}

// UpdateDocumentStatus transitions a document's status (and optionally
// records an error message) and bumps updated_at.
func (s *Store) UpdateDocumentStatus(id, status string, errMessage *string) error {
	res, err := s.db.Exec(`UPDATE documents SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status, errMessage, time.Now().UTC(), id)
	if err != nil {
		return errtax.New(errtax.CategoryInternal, "update document status", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errtax.New(errtax.CategoryDocumentNotFound, fmt.Sprintf("document %s not found", id), nil)
	}
	return nil
}

// DeleteDocument runs the full cascade-delete operation for document id.
func (s *Store) DeleteDocument(id string) error {
	return s.cascadeDeleteDocument(id)
}
