package store

import (
	"database/sql"

	"github.com/ocrprov/engine/internal/errtax"
)

func (s *Store) InsertTag(t *Tag) error {
	_, err := s.db.Exec(`INSERT INTO tags (id, name, color, description, created_at) VALUES (?,?,?,?,?)`,
		t.ID, t.Name, t.Color, t.Description, t.CreatedAt.UTC())
	if err != nil {
		return errtax.New(errtax.CategoryValidation, "tag name must be unique", err)
	}
	return nil
}

func (s *Store) GetTag(id string) (*Tag, error) {
	row := s.db.QueryRow(`SELECT id, name, color, description, created_at FROM tags WHERE id = ?`, id)

	var t Tag
	err := row.Scan(&t.ID, &t.Name, &t.Color, &t.Description, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "get tag", err)
	}
	return &t, nil
}

// TagEntity attaches tagID to (entityID, entityType). entityType must be one
// of the EntityType* constants; the table's CHECK constraint enforces this
// at the database level too.
func (s *Store) TagEntity(tagID, entityID, entityType string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO entity_tags (tag_id, entity_id, entity_type) VALUES (?,?,?)`,
		tagID, entityID, entityType)
	if err != nil {
		return liftFK(err, "entity_tags.tag_id")
	}
	return nil
}

// ListTagsForEntity returns every tag attached to (entityID, entityType).
func (s *Store) ListTagsForEntity(entityID, entityType string) ([]*Tag, error) {
	rows, err := s.db.Query(`
		SELECT t.id, t.name, t.color, t.description, t.created_at
		FROM tags t
		JOIN entity_tags et ON et.tag_id = t.id
		WHERE et.entity_id = ? AND et.entity_type = ?`, entityID, entityType)
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "list tags for entity", err)
	}
	defer rows.Close()

	var tags []*Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.Description, &t.CreatedAt); err != nil {
			return nil, errtax.New(errtax.CategoryInternal, "scan tag row", err)
		}
		tags = append(tags, &t)
	}
	return tags, rows.Err()
}

// deleteEntityTags deletes every entity_tags row for (entityID, entityType)
// inside tx. Used by the cascade-delete engine, which must hand-dispatch
// this call once per entity kind since entity_id is not a declared FK.
func deleteEntityTags(tx *sql.Tx, entityID, entityType string) error {
	_, err := tx.Exec(`DELETE FROM entity_tags WHERE entity_id = ? AND entity_type = ?`, entityID, entityType)
	if err != nil {
		return errtax.New(errtax.CategoryInternal, "delete entity tags", err)
	}
	return nil
}
