package search

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

// indexDef describes one FTS5 index's base table, FTS virtual table, the
// triggers that must exist for it to stay synchronized, and the rebuild
// statement that repopulates it from scratch.
type indexDef struct {
	baseCountQuery string
	ftsCountQuery  string
	triggerNames   []string
	rebuildDelete  string
	rebuildInsert  string
	hashQuery      string // SELECT id, hash_source ... ORDER BY id
}

var indexDefs = map[Kind]indexDef{
	KindChunks: {
		baseCountQuery: `SELECT COUNT(*) FROM chunks`,
		ftsCountQuery:  `SELECT COUNT(*) FROM fts_chunks`,
		triggerNames:   []string{"trg_fts_chunks_ai", "trg_fts_chunks_ad", "trg_fts_chunks_au"},
		rebuildDelete:  `DELETE FROM fts_chunks`,
		rebuildInsert:  `INSERT INTO fts_chunks (chunk_id, text) SELECT id, text FROM chunks`,
		hashQuery:      `SELECT id, text_hash FROM chunks ORDER BY id`,
	},
	KindVLM: {
		baseCountQuery: `SELECT COUNT(*) FROM images WHERE vlm_description IS NOT NULL`,
		ftsCountQuery:  `SELECT COUNT(*) FROM fts_vlm`,
		triggerNames:   []string{"trg_fts_vlm_ai", "trg_fts_vlm_ad", "trg_fts_vlm_au"},
		rebuildDelete:  `DELETE FROM fts_vlm`,
		rebuildInsert:  `INSERT INTO fts_vlm (image_id, description) SELECT id, vlm_description FROM images WHERE vlm_description IS NOT NULL`,
		hashQuery:      `SELECT id, content_hash FROM images WHERE vlm_description IS NOT NULL ORDER BY id`,
	},
	KindExtractions: {
		baseCountQuery: `SELECT COUNT(*) FROM extractions`,
		ftsCountQuery:  `SELECT COUNT(*) FROM fts_extractions`,
		triggerNames:   []string{"trg_fts_extractions_ai", "trg_fts_extractions_ad", "trg_fts_extractions_au"},
		rebuildDelete:  `DELETE FROM fts_extractions`,
		rebuildInsert:  `INSERT INTO fts_extractions (extraction_id, content) SELECT id, extraction_json FROM extractions`,
		hashQuery:      `SELECT id, content_hash FROM extractions ORDER BY id`,
	},
	KindDocuments: {
		baseCountQuery: `SELECT COUNT(*) FROM documents`,
		ftsCountQuery:  `SELECT COUNT(*) FROM fts_documents`,
		triggerNames:   []string{"trg_fts_documents_ai", "trg_fts_documents_ad", "trg_fts_documents_au"},
		rebuildDelete:  `DELETE FROM fts_documents`,
		rebuildInsert: `INSERT INTO fts_documents (document_id, title, author, subject, file_name)
			SELECT id, doc_title, doc_author, doc_subject, file_name FROM documents`,
		hashQuery: `SELECT id, file_hash FROM documents ORDER BY id`,
	},
}

// IndexStatus reports an FTS index's health.
type IndexStatus struct {
	Kind            Kind
	BaseCount       int
	FTSCount        int
	TriggersPresent bool
	LastRebuiltAt   *time.Time
	ContentHash     string
	Stale           bool
}

// Status reports kind's current health: base/FTS row counts, whether all
// of its sync triggers exist, its last rebuild time (if ever rebuilt via
// Rebuild), and a streamed content hash over its rows in id order.
// Staleness is trigger-missing OR a base/FTS count divergence exceeding
// 10% of the base count.
func Status(db *sql.DB, kind Kind) (*IndexStatus, error) {
	def, ok := indexDefs[kind]
	if !ok {
		return nil, fmt.Errorf("unknown search kind %q", kind)
	}

	status := &IndexStatus{Kind: kind}

	if err := db.QueryRow(def.baseCountQuery).Scan(&status.BaseCount); err != nil {
		return nil, fmt.Errorf("count base table (%s): %w", kind, err)
	}
	if err := db.QueryRow(def.ftsCountQuery).Scan(&status.FTSCount); err != nil {
		return nil, fmt.Errorf("count fts table (%s): %w", kind, err)
	}

	present, err := triggersPresent(db, def.triggerNames)
	if err != nil {
		return nil, err
	}
	status.TriggersPresent = present

	hash, err := contentHash(db, def.hashQuery)
	if err != nil {
		return nil, err
	}
	status.ContentHash = hash

	lastRebuilt, err := lastRebuiltAt(db, string(kind))
	if err != nil {
		return nil, err
	}
	status.LastRebuiltAt = lastRebuilt

	status.Stale = !present || countDivergent(status.BaseCount, status.FTSCount)

	return status, nil
}

func countDivergent(base, fts int) bool {
	if base == 0 {
		return fts != 0
	}
	diff := base - fts
	if diff < 0 {
		diff = -diff
	}
	return float64(diff)/float64(base) > 0.10
}

func triggersPresent(db *sql.DB, names []string) (bool, error) {
	for _, name := range names {
		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='trigger' AND name=?`, name).Scan(&count); err != nil {
			return false, fmt.Errorf("check trigger %q: %w", name, err)
		}
		if count == 0 {
			return false, nil
		}
	}
	return true, nil
}

// contentHash streams "id:hash\n" pairs (in id order, per hashQuery) through
// SHA-256 without materializing the full result set.
func contentHash(db *sql.DB, hashQuery string) (string, error) {
	rows, err := db.Query(hashQuery)
	if err != nil {
		return "", fmt.Errorf("stream content hash rows: %w", err)
	}
	defer rows.Close()

	h := sha256.New()
	for rows.Next() {
		var id string
		var value *string
		if err := rows.Scan(&id, &value); err != nil {
			return "", fmt.Errorf("scan content hash row: %w", err)
		}
		v := ""
		if value != nil {
			v = *value
		}
		fmt.Fprintf(h, "%s:%s\n", id, v)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate content hash rows: %w", err)
	}

	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}

func lastRebuiltAt(db *sql.DB, indexName string) (*time.Time, error) {
	var raw sql.NullString
	err := db.QueryRow(`SELECT last_rebuilt_at FROM index_rebuilds WHERE index_name = ?`, indexName).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read last rebuild time: %w", err)
	}
	if !raw.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw.String)
	if err != nil {
		return nil, fmt.Errorf("parse last rebuild time: %w", err)
	}
	return &t, nil
}

// Rebuild repopulates kind's FTS index from its base table inside a single
// transaction: delete-all followed by a fresh INSERT...SELECT. The caller
// supplies now so the function never calls time.Now() itself (schedulers
// pass a single timestamp through a whole batch of index rebuilds for a
// consistent last_rebuilt_at).
func Rebuild(db *sql.DB, kind Kind, now time.Time) error {
	def, ok := indexDefs[kind]
	if !ok {
		return fmt.Errorf("unknown search kind %q", kind)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin rebuild (%s): %w", kind, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(def.rebuildDelete); err != nil {
		return fmt.Errorf("clear fts index (%s): %w", kind, err)
	}
	if _, err := tx.Exec(def.rebuildInsert); err != nil {
		return fmt.Errorf("repopulate fts index (%s): %w", kind, err)
	}
	if _, err := tx.Exec(`INSERT INTO index_rebuilds (index_name, last_rebuilt_at) VALUES (?, ?)
		ON CONFLICT(index_name) DO UPDATE SET last_rebuilt_at = excluded.last_rebuilt_at`,
		string(kind), now.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record rebuild timestamp (%s): %w", kind, err)
	}

	return tx.Commit()
}

// RebuildVLMVectorIndex resyncs the subset of vector_ann belonging to
// VLM (image-derived) embeddings. A plain "copy every embedding" rebuild
// would pull chunk and extraction vectors into what is conceptually the
// VLM index, since vector_ann is a single table shared by every embedding
// kind; this explicitly scopes both the delete and the reinsert to rows
// whose owning embedding has a non-null image_id.
func RebuildVLMVectorIndex(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin vlm vector rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM vector_ann
		WHERE embedding_id IN (SELECT id FROM embeddings WHERE image_id IS NOT NULL)`); err != nil {
		return fmt.Errorf("clear vlm vector rows: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO vector_ann (embedding_id, vector, dimension)
		SELECT id, vector, dimension FROM embeddings WHERE image_id IS NOT NULL`); err != nil {
		return fmt.Errorf("repopulate vlm vector rows: %w", err)
	}

	return tx.Commit()
}
