// Package provenance maintains the tamper-evident lineage DAG: every
// derived artifact (an OCR result, a chunk, an embedding, ...) carries a
// provenance record linking it back to its parent by content hash.
package provenance

import (
	"database/sql"
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/google/uuid"
	"github.com/ocrprov/engine/internal/errtax"
	"github.com/ocrprov/engine/internal/hashutil"
)

// Provenance record types, per the fixed DAG vocabulary.
const (
	TypeDocument       = "DOCUMENT"
	TypeOCRResult      = "OCR_RESULT"
	TypeChunk          = "CHUNK"
	TypeImage          = "IMAGE"
	TypeVLMDescription = "VLM_DESCRIPTION"
	TypeEmbedding      = "EMBEDDING"
	TypeExtraction     = "EXTRACTION"
	TypeClustering     = "CLUSTERING"
)

// Record is one node of the lineage DAG.
type Record struct {
	ID                   string
	Type                 string
	SourceType           *string
	SourceID             *string
	RootDocumentID       *string
	ContentHash          string
	InputHash            *string
	Processor            *string
	ProcessorVersion     *string
	ProcessingParamsJSON *string
	DurationMS           *int64
	QualityScore         *float64
	ParentID             *string
	ParentIDs            []string
	ChainDepth           int
	ChainPath            []string
	ChainHash            string
	CreatedAt            time.Time
}

// InsertParams is everything the caller supplies; depth, parent_ids,
// chain_path, and chain_hash are derived.
type InsertParams struct {
	Type                 string
	SourceType           *string
	SourceID             *string
	ParentID             *string
	ContentHash          string
	InputHash            *string
	Processor            *string
	ProcessorVersion     *string
	ProcessingParamsJSON *string
	DurationMS           *int64
	QualityScore         *float64
}

// Chain wires the provenance table to an LRU cache that records each
// record's chain hash as it is inserted or read. Get and Ancestors always
// query the table; they do not consult the cache.
type Chain struct {
	db    *sql.DB
	cache *lru.Cache[string, string]
}

// New builds a Chain over db, with an LRU of capacity entries for
// recorded chain hashes.
func New(db *sql.DB, capacity int) (*Chain, error) {
	if capacity <= 0 {
		capacity = 4096
	}
	cache, err := lru.New[string, string](capacity)
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "create provenance chain-hash cache", err)
	}
	return &Chain{db: db, cache: cache}, nil
}

// Invalidate drops id's memoized chain hash. Callers that delete or
// re-parent a provenance record must invalidate it.
func (c *Chain) Invalidate(id string) {
	c.cache.Remove(id)
}

// Insert derives depth/parent_ids/chain_path/chain_hash from p and writes
// the new record inside tx.
func (c *Chain) Insert(tx *sql.Tx, p InsertParams) (*Record, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	rec := &Record{
		ID:                   id,
		Type:                 p.Type,
		SourceType:           p.SourceType,
		SourceID:             p.SourceID,
		ContentHash:          p.ContentHash,
		InputHash:            p.InputHash,
		Processor:            p.Processor,
		ProcessorVersion:     p.ProcessorVersion,
		ProcessingParamsJSON: p.ProcessingParamsJSON,
		DurationMS:           p.DurationMS,
		QualityScore:         p.QualityScore,
		ParentID:             p.ParentID,
		CreatedAt:            now,
	}

	if p.ParentID == nil {
		rec.ChainDepth = 0
		rec.ParentIDs = []string{}
		rec.ChainPath = []string{}
		rec.ChainHash = hashutil.ChainHash(p.ContentHash, "")
		rec.RootDocumentID = &id
	} else {
		parent, err := c.getTx(tx, *p.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, errtax.New(errtax.CategoryProvenanceNotFound, "parent provenance record not found", nil)
		}
		rec.ChainDepth = parent.ChainDepth + 1
		rec.ParentIDs = append(append([]string{}, parent.ParentIDs...), *p.ParentID)
		rec.ChainPath = append(append([]string{}, parent.ChainPath...), parent.Type)
		rec.ChainHash = hashutil.ChainHash(p.ContentHash, parent.ChainHash)
		root := parent.RootDocumentID
		if root == nil {
			root = &parent.ID
		}
		rec.RootDocumentID = root
	}

	parentIDsJSON, _ := json.Marshal(rec.ParentIDs)
	chainPathJSON, _ := json.Marshal(rec.ChainPath)

	_, err := tx.Exec(`INSERT INTO provenance_records (
		id, type, source_type, source_id, root_document_id, content_hash, input_hash,
		processor, processor_version, processing_params, duration_ms, quality_score,
		parent_id, parent_ids, chain_depth, chain_path, chain_hash, created_at
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Type, rec.SourceType, rec.SourceID, rec.RootDocumentID, rec.ContentHash, rec.InputHash,
		rec.Processor, rec.ProcessorVersion, rec.ProcessingParamsJSON, rec.DurationMS, rec.QualityScore,
		rec.ParentID, string(parentIDsJSON), rec.ChainDepth, string(chainPathJSON), rec.ChainHash, rec.CreatedAt,
	)
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "insert provenance record", err)
	}

	c.cache.Add(rec.ID, rec.ChainHash)
	return rec, nil
}

// Get returns the provenance record with id, or nil if it doesn't exist.
func (c *Chain) Get(id string) (*Record, error) {
	return c.get(c.db, id)
}

func (c *Chain) getTx(tx *sql.Tx, id string) (*Record, error) {
	return c.get(tx, id)
}

type queryRower interface {
	QueryRow(query string, args ...any) *sql.Row
}

func (c *Chain) get(q queryRower, id string) (*Record, error) {
	row := q.QueryRow(`
		SELECT id, type, source_type, source_id, root_document_id, content_hash, input_hash,
			processor, processor_version, processing_params, duration_ms, quality_score,
			parent_id, parent_ids, chain_depth, chain_path, chain_hash, created_at
		FROM provenance_records WHERE id = ?`, id)

	var rec Record
	var parentIDsJSON, chainPathJSON string
	err := row.Scan(
		&rec.ID, &rec.Type, &rec.SourceType, &rec.SourceID, &rec.RootDocumentID, &rec.ContentHash, &rec.InputHash,
		&rec.Processor, &rec.ProcessorVersion, &rec.ProcessingParamsJSON, &rec.DurationMS, &rec.QualityScore,
		&rec.ParentID, &parentIDsJSON, &rec.ChainDepth, &chainPathJSON, &rec.ChainHash, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "get provenance record", err)
	}

	_ = json.Unmarshal([]byte(parentIDsJSON), &rec.ParentIDs)
	_ = json.Unmarshal([]byte(chainPathJSON), &rec.ChainPath)
	c.cache.Add(rec.ID, rec.ChainHash)
	return &rec, nil
}

// Ancestors walks from id to the root, returning the chain in that order
// (id first, root last).
func (c *Chain) Ancestors(id string) ([]*Record, error) {
	var out []*Record
	cur := id
	for {
		rec, err := c.Get(cur)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, errtax.New(errtax.CategoryProvenanceNotFound, "provenance record not found: "+cur, nil)
		}
		out = append(out, rec)
		if rec.ParentID == nil {
			return out, nil
		}
		cur = *rec.ParentID
	}
}
