package provenance

import (
	"database/sql"

	"github.com/ocrprov/engine/internal/errtax"
	"github.com/ocrprov/engine/internal/hashutil"
)

// NodeReport is the per-node result of a chain verification walk.
type NodeReport struct {
	ID                string
	Type              string
	ChainDepth        int
	Valid             bool
	ExpectedChainHash string
	StoredChainHash   string
}

// ChainReport is the result of verifying a full ancestor chain.
type ChainReport struct {
	Nodes         []NodeReport
	FirstBrokenID string
	ExpectedDepth *int
	ObservedDepth int
	DepthMismatch bool
}

// OK reports whether every node's recomputed chain hash matched its stored
// value and, when an expected depth was supplied, that it matched too.
func (r ChainReport) OK() bool {
	return r.FirstBrokenID == "" && !r.DepthMismatch
}

// VerifyChain walks id to the root, recomputing each node's chain_hash from
// its own content_hash and its parent's stored chain_hash, and reports
// every node individually so the caller can see exactly which link (if
// any) is broken. If expectedDepth is non-nil, the starting node's
// chain_depth is checked against it.
func (c *Chain) VerifyChain(id string, expectedDepth *int) (*ChainReport, error) {
	nodes, err := c.Ancestors(id)
	if err != nil {
		return nil, err
	}

	report := &ChainReport{ExpectedDepth: expectedDepth}
	if len(nodes) > 0 {
		report.ObservedDepth = nodes[0].ChainDepth
		if expectedDepth != nil && *expectedDepth != report.ObservedDepth {
			report.DepthMismatch = true
		}
	}

	// nodes are ordered id-first, root-last; parent's stored chain_hash is
	// simply the next entry's ChainHash (or "" once we're past the root).
	// A broken link also fails every descendant's recomputation, so
	// FirstBrokenID is the invalid node nearest the root.
	for i, n := range nodes {
		parentChainHash := ""
		if i+1 < len(nodes) {
			parentChainHash = nodes[i+1].ChainHash
		}
		expected := hashutil.ChainHash(n.ContentHash, parentChainHash)
		valid := expected == n.ChainHash
		report.Nodes = append(report.Nodes, NodeReport{
			ID:                n.ID,
			Type:              n.Type,
			ChainDepth:        n.ChainDepth,
			Valid:             valid,
			ExpectedChainHash: expected,
			StoredChainHash:   n.ChainHash,
		})
		if !valid {
			report.FirstBrokenID = n.ID
		}
	}

	return report, nil
}

// VerifyContentHash recomputes the content hash for the entity that record
// rec describes and compares it against rec.ContentHash. Which underlying
// row is read depends on rec.Type: DOCUMENT and IMAGE hash the referenced
// file's bytes; OCR_RESULT, CHUNK, VLM_DESCRIPTION, and EMBEDDING hash
// stored text/vector bytes; EXTRACTION and CLUSTERING hash stored JSON.
func (c *Chain) VerifyContentHash(rec *Record) (bool, string, error) {
	recomputed, err := c.recomputeContentHash(rec)
	if err != nil {
		return false, "", err
	}
	return recomputed == rec.ContentHash, recomputed, nil
}

func (c *Chain) recomputeContentHash(rec *Record) (string, error) {
	switch rec.Type {
	case TypeDocument:
		var path string
		if err := c.scanOne(`SELECT file_path FROM documents WHERE provenance_id = ?`, rec.ID, &path); err != nil {
			return "", err
		}
		hash, err := hashutil.FileHash(path)
		if err != nil {
			return "", errtax.New(errtax.CategoryIntegrityVerification, "hash document file", err)
		}
		return hash, nil

	case TypeOCRResult:
		var text string
		if err := c.scanOne(`SELECT extracted_text FROM ocr_results WHERE provenance_id = ?`, rec.ID, &text); err != nil {
			return "", err
		}
		return hashutil.ContentHashString(text), nil

	case TypeChunk:
		var text string
		if err := c.scanOne(`SELECT text FROM chunks WHERE provenance_id = ?`, rec.ID, &text); err != nil {
			return "", err
		}
		return hashutil.ContentHashString(text), nil

	case TypeImage:
		var path sql.NullString
		if err := c.scanOne(`SELECT extracted_file_path FROM images WHERE provenance_id = ?`, rec.ID, &path); err != nil {
			return "", err
		}
		if !path.Valid || path.String == "" {
			return "", errtax.New(errtax.CategoryIntegrityVerification, "image has no extracted file to hash", nil)
		}
		hash, err := hashutil.FileHash(path.String)
		if err != nil {
			return "", errtax.New(errtax.CategoryIntegrityVerification, "hash image file", err)
		}
		return hash, nil

	case TypeVLMDescription:
		var desc sql.NullString
		if err := c.scanOne(`SELECT vlm_description FROM images WHERE vlm_provenance_id = ?`, rec.ID, &desc); err != nil {
			return "", err
		}
		return hashutil.ContentHashString(desc.String), nil

	case TypeEmbedding:
		var vector []byte
		if err := c.scanOne(`SELECT vector FROM embeddings WHERE provenance_id = ?`, rec.ID, &vector); err != nil {
			return "", err
		}
		return hashutil.ContentHash(vector), nil

	case TypeExtraction:
		var json string
		if err := c.scanOne(`SELECT extraction_json FROM extractions WHERE provenance_id = ?`, rec.ID, &json); err != nil {
			return "", err
		}
		return hashutil.ContentHashString(json), nil

	case TypeClustering:
		var topTerms sql.NullString
		if err := c.scanOne(`SELECT top_terms FROM clusters WHERE provenance_id = ?`, rec.ID, &topTerms); err != nil {
			return "", err
		}
		return hashutil.ContentHashString(topTerms.String), nil

	default:
		return "", errtax.Newf(errtax.CategoryInternal, nil, "unknown provenance record type %q", rec.Type)
	}
}

func (c *Chain) scanOne(query, id string, dest any) error {
	err := c.db.QueryRow(query, id).Scan(dest)
	if err == sql.ErrNoRows {
		return errtax.New(errtax.CategoryIntegrityVerification, "no entity row references this provenance record", nil)
	}
	if err != nil {
		return errtax.New(errtax.CategoryInternal, "query entity for content-hash verification", err)
	}
	return nil
}
