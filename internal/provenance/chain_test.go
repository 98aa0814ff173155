package provenance

import (
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ocrprov/engine/internal/hashutil"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE provenance_records (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		source_type TEXT,
		source_id TEXT,
		root_document_id TEXT,
		content_hash TEXT NOT NULL,
		input_hash TEXT,
		processor TEXT,
		processor_version TEXT,
		processing_params TEXT,
		duration_ms INTEGER,
		quality_score REAL,
		parent_id TEXT,
		parent_ids TEXT NOT NULL DEFAULT '[]',
		chain_depth INTEGER NOT NULL,
		chain_path TEXT NOT NULL DEFAULT '[]',
		chain_hash TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`)
	require.NoError(t, err)

	_, err = db.Exec(`CREATE TABLE documents (id TEXT PRIMARY KEY, file_path TEXT, provenance_id TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE ocr_results (id TEXT PRIMARY KEY, extracted_text TEXT, provenance_id TEXT)`)
	require.NoError(t, err)

	return db
}

func TestInsert_RootRecordHasDepthZeroAndNullParent(t *testing.T) {
	db := openTestDB(t)
	chain, err := New(db, 16)
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)

	rec, err := chain.Insert(tx, InsertParams{
		Type:        TypeDocument,
		ContentHash: "sha256:9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.Equal(t, 0, rec.ChainDepth)
	require.Nil(t, rec.ParentID)
	require.Equal(t, rec.ID, *rec.RootDocumentID)
	require.Empty(t, rec.ParentIDs)
	require.Empty(t, rec.ChainPath)
}

func TestInsert_ChildDerivesDepthAndChainHash(t *testing.T) {
	db := openTestDB(t)
	chain, err := New(db, 16)
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	root, err := chain.Insert(tx, InsertParams{Type: TypeDocument, ContentHash: "sha256:aaa"})
	require.NoError(t, err)

	child, err := chain.Insert(tx, InsertParams{
		Type:        TypeOCRResult,
		ParentID:    &root.ID,
		ContentHash: "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.Equal(t, 1, child.ChainDepth)
	require.Equal(t, []string{root.ID}, child.ParentIDs)
	require.Equal(t, []string{TypeDocument}, child.ChainPath)
	require.Equal(t, root.ID, *child.RootDocumentID)

	// chain_hash = SHA-256(own content hash || "|" || parent chain hash)
	recomputed := hashutil.ChainHash(child.ContentHash, root.ChainHash)
	require.Equal(t, recomputed, child.ChainHash)
	require.NotEqual(t, root.ChainHash, child.ChainHash)
}

func TestAncestors_WalksToRoot(t *testing.T) {
	db := openTestDB(t)
	chain, err := New(db, 16)
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	root, err := chain.Insert(tx, InsertParams{Type: TypeDocument, ContentHash: "sha256:aaa"})
	require.NoError(t, err)
	ocr, err := chain.Insert(tx, InsertParams{Type: TypeOCRResult, ParentID: &root.ID, ContentHash: "sha256:bbb"})
	require.NoError(t, err)
	leafParent := ocr.ID
	leaf, err := chain.Insert(tx, InsertParams{Type: TypeChunk, ParentID: &leafParent, ContentHash: "sha256:ccc"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	nodes, err := chain.Ancestors(leaf.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	require.Equal(t, leaf.ID, nodes[0].ID)
	require.Equal(t, ocr.ID, nodes[1].ID)
	require.Equal(t, root.ID, nodes[2].ID)
}

func TestVerifyChain_DetectsTamperedLink(t *testing.T) {
	db := openTestDB(t)
	chain, err := New(db, 16)
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	root, err := chain.Insert(tx, InsertParams{Type: TypeDocument, ContentHash: "sha256:aaa"})
	require.NoError(t, err)
	child, err := chain.Insert(tx, InsertParams{Type: TypeOCRResult, ParentID: &root.ID, ContentHash: "sha256:bbb"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	report, err := chain.VerifyChain(child.ID, nil)
	require.NoError(t, err)
	require.True(t, report.OK())

	_, err = db.Exec(`UPDATE provenance_records SET chain_hash = 'sha256:tampered' WHERE id = ?`, root.ID)
	require.NoError(t, err)
	chain.Invalidate(root.ID)

	report, err = chain.VerifyChain(child.ID, nil)
	require.NoError(t, err)
	require.False(t, report.OK())
	require.Equal(t, root.ID, report.FirstBrokenID)
}

func TestVerifyChain_ExpectedDepthMismatch(t *testing.T) {
	db := openTestDB(t)
	chain, err := New(db, 16)
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	root, err := chain.Insert(tx, InsertParams{Type: TypeDocument, ContentHash: "sha256:aaa"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	bad := 4
	report, err := chain.VerifyChain(root.ID, &bad)
	require.NoError(t, err)
	require.True(t, report.DepthMismatch)
	require.False(t, report.OK())
}

func TestVerifyContentHash_DocumentMatchesStoredFile(t *testing.T) {
	db := openTestDB(t)
	chain, err := New(db, 16)
	require.NoError(t, err)

	tmp := t.TempDir() + "/a.pdf"
	require.NoError(t, os.WriteFile(tmp, []byte("test"), 0o644))

	tx, err := db.Begin()
	require.NoError(t, err)
	rec, err := chain.Insert(tx, InsertParams{
		Type:        TypeDocument,
		ContentHash: "sha256:9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
	})
	require.NoError(t, err)
	_, err = tx.Exec(`INSERT INTO documents (id, file_path, provenance_id) VALUES (?, ?, ?)`, "doc1", tmp, rec.ID)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	ok, recomputed, err := chain.VerifyContentHash(rec)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec.ContentHash, recomputed)
}
