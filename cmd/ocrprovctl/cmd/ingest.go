package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ocrprov/engine/internal/config"
	"github.com/ocrprov/engine/internal/hashutil"
	"github.com/ocrprov/engine/internal/pathsandbox"
	"github.com/ocrprov/engine/internal/provenance"
	"github.com/ocrprov/engine/internal/store"
)

func newIngestDocCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "ingest-doc <file-path>",
		Short: "Register a source file as a pending document, seeding its provenance root",
		Long: `ingest-doc computes the file's content hash, inserts the root
DOCUMENT provenance record, and inserts the documents row referencing it
with status "pending". It does not run OCR or any downstream processing;
that is driven by the engine's own request handlers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return fmt.Errorf("ingest-doc: --db is required")
			}
			return runIngestDoc(cmd, args[0], dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to the database file")
	return cmd
}

func runIngestDoc(cmd *cobra.Command, filePath, dbPath string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("ingest-doc: load config: %w", err)
	}

	if len(cfg.Storage.AllowedDirs) > 0 {
		os.Setenv(pathsandbox.AllowedDirsEnv, strings.Join(cfg.Storage.AllowedDirs, ","))
		defer os.Unsetenv(pathsandbox.AllowedDirsEnv)
	}
	sandbox, err := pathsandbox.New(cfg.Storage.Root)
	if err != nil {
		return fmt.Errorf("ingest-doc: %w", err)
	}
	filePath, err = sandbox.Validate(filePath)
	if err != nil {
		return fmt.Errorf("ingest-doc: %w", err)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("ingest-doc: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("ingest-doc: %s is a directory", filePath)
	}

	fileHash, err := hashutil.FileHash(filePath)
	if err != nil {
		return fmt.Errorf("ingest-doc: hash file: %w", err)
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("ingest-doc: %w", err)
	}
	defer s.Close()

	tx, err := s.DB().Begin()
	if err != nil {
		return fmt.Errorf("ingest-doc: %w", err)
	}
	defer tx.Rollback()

	rec, err := s.Chain().Insert(tx, provenance.InsertParams{
		Type:        provenance.TypeDocument,
		ContentHash: fileHash,
	})
	if err != nil {
		return fmt.Errorf("ingest-doc: insert provenance record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ingest-doc: %w", err)
	}

	now := time.Now().UTC()
	doc := &store.Document{
		ID:           uuid.NewString(),
		FilePath:     filePath,
		FileName:     filepath.Base(filePath),
		FileHash:     fileHash,
		FileSize:     info.Size(),
		FileType:     filepath.Ext(filePath),
		Status:       store.DocumentStatusPending,
		ProvenanceID: rec.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.InsertDocument(doc); err != nil {
		return fmt.Errorf("ingest-doc: insert document: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "document %s registered (provenance %s)\n", doc.ID, rec.ID)
	return nil
}
