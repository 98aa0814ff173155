package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ocrprov/engine/internal/config"
	"github.com/ocrprov/engine/internal/search"
	"github.com/ocrprov/engine/internal/store"
)

func newSearchCmd() *cobra.Command {
	var (
		kind   string
		limit  int
		phrase bool
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a hybrid BM25+vector search against a database",
		Long: `search runs the BM25 leg of hybrid search against the requested FTS
index, rebuilds the in-memory vector index from vector_ann, and fuses both
legs with reciprocal rank fusion using the configured weights.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return fmt.Errorf("search: --db is required")
			}
			return runSearch(cmd, args[0], dbPath, search.Kind(kind), limit, phrase)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to the database file")
	cmd.Flags().StringVar(&kind, "kind", string(search.KindChunks), "index to search: chunks, vlm, extractions, documents")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results")
	cmd.Flags().BoolVar(&phrase, "phrase", false, "treat the query as an exact phrase")

	return cmd
}

func runSearch(cmd *cobra.Command, rawQuery, dbPath string, kind search.Kind, limit int, phrase bool) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	defer s.Close()

	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("search: load config: %w", err)
	}
	if limit <= 0 || limit > cfg.Search.MaxResults {
		limit = cfg.Search.MaxResults
	}

	dimension := cfg.Embed.Dimension
	if dimension <= 0 {
		dimension = 768
	}
	idx, err := search.RebuildVectorIndex(s.DB(), dimension)
	if err != nil {
		return fmt.Errorf("search: rebuild vector index: %w", err)
	}

	results, err := search.HybridSearch(s.DB(), idx, search.HybridQuery{
		RawQuery: rawQuery,
		Phrase:   phrase,
		Kind:     kind,
		Limit:    limit,
		Weights: search.Weights{
			BM25:     cfg.Search.BM25Weight,
			Semantic: cfg.Search.SemanticWeight,
		},
		FusionK: cfg.Search.RRFConstant,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "no results")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(out, "%2d. %s\tscore=%.4f\tbm25_rank=%d\tvec_rank=%d\n", i+1, r.ID, r.RRFScore, r.BM25Rank, r.VecRank)
	}
	return nil
}
