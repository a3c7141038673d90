package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/imgseek/imgseek/internal/config"
	"github.com/imgseek/imgseek/internal/formatter"
	"github.com/imgseek/imgseek/internal/search"
	"github.com/imgseek/imgseek/internal/vectorstore"
)

func newSearchCommand() *cobra.Command {
	var (
		topK      int
		threshold float64
		format    string
	)

	cmd := &cobra.Command{
		Use:   "search <image>",
		Short: "Find cataloged images similar to a query image",
		Long: `Embed the query image and rank cataloged images by cosine similarity.
Only matches at or above the similarity threshold are returned, and the
query image itself is excluded when it is already cataloged.

Examples:
  imgseek search query.jpg
  imgseek search --top-k 5 --threshold 0.8 query.jpg
  imgseek search -o json query.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(args[0], topK, threshold, format)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "maximum number of results (0 = configured default)")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", -1, "minimum cosine similarity, 0 to 1 (-1 = configured default)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format (text, json, csv)")

	return cmd
}

// searchIndexOptions builds the vector index options from the storage
// config. The snapshot file and its auto-save cadence only apply when a
// cache path is configured.
func searchIndexOptions(cfg *config.Config) []vectorstore.MemoryStoreOption {
	if cfg.Storage.VectorCachePath == "" {
		return nil
	}

	opts := []vectorstore.MemoryStoreOption{
		vectorstore.WithPersistence(config.ExpandPath(cfg.Storage.VectorCachePath)),
	}
	if cfg.Storage.AutoSaveInterval > 0 {
		opts = append(opts, vectorstore.WithAutoSave(cfg.Storage.AutoSaveInterval))
	}
	return opts
}

func runSearch(queryPath string, topK int, threshold float64, format string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger("search", cfg)

	if _, err := os.Stat(queryPath); err != nil {
		return fmt.Errorf("cannot access query image: %w", err)
	}

	store, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ext, err := newExtractor(cfg, "")
	if err != nil {
		return err
	}

	engine := search.NewEngine(store, ext, log, cfg.Search.LogQueries, searchIndexOptions(cfg)...)
	defer func() { _ = engine.Close() }()

	indexed, err := engine.WarmIndex()
	if err != nil {
		return err
	}
	if indexed == 0 {
		fmt.Fprintln(os.Stderr, "No feature vectors in the catalog; run 'imgseek load' and 'imgseek extract' first.")
	}

	if topK <= 0 {
		topK = cfg.Search.MaxResults
	}
	if threshold < 0 {
		threshold = cfg.Search.Threshold
	}
	if threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %v", threshold)
	}

	start := time.Now()
	matches, err := engine.Search(context.Background(), queryPath, search.Options{
		TopK:      topK,
		Threshold: threshold,
	})
	if err != nil {
		return err
	}

	if format == "" {
		format = cfg.Output.DefaultFormat
	}
	fmtr, err := formatter.New(format, colorEnabled(cfg))
	if err != nil {
		return err
	}

	out, err := fmtr.FormatMatches(&formatter.SearchOutput{
		Query:     queryPath,
		Model:     ext.Name(),
		Threshold: threshold,
		Duration:  time.Since(start),
		Matches:   matches,
	})
	if err != nil {
		return err
	}

	fmt.Print(string(out))
	return nil
}
