package cli

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/imgseek/imgseek/internal/catalog"
	"github.com/imgseek/imgseek/internal/extractor"
	"github.com/imgseek/imgseek/internal/logger"
	"github.com/imgseek/imgseek/internal/ui"
)

func newExtractCommand() *cobra.Command {
	var (
		model      string
		workers    int
		reextract  bool
		seedOnly   bool
		limit      int
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Compute feature vectors for cataloged images",
		Long: `Compute an embedding for every cataloged image that does not have one
yet. Extraction runs on a worker pool; images that fail to process are
recorded with their error and do not stop the batch.

Examples:
  imgseek extract
  imgseek extract --model rgb128 --workers 8
  imgseek extract --reextract --seed-only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(model, workers, reextract, seedOnly, limit, noProgress)
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "embedding model (rgb512, rgb128)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of extraction workers")
	cmd.Flags().BoolVar(&reextract, "reextract", false, "recompute features for all images, not just pending ones")
	cmd.Flags().BoolVar(&seedOnly, "seed-only", false, "only process seed images")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many images (0 = no limit)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress display")

	return cmd
}

func runExtract(model string, workers int, reextract, seedOnly bool, limit int, noProgress bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger("extract", cfg)

	store, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ext, err := newExtractor(cfg, model)
	if err != nil {
		return err
	}

	images, err := store.ListImages(catalog.ListOptions{
		PendingOnly: !reextract,
		SeedOnly:    seedOnly,
		Limit:       limit,
	})
	if err != nil {
		return err
	}
	if len(images) == 0 {
		fmt.Println("Nothing to extract; all cataloged images have features.")
		return nil
	}

	jobs := make([]extractor.Job, 0, len(images))
	for _, img := range images {
		jobs = append(jobs, extractor.Job{ID: img.ID, Path: img.Path})
	}

	log.InfoWithFields("starting extraction", []logger.Field{
		logger.F("model", ext.Name()),
		logger.F("dimension", ext.Dimension()),
		logger.Count(len(jobs)),
	})

	ctx := context.Background()
	if cfg.Extractor.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Extractor.Timeout)
		defer cancel()
	}

	effectiveWorkers := cfg.Extractor.Workers
	if workers > 0 {
		effectiveWorkers = workers
	}
	batch := extractor.NewBatch(ext, effectiveWorkers)

	// Verbose logging and the progress display would fight over the
	// terminal, so verbose wins.
	showProgress := cfg.Output.ShowProgress && !noProgress && !cfg.Output.Verbose &&
		isatty.IsTerminal(os.Stdout.Fd())
	if showProgress {
		return runExtractWithProgress(ctx, batch, jobs, store, ext.Name(), log)
	}
	return runExtractPlain(ctx, batch, jobs, store, ext.Name(), log)
}

// handleResult persists one extraction outcome and reports success
func handleResult(store *catalog.Store, model string, result extractor.Result, log *logger.Logger) bool {
	if result.Err != nil {
		log.Warn("extraction failed for %s: %v", result.Job.Path, result.Err)
		if err := store.SetProcessError(result.Job.ID, result.Err.Error()); err != nil {
			log.Error("failed to record extraction error: %v", err)
		}
		return false
	}

	err := store.StoreFeatures(&catalog.FeatureRecord{
		ImageID:   result.Job.ID,
		Model:     model,
		Dimension: result.Features.Dimension,
		Vector:    result.Features.Vector,
	})
	if err != nil {
		log.Error("failed to store features for %s: %v", result.Job.Path, err)
		return false
	}

	log.Debug("extracted %s in %v", result.Job.Path, result.Features.Duration)
	return true
}

func runExtractPlain(ctx context.Context, batch *extractor.Batch, jobs []extractor.Job, store *catalog.Store, model string, log *logger.Logger) error {
	var extracted, failed int

	err := batch.Run(ctx, jobs, func(result extractor.Result) {
		if handleResult(store, model, result, log) {
			extracted++
		} else {
			failed++
		}
	})
	if err != nil {
		return fmt.Errorf("extraction aborted: %w", err)
	}

	fmt.Printf("Extraction complete: %d extracted, %d failed\n", extracted, failed)
	return nil
}

func runExtractWithProgress(ctx context.Context, batch *extractor.Batch, jobs []extractor.Job, store *catalog.Store, model string, log *logger.Logger) error {
	program := tea.NewProgram(ui.NewExtractModel(len(jobs)))

	batchDone := make(chan error, 1)
	go func() {
		var extracted, failed, completed int

		err := batch.Run(ctx, jobs, func(result extractor.Result) {
			if handleResult(store, model, result, log) {
				extracted++
			} else {
				failed++
			}
			completed++
			program.Send(ui.ExtractProgressMsg{
				Completed: completed,
				Total:     len(jobs),
				Path:      result.Job.Path,
				Err:       result.Err,
			})
		})
		program.Send(ui.ExtractDoneMsg{Extracted: extracted, Failed: failed})
		batchDone <- err
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("progress display failed: %w", err)
	}
	if err := <-batchDone; err != nil {
		return fmt.Errorf("extraction aborted: %w", err)
	}
	return nil
}
