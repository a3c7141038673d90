package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/imgseek/imgseek/internal/catalog"
	"github.com/imgseek/imgseek/internal/imaging"
	"github.com/imgseek/imgseek/internal/logger"
	"github.com/imgseek/imgseek/internal/ui"
)

func newWatchCommand() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "watch [directory...]",
		Short: "Watch directories and ingest new images automatically",
		Long: `Monitor directories for new or changed image files. Each settled file
is validated, cataloged as a seed image, and its feature vector is
extracted immediately, so new images become searchable without a
separate extract run. Press Ctrl+C to stop.

Without arguments the configured seed directories are watched.

Examples:
  imgseek watch ./photos
  imgseek watch --model rgb128 ./photos ./incoming`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchIngest(args, model)
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "embedding model (rgb512, rgb128)")

	return cmd
}

func runWatchIngest(args []string, model string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger("watch", cfg)

	dirs := args
	if len(dirs) == 0 {
		dirs = cfg.Ingest.SeedDirs
	}
	if len(dirs) == 0 {
		return fmt.Errorf("no directories given and no seed_dirs configured")
	}

	store, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ext, err := newExtractor(cfg, model)
	if err != nil {
		return err
	}

	watcher, err := imaging.NewWatcher(newScanner(cfg), cfg.Ingest.WatchDebounce)
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil && isVerbose() {
			fmt.Fprintf(os.Stderr, "Warning: failed to close watcher: %v\n", err)
		}
	}()

	for _, dir := range dirs {
		if err := watcher.AddRecursive(dir); err != nil {
			return err
		}
		log.Info("watching %s", dir)
	}

	fmt.Printf("Watching %d directories for new images. Press Ctrl+C to stop.\n", len(dirs))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Output.ShowProgress && !cfg.Output.Verbose && isatty.IsTerminal(os.Stdout.Fd()) {
		spin := ui.NewSpinner()
		spin.Label = "waiting for new images"
		go func() {
			ticker := time.NewTicker(120 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					fmt.Print("\r")
					return
				case <-ticker.C:
					spin.Tick()
					fmt.Printf("\r%s", spin.Render())
				}
			}
		}()
	}

	handle := func(img *imaging.ImageFile) {
		if err := store.UpsertImage(imageRecord(img, true)); err != nil {
			log.Error("failed to catalog %s: %v", img.Path, err)
			return
		}

		features, err := ext.Extract(ctx, img.Path)
		if err != nil {
			log.Warn("extraction failed for %s: %v", img.Path, err)
			if dbErr := store.SetProcessError(img.Hash, err.Error()); dbErr != nil {
				log.Error("failed to record extraction error: %v", dbErr)
			}
			return
		}

		err = store.StoreFeatures(&catalog.FeatureRecord{
			ImageID:   img.Hash,
			Model:     features.Model,
			Dimension: features.Dimension,
			Vector:    features.Vector,
		})
		if err != nil {
			log.Error("failed to store features for %s: %v", img.Path, err)
			return
		}

		log.InfoWithFields("ingested", []logger.Field{
			logger.F("path", img.Path),
			logger.F("category", img.Category),
			logger.Duration(features.Duration),
		})
		fmt.Printf("\rIngested %s (%s)\n", img.Path, img.Category)
	}

	onSkip := func(path string, err error) {
		if path == "" {
			log.Warn("watcher error: %v", err)
			return
		}
		log.Warn("skipping %s: %v", path, err)
	}

	return watcher.Run(ctx, handle, onSkip)
}
