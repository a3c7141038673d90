package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imgseek/imgseek/internal/logger"
)

func newLoadCommand() *cobra.Command {
	var (
		clearSeed    bool
		limit        int
		skipExisting bool
	)

	cmd := &cobra.Command{
		Use:   "load [directory...]",
		Short: "Catalog seed images from directories",
		Long: `Scan directories for image files and register them in the catalog as
seed images. Files are validated (format, size, minimum dimensions) and
deduplicated by content hash, so re-running load is safe.

Without arguments the configured seed directories are used.

Examples:
  imgseek load ./photos
  imgseek load --clear ./photos ./more-photos
  imgseek load --skip-existing --limit 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(args, clearSeed, limit, skipExisting)
		},
	}

	cmd.Flags().BoolVar(&clearSeed, "clear", false, "remove existing seed images before loading")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after cataloging this many images (0 = no limit)")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "skip images already cataloged by content hash")

	return cmd
}

func runLoad(args []string, clearSeed bool, limit int, skipExisting bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger("load", cfg)

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

	if clearSeed {
		removed, err := store.ClearSeedImages()
		if err != nil {
			return fmt.Errorf("failed to clear seed images: %w", err)
		}
		log.Info("cleared %d existing seed images", removed)
	}

	scanner := newScanner(cfg)

	var loaded, skipped int
	for _, dir := range dirs {
		log.Info("scanning %s", dir)

		images, err := scanner.ScanDirectory(dir)
		if err != nil {
			return err
		}

		for _, img := range images {
			if limit > 0 && loaded >= limit {
				break
			}

			if skipExisting {
				existing, err := store.GetImage(img.Hash)
				if err != nil {
					return err
				}
				if existing != nil {
					skipped++
					log.Debug("skipping %s: already cataloged as %s", img.Path, existing.Path)
					continue
				}
			}

			if err := store.UpsertImage(imageRecord(img, true)); err != nil {
				return err
			}
			loaded++
			log.Debug("cataloged %s (%s)", img.Path, img.Hash[:12])
		}
	}

	log.InfoWithFields("load complete", []logger.Field{
		logger.F("loaded", loaded),
		logger.F("skipped", skipped),
	})
	fmt.Printf("Cataloged %d image(s)", loaded)
	if skipped > 0 {
		fmt.Printf(", skipped %d already present", skipped)
	}
	fmt.Println()
	fmt.Println("Run 'imgseek extract' to compute feature vectors.")

	return nil
}
