package cli

import (
	"github.com/imgseek/imgseek/internal/catalog"
	"github.com/imgseek/imgseek/internal/config"
	"github.com/imgseek/imgseek/internal/extractor"
	"github.com/imgseek/imgseek/internal/imaging"
)

// openCatalog opens the catalog database configured in storage settings
func openCatalog(cfg *config.Config) (*catalog.Store, error) {
	return catalog.Open(config.ExpandPath(cfg.Storage.CatalogPath))
}

// newScanner builds an image scanner from ingest settings
func newScanner(cfg *config.Config) *imaging.Scanner {
	return imaging.NewScannerWithOptions(cfg.Ingest.Extensions, cfg.Ingest.Excludes, imaging.ValidationRules{
		MaxFileSize: cfg.Ingest.MaxFileSize,
		MinWidth:    cfg.Ingest.MinWidth,
		MinHeight:   cfg.Ingest.MinHeight,
	})
}

// newExtractor builds the configured feature extractor, with an optional
// model override from a command flag
func newExtractor(cfg *config.Config, modelOverride string) (extractor.Extractor, error) {
	model := cfg.Extractor.Model
	if modelOverride != "" {
		model = modelOverride
	}
	return extractor.New(model, cfg.Extractor.InputSize)
}

// imageRecord converts scanned file metadata into a catalog record
func imageRecord(img *imaging.ImageFile, seed bool) *catalog.ImageRecord {
	return &catalog.ImageRecord{
		ID:       img.Hash,
		Path:     img.Path,
		Title:    img.Title,
		Category: img.Category,
		Width:    img.Width,
		Height:   img.Height,
		Size:     img.Size,
		Format:   img.Format,
		Seed:     seed,
	}
}
