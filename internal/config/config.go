package config

import (
	"fmt"
	"time"
)

// Config holds the complete application configuration
type Config struct {
	Version   string          `yaml:"version" json:"version"`
	Extractor ExtractorConfig `yaml:"extractor" json:"extractor"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Ingest    IngestConfig    `yaml:"ingest" json:"ingest"`
	Output    OutputConfig    `yaml:"output" json:"output"`
}

// ExtractorConfig configures feature extraction
type ExtractorConfig struct {
	Model     string        `yaml:"model" json:"model"`           // rgb512|rgb128
	InputSize int           `yaml:"input_size" json:"input_size"` // square resize edge in pixels
	Workers   int           `yaml:"workers" json:"workers"`       // batch extraction concurrency
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`       // per-batch extraction timeout
}

// SearchConfig configures similarity search behavior
type SearchConfig struct {
	Threshold  float64 `yaml:"threshold" json:"threshold"`     // minimum cosine similarity (0-1)
	MaxResults int     `yaml:"max_results" json:"max_results"` // top-K cap
	LogQueries bool    `yaml:"log_queries" json:"log_queries"` // record queries in the catalog
}

// StorageConfig configures catalog and cache locations
type StorageConfig struct {
	DataDir          string        `yaml:"data_dir" json:"data_dir"`                     // base directory for app state
	CatalogPath      string        `yaml:"catalog_path" json:"catalog_path"`             // SQLite catalog location
	VectorCachePath  string        `yaml:"vector_cache_path" json:"vector_cache_path"`   // optional JSON vector snapshot
	AutoSaveInterval time.Duration `yaml:"auto_save_interval" json:"auto_save_interval"` // vector snapshot cadence
}

// IngestConfig configures seed image loading
type IngestConfig struct {
	SeedDirs      []string      `yaml:"seed_dirs" json:"seed_dirs"`           // directories scanned for seed images
	MaxFileSize   int64         `yaml:"max_file_size" json:"max_file_size"`   // bytes
	MinWidth      int           `yaml:"min_width" json:"min_width"`           // pixels
	MinHeight     int           `yaml:"min_height" json:"min_height"`         // pixels
	Excludes      []string      `yaml:"excludes" json:"excludes"`             // directory names to skip
	Extensions    []string      `yaml:"extensions" json:"extensions"`         // accepted file extensions
	WatchDebounce time.Duration `yaml:"watch_debounce" json:"watch_debounce"` // settle time before ingesting a new file
}

// OutputConfig configures output formatting and display
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" json:"default_format"` // text|json|csv
	ColorMode     string `yaml:"color_mode" json:"color_mode"`         // auto|always|never
	Verbose       bool   `yaml:"verbose" json:"verbose"`               // default verbosity
	ShowProgress  bool   `yaml:"show_progress" json:"show_progress"`   // show progress UI during extraction
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Extractor: ExtractorConfig{
			Model:     "rgb512",
			InputSize: 224,
			Workers:   4,
			Timeout:   120 * time.Second,
		},
		Search: SearchConfig{
			Threshold:  0.7,
			MaxResults: 20,
			LogQueries: true,
		},
		Storage: StorageConfig{
			DataDir:          "~/.cache/imgseek",
			CatalogPath:      "~/.cache/imgseek/catalog.db",
			VectorCachePath:  "",
			AutoSaveInterval: 5 * time.Minute,
		},
		Ingest: IngestConfig{
			SeedDirs:      []string{"./data/seed_images"},
			MaxFileSize:   2 * 1024 * 1024,
			MinWidth:      50,
			MinHeight:     50,
			Excludes:      []string{"node_modules", ".git", "vendor", "thumbnails"},
			Extensions:    []string{".jpg", ".jpeg", ".png"},
			WatchDebounce: 500 * time.Millisecond,
		},
		Output: OutputConfig{
			DefaultFormat: "text",
			ColorMode:     "auto",
			Verbose:       false,
			ShowProgress:  true,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateExtractorConfig(); err != nil {
		return err
	}
	if err := c.validateSearchConfig(); err != nil {
		return err
	}
	if err := c.validateIngestConfig(); err != nil {
		return err
	}
	if err := c.validateOutputConfig(); err != nil {
		return err
	}
	return nil
}

// validateExtractorConfig validates extraction-related configuration
func (c *Config) validateExtractorConfig() error {
	if c.Extractor.Model != "" {
		validModels := map[string]bool{
			"rgb512": true,
			"rgb128": true,
		}
		if !validModels[c.Extractor.Model] {
			return fmt.Errorf("invalid extractor model: %s (must be one of: rgb512, rgb128)", c.Extractor.Model)
		}
	}
	if c.Extractor.InputSize < 32 {
		return fmt.Errorf("input_size must be at least 32 pixels, got %d", c.Extractor.InputSize)
	}
	if c.Extractor.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Extractor.Workers)
	}
	if c.Extractor.Timeout < 0 {
		return fmt.Errorf("extractor timeout must be non-negative")
	}
	return nil
}

// validateSearchConfig validates search-related configuration
func (c *Config) validateSearchConfig() error {
	if c.Search.Threshold < 0 || c.Search.Threshold > 1 {
		return fmt.Errorf("search threshold must be between 0 and 1, got %v", c.Search.Threshold)
	}
	if c.Search.MaxResults < 1 {
		return fmt.Errorf("max_results must be at least 1, got %d", c.Search.MaxResults)
	}
	return nil
}

// validateIngestConfig validates ingest-related configuration
func (c *Config) validateIngestConfig() error {
	if c.Ingest.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", c.Ingest.MaxFileSize)
	}
	if c.Ingest.MinWidth < 1 || c.Ingest.MinHeight < 1 {
		return fmt.Errorf("minimum image dimensions must be positive, got %dx%d", c.Ingest.MinWidth, c.Ingest.MinHeight)
	}
	return nil
}

// validateOutputConfig validates output-related configuration
func (c *Config) validateOutputConfig() error {
	if c.Output.DefaultFormat != "" {
		validFormats := map[string]bool{
			"text": true,
			"json": true,
			"csv":  true,
		}
		if !validFormats[c.Output.DefaultFormat] {
			return fmt.Errorf("invalid output format: %s (must be one of: text, json, csv)", c.Output.DefaultFormat)
		}
	}
	if c.Output.ColorMode != "" {
		validColorModes := map[string]bool{
			"auto":   true,
			"always": true,
			"never":  true,
		}
		if !validColorModes[c.Output.ColorMode] {
			return fmt.Errorf("invalid color mode: %s (must be one of: auto, always, never)", c.Output.ColorMode)
		}
	}
	return nil
}
