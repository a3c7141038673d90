package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.imgseek.yaml",               // Project-specific config (highest priority)
	"~/.config/imgseek/config.yaml", // User config
	"/etc/imgseek/config.yaml",      // System config (lowest priority)
}

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{
		configPaths: ConfigPaths,
	}
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. Environment variables (including a local .env file)
// 3. ./.imgseek.yaml
// 4. ~/.config/imgseek/config.yaml
// 5. /etc/imgseek/config.yaml
// 6. Built-in defaults
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	// Pick up a local .env file before reading environment overrides.
	// Missing .env is not an error.
	_ = godotenv.Load()

	// Start with defaults
	config := DefaultConfig()

	// If custom path is provided, use only that path
	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// Load from standard paths in reverse priority order (lowest to highest)
		paths := make([]string, len(l.configPaths))
		copy(paths, l.configPaths)
		for i := len(paths)/2 - 1; i >= 0; i-- {
			opp := len(paths) - 1 - i
			paths[i], paths[opp] = paths[opp], paths[i]
		}

		for _, path := range paths {
			expandedPath := expandPath(path)
			if fileExists(expandedPath) {
				if err := l.loadFromFile(config, expandedPath); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", expandedPath, err)
				}
			}
		}
	}

	// Apply environment variable overrides
	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	// Validate the final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file and merges it with existing config
func (l *Loader) loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated by validateConfigPath() before reaching here
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var fileConfig Config
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		// Extractor Config
		"IMGSEEK_EXTRACTOR_MODEL":      func(v string) error { config.Extractor.Model = v; return nil },
		"IMGSEEK_EXTRACTOR_INPUT_SIZE": func(v string) error { return parseInt(v, &config.Extractor.InputSize) },
		"IMGSEEK_EXTRACTOR_WORKERS":    func(v string) error { return parseInt(v, &config.Extractor.Workers) },
		"IMGSEEK_EXTRACTOR_TIMEOUT":    func(v string) error { return parseDuration(v, &config.Extractor.Timeout) },

		// Search Config
		"IMGSEEK_SEARCH_THRESHOLD":   func(v string) error { return parseFloat(v, &config.Search.Threshold) },
		"IMGSEEK_SEARCH_MAX_RESULTS": func(v string) error { return parseInt(v, &config.Search.MaxResults) },
		"IMGSEEK_SEARCH_LOG_QUERIES": func(v string) error { return parseBool(v, &config.Search.LogQueries) },

		// Storage Config
		"IMGSEEK_STORAGE_DATA_DIR":           func(v string) error { config.Storage.DataDir = v; return nil },
		"IMGSEEK_STORAGE_CATALOG_PATH":       func(v string) error { config.Storage.CatalogPath = v; return nil },
		"IMGSEEK_STORAGE_VECTOR_CACHE_PATH":  func(v string) error { config.Storage.VectorCachePath = v; return nil },
		"IMGSEEK_STORAGE_AUTO_SAVE_INTERVAL": func(v string) error { return parseDuration(v, &config.Storage.AutoSaveInterval) },

		// Ingest Config
		"IMGSEEK_INGEST_MAX_FILE_SIZE": func(v string) error { return parseInt64(v, &config.Ingest.MaxFileSize) },
		"IMGSEEK_INGEST_MIN_WIDTH":     func(v string) error { return parseInt(v, &config.Ingest.MinWidth) },
		"IMGSEEK_INGEST_MIN_HEIGHT":    func(v string) error { return parseInt(v, &config.Ingest.MinHeight) },

		// Output Config
		"IMGSEEK_OUTPUT_DEFAULT_FORMAT": func(v string) error { config.Output.DefaultFormat = v; return nil },
		"IMGSEEK_OUTPUT_COLOR_MODE":     func(v string) error { config.Output.ColorMode = v; return nil },
		"IMGSEEK_OUTPUT_VERBOSE":        func(v string) error { return parseBool(v, &config.Output.Verbose) },
		"IMGSEEK_OUTPUT_SHOW_PROGRESS":  func(v string) error { return parseBool(v, &config.Output.ShowProgress) },
	}

	for envVar, setter := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}

	// Handle special case for seed directories (comma-separated list)
	if dirs := os.Getenv("IMGSEEK_INGEST_SEED_DIRS"); dirs != "" {
		config.Ingest.SeedDirs = strings.Split(dirs, ",")
		for i, dir := range config.Ingest.SeedDirs {
			config.Ingest.SeedDirs[i] = strings.TrimSpace(dir)
		}
	}

	return nil
}

// GetConfigPaths returns the list of configuration file paths that will be searched
func GetConfigPaths() []string {
	paths := make([]string, 0, len(ConfigPaths))
	for _, path := range ConfigPaths {
		paths = append(paths, expandPath(path))
	}
	return paths
}

// FindConfigFile finds the first existing config file in the search paths
func FindConfigFile() (string, bool) {
	for _, path := range ConfigPaths {
		expandedPath := expandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// Helper functions

// validateConfigPath validates that a config path is safe to read
func validateConfigPath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if strings.HasPrefix(absPath, "/etc/passwd") ||
		strings.HasPrefix(absPath, "/etc/shadow") ||
		strings.HasPrefix(absPath, "/proc/") ||
		strings.HasPrefix(absPath, "/sys/") {
		return fmt.Errorf("access to system files not allowed")
	}

	return nil
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) string {
	return expandPath(path)
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// mergeConfigs merges source config into destination config
// Only non-zero values from source overwrite destination
func mergeConfigs(dst, src *Config) {
	if src.Version != "" {
		dst.Version = src.Version
	}

	mergeExtractorConfig(&dst.Extractor, &src.Extractor)
	mergeSearchConfig(&dst.Search, &src.Search)
	mergeStorageConfig(&dst.Storage, &src.Storage)
	mergeIngestConfig(&dst.Ingest, &src.Ingest)
	mergeOutputConfig(&dst.Output, &src.Output)
}

// mergeExtractorConfig merges extractor configuration
func mergeExtractorConfig(dst, src *ExtractorConfig) {
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.InputSize != 0 {
		dst.InputSize = src.InputSize
	}
	if src.Workers != 0 {
		dst.Workers = src.Workers
	}
	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}
}

// mergeSearchConfig merges search configuration
func mergeSearchConfig(dst, src *SearchConfig) {
	if src.Threshold != 0 {
		dst.Threshold = src.Threshold
	}
	if src.MaxResults != 0 {
		dst.MaxResults = src.MaxResults
	}
	if !src.LogQueries && dst.LogQueries {
		// Only override if explicitly set to false in source
		dst.LogQueries = src.LogQueries
	}
}

// mergeStorageConfig merges storage configuration
func mergeStorageConfig(dst, src *StorageConfig) {
	if src.DataDir != "" {
		dst.DataDir = src.DataDir
	}
	if src.CatalogPath != "" {
		dst.CatalogPath = src.CatalogPath
	}
	if src.VectorCachePath != "" {
		dst.VectorCachePath = src.VectorCachePath
	}
	if src.AutoSaveInterval != 0 {
		dst.AutoSaveInterval = src.AutoSaveInterval
	}
}

// mergeIngestConfig merges ingest configuration
func mergeIngestConfig(dst, src *IngestConfig) {
	if len(src.SeedDirs) > 0 {
		dst.SeedDirs = src.SeedDirs
	}
	if src.MaxFileSize != 0 {
		dst.MaxFileSize = src.MaxFileSize
	}
	if src.MinWidth != 0 {
		dst.MinWidth = src.MinWidth
	}
	if src.MinHeight != 0 {
		dst.MinHeight = src.MinHeight
	}
	if len(src.Excludes) > 0 {
		dst.Excludes = src.Excludes
	}
	if len(src.Extensions) > 0 {
		dst.Extensions = src.Extensions
	}
	if src.WatchDebounce != 0 {
		dst.WatchDebounce = src.WatchDebounce
	}
}

// mergeOutputConfig merges output configuration
func mergeOutputConfig(dst, src *OutputConfig) {
	if src.DefaultFormat != "" {
		dst.DefaultFormat = src.DefaultFormat
	}
	if src.ColorMode != "" {
		dst.ColorMode = src.ColorMode
	}
	if src.Verbose {
		dst.Verbose = src.Verbose
	}
	if !src.ShowProgress && dst.ShowProgress {
		// Only override if explicitly set to false in source
		dst.ShowProgress = src.ShowProgress
	}
}

// Parse helpers

func parseInt(value string, target *int) error {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("expected integer, got %q", value)
	}
	*target = parsed
	return nil
}

func parseInt64(value string, target *int64) error {
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("expected integer, got %q", value)
	}
	*target = parsed
	return nil
}

func parseFloat(value string, target *float64) error {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("expected number, got %q", value)
	}
	*target = parsed
	return nil
}

func parseBool(value string, target *bool) error {
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("expected boolean, got %q", value)
	}
	*target = parsed
	return nil
}

func parseDuration(value string, target *time.Duration) error {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("expected duration (e.g. 30s), got %q", value)
	}
	*target = parsed
	return nil
}
