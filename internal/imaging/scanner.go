package imaging

import (
	"crypto/sha256"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	// Register JPEG and PNG decoders for image.Decode/DecodeConfig.
	_ "image/jpeg"
	_ "image/png"
)

// Scanner discovers and validates image files under seed directories
type Scanner struct {
	includeExts map[string]bool
	excludeDirs []string
	rules       ValidationRules
}

// NewScanner creates a scanner with default extensions and validation rules
func NewScanner() *Scanner {
	return &Scanner{
		includeExts: map[string]bool{".jpg": true, ".jpeg": true, ".png": true},
		excludeDirs: []string{"node_modules", ".git", ".svn", "vendor", "thumbnails"},
		rules:       DefaultValidationRules(),
	}
}

// NewScannerWithOptions creates a scanner with custom extensions, excludes and rules
func NewScannerWithOptions(extensions, excludes []string, rules ValidationRules) *Scanner {
	scanner := NewScanner()
	if len(extensions) > 0 {
		scanner.includeExts = make(map[string]bool, len(extensions))
		for _, ext := range extensions {
			scanner.includeExts[strings.ToLower(ext)] = true
		}
	}
	if len(excludes) > 0 {
		scanner.excludeDirs = excludes
	}
	if rules.MaxFileSize > 0 {
		scanner.rules = rules
	}
	return scanner
}

// Matches reports whether the path has an accepted image extension
func (s *Scanner) Matches(path string) bool {
	return s.includeExts[strings.ToLower(filepath.Ext(path))]
}

// ScanDirectory walks a directory tree and returns metadata for every valid
// image file. Invalid files are skipped with a warning; the walk continues.
func (s *Scanner) ScanDirectory(root string) ([]*ImageFile, error) {
	var images []*ImageFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			dirName := d.Name()
			for _, exclude := range s.excludeDirs {
				if matched, _ := filepath.Match(exclude, dirName); matched {
					return filepath.SkipDir
				}
			}
			// Skip hidden directories
			if strings.HasPrefix(dirName, ".") && dirName != "." && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		fileName := d.Name()
		if strings.HasPrefix(fileName, ".") {
			return nil
		}
		if !s.Matches(fileName) {
			return nil
		}

		img, err := s.ScanFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping %s: %v\n", path, err)
			return nil
		}

		images = append(images, img)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %w", root, err)
	}

	return images, nil
}

// ScanFile validates a single image file and extracts its metadata
func (s *Scanner) ScanFile(path string) (*ImageFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}

	if s.rules.MaxFileSize > 0 && info.Size() > s.rules.MaxFileSize {
		return nil, fmt.Errorf("file is %.1fMB (max %.1fMB)",
			float64(info.Size())/(1024*1024), float64(s.rules.MaxFileSize)/(1024*1024))
	}

	file, err := os.Open(path) //nolint:gosec // Path comes from directory scanning
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		return nil, fmt.Errorf("not a decodable image: %w", err)
	}

	if cfg.Width < s.rules.MinWidth || cfg.Height < s.rules.MinHeight {
		return nil, fmt.Errorf("image too small (%dx%d, min %dx%d)",
			cfg.Width, cfg.Height, s.rules.MinWidth, s.rules.MinHeight)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind file: %w", err)
	}

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return nil, fmt.Errorf("failed to hash file: %w", err)
	}

	fileName := filepath.Base(path)
	title := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	return &ImageFile{
		Path:     path,
		Title:    title,
		Category: filepath.Base(filepath.Dir(path)),
		Width:    cfg.Width,
		Height:   cfg.Height,
		Size:     info.Size(),
		Format:   format,
		Hash:     fmt.Sprintf("%x", hasher.Sum(nil)),
		ModTime:  info.ModTime(),
	}, nil
}

// HashFile returns the sha256 content hash of a file without validation,
// used to match query images against catalog entries.
func HashFile(path string) (string, error) {
	file, err := os.Open(path) //nolint:gosec // Caller-provided query path
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}
