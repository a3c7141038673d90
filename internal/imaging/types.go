package imaging

import (
	"time"
)

// ImageFile holds metadata for one image discovered on disk
type ImageFile struct {
	Path     string    `json:"path"`
	Title    string    `json:"title"`    // filename without extension
	Category string    `json:"category"` // name of the containing directory
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Size     int64     `json:"size"`
	Format   string    `json:"format"` // jpeg|png
	Hash     string    `json:"hash"`   // sha256 of file content
	ModTime  time.Time `json:"mod_time"`
}

// ValidationRules bound what the scanner accepts
type ValidationRules struct {
	MaxFileSize int64
	MinWidth    int
	MinHeight   int
}

// DefaultValidationRules mirror the ingest defaults: 2 MiB cap, 50x50 floor.
func DefaultValidationRules() ValidationRules {
	return ValidationRules{
		MaxFileSize: 2 * 1024 * 1024,
		MinWidth:    50,
		MinHeight:   50,
	}
}
