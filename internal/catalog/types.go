package catalog

import "time"

// ImageRecord is one cataloged image. ID is the sha256 content hash, so
// the same image content maps to the same record regardless of path.
type ImageRecord struct {
	ID           string    `json:"id"`
	Path         string    `json:"path"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Size         int64     `json:"size"`
	Format       string    `json:"format"`
	Seed         bool      `json:"seed"`
	Extracted    bool      `json:"extracted"`
	ProcessError string    `json:"process_error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FeatureRecord is a stored embedding for an image under one model
type FeatureRecord struct {
	ImageID     string    `json:"image_id"`
	Model       string    `json:"model"`
	Dimension   int       `json:"dimension"`
	Vector      []float32 `json:"vector"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// ListOptions filters ListImages
type ListOptions struct {
	SeedOnly    bool
	PendingOnly bool // images without extracted features
	Category    string
	Limit       int
}

// QueryLog records one similarity search and its ranked results
type QueryLog struct {
	QueryPath  string
	QueryHash  string
	Model      string
	Threshold  float64
	MaxResults int
	Duration   time.Duration
	Results    []QueryResult
}

// QueryResult is one ranked hit inside a QueryLog
type QueryResult struct {
	ImageID string
	Rank    int
	Score   float64
}

// Stats summarizes catalog contents
type Stats struct {
	TotalImages     int            `json:"total_images"`
	SeedImages      int            `json:"seed_images"`
	ExtractedImages int            `json:"extracted_images"`
	PendingImages   int            `json:"pending_images"`
	FailedImages    int            `json:"failed_images"`
	TotalQueries    int            `json:"total_queries"`
	Categories      map[string]int `json:"categories"`
}
