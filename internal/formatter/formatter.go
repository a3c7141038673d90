package formatter

import (
	"fmt"
	"time"

	"github.com/imgseek/imgseek/internal/catalog"
	"github.com/imgseek/imgseek/internal/search"
)

// timeRounding trims search durations for display
const timeRounding = time.Millisecond

// SearchOutput bundles a query and its ranked matches for rendering
type SearchOutput struct {
	Query     string         `json:"query"`
	Model     string         `json:"model"`
	Threshold float64        `json:"threshold"`
	Duration  time.Duration  `json:"-"`
	Matches   []search.Match `json:"matches"`
}

// Formatter defines the interface for output formatting
type Formatter interface {
	FormatMatches(output *SearchOutput) ([]byte, error)
	FormatStats(stats *catalog.Stats) ([]byte, error)
}

// New creates a formatter by name. Supported formats are text, json and csv.
func New(format string, color bool) (Formatter, error) {
	switch format {
	case "", "text":
		return NewText(color), nil
	case "json":
		return NewJSON(), nil
	case "csv":
		return NewCSV(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: text, json, csv)", format)
	}
}
