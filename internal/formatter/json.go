package formatter

import (
	"encoding/json"

	"github.com/imgseek/imgseek/internal/catalog"
)

// jsonFormatter formats output as indented JSON
type jsonFormatter struct{}

// NewJSON creates a new JSON formatter
func NewJSON() Formatter {
	return &jsonFormatter{}
}

func (f *jsonFormatter) FormatMatches(output *SearchOutput) ([]byte, error) {
	wrapped := struct {
		*SearchOutput
		DurationMS int64 `json:"duration_ms"`
		Count      int   `json:"count"`
	}{
		SearchOutput: output,
		DurationMS:   output.Duration.Milliseconds(),
		Count:        len(output.Matches),
	}
	return json.MarshalIndent(wrapped, "", "  ")
}

func (f *jsonFormatter) FormatStats(stats *catalog.Stats) ([]byte, error) {
	return json.MarshalIndent(stats, "", "  ")
}
