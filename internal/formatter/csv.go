package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"

	"github.com/imgseek/imgseek/internal/catalog"
)

// csvFormatter formats search matches as CSV
type csvFormatter struct{}

// NewCSV creates a new CSV formatter
func NewCSV() Formatter {
	return &csvFormatter{}
}

func (f *csvFormatter) FormatMatches(output *SearchOutput) ([]byte, error) {
	var b bytes.Buffer
	writer := csv.NewWriter(&b)

	headers := []string{
		"Rank",
		"Score",
		"Path",
		"Title",
		"Category",
		"Width",
		"Height",
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, match := range output.Matches {
		img := match.Image
		record := []string{
			fmt.Sprintf("%d", match.Rank),
			fmt.Sprintf("%.6f", match.Score),
			img.Path,
			img.Title,
			img.Category,
			fmt.Sprintf("%d", img.Width),
			fmt.Sprintf("%d", img.Height),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return b.Bytes(), nil
}

func (f *csvFormatter) FormatStats(stats *catalog.Stats) ([]byte, error) {
	var b bytes.Buffer
	writer := csv.NewWriter(&b)

	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	rows := [][]string{
		{"total_images", fmt.Sprintf("%d", stats.TotalImages)},
		{"seed_images", fmt.Sprintf("%d", stats.SeedImages)},
		{"extracted_images", fmt.Sprintf("%d", stats.ExtractedImages)},
		{"pending_images", fmt.Sprintf("%d", stats.PendingImages)},
		{"failed_images", fmt.Sprintf("%d", stats.FailedImages)},
		{"total_queries", fmt.Sprintf("%d", stats.TotalQueries)},
	}

	names := make([]string, 0, len(stats.Categories))
	for name := range stats.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rows = append(rows, []string{"category:" + name, fmt.Sprintf("%d", stats.Categories[name])})
	}

	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return b.Bytes(), nil
}
