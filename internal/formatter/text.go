package formatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imgseek/imgseek/internal/catalog"
)

// textFormatter renders human-readable terminal output
type textFormatter struct {
	color bool

	header lipgloss.Style
	score  lipgloss.Style
	muted  lipgloss.Style
}

// NewText creates a terminal text formatter with optional color support
func NewText(color bool) Formatter {
	f := &textFormatter{color: color}

	if color {
		successColor := lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"}
		infoColor := lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#60A5FA"}
		mutedColor := lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}

		f.header = lipgloss.NewStyle().Foreground(infoColor).Bold(true)
		f.score = lipgloss.NewStyle().Foreground(successColor)
		f.muted = lipgloss.NewStyle().Foreground(mutedColor)
	} else {
		plain := lipgloss.NewStyle()
		f.header = plain
		f.score = plain
		f.muted = plain
	}

	return f
}

func (f *textFormatter) FormatMatches(output *SearchOutput) ([]byte, error) {
	var b strings.Builder

	b.WriteString(f.header.Render("Similar Images") + "\n")
	b.WriteString(f.muted.Render(fmt.Sprintf("query: %s  model: %s  threshold: %.2f  took: %v",
		output.Query, output.Model, output.Threshold, output.Duration.Round(timeRounding))) + "\n\n")

	if len(output.Matches) == 0 {
		b.WriteString("No similar images found.\n")
		return []byte(b.String()), nil
	}

	for _, match := range output.Matches {
		img := match.Image
		scoreText := f.score.Render(fmt.Sprintf("%.4f", match.Score))
		fmt.Fprintf(&b, "%3d. %s  %s\n", match.Rank, scoreText, img.Path)
		fmt.Fprintf(&b, "     %s\n", f.muted.Render(fmt.Sprintf("%s | %s | %dx%d",
			img.Title, img.Category, img.Width, img.Height)))
	}

	fmt.Fprintf(&b, "\n%d match(es)\n", len(output.Matches))
	return []byte(b.String()), nil
}

func (f *textFormatter) FormatStats(stats *catalog.Stats) ([]byte, error) {
	var b strings.Builder

	b.WriteString(f.header.Render("Catalog Statistics") + "\n")
	fmt.Fprintf(&b, "├─ Total images:     %d\n", stats.TotalImages)
	fmt.Fprintf(&b, "├─ Seed images:      %d\n", stats.SeedImages)
	fmt.Fprintf(&b, "├─ With features:    %d\n", stats.ExtractedImages)
	fmt.Fprintf(&b, "├─ Pending:          %d\n", stats.PendingImages)
	fmt.Fprintf(&b, "├─ Failed:           %d\n", stats.FailedImages)
	fmt.Fprintf(&b, "└─ Search queries:   %d\n", stats.TotalQueries)

	if len(stats.Categories) > 0 {
		b.WriteString("\n" + f.header.Render("Categories") + "\n")

		names := make([]string, 0, len(stats.Categories))
		for name := range stats.Categories {
			names = append(names, name)
		}
		sort.Strings(names)

		for i, name := range names {
			branch := "├─"
			if i == len(names)-1 {
				branch = "└─"
			}
			fmt.Fprintf(&b, "%s %s (%d)\n", branch, name, stats.Categories[name])
		}
	}

	return []byte(b.String()), nil
}
