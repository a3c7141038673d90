package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders batch extraction progress
type ProgressBar struct {
	Width     int
	Current   int
	Total     int
	StartTime time.Time
	ShowETA   bool
	Label     string
}

// NewProgressBar creates a progress bar of the given character width
func NewProgressBar(width int) *ProgressBar {
	return &ProgressBar{
		Width:     width,
		StartTime: time.Now(),
		ShowETA:   true,
	}
}

// SetProgress updates the progress
func (p *ProgressBar) SetProgress(current, total int) {
	p.Current = current
	p.Total = total
}

// SetLabel sets the progress label
func (p *ProgressBar) SetLabel(label string) {
	p.Label = label
}

// Render renders the progress bar
func (p *ProgressBar) Render() string {
	filledStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))

	if p.Total == 0 {
		return p.renderIndeterminate(filledStyle, mutedStyle)
	}

	percentage := float64(p.Current) / float64(p.Total)
	if percentage > 1.0 {
		percentage = 1.0
	}

	filledWidth := int(float64(p.Width) * percentage)
	emptyWidth := p.Width - filledWidth

	bar := filledStyle.Render(strings.Repeat("█", filledWidth)) +
		mutedStyle.Render(strings.Repeat("░", emptyWidth))

	etaText := ""
	if p.ShowETA && p.Current > 0 && percentage > 0 {
		elapsed := time.Since(p.StartTime)
		estimated := time.Duration(float64(elapsed) / percentage)
		if remaining := estimated - elapsed; remaining > 0 {
			etaText = fmt.Sprintf(" ETA: %s", formatDuration(remaining))
		}
	}

	result := fmt.Sprintf("[%s] %d/%d %.1f%%%s", bar, p.Current, p.Total, percentage*100, etaText)
	if p.Label != "" {
		result = p.Label + "\n" + result
	}
	return result
}

func (p *ProgressBar) renderIndeterminate(filledStyle, mutedStyle lipgloss.Style) string {
	elapsed := time.Since(p.StartTime)
	frame := int(elapsed.Milliseconds()/100) % p.Width

	var bar strings.Builder
	for i := 0; i < p.Width; i++ {
		if i >= frame && i < frame+3 {
			bar.WriteString(filledStyle.Render("█"))
		} else {
			bar.WriteString(mutedStyle.Render("░"))
		}
	}

	result := fmt.Sprintf("[%s] Processing...", bar.String())
	if p.Label != "" {
		result = p.Label + "\n" + result
	}
	return result
}

// formatDuration formats a duration for ETA display
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.0fm", d.Minutes())
	default:
		return fmt.Sprintf("%.1fh", d.Hours())
	}
}

// Spinner is an animated indicator for open-ended work such as watching
type Spinner struct {
	Frame int
	Label string
}

const spinnerFrames = "⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏"

// NewSpinner creates a new spinner
func NewSpinner() *Spinner {
	return &Spinner{}
}

// Tick advances the spinner animation
func (s *Spinner) Tick() {
	s.Frame = (s.Frame + 1) % len([]rune(spinnerFrames))
}

// Render renders the spinner
func (s *Spinner) Render() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	char := style.Render(string([]rune(spinnerFrames)[s.Frame]))
	if s.Label != "" {
		return fmt.Sprintf("%s %s", char, s.Label)
	}
	return char
}
