package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ExtractProgressMsg reports one finished image during batch extraction
type ExtractProgressMsg struct {
	Completed int
	Total     int
	Path      string
	Err       error
}

// ExtractDoneMsg ends the extraction view
type ExtractDoneMsg struct {
	Extracted int
	Failed    int
}

// ExtractModel is the interactive progress view for batch extraction
type ExtractModel struct {
	bar      *ProgressBar
	total    int
	failed   int
	lastPath string
	lastErr  string
	done     bool
	summary  ExtractDoneMsg
}

// NewExtractModel creates the extraction progress model
func NewExtractModel(total int) ExtractModel {
	bar := NewProgressBar(40)
	bar.SetLabel("Extracting features")
	bar.SetProgress(0, total)
	return ExtractModel{bar: bar, total: total}
}

// Init implements tea.Model
func (m ExtractModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m ExtractModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case ExtractProgressMsg:
		m.bar.SetProgress(msg.Completed, msg.Total)
		m.lastPath = msg.Path
		if msg.Err != nil {
			m.failed++
			m.lastErr = fmt.Sprintf("%s: %v", msg.Path, msg.Err)
		}
		return m, nil

	case ExtractDoneMsg:
		m.done = true
		m.summary = msg
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model
func (m ExtractModel) View() string {
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171"))

	if m.done {
		return fmt.Sprintf("Extraction complete: %d extracted, %d failed\n",
			m.summary.Extracted, m.summary.Failed)
	}

	view := m.bar.Render() + "\n"
	if m.lastPath != "" {
		view += mutedStyle.Render(m.lastPath) + "\n"
	}
	if m.lastErr != "" {
		view += errorStyle.Render("last error: "+m.lastErr) + "\n"
	}
	return view
}
