package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/maastricht-university/emusync/emotion"
	"github.com/maastricht-university/emusync/orchestrator"
)

var (
	accent = lipgloss.Color("#00ff9f")
	dim    = lipgloss.Color("#6e7681")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle = lipgloss.NewStyle().Foreground(dim).Width(9)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1)
)

// renderSummary boxes what a command produced: one line per table written,
// with its counts.
func renderSummary(title string, res *orchestrator.Result) string {
	lines := []string{titleStyle.Render(title)}
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, labelStyle.Render(label)+value)
		}
	}
	table := func(file string, rep emotion.Report) string {
		if file == "" {
			return ""
		}
		return fmt.Sprintf("%s  %s", file, rep)
	}

	add("run", res.RunID)
	if res.FrameRate > 0 {
		add("fps", fmt.Sprintf("%g", res.FrameRate))
	}
	add("visual", table(res.Files.Visual, res.Reports.Visual))
	add("audio", table(res.Files.Audio, res.Reports.Audio))
	if res.Files.Merged != "" {
		add("weights", fmt.Sprintf("visual %g, audio %g", res.Weights.Visual, res.Weights.Audio))
		add("merged", table(res.Files.Merged, res.Reports.Fusion))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}
