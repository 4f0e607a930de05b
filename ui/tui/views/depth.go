package views

import (
	"fmt"
	"strings"

	"hpoextend/ui/tui/state"
	"hpoextend/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// DepthView charts and tabulates terms per depth.
type DepthView struct{}

func (v DepthView) Render(s state.AppState, props ViewProps) string {
	header := MenuHeaderStyle.Width(props.Width).Render("Depth Distribution")

	total := 0.0
	peak, peakDepth := 0.0, 0
	for d, c := range s.DepthCounts {
		total += c
		if c > peak {
			peak, peakDepth = c, d
		}
	}

	info := lipgloss.NewStyle().
		Padding(1, 2).
		Render(fmt.Sprintf("Terms: %.0f\nMax depth: %d\nWidest level: depth %d (%.0f terms)",
			total, max(len(s.DepthCounts)-1, 0), peakDepth, peak))

	// Per-depth bars
	var bars []string
	for d, c := range s.DepthCounts {
		barWidth := 24
		filled := 0
		if peak > 0 {
			filled = int(float64(barWidth) * c / peak)
		}
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
		bars = append(bars, fmt.Sprintf("Depth %2d: [%s] %6.0f",
			d, lipgloss.NewStyle().Foreground(styles.Special).Render(bar), c))
	}

	// Split depths into columns if there are many
	const depthsPerCol = 12
	var cols []string
	for i := 0; i < len(bars); i += depthsPerCol {
		end := min(i+depthsPerCol, len(bars))
		col := lipgloss.JoinVertical(lipgloss.Left, bars[i:end]...)
		if i > 0 {
			col = lipgloss.NewStyle().PaddingLeft(4).Render(col)
		}
		cols = append(cols, col)
	}

	barBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Highlight).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render("Terms by Depth"),
			lipgloss.JoinHorizontal(lipgloss.Top, cols...),
		))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		info,
		lipgloss.JoinHorizontal(lipgloss.Top, props.ChartView, barBox),
		lipgloss.NewStyle().Padding(1, 2).Foreground(styles.Subtle).Render("Press 'b' to go back"),
	)
}
