package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"hpoextend/internal/engine"
	"hpoextend/internal/output"
)

const (
	colorRed    = lipgloss.Color("196")
	colorGreen  = lipgloss.Color("46")
	colorYellow = lipgloss.Color("220")
	colorCyan   = lipgloss.Color("51")

	labelWidth = 22
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	leaderStyle = lipgloss.NewStyle().Foreground(colorCyan).Faint(true)
)

// Print renders the run report to the writer in a compact format.
func Print(w io.Writer, view output.ReportView) {
	fmt.Fprintln(w, headerStyle.Render("■ HPOEXTEND REPORT"))
	if view.RunID != "" {
		fmt.Fprintf(w, "  run %s\n", view.RunID)
	}

	for _, sec := range view.Sections {
		if len(sec.Items) == 0 {
			continue
		}
		fmt.Fprintln(w, headerStyle.Render("─ "+sec.Title))

		for _, it := range sec.Items {
			label := it.Label
			if len(label) > labelWidth-2 {
				label = label[:labelWidth-5] + "..."
			}
			dots := strings.Repeat("·", labelWidth-len(label))

			fmt.Fprintf(w, "  %s%s %10s%s\n", label, leaderStyle.Render(dots), formatValue(sec.ID, it), statusMarker(it.Status))
		}
	}

	verdict := lipgloss.NewStyle().Bold(true).Foreground(colorFor(severityStatus(view.Verdict.SeverityLevel)))
	fmt.Fprintf(w, "%s: %s (risk %d)\n\n", headerStyle.Render("─ Verdict"), verdict.Render(view.Headline()), view.Verdict.RiskScore)
}

func formatValue(section string, it output.Item) string {
	switch {
	case it.Unit != "":
		return fmt.Sprintf("%.1f%s", it.Value, it.Unit)
	case section == output.SectionCategories:
		// Category rows carry their id in Note; the count is what matters here.
		return fmt.Sprintf("%d", int(it.Value))
	case it.Note != "":
		note := it.Note
		if len(note) > 25 {
			note = note[:22] + "..."
		}
		return note
	default:
		return fmt.Sprintf("%d", int(it.Value))
	}
}

func statusMarker(status string) string {
	if status == "" {
		return ""
	}
	style := lipgloss.NewStyle().Foreground(colorFor(status))
	switch status {
	case engine.StatusWarning:
		return " " + style.Render("!")
	case engine.StatusCritical:
		return " " + style.Render("X")
	default:
		return " " + style.Render("✓")
	}
}

func severityStatus(level int) string {
	switch level {
	case 3:
		return engine.StatusCritical
	case 2:
		return engine.StatusWarning
	default:
		return engine.StatusHealthy
	}
}

func colorFor(status string) lipgloss.Color {
	switch status {
	case engine.StatusWarning:
		return colorYellow
	case engine.StatusCritical:
		return colorRed
	default:
		return colorGreen
	}
}
