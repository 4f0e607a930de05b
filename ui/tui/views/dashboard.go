package views

import (
	"fmt"

	"hpoextend/ui/tui/state"
	"hpoextend/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

type DashboardView struct{}

func (v DashboardView) Render(s state.AppState, props ViewProps) string {
	if s.Err != nil {
		return fmt.Sprintf("Error: %v", s.Err)
	}
	if !s.Loaded() {
		return props.SpinnerView + " Loading ontology..."
	}

	header := lipgloss.JoinHorizontal(lipgloss.Left,
		props.SpinnerView,
		styles.TitleStyle.Render("Ontology Dashboard"),
		fmt.Sprintf(" Loaded: %s", s.LoadedAt.Format("15:04:05")),
	)

	sum := s.Summary
	row := func(label, value string) string {
		return fmt.Sprintf("%-18s : %s\n", label, value)
	}

	ontology := row("Data Version", sum.DataVersion) +
		row("Terms", fmt.Sprintf("%d", sum.Terms)) +
		row("Roots", fmt.Sprintf("%d", sum.Roots)) +
		row("Obsolete Skipped", fmt.Sprintf("%d (%.1f%%)", sum.ObsoleteSkipped, sum.ObsoletePct())) +
		row("Max Depth", fmt.Sprintf("%d", sum.MaxDepth)) +
		row("Category Root", sum.CategoryRoot)

	checks := ""
	for _, r := range s.Results {
		checks += row(r.Name, ColorForStatus(r.Status).Render(fmt.Sprintf("%.1f [%s]", r.Value, r.Status)))
	}
	if s.Verdict.Explanation != "" {
		checks += "\n" + ColorForStatus(severityStatus(s.Verdict.SeverityLevel)).Render(s.Verdict.Explanation)
	}

	cats := ""
	for _, c := range s.Categories {
		cats += fmt.Sprintf("%s %-34s %6d\n", c.Term.ID, truncate(c.Term.Name, 34), c.Descendants)
	}
	if cats == "" {
		cats = "(no categories under the category root)\n"
	}

	ontoCol := styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render("Ontology"),
		ontology,
	))
	checksCol := styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render("Checks"),
		checks,
	))
	catsCol := styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Categories (%d)", len(s.Categories))),
		cats,
	))
	depthCol := zone.Mark("depth_box", props.ChartView)

	row1 := lipgloss.JoinHorizontal(lipgloss.Top, ontoCol, checksCol)
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, catsCol, depthCol)

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		header,
		row1,
		row2,
		lipgloss.NewStyle().Foreground(styles.Subtle).Render("\nClick the chart for detail • Press 'b' to go back • 'q' to quit"),
	))
}

func severityStatus(level int) string {
	switch level {
	case 3:
		return "CRIT"
	case 2:
		return "WARN"
	default:
		return "OK"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
