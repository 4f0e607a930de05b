package views

import (
	"fmt"

	"hpoextend/internal/engine"
	"hpoextend/internal/ontology"
	"hpoextend/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

func ColorForStatus(status string) lipgloss.Style {
	sStyle := styles.StatusStyle
	if status == engine.StatusWarning {
		return sStyle.Foreground(lipgloss.Color("220")) // Gold
	} else if status == engine.StatusCritical {
		return sStyle.Foreground(lipgloss.Color("196")) // Red
	}
	return sStyle.Foreground(lipgloss.Color("46")) // Green
}

// TermZoneID names the clickable zone of a term row.
func TermZoneID(prefix string, i int) string {
	return fmt.Sprintf("%s_%d", prefix, i)
}

// RenderTermList draws terms one per line, marking the selected row. At
// most limit rows are shown, scrolled so the selection stays visible. Rows
// are wrapped in zones named by TermZoneID(prefix, i).
func RenderTermList(prefix string, terms []*ontology.Term, selected int, limit int) string {
	dim := styles.DimStyle
	if len(terms) == 0 {
		return dim.Render("  (none)")
	}

	start, end := 0, len(terms)
	if limit > 0 && len(terms) > limit {
		if selected >= limit {
			start = selected - limit + 1
		}
		end = start + limit
	}

	var rows []string
	if start > 0 {
		rows = append(rows, dim.Render(fmt.Sprintf("  … %d above", start)))
	}
	for i := start; i < end; i++ {
		t := terms[i]
		line := fmt.Sprintf("  %s  %s", t.ID, t.Name)
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#AAA"))
		if i == selected {
			line = fmt.Sprintf("▸ %s  %s", t.ID, t.Name)
			style = lipgloss.NewStyle().Bold(true).Foreground(BrandColor)
		}
		rows = append(rows, zone.Mark(TermZoneID(prefix, i), style.Render(line)))
	}
	if end < len(terms) {
		rows = append(rows, dim.Render(fmt.Sprintf("  … %d more", len(terms)-end)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
