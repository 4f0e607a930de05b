package views

import (
	"fmt"
	"strings"

	"hpoextend/ui/tui/state"
	"hpoextend/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

// BrowserView shows one term with its parents, children and categories.
type BrowserView struct{}

func (v BrowserView) Render(s state.AppState, props ViewProps) string {
	header := MenuHeaderStyle.Width(props.Width).Render("Term Browser")
	if s.Current == nil {
		return lipgloss.JoinVertical(lipgloss.Left, header, "\n  "+props.SpinnerView+" Loading ontology...")
	}
	t := s.Current

	// Breadcrumb of the visited trail, newest last.
	crumbs := append(append([]string{}, s.Trail...), t.ID)
	if len(crumbs) > 6 {
		crumbs = append([]string{"…"}, crumbs[len(crumbs)-5:]...)
	}
	trail := styles.DimStyle.PaddingLeft(2).Render(strings.Join(crumbs, " › "))

	info := fmt.Sprintf("%s\n%s",
		lipgloss.NewStyle().Bold(true).Foreground(BrandColor).Render(t.ID),
		lipgloss.NewStyle().Bold(true).Render(t.Name))
	if len(t.AltIDs) > 0 {
		info += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("#888")).
			Render("alt: "+strings.Join(t.AltIDs, ", "))
	}
	if s.Extender != nil {
		if _, cats, err := s.Extender.Classify(t.ID); err == nil {
			names := make([]string, 0, len(cats))
			for _, c := range cats {
				names = append(names, c.Name)
			}
			label := "categories: " + strings.Join(names, ", ")
			if len(names) == 0 {
				label = "categories: none"
			}
			info += "\n" + lipgloss.NewStyle().Foreground(styles.Special).Render(label)
		}
	}
	infoBox := styles.CardStyle.Render(info)

	listHeight := props.Height - 18
	if listHeight < 5 {
		listHeight = 5
	}

	parents := styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Parents (%d)", len(s.Parents))),
		RenderTermList("parent", s.Parents, -1, 8),
	))
	children := styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Children (%d)", len(s.Children))),
		RenderTermList("child", s.Children, s.ChildIdx, listHeight),
	))

	jumpLabel := "Jump to id [/]: "
	if props.JumpFocused {
		jumpLabel = lipgloss.NewStyle().Foreground(BrandColor).Render("Jump to id: ")
	}
	jump := lipgloss.NewStyle().PaddingLeft(2).Render(jumpLabel + props.JumpView)
	if s.JumpError != "" {
		jump += "  " + ColorForStatus("CRIT").Render(s.JumpError)
	}

	footer := styles.KeyHelpStyle.Render("[↑/↓] Select child • [Enter/→] Open • [←] Back • [u] First parent • [/] Jump • [b] Menu")

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		header,
		trail,
		lipgloss.JoinHorizontal(lipgloss.Top, infoBox, parents),
		children,
		jump,
		footer,
	))
}
