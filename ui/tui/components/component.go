package components

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Component is a widget the controller owns and feeds data into. It has the
// tea.Model shape so it can be driven like one.
type Component interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (tea.Model, tea.Cmd)
	View() string
}
