package tui

import (
	"fmt"
	"strings"
	"time"

	"hpoextend/internal/annotation"
	"hpoextend/internal/engine"
	"hpoextend/internal/ontology"
	"hpoextend/ui/tui/components"
	"hpoextend/ui/tui/state"
	"hpoextend/ui/tui/views"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

const (
	maxTrail = 100
	maxLogs  = 500
)

// Loader produces the ontology to browse. It runs off the UI goroutine.
type Loader func() (*ontology.Graph, error)

// MainModel is the Bubble Tea Model acting as the Controller
type MainModel struct {
	load           Loader
	categoryRoot   string
	checks         engine.Config
	state          state.AppState
	spinner        spinner.Model
	jump           textinput.Model
	depth          *components.DepthWidget
	menuCursor     int
	animCursor     float64
	velocity       float64 // Physics velocity
	spring         harmonica.Spring
	consoleScrollY int
	mouseX         int
	mouseY         int
	quitting       bool
	width          int
	height         int
}

// Messages
type AnimateMsg time.Time
type OntologyLoadedMsg struct {
	Graph *ontology.Graph
	Err   error
}

func InitialModel(load Loader, categoryRoot string, checks engine.Config) MainModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = annotation.DefaultCategoryRoot
	ti.Prompt = ""
	ti.CharLimit = 32
	ti.Width = 20

	// Increased frequency (12.0) for faster response and damping (0.9) to prevent overshoot
	spring := harmonica.NewSpring(harmonica.FPS(60), 12.0, 0.9)

	return MainModel{
		load:         load,
		categoryRoot: categoryRoot,
		checks:       checks,
		spinner:      s,
		jump:         ti,
		depth:        components.NewDepthWidget(30, 10),
		spring:       spring,
		state: state.AppState{
			CurrentPage: state.PageMenu,
		},
	}
}

func (m *MainModel) Init() tea.Cmd {
	zone.NewGlobal()
	return tea.Batch(
		m.spinner.Tick,
		animateCmd(),
		loadOntologyCmd(m.load),
	)
}

// Commands
func animateCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*16, func(t time.Time) tea.Msg {
		return AnimateMsg(t)
	})
}

func loadOntologyCmd(load Loader) tea.Cmd {
	return func() tea.Msg {
		g, err := load()
		return OntologyLoadedMsg{Graph: g, Err: err}
	}
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case AnimateMsg:
		return m.handleAnimateMsg(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)

	case OntologyLoadedMsg:
		return m.handleOntologyLoadedMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	}

	if m.jump.Focused() {
		var cmd tea.Cmd
		m.jump, cmd = m.jump.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *MainModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The jump box swallows every key while it has focus.
	if m.jump.Focused() {
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			m.jumpTo(m.jump.Value())
			return m, nil
		case "esc":
			m.jump.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.jump, cmd = m.jump.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	if m.state.CurrentPage == state.PageMenu {
		switch msg.String() {
		case "up", "k":
			if m.menuCursor > 0 {
				m.menuCursor--
			}
		case "down", "j":
			if m.menuCursor < len(views.MenuOptions)-1 {
				m.menuCursor++
			}
		case "enter":
			m.navigateTo(m.menuCursor)
		}
		return m, nil
	}

	if m.state.CurrentPage == state.PageBrowser && m.state.Current != nil {
		switch msg.String() {
		case "up", "k":
			if m.state.ChildIdx > 0 {
				m.state.ChildIdx--
			}
			return m, nil
		case "down", "j":
			if m.state.ChildIdx < len(m.state.Children)-1 {
				m.state.ChildIdx++
			}
			return m, nil
		case "enter", "right", "l":
			m.openChild(m.state.ChildIdx)
			return m, nil
		case "left", "h":
			m.back()
			return m, nil
		case "u":
			if len(m.state.Parents) > 0 {
				m.visit(m.state.Parents[0], true)
			}
			return m, nil
		case "/":
			m.state.JumpError = ""
			return m, m.jump.Focus()
		}
	}

	if m.state.CurrentPage == state.PageConsole {
		switch msg.String() {
		case "up", "k":
			if m.consoleScrollY > 0 {
				m.consoleScrollY--
			}
		case "down", "j":
			m.consoleScrollY++
		}
	}

	if msg.String() == "b" || msg.String() == "esc" || msg.String() == "backspace" {
		m.state.CurrentPage = state.PageMenu
		m.consoleScrollY = 0
		return m, nil
	}

	return m, nil
}

func (m *MainModel) navigateTo(cursor int) {
	switch cursor {
	case 0:
		m.state.CurrentPage = state.PageBrowser
	case 1:
		m.state.CurrentPage = state.PageDashboard
	case 2:
		m.state.CurrentPage = state.PageDepth
	case 3:
		m.state.CurrentPage = state.PageConsole
	}
}

// visit makes t the browsed term. push records the previous term so back()
// can return to it.
func (m *MainModel) visit(t *ontology.Term, push bool) {
	if push && m.state.Current != nil && m.state.Current != t {
		m.state.Trail = append(m.state.Trail, m.state.Current.ID)
		if len(m.state.Trail) > maxTrail {
			m.state.Trail = m.state.Trail[1:]
		}
	}

	m.state.Current = t
	m.state.Children = t.Children().Sorted()
	m.state.Parents = nil
	if parents, err := t.Parents(); err == nil {
		m.state.Parents = parents.Sorted()
	}
	m.state.ChildIdx = 0
	m.state.JumpError = ""
	m.logf("visit %s %s (%d parents, %d children)", t.ID, t.Name, len(m.state.Parents), len(m.state.Children))
}

func (m *MainModel) openChild(i int) {
	if i < 0 || i >= len(m.state.Children) {
		return
	}
	m.visit(m.state.Children[i], true)
}

func (m *MainModel) back() {
	n := len(m.state.Trail)
	if n == 0 {
		return
	}
	id := m.state.Trail[n-1]
	m.state.Trail = m.state.Trail[:n-1]
	if t, err := m.state.Graph.Lookup(id); err == nil {
		m.visit(t, false)
	}
}

func (m *MainModel) jumpTo(id string) {
	id = strings.TrimSpace(id)
	if id == "" || m.state.Graph == nil {
		m.jump.Blur()
		return
	}
	t, err := m.state.Graph.Lookup(id)
	if err != nil {
		m.state.JumpError = err.Error()
		m.logf("jump %s: %v", id, err)
		return
	}
	m.jump.Reset()
	m.jump.Blur()
	m.visit(t, true)
}

func (m *MainModel) logf(format string, args ...any) {
	line := fmt.Sprintf("[%s] ", time.Now().Format("15:04:05")) + fmt.Sprintf(format, args...)
	m.state.ConsoleLogs = append(m.state.ConsoleLogs, line)
	if len(m.state.ConsoleLogs) > maxLogs {
		m.state.ConsoleLogs = m.state.ConsoleLogs[1:]
	}
}

func (m *MainModel) handleAnimateMsg(msg AnimateMsg) (tea.Model, tea.Cmd) {
	var v float64 = m.velocity
	m.animCursor, v = m.spring.Update(m.animCursor, float64(m.menuCursor), v)
	m.velocity = v
	return m, animateCmd()
}

func (m *MainModel) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	newW := msg.Width/2 - 6
	if newW > 10 {
		m.depth.Resize(newW, 10)
	}
	return m, nil
}

func (m *MainModel) handleOntologyLoadedMsg(msg OntologyLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.state.Err = msg.Err
		m.logf("load failed: %v", msg.Err)
		return m, nil
	}
	g := msg.Graph

	ext, err := annotation.NewExtender(g, m.categoryRoot)
	if err != nil {
		m.state.Err = err
		m.logf("load failed: %v", err)
		return m, nil
	}

	// Update State
	m.state.Graph = g
	m.state.Extender = ext
	m.state.Err = nil
	m.state.LoadedAt = time.Now()
	m.state.Summary = engine.Summarize(g, ext, annotation.Stats{})
	m.state.Results = engine.Evaluate(m.state.Summary, m.checks)
	m.state.Verdict = engine.Assess(m.state.Results)

	m.state.Categories = m.state.Categories[:0]
	for _, c := range ext.Categories() {
		m.state.Categories = append(m.state.Categories, state.CategorySize{
			Term:        c,
			Descendants: len(c.Descendants()),
		})
	}

	// Update Chart
	m.state.DepthCounts = depthCounts(g)
	m.depth.SetCounts(m.state.DepthCounts)

	m.logf("loaded %d terms (%s), %d roots, %d obsolete skipped",
		g.Len(), g.DataVersion, len(g.Roots()), g.SkippedObsolete)

	start := ext.Root()
	if root, err := g.Root(); err == nil {
		start = root
	}
	m.visit(start, false)
	return m, nil
}

func depthCounts(g *ontology.Graph) []float64 {
	depths := g.Depths()
	maxDepth := 0
	for _, d := range depths {
		maxDepth = max(maxDepth, d)
	}
	counts := make([]float64, maxDepth+1)
	for _, d := range depths {
		counts[d]++
	}
	return counts
}

func (m *MainModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	m.mouseX = msg.X
	m.mouseY = msg.Y

	if msg.Action != tea.MouseActionRelease {
		return m, nil
	}

	switch m.state.CurrentPage {
	case state.PageMenu:
		for i := range views.MenuOptions {
			if zone.Get(fmt.Sprintf("menu_%d", i)).InBounds(msg) {
				m.menuCursor = i
				m.navigateTo(i)
				return m, nil
			}
		}
	case state.PageBrowser:
		for i := range m.state.Children {
			if zone.Get(views.TermZoneID("child", i)).InBounds(msg) {
				m.openChild(i)
				return m, nil
			}
		}
		for i, p := range m.state.Parents {
			if zone.Get(views.TermZoneID("parent", i)).InBounds(msg) {
				m.visit(p, true)
				return m, nil
			}
		}
	case state.PageDashboard:
		if zone.Get("depth_box").InBounds(msg) {
			m.state.CurrentPage = state.PageDepth
		}
	}
	return m, nil
}

func (m *MainModel) View() string {
	if m.quitting {
		return "Bye!\n"
	}

	switch m.state.CurrentPage {
	case state.PageMenu:
		return views.RenderMenu(m.state, m.width, m.height, m.menuCursor, m.animCursor, m.mouseX, m.mouseY, m.spinner.View())
	case state.PageBrowser:
		return views.RenderBrowser(m.state, m.width, m.height, m.spinner.View(), m.jump.View(), m.jump.Focused())
	case state.PageDashboard:
		return views.RenderDashboard(m.state, m.spinner.View(), m.depth.View())
	case state.PageDepth:
		return views.RenderDepth(m.state, m.depth.View(), m.width, m.height)
	case state.PageConsole:
		return views.RenderRawConsole(m.state, m.width, m.height, m.consoleScrollY)
	default:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Bold(true).Render("Unknown page\n\nPress 'b' to go back"),
		)
	}
}

// Start runs the browser until the user quits.
func Start(load Loader, categoryRoot string, checks engine.Config) error {
	m := InitialModel(load, categoryRoot, checks)
	p := tea.NewProgram(
		&m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	return err
}
