package tui

import (
	"errors"
	"testing"
	"time"

	"hpoextend/internal/engine"
	"hpoextend/internal/ontology"
	"hpoextend/ui/tui/state"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "../../internal/ontology/testdata/mini.obo"

func fixtureLoader() (*ontology.Graph, error) {
	return ontology.Load(fixture)
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m *MainModel, msg tea.Msg) *MainModel {
	t.Helper()
	updated, _ := m.Update(msg)
	return updated.(*MainModel)
}

// loadedModel returns a model that already holds the fixture ontology.
func loadedModel(t *testing.T) *MainModel {
	t.Helper()
	g, err := fixtureLoader()
	require.NoError(t, err)
	model := InitialModel(fixtureLoader, "", engine.DefaultConfig())
	return send(t, &model, OntologyLoadedMsg{Graph: g})
}

func TestMenuNavigation(t *testing.T) {
	model := InitialModel(fixtureLoader, "", engine.DefaultConfig())

	// Initial state
	if model.menuCursor != 0 {
		t.Errorf("Expected initial menu cursor 0, got %d", model.menuCursor)
	}
	if model.state.CurrentPage != state.PageMenu {
		t.Errorf("Expected initial page PageMenu, got %v", model.state.CurrentPage)
	}

	// Test Down Navigation
	cmd := tea.KeyMsg{Type: tea.KeyDown, Runes: []rune{}, Alt: false}
	updatedModel, _ := model.Update(cmd)
	m := updatedModel.(*MainModel)

	if m.menuCursor != 1 {
		t.Errorf("Expected menu cursor 1 after Down key, got %d", m.menuCursor)
	}

	// Cursor stops at the last entry
	for i := 0; i < 10; i++ {
		m = send(t, m, cmd)
	}
	if m.menuCursor != 3 {
		t.Errorf("Expected menu cursor to stop at 3, got %d", m.menuCursor)
	}

	// Test Up Navigation
	cmd = tea.KeyMsg{Type: tea.KeyUp, Runes: []rune{}, Alt: false}
	updatedModel, _ = m.Update(cmd)
	m = updatedModel.(*MainModel)

	if m.menuCursor != 2 {
		t.Errorf("Expected menu cursor 2 after Up key, got %d", m.menuCursor)
	}
}

func TestMenuAnimationLogic(t *testing.T) {
	model := InitialModel(fixtureLoader, "", engine.DefaultConfig())

	// Move cursor to 1
	model.menuCursor = 1

	// Initial animation cursor should be 0
	if model.animCursor != 0 {
		t.Errorf("Expected initial animCursor 0, got %f", model.animCursor)
	}

	// The spring physics should move animCursor towards menuCursor (1.0)

	// Frame 1
	animateMsg := AnimateMsg(time.Now())
	updatedModel, _ := model.Update(animateMsg)
	m := updatedModel.(*MainModel)

	if m.animCursor <= 0 {
		t.Errorf("Expected animCursor to increase after animation frame, got %f", m.animCursor)
	}
	if m.animCursor >= 1.0 {
		t.Errorf("Expected animCursor to not reach target immediately, got %f", m.animCursor)
	}

	// Frame 2
	updatedModel, _ = m.Update(animateMsg)
	m = updatedModel.(*MainModel)
	prevCursor := m.animCursor

	// Frame 3
	updatedModel, _ = m.Update(animateMsg)
	m = updatedModel.(*MainModel)

	if m.animCursor <= prevCursor {
		t.Errorf("Expected animCursor to continue increasing, got %f (prev %f)", m.animCursor, prevCursor)
	}
}

func TestPageTransition(t *testing.T) {
	model := InitialModel(fixtureLoader, "", engine.DefaultConfig())

	// Select first item (Browser)
	model.menuCursor = 0
	cmd := tea.KeyMsg{Type: tea.KeyEnter, Runes: []rune{}, Alt: false}
	updatedModel, _ := model.Update(cmd)
	m := updatedModel.(*MainModel)

	if m.state.CurrentPage != state.PageBrowser {
		t.Errorf("Expected page to change to PageBrowser, got %v", m.state.CurrentPage)
	}

	// Go Back
	cmd = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'b'}, Alt: false}
	updatedModel, _ = m.Update(cmd)
	m = updatedModel.(*MainModel)

	if m.state.CurrentPage != state.PageMenu {
		t.Errorf("Expected page to change back to PageMenu, got %v", m.state.CurrentPage)
	}

	m.menuCursor = 3
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.state.CurrentPage != state.PageConsole {
		t.Errorf("Expected page to change to PageConsole, got %v", m.state.CurrentPage)
	}
}

func TestOntologyLoaded(t *testing.T) {
	m := loadedModel(t)

	require.NoError(t, m.state.Err)
	require.True(t, m.state.Loaded())
	require.NotNil(t, m.state.Current)

	// Single-rooted fixture: browsing starts at the root.
	assert.Equal(t, "HP:0000000", m.state.Current.ID)
	assert.Empty(t, m.state.Trail)
	assert.Equal(t, []float64{1, 2, 2, 2, 1}, m.state.DepthCounts)
	assert.Equal(t, m.state.DepthCounts, m.depth.Counts)

	require.Len(t, m.state.Categories, 2)
	assert.Equal(t, "HP:0000001", m.state.Categories[0].Term.ID)
	assert.Equal(t, 3, m.state.Categories[0].Descendants)
	assert.Equal(t, 2, m.state.Categories[1].Descendants)

	assert.Equal(t, 8, m.state.Summary.Terms)
	assert.Equal(t, "HP:0000118", m.state.Summary.CategoryRoot)
	assert.NotEmpty(t, m.state.Results)
	assert.NotEmpty(t, m.state.ConsoleLogs)
}

func TestOntologyLoadErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	model := InitialModel(fixtureLoader, "", engine.DefaultConfig())
	m := send(t, &model, OntologyLoadedMsg{Err: boom})
	assert.ErrorIs(t, m.state.Err, boom)
	assert.False(t, m.state.Loaded())

	g, err := fixtureLoader()
	require.NoError(t, err)
	model = InitialModel(fixtureLoader, "HP:4040404", engine.DefaultConfig())
	m = send(t, &model, OntologyLoadedMsg{Graph: g})
	assert.ErrorIs(t, m.state.Err, ontology.ErrNotFound)
	assert.False(t, m.state.Loaded())
}

func TestBrowserNavigation(t *testing.T) {
	m := loadedModel(t)
	m.state.CurrentPage = state.PageBrowser

	// Root children: HP:0000118, HP:0000500
	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.state.ChildIdx)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.state.ChildIdx, "cursor stops at the last child")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.state.ChildIdx)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "HP:0000118", m.state.Current.ID)
	assert.Equal(t, []string{"HP:0000000"}, m.state.Trail)
	require.Len(t, m.state.Children, 2)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "HP:0000002", m.state.Current.ID)
	assert.Equal(t, 0, m.state.ChildIdx)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, "HP:0000118", m.state.Current.ID)
	assert.Equal(t, []string{"HP:0000000"}, m.state.Trail)

	m = send(t, m, keyRunes("u"))
	assert.Equal(t, "HP:0000000", m.state.Current.ID)

	// Still on the browser page.
	assert.Equal(t, state.PageBrowser, m.state.CurrentPage)
}

func TestBrowserJump(t *testing.T) {
	m := loadedModel(t)
	m.state.CurrentPage = state.PageBrowser

	m = send(t, m, keyRunes("/"))
	require.True(t, m.jump.Focused())

	// Keys go to the box while it has focus, including 'q'.
	m = send(t, m, keyRunes("q"))
	assert.False(t, m.quitting)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, state.PageBrowser, m.state.CurrentPage)

	m = send(t, m, keyRunes("HP:0000003"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.jump.Focused())
	assert.Equal(t, "HP:0000002", m.state.Current.ID, "alt id resolves to its primary term")
	assert.Equal(t, "", m.jump.Value())

	m = send(t, m, keyRunes("/"))
	m = send(t, m, keyRunes("HP:7777777"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.jump.Focused())
	assert.NotEmpty(t, m.state.JumpError)
	assert.Equal(t, "HP:0000002", m.state.Current.ID)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.jump.Focused())
	assert.Equal(t, state.PageBrowser, m.state.CurrentPage)
}

func TestDepthCounts(t *testing.T) {
	g, err := fixtureLoader()
	require.NoError(t, err)

	counts := depthCounts(g)
	total := 0.0
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, float64(g.Len()), total)
}

func TestViewsRender(t *testing.T) {
	zone.NewGlobal()
	m := loadedModel(t)
	m = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	pages := map[state.Page]string{
		state.PageMenu:      "Term Browser",
		state.PageBrowser:   "HP:0000118",
		state.PageDashboard: "Category A",
		state.PageDepth:     "Depth Distribution",
		state.PageConsole:   "loaded 8 terms",
	}
	for page, want := range pages {
		m.state.CurrentPage = page
		var out string
		require.NotPanics(t, func() { out = m.View() }, "page %v", page)
		assert.Contains(t, out, want, "page %v", page)
	}

	m.quitting = true
	assert.Equal(t, "Bye!\n", m.View())
}
