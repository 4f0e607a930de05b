package components

import (
	"hpoextend/ui/tui/styles"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/linechart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DepthWidget charts how many terms sit at each depth below the roots.
type DepthWidget struct {
	Chart  linechart.Model
	Counts []float64
	Width  int
	Height int
}

func NewDepthWidget(width, height int) *DepthWidget {
	// width, height, minX, maxX, minY, maxY
	lc := linechart.New(width, height, 0, 1, 0, 1)
	return &DepthWidget{
		Chart:  lc,
		Width:  width,
		Height: height,
	}
}

func (d *DepthWidget) Init() tea.Cmd {
	return nil
}

// SetCounts replaces the series and rescales the chart to fit it.
func (d *DepthWidget) SetCounts(counts []float64) {
	d.Counts = counts
	maxX := float64(len(counts) - 1)
	if maxX < 1 {
		maxX = 1
	}
	maxY := 1.0
	for _, c := range counts {
		if c > maxY {
			maxY = c
		}
	}
	d.Chart = linechart.New(d.Width, d.Height, 0, maxX, 0, maxY)
}

func (d *DepthWidget) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return d, nil
}

func (d *DepthWidget) Resize(w, h int) {
	d.Width = w
	d.Height = h
	d.Chart.Resize(w, h)
}

func (d *DepthWidget) View() string {
	d.Chart.Clear()
	for i := 0; i < len(d.Counts)-1; i++ {
		d.Chart.DrawBrailleLine(
			canvas.Float64Point{X: float64(i), Y: d.Counts[i]},
			canvas.Float64Point{X: float64(i + 1), Y: d.Counts[i+1]},
		)
	}
	d.Chart.DrawXYAxisAndLabel()

	return styles.CardStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render("Terms per Depth"),
			d.Chart.View(),
		),
	)
}

var _ Component = (*DepthWidget)(nil)
