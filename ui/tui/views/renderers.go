package views

import (
	"hpoextend/ui/tui/state"
)

func RenderMenu(s state.AppState, width, height, cursor int, animCursor float64, mouseX, mouseY int, spinnerView string) string {
	v := MenuView{}
	return v.Render(s, ViewProps{
		Width:       width,
		Height:      height,
		MenuCursor:  cursor,
		AnimCursor:  animCursor,
		MouseX:      mouseX,
		MouseY:      mouseY,
		SpinnerView: spinnerView,
	})
}

func RenderDashboard(s state.AppState, spinnerView, chartView string) string {
	v := DashboardView{}
	return v.Render(s, ViewProps{
		SpinnerView: spinnerView,
		ChartView:   chartView,
	})
}

func RenderBrowser(s state.AppState, width, height int, spinnerView, jumpView string, jumpFocused bool) string {
	v := BrowserView{}
	return v.Render(s, ViewProps{
		Width:       width,
		Height:      height,
		SpinnerView: spinnerView,
		JumpView:    jumpView,
		JumpFocused: jumpFocused,
	})
}

func RenderRawConsole(s state.AppState, width, height, scrollY int) string {
	v := ConsoleView{}
	return v.Render(s, ViewProps{
		Width:   width,
		Height:  height,
		ScrollY: scrollY,
	})
}

func RenderDepth(s state.AppState, chartView string, width, height int) string {
	v := DepthView{}
	return v.Render(s, ViewProps{
		Width:     width,
		Height:    height,
		ChartView: chartView,
	})
}
