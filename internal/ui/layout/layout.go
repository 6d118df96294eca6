package layout

import tea "github.com/charmbracelet/bubbletea"

// ScreenLayout holds the row budget of the inspect screen: a header, an
// optional filter line, the request viewport and the status bar.
type ScreenLayout struct {
	Width  int
	Height int

	FilterVisible  bool
	ViewportHeight int
	// UnitWidth is the width of one rendered request, border included.
	UnitWidth int
}

const (
	headerHeight    = 1
	filterHeight    = 1
	statusBarHeight = 1
	maxUnitWidth    = 160
	minWidth        = 20
)

// Calculate computes the layout from terminal dimensions.
func Calculate(width, height int, filterVisible bool) ScreenLayout {
	l := ScreenLayout{
		Width:         width,
		Height:        height,
		FilterVisible: filterVisible,
	}

	used := headerHeight + statusBarHeight
	if filterVisible {
		used += filterHeight
	}
	l.ViewportHeight = max(height-used, 1)
	l.UnitWidth = clamp(width, minWidth, maxUnitWidth)
	return l
}

// HandleResize processes a WindowSizeMsg and returns the updated layout.
func HandleResize(msg tea.WindowSizeMsg, filterVisible bool) ScreenLayout {
	return Calculate(msg.Width, msg.Height, filterVisible)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
