package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sadopc/gomibako/internal/ui/msgs"
	"github.com/sadopc/gomibako/internal/ui/theme"
)

// ClearStatusMsg clears a temporary status message.
type ClearStatusMsg struct{}

// StatusBar is a full-width bottom status bar.
type StatusBar struct {
	state     string
	count     int
	shown     int
	bodyBytes int64
	key       string
	mode      msgs.AppMode
	message   string
	width     int
	theme     theme.Theme
}

// NewStatusBar creates a new status bar.
func NewStatusBar(t theme.Theme) StatusBar {
	return StatusBar{
		theme: t,
		mode:  msgs.ModeNormal,
		shown: -1,
	}
}

// SetFeed sets the connection state and log totals. shown is the number of
// records passing the filter, or -1 when no filter is active.
func (m *StatusBar) SetFeed(state string, count, shown int, bodyBytes int64) {
	m.state = state
	m.count = count
	m.shown = shown
	m.bodyBytes = bodyBytes
}

// SetKey sets the session key shown on the right.
func (m *StatusBar) SetKey(key string) {
	m.key = key
}

// SetMode sets the current app mode.
func (m *StatusBar) SetMode(mode msgs.AppMode) {
	m.mode = mode
}

// SetWidth sets the available width.
func (m *StatusBar) SetWidth(w int) {
	m.width = w
}

// SetMessage sets a temporary status message.
func (m *StatusBar) SetMessage(text string) {
	m.message = text
}

// Update implements tea.Model.
func (m StatusBar) Update(msg tea.Msg) (StatusBar, tea.Cmd) {
	switch msg.(type) {
	case ClearStatusMsg:
		m.message = ""
	}
	return m, nil
}

func (m StatusBar) stateColor() lipgloss.Color {
	switch m.state {
	case "streaming":
		return m.theme.Green
	case "connecting":
		return m.theme.Yellow
	case "disconnected", "closed":
		return m.theme.Red
	default:
		return m.theme.Muted
	}
}

// View renders the status bar.
func (m StatusBar) View() string {
	bg := m.theme.Surface
	barStyle := lipgloss.NewStyle().
		Background(bg).
		Foreground(m.theme.Text).
		Width(m.width)
	seg := func(fg lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(fg).Background(bg)
	}

	var leftParts []string
	if m.message != "" {
		leftParts = append(leftParts, seg(m.theme.Text).Render(m.message))
	} else {
		if m.state != "" {
			leftParts = append(leftParts, seg(m.stateColor()).Bold(true).Render("● "+m.state))
		}
		count := fmt.Sprintf("%d requests", m.count)
		if m.count == 1 {
			count = "1 request"
		}
		if m.shown >= 0 {
			count = fmt.Sprintf("%d/%d requests", m.shown, m.count)
		}
		leftParts = append(leftParts, seg(m.theme.Subtext).Render(count))
		if m.bodyBytes > 0 {
			leftParts = append(leftParts, seg(m.theme.Subtext).Render(humanize.IBytes(uint64(m.bodyBytes))))
		}
	}
	left := strings.Join(leftParts, seg(m.theme.Muted).Render(" │ "))

	modeStr := seg(m.theme.Mauve).Bold(true).Render("[" + m.mode.String() + "]")

	var rightParts []string
	if m.key != "" {
		rightParts = append(rightParts, seg(m.theme.Teal).Bold(true).Render(m.key))
	}
	rightParts = append(rightParts, seg(m.theme.Muted).Render("?:help  /:filter  q:quit"))
	hint := strings.Join(rightParts, " ")

	totalContent := lipgloss.Width(left) + lipgloss.Width(modeStr) + lipgloss.Width(hint)
	if totalContent+2 >= m.width {
		return barStyle.Render(" " + left + " " + modeStr + " " + hint)
	}

	remaining := m.width - totalContent - 2
	gap1 := remaining / 2
	gap2 := remaining - gap1

	line := " " + left +
		strings.Repeat(" ", gap1) + modeStr +
		strings.Repeat(" ", gap2) + hint
	return barStyle.Render(line)
}
