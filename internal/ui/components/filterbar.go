package components

import (
	"sort"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/sadopc/gomibako/internal/ui/msgs"
	"github.com/sadopc/gomibako/internal/ui/theme"
)

// FilterBar is a one-line fuzzy filter input.
type FilterBar struct {
	Active bool
	input  textinput.Model
	theme  theme.Theme
}

// NewFilterBar creates a filter bar.
func NewFilterBar(t theme.Theme) FilterBar {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter METHOD URL"
	ti.CharLimit = 128
	return FilterBar{input: ti, theme: t}
}

// Open focuses the input, keeping the current query.
func (m *FilterBar) Open() tea.Cmd {
	m.Active = true
	return m.input.Focus()
}

// Close blurs the input.
func (m *FilterBar) Close() {
	m.Active = false
	m.input.Blur()
}

// Query returns the current filter text.
func (m FilterBar) Query() string {
	return m.input.Value()
}

// SetWidth sets the input width.
func (m *FilterBar) SetWidth(w int) {
	m.input.Width = max(w-4, 1)
}

// Update implements tea.Model.
func (m FilterBar) Update(msg tea.Msg) (FilterBar, tea.Cmd) {
	if !m.Active {
		return m, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.input.SetValue("")
			m.Close()
			return m, tea.Batch(
				func() tea.Msg { return msgs.FilterChangedMsg{} },
				func() tea.Msg { return msgs.SetModeMsg{Mode: msgs.ModeNormal} },
			)
		case "enter":
			m.Close()
			return m, func() tea.Msg { return msgs.SetModeMsg{Mode: msgs.ModeNormal} }
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		return m, tea.Batch(cmd, func() tea.Msg { return msgs.FilterChangedMsg{Query: after} })
	}
	return m, cmd
}

// View renders the filter line. It is empty when no filter is set.
func (m FilterBar) View() string {
	if !m.Active && m.input.Value() == "" {
		return ""
	}
	style := lipgloss.NewStyle().Foreground(m.theme.Text)
	if !m.Active {
		style = style.Foreground(m.theme.Muted)
	}
	return style.Render(m.input.View())
}

// FuzzyIndices returns the indices of lines matching query, in their
// original order. An empty query matches every line.
func FuzzyIndices(query string, lines []string) []int {
	if query == "" {
		idx := make([]int, len(lines))
		for i := range lines {
			idx[i] = i
		}
		return idx
	}
	matches := fuzzy.Find(query, lines)
	idx := make([]int, len(matches))
	for i, match := range matches {
		idx[i] = match.Index
	}
	sort.Ints(idx)
	return idx
}
