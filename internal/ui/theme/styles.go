package theme

import "github.com/charmbracelet/lipgloss"

// Styles holds pre-computed Lip Gloss styles for the current theme.
type Styles struct {
	Title  lipgloss.Style
	Normal lipgloss.Style
	Muted  lipgloss.Style
	Bold   lipgloss.Style
	Error  lipgloss.Style
	URL    lipgloss.Style
	Hint   lipgloss.Style

	// Request units
	Unit         lipgloss.Style
	UnitSelected lipgloss.Style
	Timestamp    lipgloss.Style
	HeaderKey    lipgloss.Style
	HeaderValue  lipgloss.Style
	BodyTitle    lipgloss.Style
	Body         lipgloss.Style
	NoBody       lipgloss.Style
	Message      lipgloss.Style

	StatusBar lipgloss.Style

	theme Theme
}

// NewStyles creates a Styles set from a Theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Foreground(t.Text).Bold(true),
		Normal: lipgloss.NewStyle().Foreground(t.Text),
		Muted:  lipgloss.NewStyle().Foreground(t.Muted),
		Bold:   lipgloss.NewStyle().Foreground(t.Text).Bold(true),
		Error:  lipgloss.NewStyle().Foreground(t.Red),
		URL:    lipgloss.NewStyle().Foreground(t.Blue).Underline(true),
		Hint:   lipgloss.NewStyle().Foreground(t.Muted).Italic(true),

		Unit: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderUnfocused).
			Padding(0, 1),
		UnitSelected: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderFocused).
			Padding(0, 1),
		Timestamp:   lipgloss.NewStyle().Foreground(t.Subtext),
		HeaderKey:   lipgloss.NewStyle().Foreground(t.Mauve),
		HeaderValue: lipgloss.NewStyle().Foreground(t.Text),
		BodyTitle:   lipgloss.NewStyle().Foreground(t.Subtext).Bold(true),
		Body:        lipgloss.NewStyle().Foreground(t.Text),
		NoBody:      lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		Message: lipgloss.NewStyle().
			Foreground(t.Text).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Teal).
			Padding(1, 2),

		StatusBar: lipgloss.NewStyle().
			Background(t.Surface).
			Foreground(t.Text),

		theme: t,
	}
}

// Theme returns the theme the styles were built from.
func (s Styles) Theme() Theme {
	return s.theme
}

// MethodStyle returns the style for an HTTP method.
func (s Styles) MethodStyle(method string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.theme.MethodColor(method)).Bold(true)
}
