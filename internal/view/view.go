// Package view renders a snapshot of the request log as terminal text.
//
// Render is a pure function of its inputs: the same records and options
// always produce the same string, so any adapter (the TUI viewport, the
// headless tail writer, tests) can call it as often as it likes.
package view

import (
	"net/url"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/gomibako/internal/record"
	"github.com/sadopc/gomibako/internal/ui/theme"
)

// NoBody is shown in the body area of a request without a body.
const NoBody = "No body"

// Options controls how records are rendered.
type Options struct {
	Styles theme.Styles
	// AccessURL is where requests for this session should be sent.
	AccessURL string
	// ShowAccessURL enables the empty-log affordance.
	ShowAccessURL bool
	// Highlight enables syntax highlighting of bodies.
	Highlight bool
	// Width of each unit including its border; zero means unconstrained.
	Width int
	// Selected is the index of the highlighted unit, or -1.
	Selected int
}

// DefaultOptions returns options using the default theme.
func DefaultOptions(accessURL string) Options {
	return Options{
		Styles:        theme.NewStyles(theme.Default()),
		AccessURL:     accessURL,
		ShowAccessURL: true,
		Selected:      -1,
	}
}

// AccessURL joins a server origin and a session key into the capture URL.
func AccessURL(origin, key string) string {
	return strings.TrimRight(origin, "/") + "/g/" + url.PathEscape(key)
}

// Render renders records, newest first, as they appear in the log snapshot.
// An empty slice renders the "send a request here" message instead.
func Render(records []record.Request, opts Options) string {
	if len(records) == 0 {
		return renderEmpty(opts)
	}

	units := make([]string, 0, len(records))
	for i, r := range records {
		units = append(units, renderUnit(r, opts, i == opts.Selected))
	}
	return strings.Join(units, "\n")
}

// RenderUnit renders a single record without selection.
func RenderUnit(r record.Request, opts Options) string {
	return renderUnit(r, opts, false)
}

func renderEmpty(opts Options) string {
	s := opts.Styles
	if !opts.ShowAccessURL || opts.AccessURL == "" {
		return s.Hint.Render("Waiting for requests...")
	}
	msg := s.Normal.Render("Access to ") + s.URL.Render(opts.AccessURL) + "\n\n" +
		s.Hint.Render("Requests sent to this URL appear here as they arrive.")
	return withWidth(s.Message, opts.Width).Render(msg)
}

func renderUnit(r record.Request, opts Options, selected bool) string {
	s := opts.Styles

	var b strings.Builder
	b.WriteString(s.Timestamp.Render(record.FormatTimestamp(r.Timestamp)))
	b.WriteString("\n")
	b.WriteString(s.MethodStyle(r.Method).Render(sanitizeLine(r.Method)))
	b.WriteString(" ")
	b.WriteString(s.Normal.Render(sanitizeLine(r.URL)))
	b.WriteString("\n")

	if table := renderHeaders(r.Headers, s); table != "" {
		b.WriteString("\n")
		b.WriteString(table)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(s.BodyTitle.Render("Body"))
	b.WriteString("\n")
	if r.HasBody() {
		b.WriteString(renderBody(r, opts))
	} else {
		b.WriteString(s.NoBody.Render(NoBody))
	}

	frame := s.Unit
	if selected {
		frame = s.UnitSelected
	}
	return withWidth(frame, opts.Width).Render(b.String())
}

func renderHeaders(headers []record.HeaderPair, s theme.Styles) string {
	if len(headers) == 0 {
		return ""
	}
	keys := make([]string, len(headers))
	keyWidth := 0
	for i, h := range headers {
		keys[i] = sanitizeLine(h.Key)
		if w := lipgloss.Width(keys[i]); w > keyWidth {
			keyWidth = w
		}
	}
	rows := make([]string, 0, len(headers))
	for i, h := range headers {
		pad := strings.Repeat(" ", keyWidth-lipgloss.Width(keys[i]))
		rows = append(rows, s.HeaderKey.Render(keys[i])+pad+"  "+s.HeaderValue.Render(sanitizeLine(h.Value)))
	}
	return strings.Join(rows, "\n")
}

func renderBody(r record.Request, opts Options) string {
	body := sanitize(r.Body)
	if !opts.Highlight {
		return opts.Styles.Body.Render(body)
	}
	ct, _ := r.Header("Content-Type")
	return highlightBody(body, ct)
}

func withWidth(style lipgloss.Style, width int) lipgloss.Style {
	if width <= 0 {
		return style
	}
	// Width excludes the border.
	return style.Width(max(width-2, 1))
}
