// Package app is the terminal adapter of the inspect view: a Bubble Tea
// model that mounts an Inspector in Init, feeds its events through Update
// and renders the log into a viewport.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/sadopc/gomibako/internal/config"
	"github.com/sadopc/gomibako/internal/export"
	"github.com/sadopc/gomibako/internal/inspect"
	"github.com/sadopc/gomibako/internal/logging"
	"github.com/sadopc/gomibako/internal/recent"
	"github.com/sadopc/gomibako/internal/ui/components"
	"github.com/sadopc/gomibako/internal/ui/layout"
	"github.com/sadopc/gomibako/internal/ui/msgs"
	"github.com/sadopc/gomibako/internal/ui/theme"
	"github.com/sadopc/gomibako/internal/view"
)

// feedEventMsg carries one Inspector event into Update.
type feedEventMsg struct {
	ev inspect.Event
}

// startFailedMsg reports that the subscription could not be opened.
type startFailedMsg struct {
	err error
}

// App is the root Bubble Tea model.
type App struct {
	insp   *inspect.Inspector
	key    string
	origin string
	cfg    config.Config

	logger    *zap.Logger
	recent    *recent.Store
	clipboard func(string) error
	now       func() time.Time

	viewport  viewport.Model
	statusBar components.StatusBar
	filter    components.FilterBar
	help      components.Help
	toast     components.Toast
	keyHelp   help.Model

	query string
	// selected is the arrival index of the selected record, or -1.
	selected int

	mode   msgs.AppMode
	layout layout.ScreenLayout
	keys   KeyMap

	theme  theme.Theme
	styles theme.Styles

	width  int
	height int
	ready  bool
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) { a.logger = logging.OrNop(l) }
}

// WithRecent records the session in store once the feed is opened.
func WithRecent(store *recent.Store) Option {
	return func(a *App) { a.recent = store }
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(a *App) { a.clipboard = fn }
}

// New creates the model for inspecting key on the server at origin.
func New(insp *inspect.Inspector, key, origin string, cfg config.Config, opts ...Option) App {
	t := theme.Resolve(cfg.Theme)
	s := theme.NewStyles(t)

	a := App{
		insp:   insp,
		key:    key,
		origin: origin,
		cfg:    cfg,

		logger:    zap.NewNop(),
		clipboard: clipboard.WriteAll,
		now:       time.Now,

		viewport:  viewport.New(0, 0),
		statusBar: components.NewStatusBar(t),
		filter:    components.NewFilterBar(t),
		help:      components.NewHelp(t),
		toast:     components.NewToast(t),
		keyHelp:   help.New(),

		selected: -1,
		mode:     msgs.ModeNormal,
		keys:     DefaultKeyMap(),

		theme:  t,
		styles: s,
	}
	for _, opt := range opts {
		opt(&a)
	}
	a.keyHelp.Styles.ShortKey = lipgloss.NewStyle().Foreground(t.Mauve)
	a.keyHelp.Styles.ShortDesc = lipgloss.NewStyle().Foreground(t.Subtext)
	a.keyHelp.Styles.ShortSeparator = lipgloss.NewStyle().Foreground(t.Muted)
	a.statusBar.SetKey(key)
	return a
}

// Init mounts the view: it opens the one subscription of this model and
// starts waiting for its events.
func (a App) Init() tea.Cmd {
	if err := a.insp.Start(context.Background(), a.key); err != nil {
		logging.LogError(a.logger, err, "failed to open request feed", zap.String("key", a.key))
		return func() tea.Msg { return startFailedMsg{err: err} }
	}
	if a.recent != nil {
		if err := a.recent.Touch(a.origin, a.key, a.now()); err != nil {
			a.logger.Warn("failed to record recent session", zap.Error(err))
		}
	}
	return waitForEvent(a.insp)
}

// waitForEvent delivers the next Inspector event, or nothing once the
// Inspector has stopped.
func waitForEvent(insp *inspect.Inspector) tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-insp.Events():
			return feedEventMsg{ev: ev}
		case <-insp.Done():
			return nil
		}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.applyLayout(layout.HandleResize(msg, a.filterVisible()))
		a.help.SetSize(msg.Width, msg.Height)
		a.refresh()
		return a, nil

	case feedEventMsg:
		return a.handleFeedEvent(msg.ev)

	case startFailedMsg:
		a.refresh()
		cmd := a.toast.Show("Could not open feed: "+msg.err.Error(), true, 5*time.Second)
		return a, cmd

	case tea.KeyMsg:
		if a.help.Visible {
			var cmd tea.Cmd
			a.help, cmd = a.help.Update(msg)
			return a, cmd
		}
		if a.filter.Active {
			var cmd tea.Cmd
			a.filter, cmd = a.filter.Update(msg)
			return a, cmd
		}
		return a.handleKey(msg)

	case msgs.FilterChangedMsg:
		a.query = msg.Query
		a.clampSelection()
		a.refresh()
		return a, nil

	case msgs.SetModeMsg:
		a.mode = msg.Mode
		a.statusBar.SetMode(msg.Mode)
		a.relayout()
		a.refresh()
		return a, nil

	case msgs.CopyAsCurlMsg:
		return a.copyAsCurl()

	case msgs.SaveHARMsg:
		return a, a.saveHAR()

	case msgs.HARSavedMsg:
		if msg.Err != nil {
			cmd := a.toast.Show("HAR export failed: "+msg.Err.Error(), true, 3*time.Second)
			return a, cmd
		}
		cmd := a.toast.Show("Saved "+msg.Path, false, 3*time.Second)
		return a, cmd

	case msgs.StatusMsg:
		a.statusBar.SetMessage(msg.Text)
		if msg.Duration > 0 {
			cmds = append(cmds, tea.Tick(msg.Duration, func(time.Time) tea.Msg {
				return components.ClearStatusMsg{}
			}))
		}
		return a, tea.Batch(cmds...)

	case msgs.ToastMsg:
		cmd := a.toast.Show(msg.Text, msg.IsError, msg.Duration)
		return a, cmd
	}

	var cmd tea.Cmd
	a.toast, cmd = a.toast.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	a.statusBar, cmd = a.statusBar.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	a.viewport, cmd = a.viewport.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func (a App) handleFeedEvent(ev inspect.Event) (tea.Model, tea.Cmd) {
	if !a.insp.Apply(ev) {
		return a, nil
	}
	a.refresh()

	var cmds []tea.Cmd
	switch ev.Kind {
	case inspect.EventRecord:
		// New records land on top; keep the selected one in view.
		a.scrollToSelection()
	case inspect.EventError:
		cmds = append(cmds, a.toast.Show("Feed disconnected: "+ev.Err.Error(), true, 5*time.Second))
	}

	switch a.insp.State() {
	case inspect.Subscribing, inspect.Streaming:
		cmds = append(cmds, waitForEvent(a.insp))
	}
	return a, tea.Batch(cmds...)
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		a.insp.Stop()
		return a, tea.Quit
	case key.Matches(msg, a.keys.Help):
		a.help.SetSize(a.width, a.height)
		a.help.Toggle()
		a.mode = msgs.ModeHelp
		a.statusBar.SetMode(a.mode)
		return a, nil
	case key.Matches(msg, a.keys.Filter):
		cmd := a.filter.Open()
		a.mode = msgs.ModeFilter
		a.statusBar.SetMode(a.mode)
		a.relayout()
		a.refresh()
		return a, cmd
	case key.Matches(msg, a.keys.SaveHAR):
		return a, func() tea.Msg { return msgs.SaveHARMsg{} }
	case key.Matches(msg, a.keys.CopyCurl):
		return a, func() tea.Msg { return msgs.CopyAsCurlMsg{} }
	case key.Matches(msg, a.keys.Down):
		a.moveSelection(1)
		return a, nil
	case key.Matches(msg, a.keys.Up):
		a.moveSelection(-1)
		return a, nil
	case key.Matches(msg, a.keys.Newest):
		a.selectVisible(0)
		return a, nil
	case key.Matches(msg, a.keys.Oldest):
		a.selectVisible(len(a.visibleIndices()) - 1)
		return a, nil
	case key.Matches(msg, a.keys.PageDown):
		a.viewport.HalfViewDown()
		return a, nil
	case key.Matches(msg, a.keys.PageUp):
		a.viewport.HalfViewUp()
		return a, nil
	case msg.String() == "esc":
		if a.selected >= 0 {
			a.selected = -1
			a.refresh()
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (a App) copyAsCurl() (tea.Model, tea.Cmd) {
	r, ok := a.selectedRecord()
	if !ok {
		cmd := a.toast.Show("No request selected", true, 2*time.Second)
		return a, cmd
	}
	if err := a.clipboard(export.AsCurl(r, a.origin)); err != nil {
		cmd := a.toast.Show("Clipboard error: "+err.Error(), true, 3*time.Second)
		return a, cmd
	}
	cmd := a.toast.Show("Copied as cURL", false, 2*time.Second)
	return a, cmd
}

func (a App) filterVisible() bool {
	return a.filter.Active || a.query != ""
}

func (a *App) relayout() {
	a.applyLayout(layout.Calculate(a.width, a.height, a.filterVisible()))
}

func (a *App) applyLayout(l layout.ScreenLayout) {
	a.layout = l
	a.viewport.Width = a.layout.Width
	a.viewport.Height = a.layout.ViewportHeight
	a.statusBar.SetWidth(a.layout.Width)
	a.filter.SetWidth(a.layout.Width)
}

func (a App) renderOptions() view.Options {
	return view.Options{
		Styles:        a.styles,
		AccessURL:     view.AccessURL(a.origin, a.key),
		ShowAccessURL: a.cfg.ShowAccessURL,
		Highlight:     a.cfg.HighlightBody,
		Width:         a.layout.UnitWidth,
		Selected:      -1,
	}
}

// refresh re-renders the viewport content and status bar from the log.
func (a *App) refresh() {
	visible := a.visibleRecords()
	opts := a.renderOptions()
	opts.Selected = a.selectedVisible()

	var content string
	if len(visible) == 0 && a.insp.Log().Len() > 0 {
		content = a.styles.Hint.Render("No requests match " + a.query)
	} else {
		content = view.Render(visible, opts)
	}
	a.viewport.SetContent(content)

	shown := -1
	if a.query != "" {
		shown = len(visible)
	}
	a.statusBar.SetFeed(a.insp.State().String(), a.insp.Log().Len(), shown, a.insp.Log().BodyBytes())
}

func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	header := a.renderHeader()
	parts := []string{header}
	if a.layout.FilterVisible {
		parts = append(parts, a.filter.View())
	}
	parts = append(parts, a.viewport.View(), a.statusBar.View())
	main := lipgloss.JoinVertical(lipgloss.Left, parts...)

	if a.help.Visible {
		main = overlayCenter(main, a.help.View(), a.width, a.height)
	}
	if a.toast.Visible {
		main = overlayTopRight(main, a.toast.View(), a.width)
	}
	return main
}

func (a App) renderHeader() string {
	title := a.styles.Title.Render("gomibako")
	url := a.styles.URL.Render(view.AccessURL(a.origin, a.key))
	left := title + "  " + url

	a.keyHelp.Width = a.width - lipgloss.Width(left) - 2
	hints := a.keyHelp.ShortHelpView(a.keys.ShortHelp())
	if gap := a.width - lipgloss.Width(left) - lipgloss.Width(hints); gap >= 2 {
		left += strings.Repeat(" ", gap) + hints
	}
	return lipgloss.NewStyle().Width(a.width).MaxHeight(1).Render(left)
}

func overlayCenter(_, overlay string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, overlay,
		lipgloss.WithWhitespaceChars(" "),
	)
}

func overlayTopRight(bg, overlay string, width int) string {
	gap := width - lipgloss.Width(overlay) - 2
	if gap < 0 {
		gap = 0
	}
	positioned := lipgloss.NewStyle().MarginLeft(gap).Render(overlay)
	return positioned + "\n" + bg
}
