package app

import (
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/sadopc/gomibako/internal/config"
	"github.com/sadopc/gomibako/internal/export/har"
	"github.com/sadopc/gomibako/internal/record"
	"github.com/sadopc/gomibako/internal/ui/components"
	"github.com/sadopc/gomibako/internal/ui/msgs"
	"github.com/sadopc/gomibako/internal/view"
)

// visibleIndices returns the newest-first log indices that pass the
// current filter.
func (a App) visibleIndices() []int {
	log := a.insp.Log()
	lines := make([]string, log.Len())
	for i := range lines {
		r, _ := log.At(i)
		lines[i] = r.Line()
	}
	return components.FuzzyIndices(a.query, lines)
}

func (a App) visibleRecords() []record.Request {
	log := a.insp.Log()
	if a.query == "" {
		return log.Snapshot()
	}
	idx := a.visibleIndices()
	out := make([]record.Request, 0, len(idx))
	for _, i := range idx {
		r, _ := log.At(i)
		out = append(out, r)
	}
	return out
}

// toArrival converts a newest-first index into an arrival index.
func (a App) toArrival(i int) int {
	return a.insp.Log().Len() - 1 - i
}

// selectedVisible returns the position of the selected record among the
// visible ones, or -1.
func (a App) selectedVisible() int {
	if a.selected < 0 {
		return -1
	}
	want := a.toArrival(a.selected)
	for pos, i := range a.visibleIndices() {
		if i == want {
			return pos
		}
	}
	return -1
}

func (a App) selectedRecord() (record.Request, bool) {
	if a.selected < 0 {
		return record.Request{}, false
	}
	return a.insp.Log().At(a.toArrival(a.selected))
}

// selectVisible selects the record at visible position pos.
func (a *App) selectVisible(pos int) {
	idx := a.visibleIndices()
	if len(idx) == 0 {
		return
	}
	pos = max(0, min(pos, len(idx)-1))
	a.selected = a.toArrival(idx[pos])
	a.refresh()
	a.scrollToSelection()
}

// moveSelection moves delta records towards older (positive) or newer
// (negative) ones. With nothing selected it starts from the newest.
func (a *App) moveSelection(delta int) {
	cur := a.selectedVisible()
	if cur < 0 {
		a.selectVisible(0)
		return
	}
	a.selectVisible(cur + delta)
}

// clampSelection drops the selection when the filter hides it.
func (a *App) clampSelection() {
	if a.selected >= 0 && a.selectedVisible() < 0 {
		a.selected = -1
	}
}

// scrollToSelection brings the top of the selected unit into view.
func (a *App) scrollToSelection() {
	pos := a.selectedVisible()
	if pos < 0 {
		return
	}
	if pos == 0 {
		a.viewport.GotoTop()
		return
	}
	above := a.visibleRecords()[:pos]
	offset := lipgloss.Height(view.Render(above, a.renderOptions()))
	a.viewport.SetYOffset(offset)
}

// harPath returns where the current log is exported.
func (a App) harPath() string {
	name := fmt.Sprintf("%s-%s.har", a.key, a.now().UTC().Format("20060102T150405Z"))
	return filepath.Join(config.ResolveDataDir(a.cfg), "har", name)
}

// saveHAR writes the visible records to disk off the update loop.
func (a App) saveHAR() tea.Cmd {
	records := a.visibleRecords()
	if len(records) == 0 {
		return func() tea.Msg {
			return msgs.ToastMsg{Text: "Nothing to export", IsError: true, Duration: 2 * time.Second}
		}
	}
	path := a.harPath()
	origin := a.origin
	logger := a.logger
	return func() tea.Msg {
		err := har.WriteFile(path, records, origin)
		if err != nil {
			logger.Error("failed to write HAR", zap.String("path", path), zap.Error(err))
		} else {
			logger.Info("HAR written", zap.String("path", path), zap.Int("entries", len(records)))
		}
		return msgs.HARSavedMsg{Path: path, Count: len(records), Err: err}
	}
}
