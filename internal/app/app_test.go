package app

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/sadopc/gomibako/internal/config"
	"github.com/sadopc/gomibako/internal/export/har"
	"github.com/sadopc/gomibako/internal/inspect"
	"github.com/sadopc/gomibako/internal/record"
	"github.com/sadopc/gomibako/internal/ui/msgs"
)

const testOrigin = "http://localhost:8000"

type fakeSubscriber struct {
	opens   int
	closes  int
	openKey string
}

func (f *fakeSubscriber) OnRecord(func(record.Request)) {}
func (f *fakeSubscriber) OnOpen(func())                 {}
func (f *fakeSubscriber) OnError(func(error))           {}

func (f *fakeSubscriber) Open(_ context.Context, key string) error {
	f.opens++
	f.openKey = key
	return nil
}

func (f *fakeSubscriber) Close() error {
	f.closes++
	return nil
}

func testApp(t *testing.T) (App, *fakeSubscriber) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	f := &fakeSubscriber{}
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	a := New(inspect.New(f), "abc123", testOrigin, cfg)
	return a, f
}

func testAppResized(t *testing.T) (App, *fakeSubscriber) {
	t.Helper()
	a, f := testApp(t)
	a.Init()
	m, _ := a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m.(App), f
}

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func feed(t *testing.T, a App, evs ...inspect.Event) App {
	t.Helper()
	for _, ev := range evs {
		m, _ := a.Update(feedEventMsg{ev: ev})
		a = m.(App)
	}
	return a
}

func recordEvent(sec int64, method, url string) inspect.Event {
	return inspect.Event{Kind: inspect.EventRecord, Record: record.Request{
		Timestamp:   time.Unix(sec, 0),
		Method:      method,
		URL:         url,
		Headers:     []record.HeaderPair{{Key: "Host", Value: "localhost:8000"}},
		Body:        `{"a":1}`,
		BodyPresent: true,
	}}
}

func TestNewApp(t *testing.T) {
	a, _ := testApp(t)
	if a.ready {
		t.Error("expected ready=false before WindowSizeMsg")
	}
	if a.mode != msgs.ModeNormal {
		t.Errorf("expected ModeNormal, got %v", a.mode)
	}
	if got := a.View(); got != "Loading..." {
		t.Errorf("View() before resize = %q", got)
	}
}

func TestInitOpensFeedOnce(t *testing.T) {
	a, f := testApp(t)
	if cmd := a.Init(); cmd == nil {
		t.Fatal("Init() returned nil cmd")
	}
	if f.opens != 1 {
		t.Fatalf("opens = %d, want 1", f.opens)
	}
	if f.openKey != "abc123" {
		t.Errorf("open key = %q, want %q", f.openKey, "abc123")
	}
	if a.insp.State() != inspect.Subscribing {
		t.Errorf("state = %v, want connecting", a.insp.State())
	}
}

func TestWindowSize(t *testing.T) {
	a, _ := testAppResized(t)
	if !a.ready {
		t.Fatal("expected ready=true after WindowSizeMsg")
	}
	if a.width != 120 || a.height != 40 {
		t.Errorf("size = %dx%d, want 120x40", a.width, a.height)
	}
	if a.viewport.Height != 38 {
		t.Errorf("viewport height = %d, want 38", a.viewport.Height)
	}
}

func TestEmptyFeedShowsAccessURL(t *testing.T) {
	a, _ := testAppResized(t)
	out := ansi.Strip(a.View())
	if !strings.Contains(out, "Access to "+testOrigin+"/g/abc123") {
		t.Errorf("empty view missing access hint:\n%s", out)
	}
	if !strings.Contains(out, "copy as cURL") {
		t.Errorf("header missing key hints:\n%s", out)
	}
}

func TestRecordsRenderNewestFirst(t *testing.T) {
	a, _ := testAppResized(t)
	a = feed(t, a,
		inspect.Event{Kind: inspect.EventOpen},
		recordEvent(1700000000, "GET", "/first"),
		recordEvent(1700000001, "POST", "/second"),
	)

	if a.insp.State() != inspect.Streaming {
		t.Fatalf("state = %v, want streaming", a.insp.State())
	}
	out := ansi.Strip(a.viewport.View())
	first := strings.Index(out, "GET /first")
	second := strings.Index(out, "POST /second")
	if first < 0 || second < 0 {
		t.Fatalf("records missing from view:\n%s", out)
	}
	if second > first {
		t.Errorf("newest record should come first:\n%s", out)
	}
	if !strings.Contains(ansi.Strip(a.statusBar.View()), "2 requests") {
		t.Errorf("status bar = %q, want request count", ansi.Strip(a.statusBar.View()))
	}
}

func TestFeedEventKeepsWaiting(t *testing.T) {
	a, _ := testAppResized(t)
	_, cmd := a.Update(feedEventMsg{ev: inspect.Event{Kind: inspect.EventOpen}})
	if cmd == nil {
		t.Fatal("expected a command to wait for the next event")
	}
}

func TestErrorEventShowsToastAndKeepsRecords(t *testing.T) {
	a, _ := testAppResized(t)
	a = feed(t, a,
		inspect.Event{Kind: inspect.EventOpen},
		recordEvent(1700000000, "GET", "/kept"),
		inspect.Event{Kind: inspect.EventError, Err: errors.New("connection reset")},
	)

	if a.insp.State() != inspect.Disconnected {
		t.Fatalf("state = %v, want disconnected", a.insp.State())
	}
	if !a.toast.Visible {
		t.Error("expected error toast")
	}
	if !strings.Contains(a.toast.Text(), "connection reset") {
		t.Errorf("toast = %q", a.toast.Text())
	}
	if a.insp.Log().Len() != 1 {
		t.Errorf("log len = %d, want 1", a.insp.Log().Len())
	}
	if !strings.Contains(ansi.Strip(a.viewport.View()), "GET /kept") {
		t.Error("record dropped after disconnect")
	}

	// Records after the error are ignored.
	a = feed(t, a, recordEvent(1700000002, "GET", "/late"))
	if a.insp.Log().Len() != 1 {
		t.Errorf("log len after late record = %d, want 1", a.insp.Log().Len())
	}
}

func TestQuitStopsInspector(t *testing.T) {
	a, f := testAppResized(t)
	a = feed(t, a, inspect.Event{Kind: inspect.EventOpen}, recordEvent(1700000000, "GET", "/x"))

	m, cmd := a.Update(keyMsg('q'))
	a = m.(App)
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if a.insp.State() != inspect.Closed {
		t.Errorf("state = %v, want closed", a.insp.State())
	}
	if f.closes != 1 {
		t.Errorf("closes = %d, want 1", f.closes)
	}

	a = feed(t, a, recordEvent(1700000001, "GET", "/after"))
	if a.insp.Log().Len() != 0 {
		t.Errorf("log len after stop = %d, want 0", a.insp.Log().Len())
	}
}

func TestHelpToggle(t *testing.T) {
	a, _ := testAppResized(t)
	m, _ := a.Update(keyMsg('?'))
	a = m.(App)
	if !a.help.Visible {
		t.Fatal("expected help visible")
	}
	if a.mode != msgs.ModeHelp {
		t.Errorf("mode = %v, want HELP", a.mode)
	}

	m, cmd := a.Update(keyMsg('?'))
	a = m.(App)
	if a.help.Visible {
		t.Error("expected help hidden")
	}
	m, _ = a.Update(cmd())
	a = m.(App)
	if a.mode != msgs.ModeNormal {
		t.Errorf("mode = %v, want NORMAL", a.mode)
	}
}

func TestFilter(t *testing.T) {
	a, _ := testAppResized(t)
	a = feed(t, a,
		inspect.Event{Kind: inspect.EventOpen},
		recordEvent(1700000000, "GET", "/users"),
		recordEvent(1700000001, "POST", "/orders"),
	)

	m, _ := a.Update(keyMsg('/'))
	a = m.(App)
	if !a.filter.Active {
		t.Fatal("expected filter active")
	}
	if !a.layout.FilterVisible {
		t.Error("expected filter row in layout")
	}

	m, _ = a.Update(msgs.FilterChangedMsg{Query: "orders"})
	a = m.(App)
	out := ansi.Strip(a.viewport.View())
	if !strings.Contains(out, "POST /orders") {
		t.Errorf("filtered view missing match:\n%s", out)
	}
	if strings.Contains(out, "GET /users") {
		t.Errorf("filtered view kept non-match:\n%s", out)
	}
	if !strings.Contains(ansi.Strip(a.statusBar.View()), "1/2") {
		t.Errorf("status bar = %q, want shown/count", ansi.Strip(a.statusBar.View()))
	}

	m, _ = a.Update(msgs.FilterChangedMsg{Query: "zzzz"})
	a = m.(App)
	if !strings.Contains(ansi.Strip(a.viewport.View()), "No requests match zzzz") {
		t.Errorf("expected no-match hint, got:\n%s", ansi.Strip(a.viewport.View()))
	}
}

func TestSelectionFollowsRecord(t *testing.T) {
	a, _ := testAppResized(t)
	a = feed(t, a,
		inspect.Event{Kind: inspect.EventOpen},
		recordEvent(1700000000, "GET", "/a"),
		recordEvent(1700000001, "GET", "/b"),
	)

	m, _ := a.Update(keyMsg('j'))
	a = m.(App)
	r, ok := a.selectedRecord()
	if !ok || r.URL != "/b" {
		t.Fatalf("selected = %q, want /b", r.URL)
	}

	m, _ = a.Update(keyMsg('j'))
	a = m.(App)
	if r, _ := a.selectedRecord(); r.URL != "/a" {
		t.Fatalf("selected = %q, want /a", r.URL)
	}

	a = feed(t, a, recordEvent(1700000002, "GET", "/c"))
	if r, _ := a.selectedRecord(); r.URL != "/a" {
		t.Errorf("selection moved to %q after new record, want /a", r.URL)
	}

	m, _ = a.Update(keyMsg('g'))
	a = m.(App)
	if r, _ := a.selectedRecord(); r.URL != "/c" {
		t.Errorf("selected = %q after g, want /c", r.URL)
	}
	m, _ = a.Update(keyMsg('G'))
	a = m.(App)
	if r, _ := a.selectedRecord(); r.URL != "/a" {
		t.Errorf("selected = %q after G, want /a", r.URL)
	}
}

func TestCopyAsCurl(t *testing.T) {
	a, _ := testAppResized(t)
	var copied string
	WithClipboard(func(s string) error {
		copied = s
		return nil
	})(&a)
	a = feed(t, a, inspect.Event{Kind: inspect.EventOpen}, recordEvent(1700000000, "POST", "/hook"))

	m, _ := a.Update(msgs.CopyAsCurlMsg{})
	a = m.(App)
	if copied != "" {
		t.Fatal("copied without a selection")
	}
	if !a.toast.Visible {
		t.Error("expected toast for missing selection")
	}

	m, _ = a.Update(keyMsg('j'))
	a = m.(App)
	m, cmd := a.Update(keyMsg('y'))
	a = m.(App)
	m, _ = a.Update(cmd())
	a = m.(App)

	if !strings.HasPrefix(copied, "curl") {
		t.Fatalf("clipboard = %q, want curl command", copied)
	}
	if !strings.Contains(copied, testOrigin+"/hook") {
		t.Errorf("clipboard = %q, want absolute URL", copied)
	}
	if a.toast.Text() != "Copied as cURL" {
		t.Errorf("toast = %q", a.toast.Text())
	}
}

func TestSaveHAR(t *testing.T) {
	a, _ := testAppResized(t)
	a.now = func() time.Time { return time.Unix(1700000000, 0) }
	a = feed(t, a,
		inspect.Event{Kind: inspect.EventOpen},
		recordEvent(1700000000, "GET", "/one"),
		recordEvent(1700000001, "GET", "/two"),
	)

	msg := a.saveHAR()()
	saved, ok := msg.(msgs.HARSavedMsg)
	if !ok {
		t.Fatalf("saveHAR() msg = %T, want HARSavedMsg", msg)
	}
	if saved.Err != nil {
		t.Fatalf("saveHAR() error: %v", saved.Err)
	}
	if saved.Count != 2 {
		t.Errorf("count = %d, want 2", saved.Count)
	}
	if !strings.HasSuffix(saved.Path, "abc123-20231114T221320Z.har") {
		t.Errorf("path = %q", saved.Path)
	}
	if _, err := os.Stat(saved.Path); err != nil {
		t.Fatalf("HAR file missing: %v", err)
	}
	doc, err := har.ReadFile(saved.Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(doc.Log.Entries) != 2 {
		t.Errorf("entries = %d, want 2", len(doc.Log.Entries))
	}
}

func TestSaveHAREmpty(t *testing.T) {
	a, _ := testAppResized(t)
	msg := a.saveHAR()()
	toast, ok := msg.(msgs.ToastMsg)
	if !ok || !toast.IsError {
		t.Errorf("saveHAR() on empty log = %#v, want error toast", msg)
	}
}
