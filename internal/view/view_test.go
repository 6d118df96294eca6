package view

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/sadopc/gomibako/internal/record"
	"github.com/sadopc/gomibako/internal/requestlog"
)

const testAccessURL = "http://localhost:8000/g/abc123"

func req(method, url, body string) record.Request {
	return record.Request{
		Timestamp:   time.Date(2023, 3, 5, 9, 7, 0, 0, time.Local),
		Method:      method,
		URL:         url,
		Body:        body,
		BodyPresent: body != "",
	}
}

func plain(records []record.Request, opts Options) string {
	return ansi.Strip(Render(records, opts))
}

func TestAccessURL(t *testing.T) {
	tests := []struct {
		origin, key, want string
	}{
		{"http://localhost:8000", "abc", "http://localhost:8000/g/abc"},
		{"http://localhost:8000/", "abc", "http://localhost:8000/g/abc"},
		{"https://example.com", "a b", "https://example.com/g/a%20b"},
	}
	for _, tt := range tests {
		if got := AccessURL(tt.origin, tt.key); got != tt.want {
			t.Errorf("AccessURL(%q, %q) = %q, want %q", tt.origin, tt.key, got, tt.want)
		}
	}
}

func TestRenderEmptyShowsAccessURL(t *testing.T) {
	out := plain(nil, DefaultOptions(testAccessURL))
	if !strings.Contains(out, testAccessURL) {
		t.Fatalf("empty render missing access URL:\n%s", out)
	}
	if strings.Contains(out, "Body") {
		t.Fatalf("empty render should not contain a request unit:\n%s", out)
	}
}

func TestRenderEmptyWithoutAccessURL(t *testing.T) {
	opts := DefaultOptions(testAccessURL)
	opts.ShowAccessURL = false
	out := plain(nil, opts)
	if strings.Contains(out, testAccessURL) {
		t.Fatalf("access URL shown although disabled:\n%s", out)
	}
	if !strings.Contains(out, "Waiting for requests") {
		t.Fatalf("expected waiting hint, got:\n%s", out)
	}
}

func TestFirstRecordReplacesAffordance(t *testing.T) {
	log := requestlog.New()
	opts := DefaultOptions(testAccessURL)

	log.Prepend(req("GET", "/g/abc123?x=1", ""))
	out := plain(log.Snapshot(), opts)

	if strings.Contains(out, testAccessURL) {
		t.Fatalf("affordance still shown after first record:\n%s", out)
	}
	if n := strings.Count(out, "Body"); n != 1 {
		t.Fatalf("expected exactly one unit, found %d:\n%s", n, out)
	}
	if !strings.Contains(out, "GET /g/abc123?x=1") {
		t.Fatalf("missing method/url line:\n%s", out)
	}
}

func TestRenderNewestFirst(t *testing.T) {
	log := requestlog.New()
	for _, u := range []string{"/first", "/second", "/third"} {
		r := req("POST", u, "")
		// Timestamps deliberately run backwards; arrival order wins.
		r.Timestamp = time.Unix(int64(1000-len(u)), 0)
		log.Prepend(r)
	}

	out := plain(log.Snapshot(), DefaultOptions(testAccessURL))
	third := strings.Index(out, "POST /third")
	second := strings.Index(out, "POST /second")
	first := strings.Index(out, "POST /first")
	if third < 0 || second < 0 || first < 0 {
		t.Fatalf("missing units:\n%s", out)
	}
	if !(third < second && second < first) {
		t.Fatalf("units not newest first: third=%d second=%d first=%d", third, second, first)
	}
}

func TestRenderIdempotent(t *testing.T) {
	records := []record.Request{
		req("PUT", "/a", `{"x":1}`),
		req("GET", "/b", ""),
	}
	records[0].Headers = []record.HeaderPair{{Key: "Content-Type", Value: "application/json"}}
	opts := DefaultOptions(testAccessURL)
	opts.Highlight = true

	first := Render(records, opts)
	second := Render(records, opts)
	if first != second {
		t.Fatal("Render is not idempotent")
	}
}

func TestRenderBodyPlaceholder(t *testing.T) {
	opts := DefaultOptions(testAccessURL)

	empty := plain([]record.Request{req("GET", "/", "")}, opts)
	if !strings.Contains(empty, NoBody) {
		t.Fatalf("expected %q placeholder:\n%s", NoBody, empty)
	}

	absent := req("GET", "/", "")
	absent.BodyPresent = false
	if out := plain([]record.Request{absent}, opts); !strings.Contains(out, NoBody) {
		t.Fatalf("absent body should show placeholder:\n%s", out)
	}

	hello := plain([]record.Request{req("POST", "/", "hello")}, opts)
	if !strings.Contains(hello, "hello") {
		t.Fatalf("expected body text:\n%s", hello)
	}
	if strings.Contains(hello, NoBody) {
		t.Fatalf("placeholder rendered alongside body:\n%s", hello)
	}
}

func TestRenderTimestampFixture(t *testing.T) {
	out := plain([]record.Request{req("GET", "/", "")}, DefaultOptions(testAccessURL))
	if !strings.Contains(out, "2023-3-5 9:7") {
		t.Fatalf("expected non-padded timestamp 2023-3-5 9:7:\n%s", out)
	}
}

func TestRenderHeadersInOrder(t *testing.T) {
	r := req("GET", "/", "")
	r.Headers = []record.HeaderPair{
		{Key: "X-Zeta", Value: "1"},
		{Key: "Accept", Value: "*/*"},
		{Key: "X-Zeta", Value: "2"},
	}
	out := plain([]record.Request{r}, DefaultOptions(testAccessURL))

	z1 := strings.Index(out, "X-Zeta  1")
	acc := strings.Index(out, "Accept  */*")
	z2 := strings.Index(out, "X-Zeta  2")
	if z1 < 0 || acc < 0 || z2 < 0 {
		t.Fatalf("header rows missing:\n%s", out)
	}
	if !(z1 < acc && acc < z2) {
		t.Fatalf("header order not preserved:\n%s", out)
	}
}

func TestHighlightJSONBody(t *testing.T) {
	r := req("POST", "/", `{"a":1}`)
	r.Headers = []record.HeaderPair{{Key: "content-type", Value: "application/json"}}
	opts := DefaultOptions(testAccessURL)
	opts.Highlight = true

	out := plain([]record.Request{r}, opts)
	if !strings.Contains(out, `"a": 1`) {
		t.Fatalf("expected pretty-printed JSON body:\n%s", out)
	}
}

func TestDetectLexer(t *testing.T) {
	tests := map[string]string{
		"application/json; charset=utf-8": "json",
		"text/xml":                        "xml",
		"text/html":                       "html",
		"text/plain":                      "",
		"":                                "",
	}
	for ct, want := range tests {
		if got := detectLexer(ct); got != want {
			t.Errorf("detectLexer(%q) = %q, want %q", ct, got, want)
		}
	}
}
