package export

import (
	"strings"
	"testing"
	"time"

	"github.com/sadopc/gomibako/internal/record"
)

func TestAsCurlGet(t *testing.T) {
	r := record.Request{
		Timestamp: time.Unix(1, 0),
		Method:    "GET",
		URL:       "/g/abc?x=1",
		Headers:   []record.HeaderPair{{Key: "Accept", Value: "*/*"}},
	}
	got := AsCurl(r, "http://localhost:8000")
	want := `curl -H 'Accept: */*' 'http://localhost:8000/g/abc?x=1'`
	if got != want {
		t.Fatalf("AsCurl() =\n%s\nwant\n%s", got, want)
	}
}

func TestAsCurlPostWithBody(t *testing.T) {
	r := record.Request{
		Method: "POST",
		URL:    "/g/abc",
		Headers: []record.HeaderPair{
			{Key: "Content-Length", Value: "11"},
			{Key: "Content-Type", Value: "text/plain"},
		},
		Body:        "it's here",
		BodyPresent: true,
	}
	got := AsCurl(r, "http://localhost:8000/")

	if !strings.HasPrefix(got, "curl -X POST ") {
		t.Errorf("missing method: %s", got)
	}
	if strings.Contains(got, "Content-Length") {
		t.Errorf("Content-Length should be left to curl: %s", got)
	}
	if !strings.Contains(got, `--data-raw 'it'\''s here'`) {
		t.Errorf("body not quoted: %s", got)
	}
	if !strings.HasSuffix(got, "'http://localhost:8000/g/abc'") {
		t.Errorf("url not resolved: %s", got)
	}
}

func TestAsCurlHeaderOrder(t *testing.T) {
	r := record.Request{
		Method: "GET",
		URL:    "/",
		Headers: []record.HeaderPair{
			{Key: "X-B", Value: "1"},
			{Key: "X-A", Value: "2"},
		},
	}
	got := AsCurl(r, "http://h")
	if strings.Index(got, "X-B") > strings.Index(got, "X-A") {
		t.Fatalf("header order not preserved: %s", got)
	}
}

func TestAsCurlQuotesUnsafeMethod(t *testing.T) {
	tests := []struct {
		method, want string
	}{
		{"PATCH", "curl -X PATCH 'http://h/x'"},
		{"M-SEARCH", "curl -X M-SEARCH 'http://h/x'"},
		{"POST;touch /tmp/pwned;", `curl -X 'POST;touch /tmp/pwned;' 'http://h/x'`},
		{"$(id)", `curl -X '$(id)' 'http://h/x'`},
		{"it's", `curl -X 'it'\''s' 'http://h/x'`},
	}
	for _, tt := range tests {
		got := AsCurl(record.Request{Method: tt.method, URL: "/x"}, "http://h")
		if got != tt.want {
			t.Errorf("AsCurl(method %q) =\n%s\nwant\n%s", tt.method, got, tt.want)
		}
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		origin, uri, want string
	}{
		{"http://h", "/a", "http://h/a"},
		{"http://h/", "a", "http://h/a"},
		{"http://h", "https://other/x", "https://other/x"},
		{"", "/a", "/a"},
	}
	for _, tt := range tests {
		if got := ResolveURL(tt.origin, tt.uri); got != tt.want {
			t.Errorf("ResolveURL(%q, %q) = %q, want %q", tt.origin, tt.uri, got, tt.want)
		}
	}
}
