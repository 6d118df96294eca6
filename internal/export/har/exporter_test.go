package har

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/sadopc/gomibako/internal/record"
)

func sample() []record.Request {
	return []record.Request{
		{
			Timestamp:   time.Unix(1700000001, 0),
			Method:      "POST",
			URL:         "/g/abc?version=2",
			Headers:     []record.HeaderPair{{Key: "Content-Type", Value: "application/json"}},
			Body:        `{"name":"John"}`,
			BodyPresent: true,
		},
		{
			Timestamp: time.Unix(1700000000, 0),
			Method:    "GET",
			URL:       "/g/abc",
		},
	}
}

func TestExport(t *testing.T) {
	data, err := Export(sample(), "http://localhost:8000")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var har HAR
	if err := json.Unmarshal(data, &har); err != nil {
		t.Fatalf("exported HAR is not valid JSON: %v", err)
	}
	if har.Log.Version != "1.2" {
		t.Errorf("expected version 1.2, got %s", har.Log.Version)
	}
	if har.Log.Creator.Name != "gomibako" {
		t.Errorf("expected creator gomibako, got %s", har.Log.Creator.Name)
	}
	if len(har.Log.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(har.Log.Entries))
	}

	first := har.Log.Entries[0].Request
	if first.Method != "POST" || first.URL != "http://localhost:8000/g/abc?version=2" {
		t.Errorf("first request = %s %s", first.Method, first.URL)
	}
	if first.PostData == nil || first.PostData.MimeType != "application/json" || first.PostData.Text != `{"name":"John"}` {
		t.Errorf("unexpected postData: %+v", first.PostData)
	}
	if len(first.QueryString) != 1 || first.QueryString[0].Name != "version" || first.QueryString[0].Value != "2" {
		t.Errorf("unexpected queryString: %+v", first.QueryString)
	}
	if har.Log.Entries[1].Request.PostData != nil {
		t.Error("bodiless request should have no postData")
	}
	if har.Log.Entries[0].Response.Status != 200 {
		t.Errorf("response status = %d", har.Log.Entries[0].Response.Status)
	}
}

func TestStartedDateTime(t *testing.T) {
	h := Build(sample()[1:], "")
	if got := h.Log.Entries[0].StartedDateTime; got != "2023-11-14T22:13:20Z" {
		t.Fatalf("startedDateTime = %q", got)
	}
}

func TestWriteFileCompression(t *testing.T) {
	for _, name := range []string{"plain.har", "log.har.gz", "log.har.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			if err := WriteFile(path, sample(), "http://h"); err != nil {
				t.Fatalf("WriteFile() error: %v", err)
			}
			got, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile() error: %v", err)
			}
			if len(got.Log.Entries) != 2 {
				t.Fatalf("entries = %d, want 2", len(got.Log.Entries))
			}
			if got.Log.Entries[0].Request.URL != "http://h/g/abc?version=2" {
				t.Fatalf("url = %q", got.Log.Entries[0].Request.URL)
			}
		})
	}
}
