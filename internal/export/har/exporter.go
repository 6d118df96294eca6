// Package har writes captured requests as an HTTP Archive (HAR 1.2).
package har

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/sadopc/gomibako/internal/export"
	"github.com/sadopc/gomibako/internal/record"
	"github.com/sadopc/gomibako/pkg/version"
)

// HAR represents the HAR 1.2 format for export.
type HAR struct {
	Log HARLog `json:"log"`
}

// HARLog is the top-level log object.
type HARLog struct {
	Version string     `json:"version"`
	Creator HARCreator `json:"creator"`
	Entries []HAREntry `json:"entries"`
}

// HARCreator identifies the tool that created the HAR.
type HARCreator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HAREntry represents a single request/response pair.
type HAREntry struct {
	StartedDateTime string      `json:"startedDateTime"`
	Time            float64     `json:"time"`
	Request         HARRequest  `json:"request"`
	Response        HARResponse `json:"response"`
	Timings         HARTimings  `json:"timings"`
}

// HARRequest is the request portion of an entry.
type HARRequest struct {
	Method      string       `json:"method"`
	URL         string       `json:"url"`
	HTTPVersion string       `json:"httpVersion"`
	Headers     []HARHeader  `json:"headers"`
	QueryString []HARQuery   `json:"queryString"`
	PostData    *HARPostData `json:"postData,omitempty"`
	HeadersSize int          `json:"headersSize"`
	BodySize    int          `json:"bodySize"`
}

// HARResponse is the response portion of an entry. The capture server
// always answers "ok".
type HARResponse struct {
	Status      int         `json:"status"`
	StatusText  string      `json:"statusText"`
	HTTPVersion string      `json:"httpVersion"`
	Headers     []HARHeader `json:"headers"`
	Content     HARContent  `json:"content"`
	HeadersSize int         `json:"headersSize"`
	BodySize    int         `json:"bodySize"`
}

type HARHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type HARQuery struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type HARPostData struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

type HARContent struct {
	Size     int    `json:"size"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// HARTimings are not measured for captured requests.
type HARTimings struct {
	Send    float64 `json:"send"`
	Wait    float64 `json:"wait"`
	Receive float64 `json:"receive"`
}

var capturedResponse = HARResponse{
	Status:      200,
	StatusText:  "OK",
	HTTPVersion: "HTTP/1.1",
	Headers:     []HARHeader{},
	Content:     HARContent{Size: 3, MimeType: "text/plain", Text: "ok\n"},
	HeadersSize: -1,
	BodySize:    3,
}

// Build creates a HAR from records in the order given. origin makes
// relative request URIs absolute.
func Build(records []record.Request, origin string) HAR {
	entries := make([]HAREntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, HAREntry{
			StartedDateTime: r.Timestamp.UTC().Format(time.RFC3339Nano),
			Time:            0,
			Request:         buildHARRequest(r, origin),
			Response:        capturedResponse,
		})
	}
	return HAR{
		Log: HARLog{
			Version: "1.2",
			Creator: HARCreator{Name: "gomibako", Version: version.Version},
			Entries: entries,
		},
	}
}

// Export marshals records as indented HAR JSON.
func Export(records []record.Request, origin string) ([]byte, error) {
	return json.MarshalIndent(Build(records, origin), "", "  ")
}

func buildHARRequest(r record.Request, origin string) HARRequest {
	method := r.Method
	if method == "" {
		method = "GET"
	}
	full := export.ResolveURL(origin, r.URL)
	harReq := HARRequest{
		Method:      method,
		URL:         full,
		HTTPVersion: "HTTP/1.1",
		Headers:     make([]HARHeader, 0, len(r.Headers)),
		QueryString: []HARQuery{},
		HeadersSize: -1,
		BodySize:    len(r.Body),
	}

	for _, h := range r.Headers {
		harReq.Headers = append(harReq.Headers, HARHeader{Name: h.Key, Value: h.Value})
	}

	if u, err := url.Parse(full); err == nil {
		for k, vals := range u.Query() {
			for _, v := range vals {
				harReq.QueryString = append(harReq.QueryString, HARQuery{Name: k, Value: v})
			}
		}
	}

	if r.BodyPresent {
		mimeType := "text/plain"
		if ct, ok := r.Header("Content-Type"); ok {
			mimeType = ct
		}
		harReq.PostData = &HARPostData{MimeType: mimeType, Text: r.Body}
	}
	return harReq
}

// WriteFile writes records to path. A ".gz" suffix gzips the archive and
// ".zst" compresses it with zstd.
func WriteFile(path string, records []record.Request, origin string) (err error) {
	data, err := Export(records, origin)
	if err != nil {
		return fmt.Errorf("encoding HAR: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating HAR directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating HAR file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	w, err := compressor(f, path)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("writing HAR: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("flushing HAR: %w", err)
	}
	return nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func compressor(w io.Writer, path string) (io.WriteCloser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return gzip.NewWriter(w), nil
	case ".zst":
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("creating zstd writer: %w", err)
		}
		return enc, nil
	default:
		return nopWriteCloser{w}, nil
	}
}

// ReadFile reads a HAR written by WriteFile, decompressing by extension.
func ReadFile(path string) (HAR, error) {
	f, err := os.Open(path)
	if err != nil {
		return HAR{}, err
	}
	defer f.Close()

	var r io.Reader = f
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			return HAR{}, fmt.Errorf("opening gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return HAR{}, fmt.Errorf("opening zstd: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	var h HAR
	if err := json.NewDecoder(r).Decode(&h); err != nil {
		return HAR{}, fmt.Errorf("decoding HAR: %w", err)
	}
	return h, nil
}
