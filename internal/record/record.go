// Package record defines the captured-request record that flows from the
// capture server to the inspect console, and its wire encoding.
package record

import (
	"fmt"
	"strings"
	"time"
)

// HeaderPair is a single header line. Keys may repeat within a record.
type HeaderPair struct {
	Key   string
	Value string
}

// Request is one captured HTTP request. It is treated as immutable once
// decoded.
type Request struct {
	Timestamp time.Time
	Method    string
	URL       string
	Headers   []HeaderPair

	// Body holds the raw body text. BodyPresent reports whether the frame
	// carried a body field at all; the view does not distinguish the two.
	Body        string
	BodyPresent bool
}

// HasBody reports whether there is body text to show.
func (r Request) HasBody() bool {
	return r.Body != ""
}

// Line returns the "METHOD URL" line.
func (r Request) Line() string {
	return r.Method + " " + r.URL
}

// Header returns the first value for key (case-insensitive).
func (r Request) Header(key string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, key) {
			return h.Value, true
		}
	}
	return "", false
}

// FormatTimestamp renders t in the local zone as Y-M-D H:M without zero
// padding on any component, e.g. "2023-3-5 9:7".
func FormatTimestamp(t time.Time) string {
	t = t.Local()
	return fmt.Sprintf("%d-%d-%d %d:%d", t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute())
}
