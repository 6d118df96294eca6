// Package export turns captured requests into formats other tools replay.
package export

import (
	"fmt"
	"strings"

	"github.com/sadopc/gomibako/internal/record"
)

// skippedCurlHeaders are recomputed by curl itself.
var skippedCurlHeaders = map[string]bool{
	"content-length":    true,
	"transfer-encoding": true,
}

// AsCurl converts a captured request to a curl command that replays it
// against origin.
func AsCurl(r record.Request, origin string) string {
	parts := []string{"curl"}

	method := r.Method
	if method == "" {
		method = "GET"
	}
	if method != "GET" {
		if !shellSafe(method) {
			method = shellQuote(method)
		}
		parts = append(parts, "-X", method)
	}

	for _, h := range r.Headers {
		if skippedCurlHeaders[strings.ToLower(h.Key)] {
			continue
		}
		parts = append(parts, "-H", shellQuote(fmt.Sprintf("%s: %s", h.Key, h.Value)))
	}

	if r.HasBody() {
		parts = append(parts, "--data-raw", shellQuote(r.Body))
	}

	parts = append(parts, shellQuote(ResolveURL(origin, r.URL)))
	return strings.Join(parts, " ")
}

// ResolveURL makes a captured request URI absolute.
func ResolveURL(origin, uri string) string {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") || origin == "" {
		return uri
	}
	if !strings.HasPrefix(uri, "/") {
		uri = "/" + uri
	}
	return strings.TrimRight(origin, "/") + uri
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// shellSafe reports whether s can be passed to a shell unquoted.
func shellSafe(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("-._+^%", c) >= 0:
		default:
			return false
		}
	}
	return true
}
