// Package requestlog holds the newest-first log of captured requests for one
// inspect session.
package requestlog

import "github.com/sadopc/gomibako/internal/record"

// Log is an append-only sequence of records ordered by arrival, exposed
// newest first. It is not safe for concurrent use; the owner mutates and
// reads it from one goroutine.
type Log struct {
	// entries is kept in arrival order so Prepend is an amortized O(1)
	// append. Readers see it reversed.
	entries   []record.Request
	bodyBytes int64
}

// New returns an empty log.
func New() *Log {
	return &Log{}
}

// Prepend inserts r at the head of the log.
func (l *Log) Prepend(r record.Request) {
	l.entries = append(l.entries, r)
	l.bodyBytes += int64(len(r.Body))
}

// Len returns the number of records.
func (l *Log) Len() int {
	return len(l.entries)
}

// At returns the i-th record, newest first.
func (l *Log) At(i int) (record.Request, bool) {
	if i < 0 || i >= len(l.entries) {
		return record.Request{}, false
	}
	return l.entries[len(l.entries)-1-i], true
}

// Snapshot returns a newest-first copy of the log.
func (l *Log) Snapshot() []record.Request {
	out := make([]record.Request, len(l.entries))
	for i, r := range l.entries {
		out[len(l.entries)-1-i] = r
	}
	return out
}

// BodyBytes returns the total size of all bodies received.
func (l *Log) BodyBytes() int64 {
	return l.bodyBytes
}
