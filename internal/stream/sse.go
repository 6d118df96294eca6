package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
)

func (s *Source) readSSE(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building feed request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "text/event-stream" {
		return fmt.Errorf("%w: %q", ErrNotEventStream, resp.Header.Get("Content-Type"))
	}

	s.emitOpen()

	return readEvents(resp.Body, func(ev event) {
		// Same as EventSource.onmessage: named events are not messages.
		if ev.name != "" && ev.name != "message" {
			return
		}
		s.handleFrame(ev.data)
	})
}

// event is one dispatched server-sent event.
type event struct {
	name string
	id   string
	data []byte
}

// readEvents parses a text/event-stream body and calls fn for every
// dispatched event. It returns nil at EOF; a trailing event without its
// blank line is discarded.
func readEvents(r io.Reader, fn func(event)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	sc.Split(scanEventLines())

	var (
		data    bytes.Buffer
		hasData bool
		name    string
		lastID  string
	)

	for sc.Scan() {
		line := sc.Bytes()

		if len(line) == 0 {
			if hasData {
				fn(event{name: name, id: lastID, data: bytes.Clone(data.Bytes())})
			}
			data.Reset()
			hasData = false
			name = ""
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value := line, []byte(nil)
		if i := bytes.IndexByte(line, ':'); i >= 0 {
			field, value = line[:i], line[i+1:]
			value = bytes.TrimPrefix(value, []byte(" "))
		}

		switch string(field) {
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.Write(value)
			hasData = true
		case "event":
			name = string(value)
		case "id":
			if bytes.IndexByte(value, 0) < 0 {
				lastID = string(value)
			}
		}
	}
	return sc.Err()
}

// scanEventLines splits on CRLF, LF or a lone CR, the three line endings
// of text/event-stream. A CR at the end of a read ends the line at once;
// an LF that follows it in the next read is dropped.
func scanEventLines() bufio.SplitFunc {
	var afterCR bool
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if afterCR && len(data) > 0 {
			afterCR = false
			if data[0] == '\n' {
				return 1, nil, nil
			}
		}
		if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
			if data[i] == '\r' {
				if i+1 == len(data) {
					afterCR = true
				} else if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
			}
			return i + 1, data[:i], nil
		}
		if atEOF && len(data) > 0 {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}
