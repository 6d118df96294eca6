package record

import (
	"errors"
	"strconv"
	"testing"
	"time"
)

func TestDecodeFullFrame(t *testing.T) {
	frame := `{"timestamp":1700000000,"method":"POST","url":"/g/abc?x=1",` +
		`"headers":[{"key":"X-Dup","value":"b"},{"key":"Accept","value":"*/*"},{"key":"X-Dup","value":"a"}],` +
		`"body":"hello"}`

	got, err := Decode([]byte(frame))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	if !got.Timestamp.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, time.Unix(1700000000, 0))
	}
	if got.Method != "POST" {
		t.Errorf("Method = %q, want POST", got.Method)
	}
	if got.URL != "/g/abc?x=1" {
		t.Errorf("URL = %q, want /g/abc?x=1", got.URL)
	}
	want := []HeaderPair{{"X-Dup", "b"}, {"Accept", "*/*"}, {"X-Dup", "a"}}
	if len(got.Headers) != len(want) {
		t.Fatalf("got %d headers, want %d", len(got.Headers), len(want))
	}
	for i := range want {
		if got.Headers[i] != want[i] {
			t.Errorf("Headers[%d] = %+v, want %+v", i, got.Headers[i], want[i])
		}
	}
	if got.Body != "hello" || !got.BodyPresent {
		t.Errorf("Body = %q (present=%v), want hello (present=true)", got.Body, got.BodyPresent)
	}
}

func TestDecodeFractionalTimestamp(t *testing.T) {
	got, err := Decode([]byte(`{"timestamp":1700000000.5}`))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	want := time.Unix(1700000000, int64(500*time.Millisecond))
	if !got.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, want)
	}
}

func TestDecodeBodyPresence(t *testing.T) {
	tests := []struct {
		name        string
		frame       string
		wantPresent bool
		wantHasBody bool
	}{
		{"absent", `{"timestamp":1}`, false, false},
		{"null", `{"timestamp":1,"body":null}`, false, false},
		{"empty", `{"timestamp":1,"body":""}`, true, false},
		{"text", `{"timestamp":1,"body":"x"}`, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.frame))
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if got.BodyPresent != tt.wantPresent {
				t.Errorf("BodyPresent = %v, want %v", got.BodyPresent, tt.wantPresent)
			}
			if got.HasBody() != tt.wantHasBody {
				t.Errorf("HasBody() = %v, want %v", got.HasBody(), tt.wantHasBody)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  error
	}{
		{"not json", `{"timestamp":`, ErrMalformedFrame},
		{"empty", ``, ErrMalformedFrame},
		{"array", `[1,2]`, ErrMalformedFrame},
		{"missing timestamp", `{"method":"GET"}`, ErrMissingTimestamp},
		{"null timestamp", `{"timestamp":null}`, ErrMissingTimestamp},
		{"string timestamp", `{"timestamp":"yesterday"}`, ErrMissingTimestamp},
		{"numeric method", `{"timestamp":1,"method":7}`, ErrMalformedFrame},
		{"headers object", `{"timestamp":1,"headers":{"a":"b"}}`, ErrMalformedFrame},
		{"header not object", `{"timestamp":1,"headers":["a"]}`, ErrMalformedFrame},
		{"numeric body", `{"timestamp":1,"body":3}`, ErrMalformedFrame},
		{"huge timestamp", `{"timestamp":1e300}`, ErrMalformedFrame},
		{"huge negative timestamp", `{"timestamp":-1e300}`, ErrMalformedFrame},
		{"timestamp past int64", `{"timestamp":9.3e18}`, ErrMalformedFrame},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.frame))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Decode(%q) error = %v, want %v", tt.frame, err, tt.want)
			}
		})
	}
}

func TestFormatTimestampIsNotPadded(t *testing.T) {
	ts := time.Date(2023, time.March, 5, 9, 7, 0, 0, time.Local)
	got, err := Decode([]byte(`{"timestamp":` + strconv.FormatInt(ts.Unix(), 10) + `}`))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if s := FormatTimestamp(got.Timestamp); s != "2023-3-5 9:7" {
		t.Fatalf("FormatTimestamp() = %q, want 2023-3-5 9:7", s)
	}

	late := time.Date(2024, time.December, 31, 23, 59, 0, 0, time.Local)
	if s := FormatTimestamp(late); s != "2024-12-31 23:59" {
		t.Fatalf("FormatTimestamp() = %q, want 2024-12-31 23:59", s)
	}
}

func TestEncodeDecode(t *testing.T) {
	in := Request{
		Timestamp:   time.Unix(1700000123, 0),
		Method:      "PUT",
		URL:         "/g/k",
		Headers:     []HeaderPair{{"B", "2"}, {"A", "1"}},
		Body:        "{\"a\":\"b\"}",
		BodyPresent: true,
	}
	out, err := Decode(Encode(in))
	if err != nil {
		t.Fatalf("Decode(Encode()) error: %v", err)
	}
	if !out.Timestamp.Equal(in.Timestamp) || out.Method != in.Method || out.URL != in.URL || out.Body != in.Body {
		t.Fatalf("got %+v, want %+v", out, in)
	}
	if len(out.Headers) != 2 || out.Headers[0].Key != "B" {
		t.Fatalf("header order not kept: %+v", out.Headers)
	}

	bare, err := Decode(Encode(Request{Timestamp: time.Unix(5, 0)}))
	if err != nil {
		t.Fatalf("Decode(Encode()) error: %v", err)
	}
	if bare.BodyPresent {
		t.Fatal("body field written for a request without body")
	}
}

func TestHeaderLookup(t *testing.T) {
	r := Request{Headers: []HeaderPair{{"Content-Type", "text/plain"}}}
	if v, ok := r.Header("content-type"); !ok || v != "text/plain" {
		t.Fatalf("Header() = %q, %v", v, ok)
	}
	if _, ok := r.Header("accept"); ok {
		t.Fatal("Header(accept) found on record without it")
	}
}
