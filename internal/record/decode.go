package record

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/valyala/fastjson"
)

var (
	// ErrMalformedFrame is returned for frames that are not a JSON object of
	// the expected shape.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrMissingTimestamp is returned for frames without a numeric timestamp.
	ErrMissingTimestamp = errors.New("frame has no timestamp")
)

var parserPool fastjson.ParserPool

// maxEpochSeconds bounds timestamps to the range where float64 holds whole
// seconds exactly, well inside int64.
const maxEpochSeconds = 1 << 53

// Decode parses one push frame payload into a Request.
func Decode(data []byte) (Request, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if v.Type() != fastjson.TypeObject {
		return Request{}, fmt.Errorf("%w: payload is %s, not an object", ErrMalformedFrame, v.Type())
	}

	ts := v.Get("timestamp")
	if ts == nil || ts.Type() == fastjson.TypeNull {
		return Request{}, ErrMissingTimestamp
	}
	secs, err := ts.Float64()
	if err != nil {
		return Request{}, fmt.Errorf("%w: timestamp: %v", ErrMissingTimestamp, err)
	}
	if math.IsNaN(secs) || math.IsInf(secs, 0) || math.Abs(secs) > maxEpochSeconds {
		return Request{}, fmt.Errorf("%w: timestamp out of range", ErrMalformedFrame)
	}

	req := Request{Timestamp: fromEpochSeconds(secs)}

	if req.Method, err = optionalString(v, "method"); err != nil {
		return Request{}, err
	}
	if req.URL, err = optionalString(v, "url"); err != nil {
		return Request{}, err
	}
	if req.Headers, err = decodeHeaders(v.Get("headers")); err != nil {
		return Request{}, err
	}

	if body := v.Get("body"); body != nil && body.Type() != fastjson.TypeNull {
		b, err := body.StringBytes()
		if err != nil {
			return Request{}, fmt.Errorf("%w: body: %v", ErrMalformedFrame, err)
		}
		req.Body = string(b)
		req.BodyPresent = true
	}

	return req, nil
}

func optionalString(v *fastjson.Value, key string) (string, error) {
	f := v.Get(key)
	if f == nil || f.Type() == fastjson.TypeNull {
		return "", nil
	}
	b, err := f.StringBytes()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMalformedFrame, key, err)
	}
	return string(b), nil
}

func decodeHeaders(v *fastjson.Value) ([]HeaderPair, error) {
	if v == nil || v.Type() == fastjson.TypeNull {
		return nil, nil
	}
	items, err := v.Array()
	if err != nil {
		return nil, fmt.Errorf("%w: headers: %v", ErrMalformedFrame, err)
	}
	headers := make([]HeaderPair, 0, len(items))
	for i, item := range items {
		if item.Type() != fastjson.TypeObject {
			return nil, fmt.Errorf("%w: headers[%d] is %s", ErrMalformedFrame, i, item.Type())
		}
		k, err := optionalString(item, "key")
		if err != nil {
			return nil, err
		}
		val, err := optionalString(item, "value")
		if err != nil {
			return nil, err
		}
		headers = append(headers, HeaderPair{Key: k, Value: val})
	}
	return headers, nil
}

func fromEpochSeconds(secs float64) time.Time {
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*float64(time.Second)))
}
