package record

import "github.com/valyala/fastjson"

// Encode renders r as a push frame payload. Timestamps are written as whole
// epoch seconds. The body field is omitted when BodyPresent is false.
func Encode(r Request) []byte {
	var a fastjson.Arena

	headers := a.NewArray()
	for i, h := range r.Headers {
		pair := a.NewObject()
		pair.Set("key", a.NewString(h.Key))
		pair.Set("value", a.NewString(h.Value))
		headers.SetArrayItem(i, pair)
	}

	obj := a.NewObject()
	obj.Set("timestamp", a.NewNumberInt(int(r.Timestamp.Unix())))
	obj.Set("method", a.NewString(r.Method))
	obj.Set("url", a.NewString(r.URL))
	obj.Set("headers", headers)
	if r.BodyPresent {
		obj.Set("body", a.NewString(r.Body))
	}
	return obj.MarshalTo(nil)
}
