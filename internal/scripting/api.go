package scripting

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/dop251/goja"

	"github.com/sadopc/gomibako/internal/record"
)

// registerRequest exposes r as the global `req` and helpers under
// `gomibako`.
func registerRequest(vm *goja.Runtime, r record.Request) {
	headers := make([]interface{}, 0, len(r.Headers))
	for _, h := range r.Headers {
		obj := vm.NewObject()
		obj.Set("key", h.Key)
		obj.Set("value", h.Value)
		headers = append(headers, obj)
	}

	req := vm.NewObject()
	req.Set("method", r.Method)
	req.Set("url", r.URL)
	req.Set("headers", vm.NewArray(headers...))
	req.Set("body", r.Body)
	req.Set("hasBody", r.HasBody())
	req.Set("timestamp", r.Timestamp.Unix())
	req.Set("header", func(call goja.FunctionCall) goja.Value {
		if v, ok := r.Header(call.Argument(0).String()); ok {
			return vm.ToValue(v)
		}
		return goja.Undefined()
	})
	vm.Set("req", req)

	api := vm.NewObject()
	api.Set("contains", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(strings.Contains(call.Argument(0).String(), call.Argument(1).String()))
	})
	api.Set("base64decode", func(call goja.FunctionCall) goja.Value {
		decoded, err := base64.StdEncoding.DecodeString(call.Argument(0).String())
		if err != nil {
			return vm.ToValue("")
		}
		return vm.ToValue(string(decoded))
	})
	api.Set("sha256", func(call goja.FunctionCall) goja.Value {
		h := sha256.Sum256([]byte(call.Argument(0).String()))
		return vm.ToValue(hex.EncodeToString(h[:]))
	})
	vm.Set("gomibako", api)
}
