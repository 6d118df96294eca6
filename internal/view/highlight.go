package view

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/tidwall/pretty"
	"github.com/valyala/fastjson"
)

// detectLexer maps a Content-Type to a chroma lexer name. An empty result
// means the body is shown as-is.
func detectLexer(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return "json"
	case strings.Contains(ct, "xml"):
		return "xml"
	case strings.Contains(ct, "html"):
		return "html"
	case strings.Contains(ct, "javascript"):
		return "javascript"
	case strings.Contains(ct, "css"):
		return "css"
	case strings.Contains(ct, "yaml"):
		return "yaml"
	default:
		return ""
	}
}

func highlightBody(body, contentType string) string {
	lexerName := detectLexer(contentType)
	if lexerName == "" {
		return body
	}

	src := body
	if lexerName == "json" && fastjson.Validate(body) == nil {
		src = strings.TrimRight(string(pretty.Pretty([]byte(body))), "\n")
	}
	return highlight(src, lexerName)
}

func highlight(source, lexerName string) string {
	lexer := lexers.Get(lexerName)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromastyles.Get("monokai")
	if style == nil {
		style = chromastyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return source
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return source
	}
	return buf.String()
}
