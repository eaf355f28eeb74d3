// Package render turns stored message text into safe HTML for the thread page.
package render

import (
	"bytes"
	"html/template"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	policy = bluemonday.UGCPolicy()
)

// Markdown renders assistant output. Raw HTML in the source is stripped by
// goldmark and the result is sanitized again before being trusted.
func Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		slog.Warn("markdown render failed", "error", err)
		return Plain(src)
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes()))
}

// Plain escapes user-authored text.
func Plain(src string) template.HTML {
	return template.HTML(template.HTMLEscapeString(src))
}
