// Package markdown renders Markdown-flavored text to HTML safe for direct
// insertion into a page.
//
// Chat answers arrive as GitHub-flavored Markdown. Rendering happens here on
// the server rather than in the browser so the output can be sanitized
// before anything reaches the DOM.
package markdown

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/floatchat/floatchatweb/internal/app/system/htmlsanitize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// md is configured once; goldmark.Markdown is safe for concurrent use.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		// Single newlines become <br>, matching how the answers are written.
		html.WithHardWraps(),
		// Raw HTML passes through the renderer; Sanitize strips anything
		// dangerous afterwards.
		html.WithUnsafe(),
	),
)

// Render converts Markdown to sanitized HTML.
func Render(source string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(htmlsanitize.Sanitize(buf.String())), nil
}
