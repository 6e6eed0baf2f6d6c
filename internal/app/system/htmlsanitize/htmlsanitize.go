// Package htmlsanitize strips dangerous markup from HTML that originated
// outside this application, before it reaches a browser.
//
// The chat relay is the main consumer: answers come back from the upstream
// API as Markdown, get rendered to HTML, and pass through Sanitize before
// the page inserts them.
package htmlsanitize

import "github.com/microcosm-cc/bluemonday"

// policy allows the formatting the chat answers use (paragraphs, emphasis,
// code blocks, lists, tables, links) and nothing executable.
var policy = buildPolicy()

func buildPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
	p.AllowAttrs("class").OnElements(
		"h1", "h2", "h3", "h4", "h5", "h6",
		"p", "ul", "ol", "li", "pre", "code", "blockquote",
	)
	p.RequireNoFollowOnLinks(true)
	return p
}

// Sanitize returns s with scripts, event handlers, and javascript: URLs
// removed. Safe formatting markup is preserved.
func Sanitize(s string) string {
	return policy.Sanitize(s)
}
