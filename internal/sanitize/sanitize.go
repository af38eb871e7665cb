// Package sanitize cleans user-supplied text before it is stored.
//
// Names and titles are shown verbatim by the SPA, so every tag is
// stripped. Descriptions may carry light formatting (bold, lists, links)
// and keep whatever bluemonday's UGC policy considers safe.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Policies are safe for concurrent use once built.
var (
	strict = bluemonday.StrictPolicy()
	rich   = newRichPolicy()
)

func newRichPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// Text removes all markup and trims surrounding whitespace.
//
// StrictPolicy escapes what it keeps ("&" becomes "&amp;"); the result is
// unescaped again because the value is stored as plain text, not HTML.
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// RichText keeps safe formatting tags and drops scripts, event handlers
// and javascript: URLs.
func RichText(s string) string {
	return strings.TrimSpace(rich.Sanitize(s))
}
