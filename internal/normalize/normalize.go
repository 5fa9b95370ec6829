// Package normalize reduces raw HTML to plain text without parsing it into a
// document tree. It is the fallback path when structured extraction yields
// nothing, so it must work on arbitrarily broken markup and never fail.
package normalize

import (
	"regexp"
	"strings"
)

// MaxChars caps the normalized output length.
const MaxChars = 20000

var (
	scriptRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	// Closing block-level tags and <br> become line breaks so headlines and
	// paragraphs do not run into each other after tag stripping.
	blockRe = regexp.MustCompile(`(?i)</(?:p|div|h[1-6]|li|ul|ol|section|article|header|footer)>|<br\s*/?>`)
	tagRe   = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

var entities = []struct{ from, to string }{
	{"&nbsp;", " "},
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&#39;", "'"},
	{"&apos;", "'"},
}

// Text strips markup, scripts and styles from html and returns plain text
// with whitespace collapsed, truncated to MaxChars. It never fails: malformed
// input degrades to whatever text survives the stripping.
func Text(html string) string {
	s := scriptRe.ReplaceAllString(html, "")
	s = styleRe.ReplaceAllString(s, "")
	s = blockRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, " ")
	// Malformed markup can leave unbalanced brackets behind; drop them so the
	// output is guaranteed free of tag characters.
	s = strings.ReplaceAll(s, "<", " ")
	s = strings.ReplaceAll(s, ">", " ")
	for _, e := range entities {
		s = strings.ReplaceAll(s, e.from, e.to)
	}
	s = spaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if len(s) > MaxChars {
		s = s[:MaxChars]
	}
	return s
}
