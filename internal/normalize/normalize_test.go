package normalize

import (
	"strings"
	"testing"
)

func TestText_StripsScriptsAndStyles(t *testing.T) {
	html := `<html><head><style>body{color:red}</style></head>
	<body><script>var x = "<p>not content</p>";</script><p>Real content.</p></body></html>`

	got := Text(html)
	if got != "Real content." {
		t.Fatalf("expected only paragraph text, got %q", got)
	}
}

func TestText_BlockTagsSeparateWords(t *testing.T) {
	html := `<h1>Headline</h1><p>First.</p><p>Second.</p>`
	got := Text(html)
	if got != "Headline First. Second." {
		t.Fatalf("expected block boundaries to separate words, got %q", got)
	}
}

func TestText_DecodesWhitelistedEntities(t *testing.T) {
	got := Text(`<p>Fish &amp; chips&nbsp;&quot;today&quot; &#39;now&apos;</p>`)
	if got != `Fish & chips "today" 'now'` {
		t.Fatalf("unexpected entity decoding: %q", got)
	}
}

func TestText_NoTagsNoDoubleSpaces(t *testing.T) {
	inputs := []string{
		`<div><p>a</p>   <p>b</p></div>`,
		`<p>broken <div attr="x`, // unclosed tag
		"\n\n  <ul><li>one</li>\n<li>two</li></ul>  ",
		`<article><header>h</header>text</article>`,
	}
	for _, in := range inputs {
		got := Text(in)
		if strings.ContainsAny(got, "<>") {
			t.Fatalf("output contains markup characters: %q", got)
		}
		if strings.Contains(got, "  ") {
			t.Fatalf("output contains a run of spaces: %q", got)
		}
		if got != strings.TrimSpace(got) {
			t.Fatalf("output not trimmed: %q", got)
		}
	}
}

func TestText_TruncatesToCap(t *testing.T) {
	html := "<p>" + strings.Repeat("a", MaxChars+5000) + "</p>"
	got := Text(html)
	if len(got) != MaxChars {
		t.Fatalf("expected %d chars, got %d", MaxChars, len(got))
	}
}

func TestText_EmptyAndGarbageInput(t *testing.T) {
	if got := Text(""); got != "" {
		t.Fatalf("expected empty output for empty input, got %q", got)
	}
	if got := Text("<<<>>>"); strings.ContainsAny(got, "<>") {
		t.Fatalf("garbage input leaked markup: %q", got)
	}
}
