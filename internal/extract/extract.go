// Package extract locates the main article block of an HTML document by
// scoring candidate subtrees for text density. It is best-effort: any parse
// or scoring failure yields an empty result so callers can fall back to the
// plain-text normalizer.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxChars caps the extracted main-content length.
const MaxChars = 30000

// minCandidateChars is the text floor below which a candidate scores zero.
const minCandidateChars = 200

// paragraphWeight rewards candidates composed of real paragraphs over
// link-heavy navigation blocks of similar length.
const paragraphWeight = 50

// Elements that never contain article text.
const skipSelector = "script, style, nav, header, footer, iframe, form, svg, canvas, noscript"

// Residual clutter stripped from the winning subtree only.
const clutterSelector = `aside, button, figure, figcaption, ` +
	`[class*="ad-"], [class*="-ad"], [class*="advert"], [class*="share"], [class*="social"], [class*="promo"], [class*="related"]`

// Candidate selectors in priority order. Discovery order breaks score ties,
// so explicit article containers win over class-name guesses.
var candidateSelectors = []string{
	"article",
	"main",
	`[role="main"]`,
	`[class*="article-body"]`,
	`[class*="story-body"]`,
	`[class*="post-content"]`,
	`[class*="entry-content"]`,
	`[class*="main-content"]`,
	`[class*="page-content"]`,
	"#content",
	`[class*="content"]`,
	`[class*="story"]`,
	`[class*="body"]`,
}

// MainContent returns the text of the densest non-boilerplate block of html,
// truncated to MaxChars, or "" when no candidate clears the text floor or the
// document cannot be parsed.
func MainContent(html string) (out string) {
	// goquery tolerates most malformed input, but a scoring bug must never
	// take down the pipeline when the normalizer fallback exists.
	defer func() {
		if recover() != nil {
			out = ""
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find(skipSelector).Remove()

	best := pickBest(collectCandidates(doc))
	if best == nil {
		// Broaden to every structural container and rescore.
		var broad []*goquery.Selection
		doc.Find("article, main, section, div").Each(func(_ int, s *goquery.Selection) {
			broad = append(broad, s)
		})
		best = pickBest(broad)
	}
	if best == nil {
		return ""
	}

	best.Find(clutterSelector).Remove()
	text := strings.TrimSpace(best.Text())
	if len(text) > MaxChars {
		text = text[:MaxChars]
	}
	return text
}

func collectCandidates(doc *goquery.Document) []*goquery.Selection {
	var out []*goquery.Selection
	for _, sel := range candidateSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			out = append(out, s)
		})
	}
	return out
}

// pickBest returns the highest-scoring candidate, or nil when none scores
// positively. Ties keep the earliest candidate, which already reflects
// selector priority.
func pickBest(candidates []*goquery.Selection) *goquery.Selection {
	var best *goquery.Selection
	bestScore := 0
	for _, c := range candidates {
		if sc := score(c); sc > bestScore {
			best = c
			bestScore = sc
		}
	}
	return best
}

// score favors long visible text that is not made of links, with a bonus per
// paragraph. Candidates under the text floor score zero.
func score(s *goquery.Selection) int {
	text := strings.TrimSpace(s.Text())
	if len(text) < minCandidateChars {
		return 0
	}
	anchorLen := 0
	s.Find("a").Each(func(_ int, a *goquery.Selection) {
		anchorLen += len(strings.TrimSpace(a.Text()))
	})
	return (len(text) - anchorLen) + paragraphWeight*s.Find("p").Length()
}
