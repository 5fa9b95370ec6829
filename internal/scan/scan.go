// Package scan mines raw HTML for outbound article URLs. It runs a fixed
// battery of extraction strategies over the markup and filters every find
// through host and path blacklists, keeping discovery order and deduplicating
// exact matches. The result is heuristic: misses and false positives are
// expected, the pipeline downstream tries candidates in order.
package scan

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"mvdan.cc/xurls/v2"
)

// Strategy extracts candidate URLs from raw markup. Strategies are
// independent and individually testable; Scanner composes them in a fixed
// order.
type Strategy func(markup string) []string

// Scanner applies the default strategy battery with an admission filter.
type Scanner struct {
	// IntermediaryHost, when set, is rejected along with its subdomains in
	// addition to the fixed infrastructure blacklist.
	IntermediaryHost string
}

var urlRe = mustXurls()

func mustXurls() *regexp.Regexp {
	re, err := xurls.StrictMatchingScheme("https?://")
	if err != nil {
		panic(err)
	}
	return re
}

// jsonURLRe matches "url": "...", "href": "..." and "link": "..." pairs, the
// shape publishers bury in inline scripts and ld+json blocks.
var jsonURLRe = regexp.MustCompile(`"(?:url|href|link)"\s*:\s*"(https?:[^"]+)"`)

// Scan runs every strategy over markup and returns admitted URLs in discovery
// order, deduplicated by exact string match.
func (s *Scanner) Scan(markup string) []string {
	strategies := []Strategy{
		attributeURLs,
		sweepURLs,
		jsonURLs,
		metaURLs,
	}
	seen := make(map[string]struct{})
	var out []string
	for _, strat := range strategies {
		for _, raw := range strat(markup) {
			if _, dup := seen[raw]; dup {
				continue
			}
			seen[raw] = struct{}{}
			if s.Allowed(raw) {
				out = append(out, raw)
			}
		}
	}
	return out
}

// attributeURLs walks the token stream collecting href and data-* link
// attributes. A tokenizer rather than a full parse: redirector pages are
// routinely truncated or broken mid-tag.
func attributeURLs(markup string) []string {
	var out []string
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return out
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		_, hasAttr := z.TagName()
		for hasAttr {
			var key, val []byte
			key, val, hasAttr = z.TagAttr()
			switch string(key) {
			case "href", "data-url", "data-href", "data-link":
				if v := string(val); strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
					out = append(out, v)
				}
			}
		}
	}
}

// sweepURLs matches any absolute http(s) literal anywhere in the markup,
// including inside inline script bodies.
func sweepURLs(markup string) []string {
	found := urlRe.FindAllString(markup, -1)
	out := make([]string, 0, len(found))
	for _, f := range found {
		// The sweep regex happily consumes trailing quotes-adjacent junk like
		// escaped slashes from JSON; trim obvious leftovers.
		out = append(out, strings.TrimRight(f, `\"'`))
	}
	return out
}

func jsonURLs(markup string) []string {
	var out []string
	for _, m := range jsonURLRe.FindAllStringSubmatch(markup, -1) {
		// JSON escapes forward slashes; undo that before admission.
		v := strings.ReplaceAll(m[1], `\/`, "/")
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			out = append(out, v)
		}
	}
	return out
}

// metaURLs reads canonical link and og:url meta values.
func metaURLs(markup string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}
	var out []string
	doc.Find(`link[rel="canonical"]`).Each(func(_ int, sel *goquery.Selection) {
		if v, ok := sel.Attr("href"); ok && v != "" {
			out = append(out, v)
		}
	})
	doc.Find(`meta[property="og:url"]`).Each(func(_ int, sel *goquery.Selection) {
		if v, ok := sel.Attr("content"); ok && v != "" {
			out = append(out, v)
		}
	})
	return out
}

// Allowed reports whether rawURL survives the host and path blacklists. It is
// shared with the redirect resolver's article-likelihood test.
func (s *Scanner) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if s.IntermediaryHost != "" && hostMatches(host, strings.ToLower(s.IntermediaryHost)) {
		return false
	}
	for _, banned := range bannedHosts {
		if hostMatches(host, banned) {
			return false
		}
	}
	path := strings.ToLower(u.Path)
	for _, frag := range bannedPathFragments {
		if strings.Contains(path, frag) {
			return false
		}
	}
	return true
}

// hostMatches reports whether host equals banned or is one of its subdomains.
func hostMatches(host, banned string) bool {
	return host == banned || strings.HasSuffix(host, "."+banned)
}

// bannedHosts is non-article infrastructure: the formats found on redirector
// pages are served from these, never the story itself.
var bannedHosts = []string{
	"google.com",
	"googleusercontent.com",
	"googleapis.com",
	"gstatic.com",
	"googletagmanager.com",
	"google-analytics.com",
	"doubleclick.net",
	"youtube.com",
	"facebook.com",
	"twitter.com",
	"x.com",
	"instagram.com",
	"linkedin.com",
	"pinterest.com",
	"reddit.com",
	"cloudflare.com",
	"cloudfront.net",
	"akamaihd.net",
	"fastly.net",
	"jsdelivr.net",
	"unpkg.com",
	"cdnjs.com",
	"w3.org",
	"schema.org",
	"whatwg.org",
	"mozilla.org",
	"github.com",
	"stackoverflow.com",
	"wordpress.org",
	"gravatar.com",
}

// bannedPathFragments reject non-article pages by path shape.
var bannedPathFragments = []string{
	"/privacy",
	"/terms",
	"/legal",
	"/cookie",
	"/policy",
	"/login",
	"/signin",
	"/signup",
	"/register",
	"/account",
	"/admin",
	"/docs/",
	"/documentation",
	"/static/",
	"/assets/",
	"/cdn-cgi/",
	"/wp-content/",
	"/wp-includes/",
	"/favicon",
}
