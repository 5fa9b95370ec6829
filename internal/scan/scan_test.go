package scan

import (
	"net/url"
	"testing"
)

func TestScan_AttributeStrategyFindsDataURLs(t *testing.T) {
	s := &Scanner{IntermediaryHost: "news.intermediary.example"}
	markup := `<div data-url="https://publisher.example/2025/08/14/story-title">read</div>
	<a href="https://other.example/news/piece">more</a>
	<a href="/relative/ignored">rel</a>`

	got := s.Scan(markup)
	want := []string{
		"https://publisher.example/2025/08/14/story-title",
		"https://other.example/news/piece",
	}
	assertURLs(t, got, want)
}

func TestScan_JSONBlobStrategy(t *testing.T) {
	s := &Scanner{IntermediaryHost: "news.intermediary.example"}
	markup := `<script type="application/ld+json">
	{"@type":"NewsArticle","url":"https://publisher.example/news/abc"}
	</script>`

	got := s.Scan(markup)
	if len(got) == 0 || got[0] != "https://publisher.example/news/abc" {
		t.Fatalf("expected ld+json url first, got %v", got)
	}
}

func TestScan_JSONEscapedSlashes(t *testing.T) {
	s := &Scanner{}
	markup := `<script>var d = {"href": "https:\/\/publisher.example\/news\/abc"};</script>`
	got := s.Scan(markup)
	found := false
	for _, u := range got {
		if u == "https://publisher.example/news/abc" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected unescaped json url, got %v", got)
	}
}

func TestScan_MetaAndCanonical(t *testing.T) {
	s := &Scanner{}
	markup := `<html><head>
	<link rel="canonical" href="https://publisher.example/canon">
	<meta property="og:url" content="https://publisher.example/og">
	</head><body></body></html>`

	got := s.Scan(markup)
	if !contains(got, "https://publisher.example/canon") || !contains(got, "https://publisher.example/og") {
		t.Fatalf("expected canonical and og:url, got %v", got)
	}
}

func TestScan_NeverReturnsBlacklistedHosts(t *testing.T) {
	s := &Scanner{IntermediaryHost: "news.intermediary.example"}
	markup := `
	<a href="https://news.intermediary.example/inner">self</a>
	<a href="https://sub.news.intermediary.example/inner">self-sub</a>
	<a href="https://www.googletagmanager.com/gtm.js">tracker</a>
	<a href="https://fonts.gstatic.com/font.woff">cdn</a>
	<a href="https://twitter.com/share">social</a>
	<a href="https://schema.org/NewsArticle">standards</a>
	<a href="https://publisher.example/2025/08/story">article</a>
	<script>fetch("https://google-analytics.com/collect")</script>`

	got := s.Scan(markup)
	for _, raw := range got {
		u, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("unparseable url returned: %q", raw)
		}
		for _, banned := range bannedHosts {
			if hostMatches(u.Hostname(), banned) {
				t.Fatalf("blacklisted host leaked: %q", raw)
			}
		}
		if hostMatches(u.Hostname(), "news.intermediary.example") {
			t.Fatalf("intermediary host leaked: %q", raw)
		}
	}
	if !contains(got, "https://publisher.example/2025/08/story") {
		t.Fatalf("valid article dropped: %v", got)
	}
}

func TestScan_PathBlacklist(t *testing.T) {
	s := &Scanner{}
	markup := `
	<a href="https://publisher.example/privacy">p</a>
	<a href="https://publisher.example/login">l</a>
	<a href="https://publisher.example/static/app.js">s</a>
	<a href="https://publisher.example/news/real-story">ok</a>`

	got := s.Scan(markup)
	want := []string{"https://publisher.example/news/real-story"}
	assertURLs(t, got, want)
}

func TestScan_DiscoveryOrderAndDedup(t *testing.T) {
	s := &Scanner{}
	markup := `<a href="https://a.example/one">1</a>
	<a href="https://b.example/two">2</a>
	<script>var u = "https://a.example/one";</script>`

	got := s.Scan(markup)
	want := []string{"https://a.example/one", "https://b.example/two"}
	assertURLs(t, got, want)
}

func TestAllowed_RejectsNonHTTP(t *testing.T) {
	s := &Scanner{}
	for _, raw := range []string{"ftp://publisher.example/x", "javascript:void(0)", "not a url", ""} {
		if s.Allowed(raw) {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func assertURLs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("at %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
