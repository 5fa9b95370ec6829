package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperifyio/linkbrief/internal/fetch"
	"github.com/hyperifyio/linkbrief/internal/resolve"
	"github.com/hyperifyio/linkbrief/internal/scan"
)

func lorem(n int) string {
	const words = "lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod tempor "
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(words)
	}
	return b.String()[:n]
}

func articlePage(body string) string {
	return `<html><body><nav><a href="/x">menu</a></nav><article><p>` + body + `</p></article></body></html>`
}

func newPipeline() *Pipeline {
	return &Pipeline{
		Fetcher:  &fetch.Client{UserAgent: "linkbrief-test"},
		Resolver: &resolve.Resolver{},
		Scanner:  &scan.Scanner{},
	}
}

func TestResolveText_RedirectedArticle(t *testing.T) {
	story := lorem(500)
	mux := http.NewServeMux()
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/2025/08/14/story-title")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/2025/08/14/story-title", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articlePage(story)))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	got, err := newPipeline().ResolveText(context.Background(), srv.URL+"/redirect")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != story {
		t.Fatalf("expected full article text via redirect, got %d chars", len(got))
	}
}

func TestResolveText_CandidateFromJSONBlob(t *testing.T) {
	story := lorem(450)
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/intermediary", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><script type="application/ld+json">` +
			`{"url": "` + srv.URL + `/news/abc"}</script><p>redirecting</p></body></html>`))
	})
	mux.HandleFunc("/news/abc", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articlePage(story)))
	})

	got, err := newPipeline().ResolveText(context.Background(), srv.URL+"/intermediary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != story {
		t.Fatalf("expected candidate article text, got %q", got)
	}
}

func TestResolveText_SkipsFailingCandidate(t *testing.T) {
	story := lorem(450)
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/intermediary", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>` +
			`<a href="` + srv.URL + `/missing">first</a>` +
			`<a href="` + srv.URL + `/news/abc">second</a>` +
			`</body></html>`))
	})
	mux.HandleFunc("/news/abc", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articlePage(story)))
	})

	got, err := newPipeline().ResolveText(context.Background(), srv.URL+"/intermediary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != story {
		t.Fatalf("expected second candidate to serve the article, got %q", got)
	}
}

func TestResolveText_FallsBackToIntermediaryContent(t *testing.T) {
	own := lorem(420)
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/intermediary", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articlePage(own)))
	})

	got, err := newPipeline().ResolveText(context.Background(), srv.URL+"/intermediary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != own {
		t.Fatalf("expected intermediary's own content, got %q", got)
	}
}

func TestResolveText_ShortExtractionFallsBackToNormalizer(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/intermediary", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		// An article block under the 400-char floor: structured extraction is
		// not trusted and the whole page goes through the normalizer.
		_, _ = w.Write([]byte(`<html><body><article><p>` + lorem(250) + `</p></article><p>trailing text</p></body></html>`))
	})

	got, err := newPipeline().ResolveText(context.Background(), srv.URL+"/intermediary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "trailing text") {
		t.Fatalf("expected normalizer output including page text, got %q", got)
	}
}

func TestResolveText_ExhaustionSurfacesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newPipeline().ResolveText(context.Background(), srv.URL+"/intermediary")
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
}

func TestResolveText_MissingURL(t *testing.T) {
	if _, err := newPipeline().ResolveText(context.Background(), ""); err == nil {
		t.Fatalf("expected error for missing URL")
	}
}

func TestResolveText_IdempotentOnStaticFixture(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/intermediary", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articlePage(lorem(450))))
	})

	p := newPipeline()
	first, err1 := p.ResolveText(context.Background(), srv.URL+"/intermediary")
	second, err2 := p.ResolveText(context.Background(), srv.URL+"/intermediary")
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if first != second {
		t.Fatalf("resolveText not idempotent on a static fixture")
	}
}
