// Package resolve recovers the publisher URL hidden behind an intermediary
// redirector link. It probes the redirect over HTTP first and, when a
// renderable browsing surface is available, falls back to watching a real
// navigation settle.
package resolve

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Outcome classifies the rendered-navigation watch.
type Outcome int

const (
	// NoRedirect covers both "page never left the intermediary" and
	// "watching timed out"; callers fall back to candidate scanning either way.
	NoRedirect Outcome = iota
	Redirected
)

// Surface is an isolated, inactive browsing context. Location reports the
// surface's current URL and load state ("loading" or "complete").
type Surface interface {
	Location(ctx context.Context) (url string, state string, err error)
	Close()
}

// Opener creates surfaces. A nil Opener on the Resolver means no renderable
// context exists and only the HTTP probe runs.
type Opener interface {
	Open(ctx context.Context, url string) (Surface, error)
}

const (
	pollInterval = 500 * time.Millisecond
	// settleWait is the extended pause after the page reports complete, to
	// catch delayed client-side redirects.
	settleWait        = 3 * time.Second
	defaultWaitBudget = 12 * time.Second
)

// sleepFn is swapped in tests for deterministic polling.
var sleepFn = time.Sleep

type Resolver struct {
	HTTPClient *http.Client
	UserAgent  string
	// Admit is the article-likelihood test applied to probed locations,
	// normally Scanner.Allowed. Nil admits everything with a non-trivial path.
	Admit func(rawURL string) bool
	// Opener enables the rendered-navigation fallback when non-nil.
	Opener Opener
	// WaitBudget bounds the total rendered-navigation watch. Zero means 12s.
	WaitBudget time.Duration
}

// Resolve returns the publisher URL behind intermediary, or "" when neither
// strategy finds one. An empty result is not an error: it tells the pipeline
// to work from the intermediary page itself.
func (r *Resolver) Resolve(ctx context.Context, intermediary string) string {
	if u := r.probe(ctx, intermediary); u != "" {
		return u
	}
	if r.Opener == nil {
		return ""
	}
	outcome, u := r.watchNavigation(ctx, intermediary)
	if outcome == Redirected {
		return u
	}
	return ""
}

// probe asks the intermediary for its redirect without following it. A first
// bare request, then one retry presenting the intermediary as referrer.
func (r *Resolver) probe(ctx context.Context, intermediary string) string {
	if u := r.probeOnce(ctx, intermediary, ""); u != "" {
		return u
	}
	return r.probeOnce(ctx, intermediary, OriginOf(intermediary))
}

func (r *Resolver) probeOnce(ctx context.Context, intermediary, referrer string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, intermediary, nil)
	if err != nil {
		return ""
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}
	if referrer != "" {
		req.Header.Set("Referer", referrer)
	}

	client := r.httpClient()
	resp, err := client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return ""
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return ""
	}
	abs := absoluteLocation(req.URL, loc)
	if abs == "" || !r.admissible(abs) {
		log.Debug().Str("location", loc).Msg("probed redirect rejected by admission test")
		return ""
	}
	return abs
}

func (r *Resolver) httpClient() *http.Client {
	base := &http.Client{}
	if r.HTTPClient != nil {
		clone := *r.HTTPClient
		base = &clone
	}
	// Stop at the first hop; the Location header is the answer.
	base.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return base
}

// admissible applies the article-likelihood test: the shared blacklists plus
// a minimum path length, since bare domain roots are never article pages.
func (r *Resolver) admissible(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || len(u.Path) <= 1 {
		return false
	}
	if r.Admit != nil && !r.Admit(rawURL) {
		return false
	}
	return true
}

// watchNavigation opens intermediary in an isolated surface and polls until
// its URL leaves the intermediary's domain, the wait budget runs out, or the
// surface errors. The surface is closed on every path.
func (r *Resolver) watchNavigation(ctx context.Context, intermediary string) (Outcome, string) {
	budget := r.WaitBudget
	if budget <= 0 {
		budget = defaultWaitBudget
	}
	surface, err := r.Opener.Open(ctx, intermediary)
	if err != nil {
		log.Debug().Err(err).Msg("could not open browsing surface")
		return NoRedirect, ""
	}
	defer surface.Close()

	deadline := time.Now().Add(budget)
	settled := false
	sleepFn(pollInterval)
	for {
		if ctx.Err() != nil || time.Now().After(deadline) {
			return NoRedirect, ""
		}
		loc, state, err := surface.Location(ctx)
		if err != nil {
			return NoRedirect, ""
		}
		if redirected(intermediary, loc) {
			return Redirected, loc
		}
		if state == "complete" {
			if settled {
				return NoRedirect, ""
			}
			// One extended wait for delayed client-side redirects.
			settled = true
			sleepFn(settleWait)
			continue
		}
		sleepFn(pollInterval)
	}
}

// redirected reports whether loc differs from the intermediary URL and no
// longer belongs to its domain.
func redirected(intermediary, loc string) bool {
	if loc == "" || loc == intermediary {
		return false
	}
	iu, err1 := url.Parse(intermediary)
	lu, err2 := url.Parse(loc)
	if err1 != nil || err2 != nil {
		return false
	}
	ih := strings.ToLower(iu.Hostname())
	lh := strings.ToLower(lu.Hostname())
	return lh != "" && lh != ih && !strings.HasSuffix(lh, "."+ih)
}

func absoluteLocation(base *url.URL, loc string) string {
	rel, err := url.Parse(loc)
	if err != nil {
		return ""
	}
	return base.ResolveReference(rel).String()
}

// OriginOf returns the scheme://host origin of rawURL, used as the referrer
// identity when simulating arrival from the intermediary site.
func OriginOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}
