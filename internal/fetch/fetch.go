// Package fetch retrieves HTML pages for the resolution pipeline.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// maxBodyBytes bounds how much of a page is read; article pages beyond this
// carry nothing the extractor caps would keep anyway.
const maxBodyBytes = 2 << 20

// Client fetches pages with a per-request timeout and a single retry that
// presents a referrer, simulating arrival from the intermediary site. Some
// publishers serve a consent shell or an error to referrerless requests.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// PerRequestTimeout bounds each request. Zero means 15s.
	PerRequestTimeout time.Duration
	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
}

// Page fetches url and returns its HTML. On any failure the request is
// retried once with the Referer header set to referrer (when non-empty)
// before the failure surfaces. All failures, network or non-2xx, look the
// same to callers: this URL yielded no page.
func (c *Client) Page(ctx context.Context, pageURL, referrer string) (string, error) {
	body, err := c.tryOnce(ctx, pageURL, "")
	if err == nil {
		return body, nil
	}
	if referrer == "" || ctx.Err() != nil {
		return "", err
	}
	body, retryErr := c.tryOnce(ctx, pageURL, referrer)
	if retryErr != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, retryErr)
	}
	return body, nil
}

func (c *Client) tryOnce(ctx context.Context, pageURL, referrer string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	if req.URL == nil || !isHTTPScheme(req.URL) {
		return "", fmt.Errorf("unsupported URL scheme: %q", pageURL)
	}
	req.Header.Set("Accept", acceptHTML)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if referrer != "" {
		req.Header.Set("Referer", referrer)
	}

	timeout := c.PerRequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req = req.WithContext(ctx)

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !isAllowedHTMLContentType(ct) {
		return "", fmt.Errorf("unsupported content type: %s", ct)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(b), nil
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{CheckRedirect: c.checkRedirectFunc()}
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	// Missing content type is tolerated; small publishers get this wrong.
	if ct == "" {
		return true
	}
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
