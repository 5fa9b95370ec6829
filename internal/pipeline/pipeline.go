// Package pipeline turns an intermediary URL into article text. It chains the
// redirect resolver, candidate scanner and content extractor with a fixed
// fallback order; individual failures feed the next strategy and only full
// exhaustion surfaces as an error.
package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/linkbrief/internal/extract"
	"github.com/hyperifyio/linkbrief/internal/fetch"
	"github.com/hyperifyio/linkbrief/internal/normalize"
	"github.com/hyperifyio/linkbrief/internal/resolve"
	"github.com/hyperifyio/linkbrief/internal/scan"
)

// ErrNoContent is returned when every strategy is exhausted without usable
// text.
var ErrNoContent = errors.New("could not extract content from the page or its links")

// minMainContentChars is the floor under which structured extraction is
// considered to have missed the article and the plain normalizer runs instead.
const minMainContentChars = 400

type Pipeline struct {
	Fetcher  *fetch.Client
	Resolver *resolve.Resolver
	Scanner  *scan.Scanner
}

// ResolveText resolves intermediary to article text. Strategy order: follow
// the resolved redirect, then scanned candidate links, then the intermediary
// page's own content.
func (p *Pipeline) ResolveText(ctx context.Context, intermediary string) (string, error) {
	if intermediary == "" {
		return "", errors.New("missing article URL")
	}
	referrer := resolve.OriginOf(intermediary)

	if resolved := p.Resolver.Resolve(ctx, intermediary); resolved != "" {
		log.Info().Str("url", resolved).Msg("resolved publisher URL")
		if text := p.fetchAndExtract(ctx, resolved, referrer); text != "" {
			return text, nil
		}
		// A resolved URL that yields nothing falls through to the
		// intermediary page like any other failed strategy.
	}

	page, err := p.Fetcher.Page(ctx, intermediary, referrer)
	if err != nil {
		log.Warn().Err(err).Msg("intermediary page fetch failed")
		return "", ErrNoContent
	}

	for _, candidate := range p.Scanner.Scan(page) {
		if text := p.fetchAndExtract(ctx, candidate, referrer); text != "" {
			log.Info().Str("url", candidate).Msg("extracted from scanned candidate")
			return text, nil
		}
		log.Debug().Str("url", candidate).Msg("candidate yielded nothing; trying next")
	}

	// Last resort: the intermediary page's own content.
	if text := extractText(page); text != "" {
		return text, nil
	}
	return "", ErrNoContent
}

// fetchAndExtract fetches one URL and extracts its text, returning "" on any
// failure so the caller can move to the next strategy.
func (p *Pipeline) fetchAndExtract(ctx context.Context, pageURL, referrer string) string {
	page, err := p.Fetcher.Page(ctx, pageURL, referrer)
	if err != nil {
		log.Debug().Err(err).Str("url", pageURL).Msg("fetch failed")
		return ""
	}
	return extractText(page)
}

// extractText prefers structured main-content extraction and falls back to
// the plain normalizer when the result is too short to be the article.
func extractText(page string) string {
	if text := extract.MainContent(page); len(text) >= minMainContentChars {
		return text
	}
	return normalize.Text(page)
}
