// Package app wires the resolution pipeline and the summarization engine
// behind the two operations callers use, and owns the overall per-call
// deadline.
package app

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/linkbrief/internal/fetch"
	"github.com/hyperifyio/linkbrief/internal/pipeline"
	"github.com/hyperifyio/linkbrief/internal/resolve"
	"github.com/hyperifyio/linkbrief/internal/scan"
	"github.com/hyperifyio/linkbrief/internal/summarize"
)

type App struct {
	cfg      Config
	pipeline *pipeline.Pipeline
	engine   *summarize.Engine
}

// New builds an App. opener may be nil: without a renderable browsing context
// the resolver uses the HTTP probe only.
func New(cfg Config, opener resolve.Opener) *App {
	httpClient := &http.Client{}
	scanner := &scan.Scanner{IntermediaryHost: cfg.IntermediaryHost}
	return &App{
		cfg: cfg,
		pipeline: &pipeline.Pipeline{
			Fetcher: &fetch.Client{
				HTTPClient:        httpClient,
				UserAgent:         cfg.UserAgent,
				PerRequestTimeout: cfg.FetchTimeout,
			},
			Resolver: &resolve.Resolver{
				HTTPClient: httpClient,
				UserAgent:  cfg.UserAgent,
				Admit:      scanner.Allowed,
				Opener:     opener,
				WaitBudget: cfg.ResolverWait,
			},
			Scanner: scanner,
		},
		engine: &summarize.Engine{
			BaseURL:    cfg.LLMBaseURL,
			HTTPClient: httpClient,
		},
	}
}

// ResolveAndSummarize resolves the intermediary URL to article text and
// summarizes it in one bounded call.
func (a *App) ResolveAndSummarize(ctx context.Context, intermediaryURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.overallTimeout())
	defer cancel()

	text, err := a.pipeline.ResolveText(ctx, intermediaryURL)
	if err != nil {
		return "", err
	}
	log.Info().Int("chars", len(text)).Msg("resolved article text")
	return a.summarize(ctx, text)
}

// SummarizeText summarizes caller-supplied text directly, the path taken when
// deep fetching is disabled.
func (a *App) SummarizeText(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.overallTimeout())
	defer cancel()
	return a.summarize(ctx, text)
}

func (a *App) summarize(ctx context.Context, text string) (string, error) {
	return a.engine.Summarize(ctx, text, summarize.Config{
		ModelID:      a.cfg.LLMModel,
		APIKey:       a.cfg.LLMAPIKey,
		SystemPrompt: a.cfg.SystemPrompt,
	})
}

// Preflight checks backend connectivity by listing models. Best-effort: a
// failure warns and never aborts the run.
func (a *App) Preflight(ctx context.Context) {
	models, err := a.engine.Models(ctx, a.cfg.LLMAPIKey)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
		return
	}
	if len(models) == 0 {
		log.Warn().Msg("LLM returned zero models")
		return
	}
	log.Info().Int("count", len(models)).Msg("LLM models available")
}
