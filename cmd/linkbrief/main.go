package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/linkbrief/internal/app"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		articleURL   string
		text         string
		configPath   string
		llmBaseURL   string
		llmModel     string
		llmKey       string
		systemPrompt string
		userAgent    string
		fetchTimeout time.Duration
		resolverHost string
		resolverWait time.Duration
		deepFetch    bool
		timeout      time.Duration
		verbose      bool
	)

	flag.StringVar(&articleURL, "url", "", "Intermediary article URL to resolve and summarize")
	flag.StringVar(&text, "text", "", "Text to summarize directly; '-' reads stdin")
	flag.StringVar(&configPath, "config", "", "Path to optional yaml config file")
	flag.StringVar(&llmBaseURL, "llm.base", os.Getenv("LLM_BASE_URL"), "OpenAI-compatible base URL")
	flag.StringVar(&llmModel, "llm.model", os.Getenv("LLM_MODEL"), "Model name")
	flag.StringVar(&llmKey, "llm.key", os.Getenv("LLM_API_KEY"), "API key for the OpenAI-compatible server")
	flag.StringVar(&systemPrompt, "llm.systemPrompt", os.Getenv("LLM_SYSTEM_PROMPT"), "Override the summarization system prompt")
	flag.StringVar(&userAgent, "fetch.ua", "linkbrief/1.0 (+https://github.com/hyperifyio/linkbrief)", "User-Agent for page fetches")
	flag.DurationVar(&fetchTimeout, "fetch.timeout", 0, "Per-request fetch timeout (default 15s)")
	flag.StringVar(&resolverHost, "resolver.host", os.Getenv("INTERMEDIARY_HOST"), "Intermediary host rejected by the candidate filter")
	flag.DurationVar(&resolverWait, "resolver.wait", 0, "Rendered-navigation wait budget (default 12s)")
	flag.BoolVar(&deepFetch, "deepFetch", true, "Resolve the URL before summarizing; false summarizes -text as-is")
	flag.DurationVar(&timeout, "timeout", 0, "Overall deadline per call (default 90s)")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg := app.Config{
		LLMBaseURL:       llmBaseURL,
		LLMModel:         llmModel,
		LLMAPIKey:        llmKey,
		SystemPrompt:     systemPrompt,
		UserAgent:        userAgent,
		FetchTimeout:     fetchTimeout,
		IntermediaryHost: resolverHost,
		ResolverWait:     resolverWait,
		DeepFetch:        deepFetch,
		OverallTimeout:   timeout,
		Verbose:          verbose,
	}
	if configPath != "" {
		fc, err := app.LoadFileConfig(configPath)
		if err != nil {
			log.Error().Err(err).Msg("config file")
			os.Exit(1)
		}
		cfg.ApplyFile(fc)
	}

	a := app.New(cfg, nil)
	ctx := context.Background()
	if cfg.Verbose {
		a.Preflight(ctx)
	}

	summary, err := run(ctx, a, cfg, articleURL, text)
	if err != nil {
		log.Error().Err(err).Msg("summarization failed")
		os.Exit(2)
	}
	fmt.Println(summary)
}

func run(ctx context.Context, a *app.App, cfg app.Config, articleURL, text string) (string, error) {
	if cfg.DeepFetch && articleURL != "" {
		return a.ResolveAndSummarize(ctx, articleURL)
	}
	if text == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(b)
	}
	if strings.TrimSpace(text) == "" {
		flag.Usage()
		os.Exit(1)
	}
	return a.SummarizeText(ctx, text)
}
