package app

import "time"

// Config holds runtime configuration for one App instance.
type Config struct {
	// LLM
	LLMBaseURL   string
	LLMModel     string
	LLMAPIKey    string
	SystemPrompt string

	// Fetching
	UserAgent    string
	FetchTimeout time.Duration

	// Resolution
	IntermediaryHost string
	ResolverWait     time.Duration

	// DeepFetch mirrors the caller-side flag: when false the caller is
	// expected to pass visible text to SummarizeText instead of resolving.
	DeepFetch bool

	// OverallTimeout bounds one inbound operation end to end, covering
	// resolution, fetching and summarization. Zero means 90s.
	OverallTimeout time.Duration

	Verbose bool
}

const defaultOverallTimeout = 90 * time.Second

func (c Config) overallTimeout() time.Duration {
	if c.OverallTimeout > 0 {
		return c.OverallTimeout
	}
	return defaultOverallTimeout
}
