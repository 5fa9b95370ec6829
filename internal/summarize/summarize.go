// Package summarize turns article text into a single-sentence summary through
// an OpenAI-compatible backend. It owns the provider quirks: chat versus
// structured call shapes, per-variant request bodies, heterogeneous response
// parsing, and output sanitization.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/linkbrief/internal/llm"
)

const (
	// maxPromptChars bounds the article text embedded in the prompt.
	maxPromptChars = 8000
	// maxSummaryRunes bounds the sanitized summary, ellipsis included.
	maxSummaryRunes = 200
	// maxKeyChars: a bearer token longer than this is almost certainly a
	// truncated or corrupted paste, not a real credential.
	maxKeyChars = 200
	// fallbackOutputCap is the one numeric output cap tried when the uncapped
	// structured variant comes back incomplete.
	fallbackOutputCap = 1024
)

// defaultSystemPrompt is used when the caller configures none.
const defaultSystemPrompt = "You are a concise news editor. You compress articles into a single factual sentence."

// structuredPrefixes name the model generations that only speak the
// structured-response shape.
var structuredPrefixes = []string{"gpt-5", "o1", "o3", "o4"}

var (
	ErrEmptyText   = errors.New("no text to summarize")
	ErrMissingKey  = errors.New("API key is not configured")
	ErrEmptyResult = errors.New("model returned no usable text")
)

// Config carries the per-call provider settings. The API key is validated
// before any network use and never appears in errors or logs.
type Config struct {
	ModelID      string
	APIKey       string
	SystemPrompt string
}

// Engine performs summarization calls. The zero value targets the public
// OpenAI API; tests point BaseURL at a stub.
type Engine struct {
	// BaseURL is the OpenAI-compatible API root, e.g. https://api.openai.com/v1.
	BaseURL    string
	HTTPClient *http.Client
	// NewChat overrides chat-client construction, for tests.
	NewChat func(apiKey string) llm.Client
}

// Summarize produces a sanitized one-line summary of text, at most 200
// characters with no internal newlines.
func (e *Engine) Summarize(ctx context.Context, text string, cfg Config) (string, error) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", ErrEmptyText
	}
	if cfg.ModelID == "" {
		return "", errors.New("model is not configured")
	}
	if err := checkCredential(cfg.APIKey); err != nil {
		return "", err
	}

	system := cfg.SystemPrompt
	if strings.TrimSpace(system) == "" {
		system = defaultSystemPrompt
	}
	prompt := buildUserMessage(text)

	if structuredFamily(cfg.ModelID) {
		return e.structured(ctx, system, prompt, cfg)
	}

	out, err := e.chat(ctx, system, prompt, cfg)
	if err == nil {
		return out, nil
	}
	if tokenParamMismatch(err) {
		// The backend wants the other token-limit parameter, which means it
		// speaks the structured shape; switch shapes instead of retrying.
		log.Debug().Str("model", cfg.ModelID).Msg("chat shape rejected; switching to structured shape")
		return e.structured(ctx, system, prompt, cfg)
	}
	return "", err
}

// Models lists the backend's models, a best-effort connectivity preflight.
func (e *Engine) Models(ctx context.Context, apiKey string) ([]string, error) {
	if err := checkCredential(apiKey); err != nil {
		return nil, err
	}
	lister, ok := e.chatClient(apiKey).(llm.ModelLister)
	if !ok {
		return nil, errors.New("backend does not support model listing")
	}
	list, err := lister.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		out = append(out, m.ID)
	}
	return out, nil
}

func (e *Engine) chatClient(apiKey string) llm.Client {
	if e.NewChat != nil {
		return e.NewChat(apiKey)
	}
	return llm.NewChatClient(apiKey, e.BaseURL, e.HTTPClient)
}

func (e *Engine) chat(ctx context.Context, system, prompt string, cfg Config) (string, error) {
	resp, err := e.chatClient(cfg.APIKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: cfg.ModelID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
		N:           1,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResult
	}
	out := Sanitize(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyResult
	}
	return out, nil
}

// structured walks the variant ladder: {no output cap, one fallback cap} ×
// {format hint present, dropped}, plus a tool-choice field that is likewise
// dropped when a backend rejects it. First extractable text wins; exhaustion
// surfaces the last observed error.
func (e *Engine) structured(ctx context.Context, system, prompt string, cfg Config) (string, error) {
	caller := &llm.ResponsesCaller{
		HTTPClient: e.HTTPClient,
		BaseURL:    strings.TrimRight(orDefault(e.BaseURL, "https://api.openai.com/v1"), "/"),
		APIKey:     cfg.APIKey,
	}
	includeFormat := true
	includeToolChoice := true
	caps := []int{0, fallbackOutputCap}

	var lastErr error
	for tier, outputCap := range caps {
	variant:
		for attempt := 0; attempt < 3; attempt++ {
			body := responsesBody(cfg.ModelID, system, prompt, outputCap, includeFormat, includeToolChoice)
			resp, err := caller.Do(ctx, body)
			if err != nil {
				lastErr = err
				var ce *llm.CallError
				if errors.As(err, &ce) && ce.StatusCode >= 400 && ce.StatusCode < 500 {
					if dropUnsupported(ce.Body, &includeFormat, &includeToolChoice) {
						continue variant
					}
				}
				break variant
			}
			if resp.Incomplete() && tier < len(caps)-1 {
				lastErr = fmt.Errorf("response incomplete (reason: %s)", resp.IncompleteDetails.Reason)
				break variant
			}
			if out := Sanitize(resp.Text()); out != "" {
				return out, nil
			}
			lastErr = ErrEmptyResult
			break variant
		}
	}
	if lastErr == nil {
		lastErr = ErrEmptyResult
	}
	return "", fmt.Errorf("summarization failed: %w", lastErr)
}

func responsesBody(model, system, prompt string, outputCap int, includeFormat, includeToolChoice bool) map[string]any {
	body := map[string]any{
		"model":        model,
		"instructions": system,
		"input": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "input_text", "text": prompt},
				},
			},
		},
	}
	if outputCap > 0 {
		body["max_output_tokens"] = outputCap
	}
	if includeFormat {
		body["text"] = map[string]any{"format": map[string]any{"type": "text"}}
	}
	if includeToolChoice {
		body["tool_choice"] = "none"
	}
	return body
}

// dropUnsupported inspects an error body for a rejected optional field and
// disables it. Reports whether anything changed, i.e. a retry is worthwhile.
func dropUnsupported(errBody string, includeFormat, includeToolChoice *bool) bool {
	lower := strings.ToLower(errBody)
	if *includeToolChoice && strings.Contains(lower, "tool_choice") {
		*includeToolChoice = false
		return true
	}
	if *includeFormat && strings.Contains(lower, "format") {
		*includeFormat = false
		return true
	}
	return false
}

// tokenParamMismatch detects the 400 that newer backends send when the chat
// shape's token-limit parameter is spelled wrong for them.
func tokenParamMismatch(err error) bool {
	var ae *openai.APIError
	if !errors.As(err, &ae) {
		return false
	}
	if ae.HTTPStatusCode != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(ae.Message)
	return strings.Contains(msg, "max_tokens") || strings.Contains(msg, "max_completion_tokens")
}

func structuredFamily(model string) bool {
	m := strings.ToLower(model)
	for _, p := range structuredPrefixes {
		if strings.HasPrefix(m, p) {
			return true
		}
	}
	return false
}

func buildUserMessage(text string) string {
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}
	var sb strings.Builder
	sb.WriteString("Summarize the following article in exactly one sentence of at most 25 words. ")
	sb.WriteString("No markdown, no emojis, no quotation marks. Output only the sentence.\n\nArticle:\n")
	sb.WriteString(text)
	return sb.String()
}

// Sanitize collapses all whitespace to single spaces, trims, and truncates
// over-long output with an ellipsis marker. The prompt, not this function, is
// responsible for sentence and word limits.
func Sanitize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > maxSummaryRunes {
		s = string(runes[:maxSummaryRunes-1]) + "…"
	}
	return s
}

// checkCredential fails fast on keys that would produce an invalid or
// misleading Authorization header, before any network call. The key itself
// never appears in the returned error.
func checkCredential(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrMissingKey
	}
	if !asciiOnly(key) {
		return errors.New("API key contains non-ASCII characters; re-copy it without smart quotes or ellipsis")
	}
	if len(key) > maxKeyChars {
		return errors.New("API key is implausibly long; it looks truncated or corrupted, re-copy it")
	}
	return nil
}

// asciiOnly reports whether s is safe as an HTTP header value.
func asciiOnly(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
