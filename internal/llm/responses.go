package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// The structured-response ("responses") call shape used by newer model
// generations differs from chat at the wire level, and the engine needs
// per-variant control over which JSON fields are present as well as the raw
// error body for its fallback decisions. Neither is reachable through the
// typed chat SDK, so this caller builds the request body directly.

// CallError carries the provider's HTTP status and raw error body so callers
// can decide between variant fallbacks.
type CallError struct {
	StatusCode int
	Body       string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Body)
}

// Response is the decoded structured-response envelope. Text extraction
// handles the known shape variants in order: a flat text field, a list of
// typed output items with content parts, and a generic content list.
type Response struct {
	Status            string `json:"status"`
	IncompleteDetails struct {
		Reason string `json:"reason"`
	} `json:"incomplete_details"`
	OutputText string        `json:"output_text"`
	Output     []outputItem  `json:"output"`
	Content    []contentPart `json:"content"`
}

type outputItem struct {
	Type    string        `json:"type"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Incomplete reports whether the provider marked the response truncated.
func (r *Response) Incomplete() bool {
	return r.Status == "incomplete"
}

// Text returns the first non-empty text found across the known shapes, or "".
func (r *Response) Text() string {
	if t := strings.TrimSpace(r.OutputText); t != "" {
		return t
	}
	for _, item := range r.Output {
		if item.Type != "" && item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if t := strings.TrimSpace(part.Text); t != "" {
				return t
			}
		}
	}
	for _, part := range r.Content {
		if t := strings.TrimSpace(part.Text); t != "" {
			return t
		}
	}
	return ""
}

// ResponsesCaller posts raw JSON bodies to the provider's /responses endpoint.
type ResponsesCaller struct {
	HTTPClient *http.Client
	// BaseURL is the API root, e.g. https://api.openai.com/v1.
	BaseURL string
	APIKey  string
}

// Do sends body and decodes the envelope. Non-2xx statuses return a
// *CallError with the raw body.
func (c *ResponsesCaller) Do(ctx context.Context, body map[string]any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/responses"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &CallError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
