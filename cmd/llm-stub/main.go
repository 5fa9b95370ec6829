// llm-stub is a deterministic OpenAI-compatible server for exercising the
// summarization engine offline. It serves the chat and structured-response
// endpoints; ?mode=param-mismatch and ?mode=incomplete switch on the failure
// behaviors the engine's fallback ladder has to handle.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
)

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("mode") == "param-mismatch" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{
					"message": "Unsupported parameter: 'max_tokens' is not supported with this model. Use 'max_completion_tokens' instead.",
					"type":    "invalid_request_error",
				},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "stub-chat",
			"object": "chat.completion",
			"model":  model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "A stubbed one-sentence summary of the article."},
				"finish_reason": "stop",
			}},
		})
	})
	mux.HandleFunc("/v1/responses", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("mode") == "incomplete" {
			// Without a cap, claim truncation so the caller escalates.
			if _, hasCap := body["max_output_tokens"]; !hasCap {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"status":             "incomplete",
					"incomplete_details": map[string]any{"reason": "max_output_tokens"},
				})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "completed",
			"output": []map[string]any{{
				"type": "message",
				"content": []map[string]any{{
					"type": "output_text",
					"text": "A stubbed structured-shape summary of the article.",
				}},
			}},
		})
	})

	log.Printf("llm-stub listening on %s (model %s)", addr, model)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
