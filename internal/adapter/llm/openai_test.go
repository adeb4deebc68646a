package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"optionsmagic-ai/internal/domain"
)

func newLLMTestLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestOpenAICompleteSuccess(t *testing.T) {
	var gotAuth string
	var gotReq openaiRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)

		json.NewEncoder(w).Encode(openaiResponse{
			ID:    "cmpl-1",
			Model: "gpt-4",
			Choices: []openaiChoice{
				{Message: openaiMessage{Role: "assistant", Content: "BANKNIFTY looks range-bound."}},
			},
			Usage: openaiUsage{PromptTokens: 12, CompletionTokens: 8, TotalTokens: 20},
		})
	}))
	defer server.Close()

	c := NewOpenAIClient(Config{APIKey: "sk-test", Model: "gpt-4", BaseURL: server.URL}, newLLMTestLogger())

	answer, err := c.Complete(context.Background(), "What about BANKNIFTY?")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if answer != "BANKNIFTY looks range-bound." {
		t.Errorf("answer = %q", answer)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "gpt-4" {
		t.Errorf("request model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" {
		t.Errorf("request messages = %+v", gotReq.Messages)
	}
}

func TestOpenAICompleteErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"rate limited", http.StatusTooManyRequests, domain.ErrRateLimit},
		{"bad key", http.StatusUnauthorized, domain.ErrAuthInvalid},
		{"server error", http.StatusBadGateway, domain.ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":{"message":"nope"}}`, tt.status)
			}))
			defer server.Close()

			c := NewOpenAIClient(Config{Model: "gpt-4", BaseURL: server.URL}, newLLMTestLogger())

			_, err := c.Complete(context.Background(), "query")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := domain.ErrorCodeOf(err); got != domain.ErrorCodeOf(tt.sentinel) {
				t.Errorf("error code = %q, want %q (err: %v)", got, domain.ErrorCodeOf(tt.sentinel), err)
			}
		})
	}
}

func TestOpenAICompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiResponse{ID: "cmpl-2", Model: "gpt-4"})
	}))
	defer server.Close()

	c := NewOpenAIClient(Config{Model: "gpt-4", BaseURL: server.URL}, newLLMTestLogger())

	_, err := c.Complete(context.Background(), "query")
	if err == nil {
		t.Fatal("expected error on empty choices")
	}
	if domain.ErrorCodeOf(err) != domain.CodeUpstream {
		t.Errorf("error code = %q, want %q", domain.ErrorCodeOf(err), domain.CodeUpstream)
	}
}
