package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"optionsmagic-ai/internal/domain"
	"optionsmagic-ai/internal/infra/tracer"
)

const defaultOpenAITimeout = 90 * time.Second

// Config configures the OpenAI-compatible completion client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // empty = api.openai.com
	Timeout time.Duration
}

// OpenAIClient implements domain.Completer against any OpenAI-compatible
// chat-completions API.
type OpenAIClient struct {
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewOpenAIClient creates a completion client with configured timeouts.
func NewOpenAIClient(cfg Config, logger *slog.Logger) *OpenAIClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOpenAITimeout
	}

	return &OpenAIClient{
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Complete implements domain.Completer.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "llm.complete",
		trace.WithAttributes(
			tracer.StringAttr("llm.provider", c.Name()),
			tracer.StringAttr("llm.model", c.model),
		),
	)
	defer span.End()

	body, err := json.Marshal(openaiRequest{
		Model:    c.model,
		Messages: []openaiMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		tracer.RecordError(span, err)
		return "", fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	respBody, err := doJSONRequest(ctx, c.client, c.baseURL+"/chat/completions", body, headers)
	if err != nil {
		tracer.RecordError(span, err)
		return "", err
	}

	var oaiResp openaiResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		tracer.RecordError(span, err)
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(oaiResp.Choices) == 0 || oaiResp.Choices[0].Message.Content == "" {
		err := domain.NewDomainError("llm.complete", domain.ErrUpstream, "response contained no choices")
		tracer.RecordError(span, err)
		return "", err
	}

	span.SetAttributes(tracer.IntAttr("llm.total_tokens", oaiResp.Usage.TotalTokens))
	tracer.SetOK(span)
	c.logger.Debug("llm completion finished",
		"model", oaiResp.Model,
		"tokens", oaiResp.Usage.TotalTokens,
	)

	return oaiResp.Choices[0].Message.Content, nil
}

// Name implements domain.Completer.
func (c *OpenAIClient) Name() string { return "openai" }

// --- OpenAI API wire types ---

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
}

type openaiResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Index        int           `json:"index"`
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
