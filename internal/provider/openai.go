package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// openAIClient speaks the OpenAI chat-completions wire format. Both OpenAI
// and Groq are served by this client; only the base URL and key differ.
type openAIClient struct {
	provider  string
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	retry     RetryConfig
	limiter   *rate.Limiter
	http      *http.Client
	logger    *slog.Logger
}

func newOpenAICompatible(opts Options) *openAIClient {
	return &openAIClient{
		provider:  opts.Provider,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		apiKey:    opts.APIKey,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		retry:     opts.Retry,
		limiter:   opts.Limiter,
		http:      &http.Client{Timeout: opts.Timeout},
		logger:    opts.Logger,
	}
}

func (c *openAIClient) Provider() string { return c.provider }
func (c *openAIClient) Model() string    { return c.model }

// chatRequest is the request body for chat completions.
type chatRequest struct {
	Model      string           `json:"model"`
	Messages   []Message        `json:"messages"`
	Tools      []ToolDefinition `json:"tools,omitempty"`
	ToolChoice any              `json:"tool_choice,omitempty"`
	MaxTokens  int              `json:"max_tokens,omitempty"`
}

// chatResponse is the response from chat completions. Content may be a
// string, null, or an array of typed parts depending on the backend.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   json.RawMessage `json:"content"`
			ToolCalls []ToolCall      `json:"tool_calls,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Chat sends messages and tool definitions and returns the assistant turn.
func (c *openAIClient) Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*ChatResponse, error) {
	if c.apiKey == "" {
		return nil, newError(c.provider, KindFatal, 0, errors.New("API key not set"))
	}
	if c.model == "" {
		return nil, newError(c.provider, KindFatal, 0, errors.New("model not set"))
	}

	body := chatRequest{
		Model:     c.model,
		Messages:  messages,
		Tools:     tools,
		MaxTokens: c.maxTokens,
	}
	if len(tools) > 0 {
		body.ToolChoice = "auto"
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, newError(c.provider, KindFatal, 0, fmt.Errorf("encode request: %w", err))
	}

	return withRetry(ctx, c.retry, c.limiter, c.logger, func(ctx context.Context) (*ChatResponse, error) {
		return c.do(ctx, raw)
	})
}

// do performs a single HTTP attempt and classifies any failure.
func (c *openAIClient) do(ctx context.Context, raw []byte) (*ChatResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return nil, newError(c.provider, KindFatal, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, newError(c.provider, KindTransient, 0, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(c.provider, KindTransient, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, newError(c.provider, KindTransient, resp.StatusCode, apiErrorMessage(bodyBytes))
	case resp.StatusCode != http.StatusOK:
		return nil, newError(c.provider, KindFatal, resp.StatusCode, apiErrorMessage(bodyBytes))
	}

	var out chatResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		return nil, newError(c.provider, KindMalformed, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	if out.Error != nil {
		return nil, newError(c.provider, KindFatal, resp.StatusCode, errors.New(out.Error.Message))
	}
	if len(out.Choices) == 0 {
		return nil, newError(c.provider, KindMalformed, resp.StatusCode, errors.New("no choices in response"))
	}

	msg := out.Choices[0].Message
	return &ChatResponse{
		Content:   parseContent(msg.Content),
		ToolCalls: msg.ToolCalls,
	}, nil
}

// apiErrorMessage extracts the error message from an API error body,
// falling back to the raw body.
func apiErrorMessage(body []byte) error {
	var out struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &out); err == nil && out.Error.Message != "" {
		return errors.New(out.Error.Message)
	}
	return errors.New(strings.TrimSpace(string(body)))
}

// parseContent parses API content that may be a string, null, or an array
// of parts such as [{"type":"text","text":"..."}].
func parseContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err == nil {
		var b strings.Builder
		for _, p := range parts {
			if p.Type == "text" || p.Type == "" {
				b.WriteString(p.Text)
			}
		}
		return b.String()
	}
	return ""
}
