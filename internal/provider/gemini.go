package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/google/jsonschema-go/jsonschema"
)

// Gemini's function-calling protocol correlates calls and responses by name
// and order; call IDs are optional. The orchestrator requires an ID on every
// tool call, so calls that arrive without one get a synthetic ID carrying
// this prefix. Synthetic IDs are stripped again before they go back over the
// wire.
const syntheticCallIDPrefix = "tc_"

// geminiClient serves the Gemini API through the google.golang.org/genai
// SDK, translating between the OpenAI-style message shapes used everywhere
// else and Gemini contents.
type geminiClient struct {
	client    *genai.Client
	model     string
	maxTokens int
	retry     RetryConfig
	limiter   *rate.Limiter
	logger    *slog.Logger
}

func newGemini(ctx context.Context, opts Options) (*geminiClient, error) {
	if opts.APIKey == "" {
		return nil, newError(Gemini, KindFatal, 0, errors.New("API key not set"))
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &geminiClient{
		client:    client,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		retry:     opts.Retry,
		limiter:   opts.Limiter,
		logger:    opts.Logger,
	}, nil
}

func (c *geminiClient) Provider() string { return Gemini }
func (c *geminiClient) Model() string    { return c.model }

// Chat sends messages and tool definitions and returns the assistant turn.
func (c *geminiClient) Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*ChatResponse, error) {
	system, contents, err := toGeminiContents(messages)
	if err != nil {
		return nil, newError(Gemini, KindFatal, 0, err)
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(c.maxTokens),
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  toGeminiSchema(t.Function.Parameters),
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	return withRetry(ctx, c.retry, c.limiter, c.logger, func(ctx context.Context) (*ChatResponse, error) {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
		if err != nil {
			return nil, classifyGeminiError(err)
		}
		return parseGeminiResponse(resp)
	})
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code >= 500 || apiErr.Code == http.StatusTooManyRequests {
			return newError(Gemini, KindTransient, apiErr.Code, err)
		}
		return newError(Gemini, KindFatal, apiErr.Code, err)
	}
	// Anything without an API status is a connection-level failure.
	return newError(Gemini, KindTransient, 0, err)
}

func parseGeminiResponse(resp *genai.GenerateContentResponse) (*ChatResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, newError(Gemini, KindMalformed, 0, errors.New("no candidates in response"))
	}

	out := &ChatResponse{}
	var text strings.Builder
	for i, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part.Text != "":
			text.WriteString(part.Text)
		case part.FunctionCall != nil:
			fc := part.FunctionCall
			args, err := json.Marshal(fc.Args)
			if err != nil {
				return nil, newError(Gemini, KindMalformed, 0, fmt.Errorf("encode call arguments: %w", err))
			}
			id := fc.ID
			if id == "" {
				id = fmt.Sprintf("%s%d", syntheticCallIDPrefix, i)
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:   id,
				Type: "function",
				Function: FunctionCall{
					Name:      fc.Name,
					Arguments: string(args),
				},
			})
		}
	}
	out.Content = text.String()
	return out, nil
}

// toGeminiContents splits the transcript into the system instruction and the
// conversation contents.
func toGeminiContents(messages []Message) (system string, contents []*genai.Content, err error) {
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = m.Content
		case RoleUser:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		case RoleAssistant:
			content := &genai.Content{Role: genai.RoleModel}
			if m.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				if tc.Function.Arguments != "" {
					// Tolerate unparsable arguments; they are replayed empty.
					_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   wireCallID(tc.ID),
						Name: tc.Function.Name,
						Args: args,
					},
				})
			}
			contents = append(contents, content)
		case RoleTool:
			response := map[string]any{}
			if err := json.Unmarshal([]byte(m.Content), &response); err != nil {
				response = map[string]any{"result": m.Content}
			}
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       wireCallID(m.ToolCallID),
						Name:     m.Name,
						Response: response,
					},
				}},
			})
		default:
			return "", nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}
	return system, contents, nil
}

// wireCallID drops synthetic IDs so the API only ever sees IDs it issued.
func wireCallID(id string) string {
	if strings.HasPrefix(id, syntheticCallIDPrefix) {
		return ""
	}
	return id
}

// toGeminiSchema converts a JSON Schema into the subset Gemini's function
// declarations understand.
func toGeminiSchema(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{Description: s.Description}
	switch s.Type {
	case "object":
		out.Type = genai.TypeObject
		if len(s.Properties) > 0 {
			out.Properties = make(map[string]*genai.Schema, len(s.Properties))
			for name, prop := range s.Properties {
				out.Properties[name] = toGeminiSchema(prop)
			}
		}
		out.Required = s.Required
	case "array":
		out.Type = genai.TypeArray
		out.Items = toGeminiSchema(s.Items)
	case "string":
		out.Type = genai.TypeString
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	}
	for _, v := range s.Enum {
		if str, ok := v.(string); ok {
			out.Enum = append(out.Enum, str)
		}
	}
	return out
}
