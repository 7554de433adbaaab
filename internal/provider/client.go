package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Supported backends.
const (
	OpenAI = "openai"
	Groq   = "groq"
	Gemini = "gemini"
)

// ErrUnknownProvider is returned by New for an unrecognized provider name.
var ErrUnknownProvider = errors.New("unknown AI provider")

// Client is implemented by every chat-completion backend.
//
// Chat sends the full transcript plus tool definitions and returns the
// assistant's next turn. Implementations retry transient failures
// internally; errors that escape are classified (see Kind).
type Client interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*ChatResponse, error)
	Provider() string
	Model() string
}

// Options configures a backend client.
type Options struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string // OpenAI-compatible backends only
	MaxTokens int
	Timeout   time.Duration // per-request timeout, 0 = no client timeout
	Retry     RetryConfig   // zero value uses DefaultRetryConfig
	Limiter   *rate.Limiter // nil = default 10 req/s, burst 30
	Logger    *slog.Logger
}

// New builds the client for the configured provider.
func New(ctx context.Context, opts Options) (Client, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Retry == (RetryConfig{}) {
		opts.Retry = DefaultRetryConfig()
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(10, 30)
	}

	switch opts.Provider {
	case OpenAI, Groq:
		return newOpenAICompatible(opts), nil
	case Gemini:
		return newGemini(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
}
