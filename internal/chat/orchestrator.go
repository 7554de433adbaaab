// Package chat runs the conversation loop between a user message, the model
// endpoint, and the task tools.
//
// Each request is self-contained: the transcript starts from the system
// prompt and the user's message, tool calls execute sequentially in the
// order the model requested them, and nothing is persisted between requests.
// The conversation ID is echoed back (or minted) purely so clients can
// thread their own UI state.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/provider"
	"github.com/tasknest/tasknest/internal/tools"
)

// DefaultMaxToolRounds bounds how many tool-execution rounds one request
// may consume before the loop finalizes.
const DefaultMaxToolRounds = 5

// Result is the outcome of one processed message.
type Result struct {
	Response       string
	ConversationID uuid.UUID
	Actions        []tools.Record
}

// Config assembles an Orchestrator. Client, Registry, and Executor are
// required.
type Config struct {
	Client        provider.Client
	Registry      *tools.Registry
	Executor      *tools.Executor
	MaxToolRounds int           // 0 = DefaultMaxToolRounds
	Breaker       BreakerConfig // zero value uses defaults
	Logger        *slog.Logger
}

// Orchestrator drives the model/tool loop. It holds no per-request state
// and is safe for concurrent use.
type Orchestrator struct {
	client    provider.Client
	registry  *tools.Registry
	executor  *tools.Executor
	maxRounds int
	breaker   *breaker
	logger    *slog.Logger
}

// New validates cfg and builds an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Client == nil {
		return nil, errors.New("chat: client is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("chat: registry is required")
	}
	if cfg.Executor == nil {
		return nil, errors.New("chat: executor is required")
	}

	maxRounds := cfg.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxToolRounds
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		client:    cfg.Client,
		registry:  cfg.Registry,
		executor:  cfg.Executor,
		maxRounds: maxRounds,
		breaker:   newBreaker(cfg.Breaker),
		logger:    logger,
	}, nil
}

// Provider reports the backing provider name, for health reporting.
func (o *Orchestrator) Provider() string { return o.client.Provider() }

// Model reports the configured model name, for health reporting.
func (o *Orchestrator) Model() string { return o.client.Model() }

// Process answers one user message, executing whatever tool calls the model
// requests along the way. The returned Result carries the final text, the
// echoed (or minted) conversation ID, and the ordered records of every tool
// call made.
//
// A malformed model response resets the transcript and retries exactly once
// with a more directive instruction. Every other failure propagates so the
// caller can degrade to a generic response instead of leaking provider
// errors.
func (o *Orchestrator) Process(ctx context.Context, userID uuid.UUID, message string, conversationID uuid.UUID) (*Result, error) {
	if conversationID == uuid.Nil {
		conversationID = uuid.New()
	}

	result, err := o.converse(ctx, userID, message)
	if provider.KindOf(err) == provider.KindMalformed {
		o.logger.Warn("model response malformed, retrying with reset transcript",
			"user_id", userID,
			"error", err,
		)
		result, err = o.converse(ctx, userID, directiveRetry(message))
	}
	if err != nil {
		return nil, fmt.Errorf("process message: %w", err)
	}

	result.ConversationID = conversationID
	return result, nil
}

// converse runs one full conversation from a fresh transcript to a final
// answer.
func (o *Orchestrator) converse(ctx context.Context, userID uuid.UUID, userMessage string) (*Result, error) {
	transcript := []provider.Message{
		provider.SystemMessage(systemPrompt),
		provider.UserMessage(userMessage),
	}
	definitions := o.registry.Definitions()
	actions := []tools.Record{}

	for round := 0; ; round++ {
		resp, err := o.chat(ctx, transcript, definitions)
		if err != nil {
			return nil, err
		}

		if len(resp.ToolCalls) == 0 {
			response := resp.Content
			if response == "" {
				response = processedFallback
			}
			return &Result{Response: response, Actions: actions}, nil
		}

		if round >= o.maxRounds {
			o.logger.Warn("tool round budget exhausted",
				"user_id", userID,
				"rounds", round,
				"actions", len(actions),
			)
			return &Result{Response: processedFallback, Actions: actions}, nil
		}

		transcript = append(transcript, provider.AssistantMessage(resp.Content, resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			record := o.executor.Execute(ctx, userID, call)
			actions = append(actions, record)
			transcript = append(transcript, provider.ToolResultMessage(call.ID, call.Function.Name, record.Payload()))
		}
	}
}

// chat sends one request through the circuit breaker.
func (o *Orchestrator) chat(ctx context.Context, transcript []provider.Message, definitions []provider.ToolDefinition) (*provider.ChatResponse, error) {
	if err := o.breaker.allow(); err != nil {
		return nil, err
	}

	resp, err := o.client.Chat(ctx, transcript, definitions)
	if err != nil {
		o.breaker.failure()
		return nil, err
	}
	o.breaker.success()
	return resp, nil
}
