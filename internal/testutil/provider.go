package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/tasknest/tasknest/internal/provider"
)

// ModelStep is one scripted model turn. Err takes precedence; otherwise
// Response is returned.
type ModelStep struct {
	Response *provider.ChatResponse
	Err      error
}

// TextStep scripts a plain text reply.
func TextStep(content string) ModelStep {
	return ModelStep{Response: &provider.ChatResponse{Content: content}}
}

// ToolStep scripts a reply requesting the given tool calls.
func ToolStep(calls ...provider.ToolCall) ModelStep {
	return ModelStep{Response: &provider.ChatResponse{ToolCalls: calls}}
}

// ErrStep scripts a failed model call.
func ErrStep(err error) ModelStep {
	return ModelStep{Err: err}
}

// ScriptedModel implements provider.Client by replaying a fixed sequence of
// responses, one per Chat call, and recording every transcript it receives.
// Calling past the end of the script returns an error.
//
// Thread-safe for concurrent use.
type ScriptedModel struct {
	mu          sync.Mutex
	steps       []ModelStep
	transcripts [][]provider.Message
	definitions [][]provider.ToolDefinition
}

// NewScriptedModel creates a model that replays steps in order.
func NewScriptedModel(steps ...ModelStep) *ScriptedModel {
	return &ScriptedModel{steps: steps}
}

var _ provider.Client = (*ScriptedModel)(nil)

// Chat consumes the next scripted step.
func (m *ScriptedModel) Chat(_ context.Context, messages []provider.Message, defs []provider.ToolDefinition) (*provider.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transcripts = append(m.transcripts, slices.Clone(messages))
	m.definitions = append(m.definitions, slices.Clone(defs))

	if len(m.steps) == 0 {
		return nil, fmt.Errorf("scripted model: unexpected call %d", len(m.transcripts))
	}
	step := m.steps[0]
	m.steps = m.steps[1:]
	if step.Err != nil {
		return nil, step.Err
	}
	return step.Response, nil
}

// Provider implements provider.Client.
func (m *ScriptedModel) Provider() string { return "scripted" }

// Model implements provider.Client.
func (m *ScriptedModel) Model() string { return "scripted-model" }

// Calls reports how many Chat calls the model has received.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transcripts)
}

// Transcript returns a copy of the messages from call i (zero-based).
func (m *ScriptedModel) Transcript(i int) []provider.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.transcripts[i])
}

// Definitions returns the tool definitions offered on call i (zero-based).
func (m *ScriptedModel) Definitions(i int) []provider.ToolDefinition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.definitions[i])
}
