package tools

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/provider"
)

// Record is one executed tool call: what was invoked, with which arguments,
// and what came back. Records are reported to API clients alongside the
// final response.
type Record struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
	Result    any            `json:"result"`
}

// Payload renders the result as the JSON document fed back to the model.
func (r Record) Payload() string {
	raw, err := json.Marshal(r.Result)
	if err != nil {
		return `{"error":"result not serializable"}`
	}
	return string(raw)
}

// Executor dispatches model-requested tool calls through the registry.
//
// Execute never returns an error: unknown tools, unparsable arguments,
// validation failures, and store faults all surface as {"error": ...}
// results so the model can self-correct on the next round.
type Executor struct {
	registry *Registry
	logger   *slog.Logger
}

// NewExecutor creates an executor over the registry. A nil logger falls
// back to slog.Default().
func NewExecutor(registry *Registry, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{registry: registry, logger: logger}
}

// Execute runs a single tool call for ownerID and returns its record.
// Arguments that do not parse as a JSON object are treated as an empty
// argument set; the tool then fails naturally and the model sees a normal
// error result.
func (e *Executor) Execute(ctx context.Context, ownerID uuid.UUID, call provider.ToolCall) Record {
	name := call.Function.Name

	args := map[string]any{}
	if raw := call.Function.Arguments; raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			e.logger.Warn("unparsable tool arguments",
				"tool", name,
				"error", err,
			)
			args = map[string]any{}
		}
	}

	record := Record{Tool: name, Arguments: args}

	reg, ok := e.registry.lookup(name)
	if !ok {
		record.Result = errorResult("Unknown tool: " + name)
		return record
	}

	result, err := reg.handler(ctx, ownerID, args)
	if err != nil {
		e.logger.Error("tool execution failed",
			"tool", name,
			"user_id", ownerID,
			"error", err,
		)
		record.Result = errorResult(err.Error())
		return record
	}

	record.Result = result
	return record
}

func errorResult(msg string) map[string]any {
	return map[string]any{"error": msg}
}
