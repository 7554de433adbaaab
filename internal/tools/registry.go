// Package tools exposes the fixed set of task operations the model may
// invoke, and executes model-requested calls against the task store.
//
// The registry is assembled once at startup and is read-only afterwards;
// there is no dynamic registration. Execution never lets a failure escape:
// anything that goes wrong inside a tool becomes an {"error": ...} result
// the model can read and react to.
package tools

import (
	"context"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/provider"
	"github.com/tasknest/tasknest/internal/store"
)

// TaskStore is the storage surface the tools need. All operations are scoped
// to the calling user.
type TaskStore interface {
	List(ctx context.Context, ownerID uuid.UUID, filter store.StatusFilter) ([]store.Task, error)
	Create(ctx context.Context, ownerID uuid.UUID, title, description string) (store.Task, error)
	Update(ctx context.Context, ownerID, taskID uuid.UUID, params store.UpdateParams) (store.Task, bool, error)
	Delete(ctx context.Context, ownerID, taskID uuid.UUID) (bool, error)
	Complete(ctx context.Context, ownerID, taskID uuid.UUID) (store.Task, bool, error)
	Search(ctx context.Context, ownerID uuid.UUID, query string) ([]store.Task, error)
}

// Handler executes one tool call for ownerID. The args mapping is
// model-controlled and must be treated as untrusted. A returned error is
// converted to an error result by the executor; it never aborts the
// conversation.
type Handler func(ctx context.Context, ownerID uuid.UUID, args map[string]any) (any, error)

type registration struct {
	definition provider.ToolDefinition
	handler    Handler
}

// Registry maps tool names to their definition and handler.
type Registry struct {
	entries map[string]registration
	order   []string
}

// NewRegistry builds the registry of the six task-management tools bound
// to ts.
func NewRegistry(ts TaskStore) *Registry {
	r := &Registry{entries: make(map[string]registration)}
	r.register(listTasksDefinition(), listTasksHandler(ts))
	r.register(createTaskDefinition(), createTaskHandler(ts))
	r.register(updateTaskDefinition(), updateTaskHandler(ts))
	r.register(deleteTaskDefinition(), deleteTaskHandler(ts))
	r.register(markCompleteDefinition(), markCompleteHandler(ts))
	r.register(searchTasksDefinition(), searchTasksHandler(ts))
	return r
}

func (r *Registry) register(def provider.ToolDefinition, h Handler) {
	name := def.Function.Name
	if _, exists := r.entries[name]; exists {
		panic("tools: duplicate registration of " + name)
	}
	r.entries[name] = registration{definition: def, handler: h}
	r.order = append(r.order, name)
}

// Definitions returns the tool definitions in registration order, ready to
// send to the model.
func (r *Registry) Definitions() []provider.ToolDefinition {
	defs := make([]provider.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entries[name].definition)
	}
	return defs
}

func (r *Registry) lookup(name string) (registration, bool) {
	reg, ok := r.entries[name]
	return reg, ok
}
