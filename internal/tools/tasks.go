package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/provider"
	"github.com/tasknest/tasknest/internal/store"
)

func listTasksDefinition() provider.ToolDefinition {
	return functionDefinition("list_tasks",
		"List all tasks for the current user. Returns tasks with their titles, descriptions, and statuses.",
		&jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"status_filter": {
					Type:        "string",
					Enum:        []any{"all", "pending", "completed"},
					Description: "Filter tasks by status. Default is 'all'.",
				},
			},
		})
}

func listTasksHandler(ts TaskStore) Handler {
	return func(ctx context.Context, ownerID uuid.UUID, args map[string]any) (any, error) {
		raw, _ := stringArg(args, "status_filter")
		filter, ok := store.ParseStatusFilter(raw)
		if !ok {
			return nil, fmt.Errorf("invalid status_filter %q: must be all, pending, or completed", raw)
		}

		tasks, err := ts.List(ctx, ownerID, filter)
		if err != nil {
			return nil, err
		}

		items := make([]map[string]any, 0, len(tasks))
		for _, t := range tasks {
			items = append(items, map[string]any{
				"id":          t.ID.String(),
				"title":       t.Title,
				"description": t.Description,
				"status":      string(t.Status),
				"created_at":  t.CreatedAt.Format(time.RFC3339),
			})
		}
		return map[string]any{"tasks": items, "count": len(items)}, nil
	}
}

func createTaskDefinition() provider.ToolDefinition {
	return functionDefinition("create_task",
		"Create a new task for the user.",
		&jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"title": {
					Type:        "string",
					Description: "The title of the task (required, max 255 chars)",
				},
				"description": {
					Type:        "string",
					Description: "Optional description for the task",
				},
			},
			Required: []string{"title"},
		})
}

func createTaskHandler(ts TaskStore) Handler {
	return func(ctx context.Context, ownerID uuid.UUID, args map[string]any) (any, error) {
		title, ok := stringArg(args, "title")
		if !ok {
			return nil, errors.New("title is required")
		}
		description, _ := stringArg(args, "description")

		task, err := ts.Create(ctx, ownerID, title, description)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"success": true,
			"task": map[string]any{
				"id":          task.ID.String(),
				"title":       task.Title,
				"description": task.Description,
				"status":      string(task.Status),
			},
		}, nil
	}
}

func updateTaskDefinition() provider.ToolDefinition {
	return functionDefinition("update_task",
		"Update an existing task. Use search_tasks first to find the task ID if needed.",
		&jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"task_id": {
					Type:        "string",
					Description: "The UUID of the task to update",
				},
				"title": {
					Type:        "string",
					Description: "New title for the task",
				},
				"description": {
					Type:        "string",
					Description: "New description for the task",
				},
				"status": {
					Type:        "string",
					Enum:        []any{"pending", "completed"},
					Description: "New status for the task",
				},
			},
			Required: []string{"task_id"},
		})
}

func updateTaskHandler(ts TaskStore) Handler {
	return func(ctx context.Context, ownerID uuid.UUID, args map[string]any) (any, error) {
		taskID, err := taskIDArg(args)
		if err != nil {
			return nil, err
		}

		var params store.UpdateParams
		if title, ok := stringArg(args, "title"); ok {
			params.Title = &title
		}
		if description, ok := stringArg(args, "description"); ok {
			params.Description = &description
		}
		if raw, ok := stringArg(args, "status"); ok {
			status := store.Status(raw)
			params.Status = &status
		}

		task, found, err := ts.Update(ctx, ownerID, taskID, params)
		if err != nil {
			return nil, err
		}
		if !found {
			return taskNotFound(), nil
		}
		return map[string]any{
			"success": true,
			"task": map[string]any{
				"id":          task.ID.String(),
				"title":       task.Title,
				"description": task.Description,
				"status":      string(task.Status),
			},
		}, nil
	}
}

func deleteTaskDefinition() provider.ToolDefinition {
	return functionDefinition("delete_task",
		"Delete a task permanently. Use search_tasks first to find the task ID if needed.",
		&jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"task_id": {
					Type:        "string",
					Description: "The UUID of the task to delete",
				},
			},
			Required: []string{"task_id"},
		})
}

func deleteTaskHandler(ts TaskStore) Handler {
	return func(ctx context.Context, ownerID uuid.UUID, args map[string]any) (any, error) {
		taskID, err := taskIDArg(args)
		if err != nil {
			return nil, err
		}

		deleted, err := ts.Delete(ctx, ownerID, taskID)
		if err != nil {
			return nil, err
		}
		message := "Task deleted"
		if !deleted {
			message = "Task not found"
		}
		return map[string]any{"success": deleted, "message": message}, nil
	}
}

func markCompleteDefinition() provider.ToolDefinition {
	return functionDefinition("mark_complete",
		"Mark a task as completed. Use search_tasks first to find the task ID if needed.",
		&jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"task_id": {
					Type:        "string",
					Description: "The UUID of the task to mark as completed",
				},
			},
			Required: []string{"task_id"},
		})
}

func markCompleteHandler(ts TaskStore) Handler {
	return func(ctx context.Context, ownerID uuid.UUID, args map[string]any) (any, error) {
		taskID, err := taskIDArg(args)
		if err != nil {
			return nil, err
		}

		task, found, err := ts.Complete(ctx, ownerID, taskID)
		if err != nil {
			return nil, err
		}
		if !found {
			return taskNotFound(), nil
		}
		return map[string]any{
			"success": true,
			"task": map[string]any{
				"id":     task.ID.String(),
				"title":  task.Title,
				"status": string(task.Status),
			},
		}, nil
	}
}

func searchTasksDefinition() provider.ToolDefinition {
	return functionDefinition("search_tasks",
		"Search for tasks by title or description. Use this to find task IDs before updating or deleting.",
		&jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {
					Type:        "string",
					Description: "Search query to match against task titles and descriptions",
				},
			},
			Required: []string{"query"},
		})
}

func searchTasksHandler(ts TaskStore) Handler {
	return func(ctx context.Context, ownerID uuid.UUID, args map[string]any) (any, error) {
		query, ok := stringArg(args, "query")
		if !ok {
			return nil, errors.New("query is required")
		}

		tasks, err := ts.Search(ctx, ownerID, query)
		if err != nil {
			return nil, err
		}

		items := make([]map[string]any, 0, len(tasks))
		for _, t := range tasks {
			items = append(items, map[string]any{
				"id":          t.ID.String(),
				"title":       t.Title,
				"description": t.Description,
				"status":      string(t.Status),
			})
		}
		return map[string]any{"tasks": items, "count": len(items)}, nil
	}
}

func functionDefinition(name, description string, parameters *jsonschema.Schema) provider.ToolDefinition {
	return provider.ToolDefinition{
		Type: "function",
		Function: provider.FunctionSpec{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// stringArg extracts a string argument. ok is false when the key is absent
// or holds a non-string value.
func stringArg(args map[string]any, key string) (string, bool) {
	v, present := args[key]
	if !present {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// taskIDArg extracts and parses the required task_id argument.
func taskIDArg(args map[string]any) (uuid.UUID, error) {
	raw, ok := stringArg(args, "task_id")
	if !ok {
		return uuid.Nil, errors.New("task_id is required")
	}
	taskID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("task_id %q is not a valid UUID", raw)
	}
	return taskID, nil
}

func taskNotFound() map[string]any {
	return map[string]any{"success": false, "error": "Task not found"}
}
