package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/store"
)

// TaskStore is the task persistence surface the API needs.
type TaskStore interface {
	Create(ctx context.Context, ownerID uuid.UUID, title, description string) (store.Task, error)
	List(ctx context.Context, ownerID uuid.UUID, filter store.StatusFilter) ([]store.Task, error)
	Get(ctx context.Context, ownerID, taskID uuid.UUID) (store.Task, bool, error)
	Update(ctx context.Context, ownerID, taskID uuid.UUID, params store.UpdateParams) (store.Task, bool, error)
	Delete(ctx context.Context, ownerID, taskID uuid.UUID) (bool, error)
	Complete(ctx context.Context, ownerID, taskID uuid.UUID) (store.Task, bool, error)
}

type taskHandler struct {
	tasks  TaskStore
	logger *slog.Logger
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// listTasks handles GET /api/tasks, optionally filtered by ?status=.
func (h *taskHandler) listTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	filter, ok := store.ParseStatusFilter(r.URL.Query().Get("status"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_status", "status must be all, pending, or completed", h.logger)
		return
	}

	tasks, err := h.tasks.List(r.Context(), userID, filter)
	if err != nil {
		h.logger.Error("listing tasks", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list tasks", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, tasks, h.logger)
}

// createTask handles POST /api/tasks.
func (h *taskHandler) createTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON", h.logger)
		return
	}

	task, err := h.tasks.Create(r.Context(), userID, req.Title, req.Description)
	if err != nil {
		if h.mapTaskError(w, err) {
			return
		}
		h.logger.Error("creating task", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "create_failed", "failed to create task", h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, task, h.logger)
}

// getTask handles GET /api/tasks/{id}.
func (h *taskHandler) getTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	taskID, ok := taskIDParam(r)
	if !ok {
		h.notFound(w)
		return
	}

	task, found, err := h.tasks.Get(r.Context(), userID, taskID)
	if err != nil {
		h.logger.Error("getting task", "error", err, "task_id", taskID)
		writeError(w, http.StatusInternalServerError, "get_failed", "failed to get task", h.logger)
		return
	}
	if !found {
		h.notFound(w)
		return
	}

	writeJSON(w, http.StatusOK, task, h.logger)
}

// updateTask handles PUT /api/tasks/{id}. Absent fields keep their values.
func (h *taskHandler) updateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	taskID, ok := taskIDParam(r)
	if !ok {
		h.notFound(w)
		return
	}

	var req updateTaskRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON", h.logger)
		return
	}

	params := store.UpdateParams{Title: req.Title, Description: req.Description}
	if req.Status != nil {
		status := store.Status(*req.Status)
		params.Status = &status
	}

	task, found, err := h.tasks.Update(r.Context(), userID, taskID, params)
	if err != nil {
		if h.mapTaskError(w, err) {
			return
		}
		h.logger.Error("updating task", "error", err, "task_id", taskID)
		writeError(w, http.StatusInternalServerError, "update_failed", "failed to update task", h.logger)
		return
	}
	if !found {
		h.notFound(w)
		return
	}

	writeJSON(w, http.StatusOK, task, h.logger)
}

// deleteTask handles DELETE /api/tasks/{id}.
func (h *taskHandler) deleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	taskID, ok := taskIDParam(r)
	if !ok {
		h.notFound(w)
		return
	}

	deleted, err := h.tasks.Delete(r.Context(), userID, taskID)
	if err != nil {
		h.logger.Error("deleting task", "error", err, "task_id", taskID)
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete task", h.logger)
		return
	}
	if !deleted {
		h.notFound(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// completeTask handles PATCH /api/tasks/{id}/complete. Completing an already
// completed task succeeds and returns it unchanged apart from updated_at.
func (h *taskHandler) completeTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	taskID, ok := taskIDParam(r)
	if !ok {
		h.notFound(w)
		return
	}

	task, found, err := h.tasks.Complete(r.Context(), userID, taskID)
	if err != nil {
		h.logger.Error("completing task", "error", err, "task_id", taskID)
		writeError(w, http.StatusInternalServerError, "complete_failed", "failed to complete task", h.logger)
		return
	}
	if !found {
		h.notFound(w)
		return
	}

	writeJSON(w, http.StatusOK, task, h.logger)
}

// mapTaskError maps store validation errors to HTTP 400. Returns true if the
// error was handled (response written), false otherwise.
func (h *taskHandler) mapTaskError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, store.ErrEmptyTitle),
		errors.Is(err, store.ErrTitleTooLong),
		errors.Is(err, store.ErrDescriptionTooLong),
		errors.Is(err, store.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error(), h.logger)
		return true
	}
	return false
}

// notFound is the uniform miss response. Malformed IDs, absent tasks, and
// other users' tasks all look identical so task IDs cannot be probed.
func (h *taskHandler) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not_found", "Task not found", h.logger)
}

func taskIDParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
