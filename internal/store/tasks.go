package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const taskColumns = "id, user_id, title, description, status, created_at, updated_at"

// Create inserts a new pending task for ownerID. The title is trimmed and
// validated; the description may be empty.
func (s *Store) Create(ctx context.Context, ownerID uuid.UUID, title, description string) (Task, error) {
	trimmed, err := ValidateTitle(title)
	if err != nil {
		return Task{}, err
	}
	if err := ValidateDescription(description); err != nil {
		return Task{}, err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO tasks (user_id, title, description)
		VALUES ($1, $2, $3)
		RETURNING `+taskColumns,
		uuidToPgUUID(ownerID), trimmed, description)

	task, err := scanTask(row)
	if err != nil {
		return Task{}, fmt.Errorf("create task: %w", err)
	}

	s.logger.Debug("task created", "task_id", task.ID, "user_id", ownerID)
	return task, nil
}

// List returns all of ownerID's tasks in creation order, optionally narrowed
// to a single status.
func (s *Store) List(ctx context.Context, ownerID uuid.UUID, filter StatusFilter) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{uuidToPgUUID(ownerID)}

	if filter == FilterPending || filter == FilterCompleted {
		query += ` AND status = $2`
		args = append(args, string(filter))
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// Get fetches one of ownerID's tasks by ID. ok is false when no such task
// exists for this owner; another user's task is indistinguishable from an
// absent one.
func (s *Store) Get(ctx context.Context, ownerID, taskID uuid.UUID) (Task, bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE id = $1 AND user_id = $2`,
		uuidToPgUUID(taskID), uuidToPgUUID(ownerID))

	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, false, nil
	}
	if err != nil {
		return Task{}, false, fmt.Errorf("get task: %w", err)
	}
	return task, true, nil
}

// Update applies the non-nil fields of params to one of ownerID's tasks.
// The update timestamp refreshes even when params is empty. ok is false when
// the task does not exist for this owner.
func (s *Store) Update(ctx context.Context, ownerID, taskID uuid.UUID, params UpdateParams) (Task, bool, error) {
	var title, description, status *string

	if params.Title != nil {
		trimmed, err := ValidateTitle(*params.Title)
		if err != nil {
			return Task{}, false, err
		}
		title = &trimmed
	}
	if params.Description != nil {
		if err := ValidateDescription(*params.Description); err != nil {
			return Task{}, false, err
		}
		description = params.Description
	}
	if params.Status != nil {
		if !params.Status.Valid() {
			return Task{}, false, ErrInvalidStatus
		}
		st := string(*params.Status)
		status = &st
	}

	row := s.db.QueryRow(ctx, `
		UPDATE tasks
		SET title       = COALESCE($3, title),
		    description = COALESCE($4, description),
		    status      = COALESCE($5, status),
		    updated_at  = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+taskColumns,
		uuidToPgUUID(taskID), uuidToPgUUID(ownerID), title, description, status)

	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, false, nil
	}
	if err != nil {
		return Task{}, false, fmt.Errorf("update task: %w", err)
	}

	s.logger.Debug("task updated", "task_id", task.ID, "user_id", ownerID)
	return task, true, nil
}

// Delete removes one of ownerID's tasks permanently. ok is false when the
// task does not exist for this owner.
func (s *Store) Delete(ctx context.Context, ownerID, taskID uuid.UUID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM tasks
		WHERE id = $1 AND user_id = $2`,
		uuidToPgUUID(taskID), uuidToPgUUID(ownerID))
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	s.logger.Debug("task deleted", "task_id", taskID, "user_id", ownerID)
	return true, nil
}

// Complete marks one of ownerID's tasks completed. Completing an already
// completed task succeeds and leaves it completed.
func (s *Store) Complete(ctx context.Context, ownerID, taskID uuid.UUID) (Task, bool, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE tasks
		SET status = 'completed', updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+taskColumns,
		uuidToPgUUID(taskID), uuidToPgUUID(ownerID))

	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, false, nil
	}
	if err != nil {
		return Task{}, false, fmt.Errorf("complete task: %w", err)
	}
	return task, true, nil
}

// Search returns ownerID's tasks whose title or description contains query,
// case-insensitively, in creation order. ILIKE metacharacters in the query
// are escaped so they match literally.
func (s *Store) Search(ctx context.Context, ownerID uuid.UUID, query string) ([]Task, error) {
	pattern := "%" + escapeLike(query) + "%"

	rows, err := s.db.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE user_id = $1
		  AND (title ILIKE $2 ESCAPE '\' OR description ILIKE $2 ESCAPE '\')
		ORDER BY created_at`,
		uuidToPgUUID(ownerID), pattern)
	if err != nil {
		return nil, fmt.Errorf("search tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanTask(row pgx.Row) (Task, error) {
	var (
		t         Task
		id, owner pgtype.UUID
		status    string
	)
	if err := row.Scan(&id, &owner, &t.Title, &t.Description, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Task{}, err
	}
	t.ID = pgUUIDToUUID(id)
	t.OwnerID = pgUUIDToUUID(owner)
	t.Status = Status(status)
	return t, nil
}

func collectTasks(rows pgx.Rows) ([]Task, error) {
	tasks := []Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}
