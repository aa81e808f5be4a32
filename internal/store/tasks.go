package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/artificer-ai/artificer/internal/models"
)

// EnsureTask upserts a task definition by name, returning its row. Called
// once at startup for each of the engine's fixed task definitions so their
// IDs are stable for foreign-key references from conversations and
// local_data.
func (s *Store) EnsureTask(ctx context.Context, t models.Task) (models.Task, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (name, specialist, execution_context, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			specialist = excluded.specialist,
			execution_context = excluded.execution_context,
			description = excluded.description
	`, t.Name, t.Specialist.String(), t.Context.String(), t.Description)
	if err != nil {
		return models.Task{}, fmt.Errorf("store: ensure task %s: %w", t.Name, err)
	}
	return s.TaskByName(ctx, t.Name)
}

// TaskIDByName resolves a task's primary key by name, the narrow lookup the
// system-prompt builder needs to join memories by task id.
func (s *Store) TaskIDByName(ctx context.Context, name string) (int64, error) {
	t, err := s.TaskByName(ctx, name)
	if err != nil {
		return 0, err
	}
	return t.ID, nil
}

// TaskByName looks up a task by its stable name.
func (s *Store) TaskByName(ctx context.Context, name string) (models.Task, error) {
	var t models.Task
	var specialist, execContext string
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, specialist, execution_context, description FROM tasks WHERE name = ?`, name)
	if err := row.Scan(&t.ID, &t.Name, &specialist, &execContext, &t.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, ErrNotFound
		}
		return t, fmt.Errorf("store: task by name %s: %w", name, err)
	}
	t.Specialist = parseSpecialist(specialist)
	t.Context = parseExecutionContext(execContext)
	return t, nil
}

// TaskByID looks up a task by its primary key.
func (s *Store) TaskByID(ctx context.Context, id int64) (models.Task, error) {
	var t models.Task
	var specialist, execContext string
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, specialist, execution_context, description FROM tasks WHERE id = ?`, id)
	if err := row.Scan(&t.ID, &t.Name, &specialist, &execContext, &t.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, ErrNotFound
		}
		return t, fmt.Errorf("store: task by id: %w", err)
	}
	t.Specialist = parseSpecialist(specialist)
	t.Context = parseExecutionContext(execContext)
	return t, nil
}

func parseSpecialist(s string) models.Specialist {
	switch s {
	case "reasoner":
		return models.SpecialistReasoner
	case "quick":
		return models.SpecialistQuick
	case "coder":
		return models.SpecialistCoder
	default:
		return models.SpecialistToolCaller
	}
}

func parseExecutionContext(s string) models.ExecutionContext {
	if s == "background" {
		return models.Background
	}
	return models.Interactive
}
