package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/artificer-ai/artificer/internal/models"
)

// EnqueueJob inserts a new pending background job. maxRetries defaults to 3
// when zero, matching the worker's job-creation default.
func (s *Store) EnqueueJob(ctx context.Context, deviceID int64, method, arguments string, priority int64, maxRetries int64) (models.Job, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO background (device_id, method, arguments, status, priority, max_retries)
		VALUES (?, ?, ?, 'pending', ?, ?)
	`, deviceID, method, arguments, priority, maxRetries)
	if err != nil {
		return models.Job{}, fmt.Errorf("store: enqueue job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Job{}, fmt.Errorf("store: enqueue job: %w", err)
	}
	return s.JobByID(ctx, id)
}

// JobByID looks up a job by its primary key.
func (s *Store) JobByID(ctx context.Context, id int64) (models.Job, error) {
	return s.scanJob(s.db.QueryRowContext(ctx, jobSelect+` WHERE id = ?`, id))
}

const jobSelect = `SELECT id, device_id, method, arguments, status, priority, retries, max_retries, last_error, result, created_at, started_at, completed_at, updated_at FROM background`

func (s *Store) scanJob(row *sql.Row) (models.Job, error) {
	var j models.Job
	var status string
	if err := row.Scan(&j.ID, &j.DeviceID, &j.Method, &j.Arguments, &status, &j.Priority, &j.Retries, &j.MaxRetries, &j.LastError, &j.Result, &j.CreatedAt, &j.StartedAt, &j.CompletedAt, &j.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return j, ErrNotFound
		}
		return j, fmt.Errorf("store: scan job: %w", err)
	}
	j.Status = models.JobStatus(status)
	return j, nil
}

// ClaimNextPendingJob atomically selects the highest-priority, oldest
// pending job and marks it running, returning it. It returns ErrNotFound
// if no job is pending. The select-then-update is wrapped in a
// transaction so two concurrent callers cannot claim the same row; in
// practice the worker is single-threaded, but this keeps the invariant
// true regardless of caller count.
func (s *Store) ClaimNextPendingJob(ctx context.Context) (models.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Job{}, fmt.Errorf("store: claim job: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM background
		WHERE status = 'pending'
		ORDER BY priority DESC, created_at ASC
		LIMIT 1
	`).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Job{}, ErrNotFound
		}
		return models.Job{}, fmt.Errorf("store: claim job: select: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE background SET status = 'running', started_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, id); err != nil {
		return models.Job{}, fmt.Errorf("store: claim job: update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Job{}, fmt.Errorf("store: claim job: commit: %w", err)
	}
	return s.JobByID(ctx, id)
}

// CompleteJob marks a running job completed, storing its result text in the
// result column (distinct from last_error, which only ever holds failure
// text from FailJob).
func (s *Store) CompleteJob(ctx context.Context, id int64, result string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE background SET status = 'completed', result = ?, completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, result, id)
	if err != nil {
		return fmt.Errorf("store: complete job: %w", err)
	}
	return nil
}

// FailJob records a failed attempt. If the job has retries remaining it is
// requeued to pending with its retry count incremented; otherwise it is
// marked permanently failed. Both paths leave priority and created_at
// unchanged, so a requeued job keeps its place in the age ordering.
func (s *Store) FailJob(ctx context.Context, id int64, errText string) error {
	j, err := s.JobByID(ctx, id)
	if err != nil {
		return err
	}
	retries := j.Retries + 1
	status := models.JobPending
	if retries >= j.MaxRetries {
		status = models.JobFailed
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE background SET status = ?, retries = ?, last_error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(status), retries, errText, id)
	if err != nil {
		return fmt.Errorf("store: fail job: %w", err)
	}
	return nil
}

// CountActiveJobs returns the number of jobs with status in
// (pending, running), the condition drain_queue polls on.
func (s *Store) CountActiveJobs(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM background WHERE status IN ('pending', 'running')
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count active jobs: %w", err)
	}
	return n, nil
}

// PendingJobCount reports the queue depth, used by the metrics gauge.
func (s *Store) PendingJobCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM background WHERE status = 'pending'
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: pending job count: %w", err)
	}
	return n, nil
}
