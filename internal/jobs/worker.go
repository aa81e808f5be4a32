// Package jobs implements the background worker: a poller that claims the
// highest-priority pending job, dispatches it to a per-task handler, and
// retries with bounded attempts, plus a graceful drain on shutdown.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/artificer-ai/artificer/internal/logging"
	"github.com/artificer-ai/artificer/internal/metrics"
	"github.com/artificer-ai/artificer/internal/models"
	"github.com/artificer-ai/artificer/internal/store"
)

// Store is the narrow slice of internal/store.Store the worker needs.
type Store interface {
	ClaimNextPendingJob(ctx context.Context) (models.Job, error)
	CompleteJob(ctx context.Context, id int64, result string) error
	FailJob(ctx context.Context, id int64, errText string) error
	CountActiveJobs(ctx context.Context) (int64, error)
	PendingJobCount(ctx context.Context) (int64, error)
	ConversationByID(ctx context.Context, id int64) (models.Conversation, error)
	SetConversationTitle(ctx context.Context, conversationID int64, title string) error
}

// Handler processes one job's decoded arguments and returns the result text
// stored in background.result.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Worker polls the store for pending jobs and runs them one at a time;
// two jobs never interleave.
type Worker struct {
	Store        Store
	Handlers     map[string]Handler
	PollInterval time.Duration
	DrainDelay   time.Duration
	Logger       *slog.Logger
	Metrics      *metrics.Registry
}

func (w *Worker) pollInterval() time.Duration {
	if w.PollInterval <= 0 {
		return 2 * time.Second
	}
	return w.PollInterval
}

func (w *Worker) drainDelay() time.Duration {
	if w.DrainDelay <= 0 {
		return 100 * time.Millisecond
	}
	return w.DrainDelay
}

func (w *Worker) logger() *slog.Logger {
	return logging.OrDefault(w.Logger)
}

// Run polls until ctx is canceled, then drains the queue before returning.
// An errgroup ties the poll loop's lifetime to ctx cancellation so a caller
// can wait on a single error value regardless of which goroutine observes
// shutdown first.
func (w *Worker) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w.pollLoop(gctx)
		return nil
	})
	err := g.Wait()

	drainCtx := context.Background()
	w.drainQueue(drainCtx)
	return err
}

func (w *Worker) pollLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		worked, err := w.ProcessNextJob(ctx)
		if err != nil {
			w.logger().Error("process next job", "error", err)
		}
		w.updateQueueDepth(ctx)
		if worked {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.pollInterval()):
		}
	}
}

func (w *Worker) updateQueueDepth(ctx context.Context) {
	if w.Metrics == nil {
		return
	}
	n, err := w.Store.PendingJobCount(ctx)
	if err != nil {
		return
	}
	w.Metrics.JobsPending.Set(float64(n))
}

// drainQueue repeatedly processes jobs until none remain pending or
// running, so shutdown never strands queued work.
func (w *Worker) drainQueue(ctx context.Context) {
	for {
		n, err := w.Store.CountActiveJobs(ctx)
		if err != nil {
			w.logger().Error("drain queue: count active jobs", "error", err)
			return
		}
		if n == 0 {
			return
		}
		if _, err := w.ProcessNextJob(ctx); err != nil {
			w.logger().Error("drain queue: process next job", "error", err)
		}
		time.Sleep(w.drainDelay())
	}
}

// ProcessNextJob claims the next pending job, runs its handler, and marks
// it completed or retried, with the title-generation fallback on retry
// exhaustion. It returns false (with a nil error) when there was no pending
// job to claim.
func (w *Worker) ProcessNextJob(ctx context.Context) (bool, error) {
	job, err := w.Store.ClaimNextPendingJob(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("jobs: claim next pending job: %w", err)
	}

	if w.Metrics != nil {
		w.Metrics.JobsRunning.Set(1)
		defer w.Metrics.JobsRunning.Set(0)
	}

	handler, ok := w.Handlers[job.Method]
	if !ok {
		w.failJob(ctx, job, fmt.Errorf("no handler registered for method %q", job.Method))
		return true, nil
	}

	result, err := handler(ctx, json.RawMessage(job.Arguments))
	if err != nil {
		w.failJob(ctx, job, err)
		return true, nil
	}

	if err := w.Store.CompleteJob(ctx, job.ID, result); err != nil {
		return true, fmt.Errorf("jobs: complete job %d: %w", job.ID, err)
	}
	if w.Metrics != nil {
		w.Metrics.JobsCompleted.WithLabelValues(job.Method, "completed").Inc()
	}
	return true, nil
}

func (w *Worker) failJob(ctx context.Context, job models.Job, cause error) {
	w.logger().Warn("job failed", "job_id", job.ID, "method", job.Method, "error", cause)
	if err := w.Store.FailJob(ctx, job.ID, cause.Error()); err != nil {
		w.logger().Error("record job failure", "job_id", job.ID, "error", err)
		return
	}
	exhausted := job.Retries+1 >= job.MaxRetries
	if w.Metrics != nil {
		status := "retrying"
		if exhausted {
			status = "failed"
		}
		w.Metrics.JobsCompleted.WithLabelValues(job.Method, status).Inc()
	}
	if exhausted && job.Method == models.TaskTitleGeneration {
		w.applyTitleFallback(ctx, job)
	}
}

// applyTitleFallback assigns a hash-derived fallback title once a
// title-generation job has exhausted its retries, so no conversation is
// ever left titleless.
func (w *Worker) applyTitleFallback(ctx context.Context, job models.Job) {
	var args struct {
		ConversationID int64 `json:"conversation_id"`
	}
	if err := json.Unmarshal([]byte(job.Arguments), &args); err != nil || args.ConversationID == 0 {
		w.logger().Error("title fallback: decode job arguments", "job_id", job.ID, "error", err)
		return
	}
	title := fallbackTitle(args.ConversationID)
	if err := w.Store.SetConversationTitle(ctx, args.ConversationID, title); err != nil {
		w.logger().Error("title fallback: set conversation title", "conversation_id", args.ConversationID, "error", err)
	}
}
