// internal/jobs/worker.go
package jobs

import (
	"context"
	"log/slog"
	"time"
)

// Handler executes one job attempt against a run.
type Handler interface {
	Handle(ctx context.Context, run *Run, ev Event) (IndexResult, error)
}

// Worker consumes events and executes the index job with at-least-once
// semantics: a failed run is retried up to maxAttempts times with a fixed
// backoff, reusing the same Run so completed steps are not redone. Fatal
// errors short-circuit the retries.
type Worker struct {
	events      <-chan Event
	job         Handler
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
}

// NewWorker creates a Worker consuming from events.
func NewWorker(events <-chan Event, job Handler, logger *slog.Logger, maxAttempts int, backoff time.Duration) *Worker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Worker{
		events:      events,
		job:         job,
		logger:      logger,
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}
}

// Start consumes events until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Starting job worker", "max_attempts", w.maxAttempts, "backoff", w.backoff.String())
	for {
		select {
		case ev := <-w.events:
			w.process(ctx, ev)
		case <-ctx.Done():
			w.logger.Info("Job worker shutting down", "reason", ctx.Err())
			return
		}
	}
}

func (w *Worker) process(ctx context.Context, ev Event) {
	if ev.Name != EventRepositoryConnected {
		w.logger.Warn("Dropping event with unknown name", "event", ev.Name)
		return
	}

	logger := w.logger.With("run_id", ev.ID, "owner", ev.Data.Owner, "repo", ev.Data.Repo)
	run := NewRun(ev.ID)

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		result, err := w.job.Handle(ctx, run, ev)
		if err == nil {
			logger.Info("Index job completed", "indexed_files", result.IndexedFiles, "attempt", attempt)
			return
		}
		if IsFatal(err) {
			logger.Error("Index job failed permanently", "error", err, "attempt", attempt)
			return
		}
		logger.Error("Index job attempt failed", "error", err, "attempt", attempt)

		if attempt == w.maxAttempts {
			logger.Error("Index job exhausted retries", "attempts", w.maxAttempts)
			return
		}
		select {
		case <-time.After(w.backoff):
		case <-ctx.Done():
			return
		}
	}
}
