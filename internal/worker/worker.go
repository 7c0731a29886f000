// Package worker processes background jobs dequeued from Redis. Its only
// job kind today is the event wrap-up: when an event ends, any still-active
// poll is closed and the final tallies are logged.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crowdpulse/backend/internal/polls"
	"github.com/crowdpulse/backend/pkg/queue"
)

const dequeueTimeout = 5 * time.Second

// Worker consumes wrap-up jobs until its context is cancelled.
type Worker struct {
	queue     *queue.Queue
	pollStore polls.Store
	logger    *zap.Logger
}

// New creates a worker.
func New(q *queue.Queue, pollStore polls.Store, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{queue: q, pollStore: pollStore, logger: logger}
}

// Run dequeues and processes jobs until ctx is cancelled. Failed jobs are
// retried with backoff and eventually parked on the dead-letter queue.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", zap.String("queue", queue.QueueWrapups))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx, queue.QueueWrapups, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("worker stopped")
				return
			}
			w.logger.Error("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		if err := w.process(ctx, job); err != nil {
			w.logger.Error("job failed",
				zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.Error(err))
			if err := w.queue.Retry(ctx, queue.QueueWrapups, job); err != nil {
				w.logger.Error("retry failed", zap.String("job_id", job.ID), zap.Error(err))
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeEventWrapup:
		var payload queue.EventWrapupPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return w.wrapUpEvent(ctx, payload)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// wrapUpEvent closes the event's active poll, if any, and logs its final
// tally. Safe to run more than once.
func (w *Worker) wrapUpEvent(ctx context.Context, payload queue.EventWrapupPayload) error {
	active, err := w.pollStore.ActiveByEvent(ctx, payload.EventID)
	if err != nil {
		return fmt.Errorf("get active poll: %w", err)
	}
	if active == nil {
		w.logger.Info("event wrapped up, no active poll",
			zap.String("event_id", payload.EventID.String()))
		return nil
	}

	if _, err := w.pollStore.SetActive(ctx, active.ID, payload.EventID, false); err != nil {
		return fmt.Errorf("deactivate poll: %w", err)
	}

	votes, err := w.pollStore.VotesByPoll(ctx, active.ID)
	if err != nil {
		return fmt.Errorf("list votes: %w", err)
	}
	tally := polls.Tally(active, votes)
	w.logger.Info("event wrapped up",
		zap.String("event_id", payload.EventID.String()),
		zap.String("poll_id", active.ID.String()),
		zap.Int("total_votes", tally.TotalVotes))
	return nil
}
