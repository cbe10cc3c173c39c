// Package jobqueue runs review jobs through a River queue backed by
// Postgres, so accepted webhooks survive process restarts. Retrying is
// left to the review pipeline itself: the job runs once, and a run that
// fails terminally is not worth replaying wholesale.
package jobqueue

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog/log"

	"github.com/reviewpilot/internal/review"
	"github.com/reviewpilot/pkg/models"
)

const reviewQueueMaxWorkers = 10

// ReviewJobArgs carries one review request through the queue.
type ReviewJobArgs struct {
	Request models.ReviewRequest `json:"request"`
}

// Kind returns the job kind for River
func (ReviewJobArgs) Kind() string {
	return "merge_request_review"
}

// InsertOpts pins review jobs to a single attempt. The pipeline has its
// own retry story per provider call and per publish, and duplicate
// deliveries are already collapsed by the publish ledger.
func (ReviewJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 1}
}

// ReviewWorker executes queued review jobs.
type ReviewWorker struct {
	river.WorkerDefaults[ReviewJobArgs]
	controller *review.Controller
}

func (w *ReviewWorker) Work(ctx context.Context, job *river.Job[ReviewJobArgs]) error {
	req := job.Args.Request
	log.Info().
		Str("project", req.ProjectID).
		Int("mr", req.MergeRequest).
		Str("event", req.EventID).
		Msg("review job started")

	_, err := w.controller.Execute(ctx, req)
	return err
}

// JobQueue manages the River client and satisfies the webhook handler's
// Runner interface.
type JobQueue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
}

// NewJobQueue creates a queue on the given pool. The pool is owned by
// the caller.
func NewJobQueue(pool *pgxpool.Pool, controller *review.Controller) (*JobQueue, error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, &ReviewWorker{controller: controller})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: reviewQueueMaxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &JobQueue{client: client, pool: pool}, nil
}

// Start starts the job queue workers
func (jq *JobQueue) Start(ctx context.Context) error {
	return jq.client.Start(ctx)
}

// Stop stops the job queue workers
func (jq *JobQueue) Stop(ctx context.Context) error {
	return jq.client.Stop(ctx)
}

// Enqueue inserts a review job.
func (jq *JobQueue) Enqueue(ctx context.Context, req models.ReviewRequest) error {
	_, err := jq.client.Insert(ctx, ReviewJobArgs{Request: req}, nil)
	if err != nil {
		return fmt.Errorf("failed to queue review job: %w", err)
	}
	return nil
}
