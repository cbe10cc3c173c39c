package api

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/reviewpilot/internal/review"
	"github.com/reviewpilot/pkg/models"
)

// AsyncRunner executes reviews on a goroutine per request. It is the
// runner used when no database is configured; with a database the job
// queue takes its place and runs survive restarts.
type AsyncRunner struct {
	controller *review.Controller
}

func NewAsyncRunner(controller *review.Controller) *AsyncRunner {
	return &AsyncRunner{controller: controller}
}

// Enqueue starts the review in the background. The run is detached from
// the webhook request's context so responding 202 does not cancel it.
func (r *AsyncRunner) Enqueue(_ context.Context, req models.ReviewRequest) error {
	go func() {
		if _, err := r.controller.Execute(context.Background(), req); err != nil {
			log.Error().Err(err).
				Str("project", req.ProjectID).
				Int("mr", req.MergeRequest).
				Msg("review run failed")
		}
	}()
	return nil
}
