package hosting

import (
	"context"
	"errors"

	"github.com/reviewpilot/pkg/models"
)

// Typed failures the orchestration layer branches on. Anything else
// coming out of a host call is wrapped as ErrUnavailable.
var (
	ErrNotFound     = errors.New("hosting: resource not found")
	ErrUnauthorized = errors.New("hosting: unauthorized")
	ErrConflict     = errors.New("hosting: already published")
	ErrUnavailable  = errors.New("hosting: platform unavailable")
)

// MergeRequestDetails is the subset of merge request metadata the
// review pipeline needs for prompt context.
type MergeRequestDetails struct {
	Title        string
	Description  string
	SourceBranch string
	TargetBranch string
}

// DiffSource fetches merge request metadata and the raw unified diff.
type DiffSource interface {
	GetMergeRequestDetails(ctx context.Context, projectID string, mrIID int) (*MergeRequestDetails, error)
	GetMergeRequestDiff(ctx context.Context, projectID string, mrIID int) (string, error)
}

// RulesSource fetches the project's review rules document from its
// repository. A missing document is ErrNotFound, which the controller
// treats as "fall back to default rules", not as a failure.
type RulesSource interface {
	GetRulesDocument(ctx context.Context, projectID, path, ref string) (string, error)
}

// Publisher posts the final review back to the merge request.
type Publisher interface {
	PublishReview(ctx context.Context, report models.FinalReport) error
}

// Host is the full hosting-platform surface the controller consumes.
type Host interface {
	DiffSource
	RulesSource
	Publisher
}
