package hosting

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	gitlab "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/time/rate"

	"github.com/reviewpilot/pkg/models"
)

// GitLabConfig contains configuration for the GitLab host.
type GitLabConfig struct {
	URL   string `koanf:"url"`
	Token string `koanf:"token"`
	// RequestsPerSecond caps outbound API calls. Zero disables limiting.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// GitLabHost implements Host against the GitLab REST API.
type GitLabHost struct {
	client  *gitlab.Client
	limiter *rate.Limiter
}

func NewGitLabHost(config GitLabConfig) (*GitLabHost, error) {
	opts := []gitlab.ClientOptionFunc{}
	if config.URL != "" {
		opts = append(opts, gitlab.WithBaseURL(config.URL))
	}
	client, err := gitlab.NewClient(config.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &GitLabHost{client: client, limiter: limiter}, nil
}

func (h *GitLabHost) GetMergeRequestDetails(ctx context.Context, projectID string, mrIID int) (*MergeRequestDetails, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	mr, resp, err := h.client.MergeRequests.GetMergeRequest(projectID, mrIID, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, mapGitLabError(err, statusCode(resp))
	}

	return &MergeRequestDetails{
		Title:        mr.Title,
		Description:  mr.Description,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
	}, nil
}

// GetMergeRequestDiff fetches the per-file diffs and reassembles them
// into one unified diff text, each file introduced by its own
// "diff --git" header so the parser can split on file boundaries.
func (h *GitLabHost) GetMergeRequestDiff(ctx context.Context, projectID string, mrIID int) (string, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	diffs, resp, err := h.client.MergeRequests.ListMergeRequestDiffs(projectID, mrIID, nil, gitlab.WithContext(ctx))
	if err != nil {
		return "", mapGitLabError(err, statusCode(resp))
	}

	var sb strings.Builder
	for _, d := range diffs {
		if d.Diff == "" {
			continue
		}
		oldPath := d.OldPath
		if oldPath == "" {
			oldPath = d.NewPath
		}
		newPath := d.NewPath
		if newPath == "" {
			newPath = d.OldPath
		}
		sb.WriteString(fmt.Sprintf("diff --git a/%s b/%s\n", oldPath, newPath))
		sb.WriteString(d.Diff)
		if !strings.HasSuffix(d.Diff, "\n") {
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func (h *GitLabHost) GetRulesDocument(ctx context.Context, projectID, path, ref string) (string, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	opt := &gitlab.GetRawFileOptions{}
	if ref != "" {
		opt.Ref = gitlab.Ptr(ref)
	}
	raw, resp, err := h.client.RepositoryFiles.GetRawFile(projectID, path, opt, gitlab.WithContext(ctx))
	if err != nil {
		return "", mapGitLabError(err, statusCode(resp))
	}
	return string(raw), nil
}

func (h *GitLabHost) PublishReview(ctx context.Context, report models.FinalReport) error {
	if err := h.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	_, resp, err := h.client.Notes.CreateMergeRequestNote(report.ProjectID, report.MergeRequest,
		&gitlab.CreateMergeRequestNoteOptions{Body: gitlab.Ptr(report.Body)},
		gitlab.WithContext(ctx))
	if err != nil {
		return mapGitLabError(err, statusCode(resp))
	}

	log.Info().
		Str("project", report.ProjectID).
		Int("mr", report.MergeRequest).
		Msg("published review comment")
	return nil
}

func statusCode(resp *gitlab.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

func mapGitLabError(err error, status int) error {
	switch status {
	case 401, 403:
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case 404:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case 409:
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
