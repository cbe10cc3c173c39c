package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/reviewpilot/pkg/models"
)

// GitLabWebhookPayload represents the structure of GitLab merge request
// webhook payloads, reduced to the fields the pipeline consumes.
type GitLabWebhookPayload struct {
	ObjectKind       string                 `json:"object_kind"`
	Project          GitLabProject          `json:"project"`
	ObjectAttributes GitLabObjectAttributes `json:"object_attributes"`
}

// GitLabProject represents a GitLab project
type GitLabProject struct {
	ID                int    `json:"id"`
	PathWithNamespace string `json:"path_with_namespace"`
	WebURL            string `json:"web_url"`
}

// GitLabObjectAttributes represents the object_attributes field in
// merge request webhook payloads
type GitLabObjectAttributes struct {
	IID          int    `json:"iid"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	State        string `json:"state"`
	Action       string `json:"action"`
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
	URL          string `json:"url"`
}

// Actions that trigger a review. Everything else (approved, merged,
// closed, label changes) is acknowledged and ignored.
var reviewedActions = map[string]bool{
	"open":   true,
	"reopen": true,
	"update": true,
}

func (s *Server) handleGitLabWebhook(c echo.Context) error {
	if s.webhookSecret != "" {
		token := c.Request().Header.Get("X-Gitlab-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.webhookSecret)) != 1 {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid webhook token",
			})
		}
	}

	var payload GitLabWebhookPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid payload",
		})
	}

	if payload.ObjectKind != "merge_request" {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "ignored",
			"reason": "not a merge request event",
		})
	}
	if !reviewedActions[payload.ObjectAttributes.Action] {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "ignored",
			"reason": "action does not trigger a review",
		})
	}

	// GitLab sends the same UUID on redeliveries of one event, which is
	// what makes downstream publishing idempotent across retries.
	eventID := c.Request().Header.Get("X-Gitlab-Event-UUID")
	if eventID == "" {
		eventID = uuid.NewString()
	}

	req := models.ReviewRequest{
		BaseURL:      payload.Project.WebURL,
		ProjectID:    strconv.Itoa(payload.Project.ID),
		MergeRequest: payload.ObjectAttributes.IID,
		EventID:      eventID,
		Title:        payload.ObjectAttributes.Title,
		Description:  payload.ObjectAttributes.Description,
		SourceBranch: payload.ObjectAttributes.SourceBranch,
		TargetBranch: payload.ObjectAttributes.TargetBranch,
	}

	if err := s.runner.Enqueue(c.Request().Context(), req); err != nil {
		log.Error().Err(err).
			Str("project", req.ProjectID).
			Int("mr", req.MergeRequest).
			Msg("failed to enqueue review")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to enqueue review",
		})
	}

	log.Info().
		Str("project", req.ProjectID).
		Int("mr", req.MergeRequest).
		Str("event", req.EventID).
		Str("action", payload.ObjectAttributes.Action).
		Msg("review enqueued")

	return c.JSON(http.StatusAccepted, map[string]string{
		"status":   "accepted",
		"event_id": req.EventID,
	})
}
