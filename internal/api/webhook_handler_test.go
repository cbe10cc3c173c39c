package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpilot/pkg/models"
)

type captureRunner struct {
	requests []models.ReviewRequest
	err      error
}

func (r *captureRunner) Enqueue(_ context.Context, req models.ReviewRequest) error {
	if r.err != nil {
		return r.err
	}
	r.requests = append(r.requests, req)
	return nil
}

const mergeRequestPayload = `{
	"object_kind": "merge_request",
	"project": {"id": 42, "path_with_namespace": "group/app", "web_url": "https://gitlab.example.com/group/app"},
	"object_attributes": {
		"iid": 7,
		"title": "Add request validation",
		"description": "Validates inbound payloads",
		"state": "opened",
		"action": "open",
		"source_branch": "feature/validation",
		"target_branch": "main"
	}
}`

func postWebhook(t *testing.T, server *Server, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/gitlab", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWebhookAcceptsMergeRequestEvent(t *testing.T) {
	runner := &captureRunner{}
	server := NewServer(0, "secret", runner)

	rec := postWebhook(t, server, mergeRequestPayload, map[string]string{
		"X-Gitlab-Token":      "secret",
		"X-Gitlab-Event-UUID": "f2c87a2d-ae1a-4f68-a562-9dcf552bdb10",
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, runner.requests, 1)

	got := runner.requests[0]
	assert.Equal(t, "42", got.ProjectID)
	assert.Equal(t, 7, got.MergeRequest)
	assert.Equal(t, "f2c87a2d-ae1a-4f68-a562-9dcf552bdb10", got.EventID)
	assert.Equal(t, "Add request validation", got.Title)
	assert.Equal(t, "feature/validation", got.SourceBranch)
}

func TestWebhookRejectsBadToken(t *testing.T) {
	runner := &captureRunner{}
	server := NewServer(0, "secret", runner)

	rec := postWebhook(t, server, mergeRequestPayload, map[string]string{
		"X-Gitlab-Token": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, runner.requests)
}

func TestWebhookRejectsMissingTokenWhenSecretConfigured(t *testing.T) {
	runner := &captureRunner{}
	server := NewServer(0, "secret", runner)

	rec := postWebhook(t, server, mergeRequestPayload, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookIgnoresNonMergeRequestEvents(t *testing.T) {
	runner := &captureRunner{}
	server := NewServer(0, "", runner)

	rec := postWebhook(t, server, `{"object_kind": "push"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
	assert.Empty(t, runner.requests)
}

func TestWebhookIgnoresNonReviewActions(t *testing.T) {
	runner := &captureRunner{}
	server := NewServer(0, "", runner)

	payload := strings.Replace(mergeRequestPayload, `"action": "open"`, `"action": "approved"`, 1)
	rec := postWebhook(t, server, payload, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, runner.requests)
}

func TestWebhookGeneratesEventIDWhenHeaderMissing(t *testing.T) {
	runner := &captureRunner{}
	server := NewServer(0, "", runner)

	rec := postWebhook(t, server, mergeRequestPayload, nil)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, runner.requests, 1)
	assert.NotEmpty(t, runner.requests[0].EventID)
}

func TestWebhookReportsEnqueueFailure(t *testing.T) {
	runner := &captureRunner{err: assert.AnError}
	server := NewServer(0, "", runner)

	rec := postWebhook(t, server, mergeRequestPayload, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	server := NewServer(0, "", &captureRunner{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
