package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeResponsePlainJSON(t *testing.T) {
	raw := `{"summary": "Looks fine overall.", "findings": [
		{"file": "a.go", "severity": "warning", "comment": "missing error check"}
	]}`

	text, err := normalizeResponse(raw)
	require.NoError(t, err)
	assert.Contains(t, text, "Looks fine overall.")
	assert.Contains(t, text, "**warning** `a.go`: missing error check")
}

func TestNormalizeResponseFencedJSON(t *testing.T) {
	raw := "Here is my review:\n```json\n{\"summary\": \"ok\", \"findings\": []}\n```\nDone."
	text, err := normalizeResponse(raw)
	require.NoError(t, err)
	assert.Contains(t, text, "ok")
}

func TestNormalizeResponseRepairsTruncatedJSON(t *testing.T) {
	// Token-limit truncation leaves the object unterminated; the repair
	// pass should still recover the summary.
	raw := `{"summary": "truncated but recoverable", "findings": [{"file": "a.go", "severity": "info", "comment": "x"`
	text, err := normalizeResponse(raw)
	require.NoError(t, err)
	assert.Contains(t, text, "truncated but recoverable")
}

func TestNormalizeResponseNoJSON(t *testing.T) {
	_, err := normalizeResponse("I refuse to answer in JSON.")
	require.Error(t, err)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindMalformed, pe.Kind)
	assert.False(t, pe.Retryable())
}

func TestNormalizeResponseUnknownSeverityDowngraded(t *testing.T) {
	raw := `{"summary": "s", "findings": [{"file": "a.go", "severity": "catastrophic", "comment": "boom"}]}`
	text, err := normalizeResponse(raw)
	require.NoError(t, err)
	assert.Contains(t, text, "**info** `a.go`: boom")
}

func TestNormalizeResponseEmptyReview(t *testing.T) {
	text, err := normalizeResponse(`{"summary": "", "findings": []}`)
	require.NoError(t, err)
	assert.Equal(t, "No issues found in this part of the diff.", text)
}

func TestClassifyCallError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      ErrorKind
		retryable bool
	}{
		{"auth", errors.New("API returned 401 Unauthorized"), KindAuth, false},
		{"rate limit", errors.New("429: rate limit exceeded"), KindRateLimited, true},
		{"server error", errors.New("503 service unavailable"), KindUnavailable, true},
		{"timeout phrase", errors.New("request timeout talking to upstream"), KindTimeout, true},
		{"bad request", errors.New("400 invalid request: maximum context length"), KindMalformed, false},
		{"connection", errors.New("dial tcp: connection refused"), KindUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := classifyCallError(tt.err)
			assert.Equal(t, tt.kind, pe.Kind)
			assert.Equal(t, tt.retryable, pe.Retryable())
		})
	}
}

func TestAsProviderErrorWrapsUnknown(t *testing.T) {
	pe := AsProviderError(errors.New("mystery failure"))
	assert.Equal(t, KindUnavailable, pe.Kind)

	orig := &ProviderError{Kind: KindAuth, Err: errors.New("bad key")}
	assert.Same(t, orig, AsProviderError(orig))
}

func TestBuildProvidersRejectsUnknownType(t *testing.T) {
	_, err := BuildProviders([]Spec{{Name: "carrierpigeon", APIKey: "k"}})
	assert.Error(t, err)
}

func TestBuildProvidersRequiresAPIKey(t *testing.T) {
	_, err := BuildProviders([]Spec{{Name: "anthropic"}})
	assert.Error(t, err)
}
