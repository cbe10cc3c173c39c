package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/reviewpilot/pkg/models"
)

// Options controls a single review call.
type Options struct {
	MaxOutputTokens int
	Temperature     float64
}

// Provider sends one prompt to one external model and normalizes the
// response. Providers never see each other's output; zero, one, or many
// may be configured for a run.
type Provider interface {
	// Review sends the prompt and returns the normalized review text.
	// Failures are returned as *ProviderError so the dispatcher can
	// decide whether to retry.
	Review(ctx context.Context, promptText string, opts Options) (string, error)

	// Identity labels this provider's fragments in reports and results.
	Identity() models.ProviderIdentity
}

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	KindAuth        ErrorKind = "auth"
	KindRateLimited ErrorKind = "rate_limited"
	KindTimeout     ErrorKind = "timeout"
	KindMalformed   ErrorKind = "malformed"
	KindUnavailable ErrorKind = "unavailable"
)

// ProviderError is a typed failure from one provider call. It is scoped
// to a single provider and chunk and never aborts a run.
type ProviderError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (%s): %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth retrying. Auth and
// malformed-response failures will not improve on retry; rate limits and
// transient unavailability usually do. Timeouts are retried too: the
// per-call deadline already bounds each attempt.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindUnavailable, KindTimeout:
		return true
	default:
		return false
	}
}

// AsProviderError extracts a *ProviderError from err, wrapping unknown
// errors as unavailable so every failure carries a kind.
func AsProviderError(err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{Kind: KindUnavailable, Err: err}
}
