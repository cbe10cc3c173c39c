package ai

import (
	"context"
	"errors"
	"strings"
)

// classifyCallError maps an error from the model SDK onto the provider
// error taxonomy. The langchain backends surface remote failures as
// wrapped HTTP errors, so classification falls back to matching status
// codes and well-known phrases in the error text, the same way transient
// failures are recognized elsewhere in the retry path.
func classifyCallError(err error) *ProviderError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &ProviderError{Kind: KindTimeout, Err: err}
	}

	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "401", "403", "invalid api key", "invalid x-api-key", "unauthorized", "permission denied", "authentication"):
		return &ProviderError{Kind: KindAuth, Err: err}
	case containsAny(msg, "429", "rate limit", "too many requests", "quota exceeded"):
		return &ProviderError{Kind: KindRateLimited, Err: err}
	case containsAny(msg, "timeout", "deadline exceeded"):
		return &ProviderError{Kind: KindTimeout, Err: err}
	case containsAny(msg, "400", "unsupported model", "invalid request", "context length", "maximum context"):
		return &ProviderError{Kind: KindMalformed, Err: err}
	default:
		// 5xx, connection refused/reset, DNS failures and anything else
		// we cannot name is treated as transient unavailability.
		return &ProviderError{Kind: KindUnavailable, Err: err}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
