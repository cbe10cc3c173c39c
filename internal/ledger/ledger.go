package ledger

import (
	"context"
	"sync"
)

// Ledger records which delivery was the first to publish a review for a
// given idempotency key. ClaimPublish is the single primitive: the first
// caller for a key wins the claim atomically, so replayed webhook
// deliveries and races between duplicates both resolve to one publish.
type Ledger interface {
	// ClaimPublish returns true if eventID won the claim for key,
	// false if the key is already held.
	ClaimPublish(ctx context.Context, key, eventID string) (bool, error)
}

// Memory is a process-local Ledger. It is the default when no database
// is configured; restarts forget claims, which is acceptable for a
// single-instance deployment.
type Memory struct {
	mu     sync.Mutex
	claims map[string]string
}

func NewMemory() *Memory {
	return &Memory{claims: make(map[string]string)}
}

func (m *Memory) ClaimPublish(_ context.Context, mrKey, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.claims[mrKey]; taken {
		return false, nil
	}
	m.claims[mrKey] = eventID
	return true, nil
}

// Holder reports which event holds the claim for mrKey, for tests and
// debugging.
func (m *Memory) Holder(mrKey string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	eventID, ok := m.claims[mrKey]
	return eventID, ok
}
