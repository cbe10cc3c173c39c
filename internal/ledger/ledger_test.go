package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFirstClaimWins(t *testing.T) {
	m := NewMemory()

	won, err := m.ClaimPublish(context.Background(), "gitlab!42!7", "evt-1")
	require.NoError(t, err)
	assert.True(t, won)

	won, err = m.ClaimPublish(context.Background(), "gitlab!42!7", "evt-2")
	require.NoError(t, err)
	assert.False(t, won)

	holder, ok := m.Holder("gitlab!42!7")
	require.True(t, ok)
	assert.Equal(t, "evt-1", holder)
}

func TestMemoryReplayOfWinnerStillLosesSecondClaim(t *testing.T) {
	// A redelivered webhook carries the same event ID; the claim is
	// per merge request, so the replay must not publish again.
	m := NewMemory()

	won, _ := m.ClaimPublish(context.Background(), "gitlab!42!7", "evt-1")
	assert.True(t, won)

	won, _ = m.ClaimPublish(context.Background(), "gitlab!42!7", "evt-1")
	assert.False(t, won)
}

func TestMemoryDistinctMergeRequestsAreIndependent(t *testing.T) {
	m := NewMemory()

	won, _ := m.ClaimPublish(context.Background(), "gitlab!42!7", "evt-1")
	assert.True(t, won)

	won, _ = m.ClaimPublish(context.Background(), "gitlab!42!8", "evt-1")
	assert.True(t, won)
}

func TestMemoryConcurrentClaimsHaveExactlyOneWinner(t *testing.T) {
	m := NewMemory()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := m.ClaimPublish(context.Background(), "gitlab!42!7", "evt")
			require.NoError(t, err)
			if won {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}
