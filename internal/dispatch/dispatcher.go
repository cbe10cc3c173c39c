package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/reviewpilot/internal/ai"
	"github.com/reviewpilot/internal/retry"
	"github.com/reviewpilot/pkg/models"
)

// Dispatcher fans one chunk's prompt out to every configured provider
// concurrently and collects exactly one fragment per provider.
type Dispatcher struct {
	perCallTimeout time.Duration
	retryCfg       retry.Config
	callOpts       ai.Options
}

// New creates a dispatcher. perCallTimeout bounds each individual
// provider attempt; retryCfg bounds how often retryable failures are
// re-attempted.
func New(perCallTimeout time.Duration, retryCfg retry.Config, callOpts ai.Options) *Dispatcher {
	return &Dispatcher{
		perCallTimeout: perCallTimeout,
		retryCfg:       retryCfg,
		callOpts:       callOpts,
	}
}

// Dispatch sends the prompt to all providers in parallel and waits until
// every provider reaches a terminal state: a successful fragment or an
// exhausted-retries failure. One slow or broken provider never blocks the
// others beyond its own retry budget, and no provider's outcome is ever
// dropped: the result always carries len(providers) fragments, in
// configured provider order. An all-failed chunk is still returned.
func (d *Dispatcher) Dispatch(ctx context.Context, chunk models.Chunk, promptText string, providers []ai.Provider) models.ChunkReviewResult {
	fragments := make([]models.ReviewFragment, len(providers))

	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(slot int, provider ai.Provider) {
			defer wg.Done()
			fragments[slot] = d.callProvider(ctx, chunk.Index, provider, promptText)
		}(i, p)
	}
	wg.Wait()

	result := models.ChunkReviewResult{
		ChunkIndex: chunk.Index,
		Fragments:  fragments,
	}
	if len(providers) > 0 && result.AllFailed() {
		log.Warn().
			Int("chunk", chunk.Index).
			Int("providers", len(providers)).
			Msg("all providers failed for chunk, continuing with partial report")
	}
	return result
}

// callProvider runs one provider to a terminal state.
func (d *Dispatcher) callProvider(ctx context.Context, chunkIndex int, provider ai.Provider, promptText string) models.ReviewFragment {
	id := provider.Identity()
	start := time.Now()

	var text string
	err := retry.Do(ctx, d.retryCfg, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, d.perCallTimeout)
		defer cancel()

		reviewed, callErr := provider.Review(callCtx, promptText, d.callOpts)
		if callErr != nil {
			return ai.AsProviderError(callErr)
		}
		text = reviewed
		return nil
	})

	if err == nil {
		log.Debug().
			Str("provider", id.String()).
			Int("chunk", chunkIndex).
			Dur("elapsed", time.Since(start)).
			Msg("provider review complete")
		return models.ReviewFragment{
			Provider:   id,
			ChunkIndex: chunkIndex,
			Status:     models.FragmentOK,
			Text:       text,
		}
	}

	pe := ai.AsProviderError(err)
	status := models.FragmentFailed
	if pe.Kind == ai.KindTimeout || errors.Is(err, context.DeadlineExceeded) {
		status = models.FragmentTimeout
	}

	log.Warn().
		Str("provider", id.String()).
		Int("chunk", chunkIndex).
		Str("kind", string(pe.Kind)).
		Dur("elapsed", time.Since(start)).
		Err(err).
		Msg("provider review failed")

	return models.ReviewFragment{
		Provider:   id,
		ChunkIndex: chunkIndex,
		Status:     status,
		FailReason: string(pe.Kind),
	}
}
