package dispatch

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/reviewpilot/internal/ai"
	"github.com/reviewpilot/pkg/models"
)

// ChunkJob pairs a chunk with its rendered prompt.
type ChunkJob struct {
	Chunk  models.Chunk
	Prompt string
}

// Pool runs chunk dispatches through a bounded worker pool so the total
// number of concurrently outstanding provider calls stays at
// workers × providers.
type Pool struct {
	workers    int
	dispatcher *Dispatcher
}

// NewPool creates a pool with the given chunk-level concurrency.
func NewPool(workers int, dispatcher *Dispatcher) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers, dispatcher: dispatcher}
}

// Process dispatches every job and returns the completed results sorted
// by chunk index, so completion order never leaks into downstream
// aggregation. If ctx ends mid-run, jobs not yet started are abandoned
// and in-flight dispatches wind down quickly with timeout fragments;
// whatever completed is still returned so the caller can publish a
// partial report.
func (p *Pool) Process(ctx context.Context, jobs []ChunkJob, providers []ai.Provider) []models.ChunkReviewResult {
	if len(jobs) == 0 {
		return nil
	}

	jobCh := make(chan ChunkJob, len(jobs))
	resultCh := make(chan models.ChunkReviewResult, len(jobs))

	workers := p.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				// A job picked up after the run deadline would yield a
				// result of nothing but synthetic timeouts; skip it and
				// let the report state the chunk was not reviewed.
				if ctx.Err() != nil {
					log.Debug().
						Int("chunk", job.Chunk.Index).
						Msg("run deadline reached, skipping queued chunk")
					continue
				}
				resultCh <- p.dispatcher.Dispatch(ctx, job.Chunk, job.Prompt, providers)
			}
		}()
	}

	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	wg.Wait()
	close(resultCh)

	results := make([]models.ChunkReviewResult, 0, len(jobs))
	for result := range resultCh {
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].ChunkIndex < results[j].ChunkIndex
	})
	return results
}
