package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/reviewpilot/internal/aggregate"
	"github.com/reviewpilot/internal/ai"
	"github.com/reviewpilot/internal/chunker"
	"github.com/reviewpilot/internal/diff"
	"github.com/reviewpilot/internal/dispatch"
	"github.com/reviewpilot/internal/hosting"
	"github.com/reviewpilot/internal/ledger"
	"github.com/reviewpilot/internal/prompt"
	"github.com/reviewpilot/internal/retry"
	"github.com/reviewpilot/pkg/models"
)

// State names the phases of one review run.
type State string

const (
	StateIdle        State = "idle"
	StateChunking    State = "chunking"
	StateDispatching State = "dispatching"
	StateAggregating State = "aggregating"
	StatePublishing  State = "publishing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Config holds the per-run knobs of the controller.
type Config struct {
	// ChunkBudget is the maximum characters of diff per chunk.
	ChunkBudget int
	// RunDeadline bounds the whole run. Dispatching that is still in
	// flight when it expires is abandoned and whatever completed is
	// aggregated and published as a partial review.
	RunDeadline time.Duration
	// RulesPath and RulesRef locate the review rules document in the
	// project repository.
	RulesPath string
	RulesRef  string
	// PublishRetry governs retries of the final publish call. Zero
	// value means retry.PublishConfig.
	PublishRetry retry.Config
}

// Outcome reports how a run ended.
type Outcome struct {
	State  State
	Report models.FinalReport
	// Published is true when this run posted the review. A run that
	// lost the idempotency claim to a duplicate delivery completes
	// with Published false and DuplicateOf set.
	Published   bool
	DuplicateOf string
	// FailReason is set when State is StateFailed. A run that hit its
	// deadline ends Failed even when its partial review was published.
	FailReason string
}

// Controller drives one merge request review end to end: fetch, chunk,
// prompt, dispatch, aggregate, publish. It is stateless across runs;
// all per-run state lives on the stack of Execute.
type Controller struct {
	cfg       Config
	host      hosting.Host
	providers []ai.Provider
	parser    *diff.Parser
	builder   *prompt.Builder
	pool      *dispatch.Pool
	ledger    ledger.Ledger
}

func NewController(cfg Config, host hosting.Host, providers []ai.Provider, pool *dispatch.Pool, led ledger.Ledger) *Controller {
	if cfg.PublishRetry == (retry.Config{}) {
		cfg.PublishRetry = retry.PublishConfig()
	}
	return &Controller{
		cfg:       cfg,
		host:      host,
		providers: providers,
		parser:    diff.NewParser(),
		builder:   prompt.NewBuilder(),
		pool:      pool,
		ledger:    led,
	}
}

// Execute runs the full review pipeline for one request. It returns an
// error only for terminal failures (diff fetch failed, publish failed);
// degraded runs — failed providers, partial chunk coverage, default
// rules — complete normally with the degradation recorded on the report.
func (c *Controller) Execute(ctx context.Context, req models.ReviewRequest) (*Outcome, error) {
	state := StateIdle
	transition := func(next State) {
		log.Debug().
			Str("project", req.ProjectID).
			Int("mr", req.MergeRequest).
			Str("from", string(state)).
			Str("to", string(next)).
			Msg("review run transition")
		state = next
	}

	// The deadline bounds fetch, chunking, and dispatch. Publishing runs
	// on the parent context so a run that times out mid-dispatch can
	// still post the partial review it produced.
	runCtx := ctx
	if c.cfg.RunDeadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.cfg.RunDeadline)
		defer cancel()
	}

	transition(StateChunking)

	if err := c.hydrate(runCtx, &req); err != nil {
		transition(StateFailed)
		return &Outcome{State: StateFailed}, fmt.Errorf("fetching merge request: %w", err)
	}

	rules, degraded := c.fetchRules(runCtx, req.ProjectID)

	files, err := c.parser.Parse(req.DiffText)
	if err != nil {
		transition(StateFailed)
		return &Outcome{State: StateFailed}, fmt.Errorf("parsing diff: %w", err)
	}

	// Webhook payloads do not carry the file list; derive it from the
	// parsed diff so prompts can show the full merge request context.
	if len(req.ChangedFiles) == 0 {
		for _, f := range files {
			req.ChangedFiles = append(req.ChangedFiles, f.Path)
		}
	}

	chunks, err := chunker.Chunk(files, c.cfg.ChunkBudget)
	if err != nil {
		transition(StateFailed)
		return &Outcome{State: StateFailed}, fmt.Errorf("chunking diff: %w", err)
	}

	var results []models.ChunkReviewResult
	timedOut := false
	if len(chunks) > 0 && len(c.providers) > 0 {
		transition(StateDispatching)

		mrCtx := prompt.Context{
			Title:       req.Title,
			Description: req.Description,
			FileList:    req.ChangedFiles,
		}
		jobs := make([]dispatch.ChunkJob, len(chunks))
		for i, ch := range chunks {
			p := c.builder.Build(ch, rules, mrCtx, degraded)
			jobs[i] = dispatch.ChunkJob{Chunk: ch, Prompt: p.Text}
		}

		results = c.pool.Process(runCtx, jobs, c.providers)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			timedOut = true
			log.Warn().
				Str("project", req.ProjectID).
				Int("mr", req.MergeRequest).
				Int("completed", len(results)).
				Int("total", len(chunks)).
				Msg("run deadline exceeded, publishing partial review")
		}
	}

	transition(StateAggregating)

	report := aggregate.Aggregate(results, aggregate.Input{
		Request:       req,
		ProviderOrder: providerOrder(c.providers),
		ChunksTotal:   len(chunks),
		DegradedRules: degraded,
	})

	transition(StatePublishing)

	outcome := &Outcome{Report: report}

	won, err := c.ledger.ClaimPublish(ctx, report.IdempotencyKey(), req.EventID)
	if err != nil {
		transition(StateFailed)
		outcome.State = StateFailed
		return outcome, fmt.Errorf("claiming publish: %w", err)
	}
	if !won {
		log.Info().
			Str("project", req.ProjectID).
			Int("mr", req.MergeRequest).
			Str("event", req.EventID).
			Msg("duplicate delivery, review already published")
		transition(StateDone)
		outcome.State = StateDone
		outcome.DuplicateOf = req.EventID
		return outcome, nil
	}

	if err := c.publish(ctx, report); err != nil {
		transition(StateFailed)
		outcome.State = StateFailed
		return outcome, fmt.Errorf("publishing review: %w", err)
	}

	outcome.Published = true
	if timedOut {
		// The partial review is out, but the run itself missed its
		// deadline and callers should see that.
		transition(StateFailed)
		outcome.State = StateFailed
		outcome.FailReason = "run deadline exceeded"
	} else {
		transition(StateDone)
		outcome.State = StateDone
	}

	log.Info().
		Str("project", req.ProjectID).
		Int("mr", req.MergeRequest).
		Int("chunks_reviewed", report.ChunksReviewed).
		Int("chunks_total", report.ChunksTotal).
		Strs("contributed", report.Contributed).
		Strs("failed", report.Failed).
		Msg("review run complete")
	return outcome, nil
}

// hydrate fills in whatever the webhook payload did not carry: merge
// request metadata and the diff text itself.
func (c *Controller) hydrate(ctx context.Context, req *models.ReviewRequest) error {
	if req.Title == "" {
		details, err := c.host.GetMergeRequestDetails(ctx, req.ProjectID, req.MergeRequest)
		if err != nil {
			return err
		}
		req.Title = details.Title
		req.Description = details.Description
		req.SourceBranch = details.SourceBranch
		req.TargetBranch = details.TargetBranch
	}

	if req.DiffText == "" {
		diffText, err := c.host.GetMergeRequestDiff(ctx, req.ProjectID, req.MergeRequest)
		if err != nil {
			return err
		}
		req.DiffText = diffText
	}
	return nil
}

// fetchRules loads the project's rules document. Any fetch failure
// falls back to the built-in defaults and marks the run degraded; an
// empty document that fetched cleanly is used as-is.
func (c *Controller) fetchRules(ctx context.Context, projectID string) (string, bool) {
	rules, err := c.host.GetRulesDocument(ctx, projectID, c.cfg.RulesPath, c.cfg.RulesRef)
	if err != nil {
		log.Warn().
			Err(err).
			Str("project", projectID).
			Str("path", c.cfg.RulesPath).
			Msg("rules document unavailable, using defaults")
		return prompt.DefaultRules, true
	}
	return rules, false
}

// publish posts the report, retrying transient platform failures. A
// conflict means the comment already exists, which is the outcome we
// wanted, so it counts as success.
func (c *Controller) publish(ctx context.Context, report models.FinalReport) error {
	err := retry.Do(ctx, c.cfg.PublishRetry, func(ctx context.Context) error {
		if err := c.host.PublishReview(ctx, report); err != nil {
			if errors.Is(err, hosting.ErrUnavailable) {
				return &retryablePublishError{err: err}
			}
			return err
		}
		return nil
	})
	if errors.Is(err, hosting.ErrConflict) {
		log.Info().
			Str("project", report.ProjectID).
			Int("mr", report.MergeRequest).
			Msg("review comment already exists")
		return nil
	}
	return err
}

func providerOrder(providers []ai.Provider) []models.ProviderIdentity {
	order := make([]models.ProviderIdentity, len(providers))
	for i, p := range providers {
		order[i] = p.Identity()
	}
	return order
}

type retryablePublishError struct {
	err error
}

func (e *retryablePublishError) Error() string   { return e.err.Error() }
func (e *retryablePublishError) Unwrap() error   { return e.err }
func (e *retryablePublishError) Retryable() bool { return true }
