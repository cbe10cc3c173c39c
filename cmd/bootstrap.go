package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/reviewpilot/internal/ai"
	"github.com/reviewpilot/internal/config"
	"github.com/reviewpilot/internal/dispatch"
	"github.com/reviewpilot/internal/hosting"
	"github.com/reviewpilot/internal/ledger"
	"github.com/reviewpilot/internal/retry"
	"github.com/reviewpilot/internal/review"
)

// runtime bundles everything a command needs after configuration is
// loaded and validated.
type runtime struct {
	cfg        *config.Config
	host       hosting.Host
	providers  []ai.Provider
	workPool   *dispatch.Pool
	ledger     ledger.Ledger
	controller *review.Controller
	// pool is non-nil only when a database is configured.
	pool *pgxpool.Pool
}

func buildRuntime(ctx context.Context, c *cli.Context) (*runtime, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	host, err := hosting.NewGitLabHost(hosting.GitLabConfig{
		URL:               cfg.GitLab.URL,
		Token:             cfg.GitLab.Token,
		RequestsPerSecond: cfg.GitLab.RequestsPerSecond,
	})
	if err != nil {
		return nil, err
	}

	specs := make([]ai.Spec, len(cfg.Providers))
	for i, p := range cfg.Providers {
		specs[i] = ai.Spec{Name: p.Name, Model: p.Model, APIKey: p.APIKey, BaseURL: p.BaseURL}
	}
	providers, err := ai.BuildProviders(specs)
	if err != nil {
		return nil, err
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.Dispatch.MaxRetries
	dispatcher := dispatch.New(cfg.PerCallTimeout(), retryCfg, ai.Options{
		MaxOutputTokens: cfg.Dispatch.MaxOutputTokens,
		Temperature:     cfg.Dispatch.Temperature,
	})
	pool := dispatch.NewPool(cfg.Review.ChunkWorkers, dispatcher)

	var (
		led    ledger.Ledger
		dbPool *pgxpool.Pool
	)
	if cfg.Database.URL != "" {
		dbPool, err = pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		led, err = ledger.NewPostgres(ctx, dbPool)
		if err != nil {
			dbPool.Close()
			return nil, err
		}
	} else {
		led = ledger.NewMemory()
	}

	rt := &runtime{
		cfg:       cfg,
		host:      host,
		providers: providers,
		workPool:  pool,
		ledger:    led,
		pool:      dbPool,
	}
	rt.controller = rt.controllerFor(host)
	return rt, nil
}

// controllerFor builds a controller around an alternative host, which
// lets commands substitute the publish path without reloading anything.
func (r *runtime) controllerFor(host hosting.Host) *review.Controller {
	return review.NewController(review.Config{
		ChunkBudget: r.cfg.Review.ChunkBudget,
		RunDeadline: r.cfg.RunDeadline(),
		RulesPath:   r.cfg.Review.RulesPath,
		RulesRef:    r.cfg.Review.RulesRef,
	}, host, r.providers, r.workPool, r.ledger)
}

func (r *runtime) close() {
	if r.pool != nil {
		r.pool.Close()
	}
}
