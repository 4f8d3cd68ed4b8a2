// Package sweeper provides adapters for running the maintenance sweeper.
package sweeper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/creatorhub/jobcore/config"
	"github.com/creatorhub/jobcore/internal/core"
	"github.com/creatorhub/jobcore/internal/data"
	"github.com/creatorhub/jobcore/internal/observability/statsd"
	"github.com/creatorhub/jobcore/internal/service"
)

// Runner wraps a SweeperService for the service runner and the admin CLI.
type Runner struct {
	sweeper *service.SweeperService
	logger  *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB                   *sql.DB
	Config               config.SweeperConfig
	WebhookRetentionDays int
	Logger               *slog.Logger
	Metrics              statsd.Sink

	// Optional dependency injection for testing/decoupling.
	Repo     core.SweeperRepository
	Webhooks service.WebhookPurger
	Cache    service.CachePurger
}

// NewRunner creates a new sweeper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	sweeper, err := wireSweeperService(opts)
	if err != nil {
		return nil, fmt.Errorf("wire sweeper service: %w", err)
	}

	return &Runner{sweeper: sweeper, logger: opts.Logger.With("component", "sweeper_runner")}, nil
}

func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && opts.Repo == nil {
		return errors.New("database connection is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

// wireSweeperService fills in Postgres-backed repositories for any dependency not injected.
func wireSweeperService(opts RunnerOptions) (*service.SweeperService, error) {
	repo := opts.Repo
	if repo == nil {
		repo = data.NewJobRepo(opts.DB, data.RepoConfig{})
	}

	webhooks := opts.Webhooks
	if webhooks == nil && opts.DB != nil {
		ledger, err := service.NewWebhookLedger(service.WebhookLedgerOptions{
			Repo:   data.NewWebhookRepo(opts.DB, data.RepoConfig{}),
			Config: service.WebhookLedgerConfig{RetentionDays: opts.WebhookRetentionDays},
			Logger: opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		webhooks = ledger
	}

	cache := opts.Cache
	if cache == nil && opts.DB != nil {
		svc, err := service.NewCacheService(service.CacheServiceOptions{
			Repo:   data.NewCacheRepo(opts.DB, data.RepoConfig{}),
			Logger: opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		cache = svc
	}

	return service.NewSweeperService(service.SweeperServiceOptions{
		Repo:                 repo,
		Webhooks:             webhooks,
		Cache:                cache,
		Config:               opts.Config,
		WebhookRetentionDays: opts.WebhookRetentionDays,
		Logger:               opts.Logger,
		Metrics:              opts.Metrics,
	})
}

// Run starts the sweeper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting sweeper runner")
	return r.sweeper.Run(ctx)
}

// RunOnce executes a single step, or every step when step is empty.
func (r *Runner) RunOnce(ctx context.Context, step string) ([]service.SweepResult, error) {
	if step == "" {
		return r.sweeper.RunAll(ctx)
	}
	parsed, err := service.ParseSweepStep(step)
	if err != nil {
		return nil, err
	}
	res, err := r.sweeper.RunStep(ctx, parsed)
	if err != nil {
		return nil, err
	}
	return []service.SweepResult{*res}, nil
}
