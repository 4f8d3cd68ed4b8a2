package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/creatorhub/jobcore/config"
	"github.com/creatorhub/jobcore/internal/core"
	"github.com/creatorhub/jobcore/internal/data"
	domainjob "github.com/creatorhub/jobcore/internal/domain/job"
	"github.com/creatorhub/jobcore/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs          *service.JobService
	Results       *service.ResultCacheService
	Cache         *service.CacheService
	Webhooks      *service.WebhookLedger
	Sweeper       *service.SweeperService
	Auth          *service.AuthService
	Changes       *domainjob.ChangeHub
	Observability ObservabilityContainer

	// SweeperRepo is shared with the background sweeper loop.
	SweeperRepo core.SweeperRepository
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient // Optional: the cache runs Postgres-only without it
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Jobs     *data.JobRepo
	Webhooks *data.WebhookRepo
	Cache    *data.CacheRepo
	Tier     *data.RedisCacheTier
	Feed     *data.ChangeFeed
}

func newServiceRepositories(deps ServiceDeps) serviceRepositories {
	repoCfg := data.RepoConfig{Logger: deps.Logger}
	repos := serviceRepositories{
		Jobs:     data.NewJobRepo(deps.DB, repoCfg),
		Webhooks: data.NewWebhookRepo(deps.DB, repoCfg),
		Cache:    data.NewCacheRepo(deps.DB, repoCfg),
		Feed:     data.NewChangeFeed(deps.DB, deps.Logger),
	}
	if deps.RedisClient != nil && deps.Config.Cache.RedisEnabled {
		repos.Tier = data.NewRedisCacheTier(deps.RedisClient, deps.Config.Cache.KeyPrefix)
	}
	return repos
}

// NewServices wires repositories, the change hub and every domain service.
func NewServices(ctx context.Context, deps ServiceDeps) (ServiceContainer, error) {
	if deps.Config == nil {
		return ServiceContainer{}, errors.New("config is required")
	}
	if deps.DB == nil {
		return ServiceContainer{}, errors.New("database is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	cfg := deps.Config

	obs, err := BuildObservability(cfg.Observability.Metrics, deps.Logger)
	if err != nil {
		return ServiceContainer{}, err
	}
	metrics := obs.Sink
	repos := newServiceRepositories(deps)

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Repo: repos.Jobs,
		Logs: repos.Jobs,
		Config: service.JobServiceConfig{
			MaxActivePerOwner: cfg.Jobs.MaxActivePerOwner,
			DefaultPriority:   cfg.Jobs.DefaultPriority,
			DefaultMaxRetries: cfg.Jobs.DefaultMaxRetries,
			DefaultTTL:        cfg.Jobs.DefaultTTL,
			DedupeWindow:      cfg.Jobs.DedupeWindow,
			ClaimCandidates:   cfg.Jobs.ClaimCandidates,
		},
		Logger:  deps.Logger,
		Metrics: metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create job service: %w", err)
	}

	results, err := service.NewResultCacheService(service.ResultCacheServiceOptions{
		Repo:    repos.Jobs,
		Logger:  deps.Logger,
		Metrics: metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create result cache service: %w", err)
	}

	cacheOpts := service.CacheServiceOptions{
		Repo:    repos.Cache,
		Logger:  deps.Logger,
		Metrics: metrics,
	}
	if repos.Tier != nil {
		cacheOpts.Tier = repos.Tier
	}
	cache, err := service.NewCacheService(cacheOpts)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create cache service: %w", err)
	}

	ledger, err := service.NewWebhookLedger(service.WebhookLedgerOptions{
		Repo:  repos.Webhooks,
		Cache: cache,
		Config: service.WebhookLedgerConfig{
			RetentionDays: cfg.Webhook.RetentionDays,
			MaxRetries:    cfg.Webhook.MaxRetries,
			RetryBatch:    cfg.Webhook.RetryBatch,
			RetryWindow:   cfg.Webhook.RetryWindow,
		},
		Logger:  deps.Logger,
		Metrics: metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create webhook ledger: %w", err)
	}

	sweeper, err := service.NewSweeperService(service.SweeperServiceOptions{
		Repo:                 repos.Jobs,
		Webhooks:             ledger,
		Cache:                cache,
		Config:               cfg.Sweeper,
		WebhookRetentionDays: cfg.Webhook.RetentionDays,
		Logger:               deps.Logger,
		Metrics:              metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create sweeper service: %w", err)
	}

	changes, err := domainjob.NewChangeHub(domainjob.ChangeHubOptions{
		Listener: repos.Feed,
		Logger:   deps.Logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create change hub: %w", err)
	}

	auth, err := BuildAuthService(ctx, AuthConfig{Auth: cfg.Auth, Logger: deps.Logger})
	if err != nil {
		return ServiceContainer{}, err
	}

	return ServiceContainer{
		Jobs:          jobs,
		Results:       results,
		Cache:         cache,
		Webhooks:      ledger,
		Sweeper:       sweeper,
		Auth:          auth,
		Changes:       changes,
		Observability: obs,
		SweeperRepo:   repos.Jobs,
	}, nil
}
