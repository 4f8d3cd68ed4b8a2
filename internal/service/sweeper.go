package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/creatorhub/jobcore/config"
	"github.com/creatorhub/jobcore/internal/core"
	domainjob "github.com/creatorhub/jobcore/internal/domain/job"
	"github.com/creatorhub/jobcore/internal/observability/metrics"
	"github.com/creatorhub/jobcore/internal/observability/statsd"
)

// SweepStep names one maintenance operation.
type SweepStep string

const (
	SweepStepRetry         SweepStep = "retry"
	SweepStepExpire        SweepStep = "expire"
	SweepStepStuck         SweepStep = "stuck"
	SweepStepPurgeJobs     SweepStep = "purge_jobs"
	SweepStepPurgeWebhooks SweepStep = "purge_webhooks"
	SweepStepPurgeCache    SweepStep = "purge_cache"
)

// AllSweepSteps returns the steps in the order a full run executes them.
// Expiry runs before retry so an expired failed job is never revived.
func AllSweepSteps() []SweepStep {
	return []SweepStep{
		SweepStepExpire,
		SweepStepStuck,
		SweepStepRetry,
		SweepStepPurgeJobs,
		SweepStepPurgeWebhooks,
		SweepStepPurgeCache,
	}
}

// ParseSweepStep accepts a step name in either snake or kebab case.
func ParseSweepStep(s string) (SweepStep, error) {
	v := SweepStep(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, step := range AllSweepSteps() {
		if v == step {
			return step, nil
		}
	}
	return "", fmt.Errorf("unknown sweep step: %q", s)
}

// WebhookPurger removes processed webhook events past retention.
type WebhookPurger interface {
	PurgeOld(ctx context.Context, days int) (int64, error)
}

// CachePurger removes expired cache rows.
type CachePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SweepResult reports what one step changed.
type SweepResult struct {
	Step     SweepStep     `json:"step"`
	Affected int64         `json:"affected"`
	JobIDs   []string      `json:"job_ids,omitempty"`
	Duration time.Duration `json:"-"`
}

// SweeperServiceOptions groups dependencies for SweeperService.
type SweeperServiceOptions struct {
	Repo     core.SweeperRepository // Required: sweeper repository
	Webhooks WebhookPurger          // Optional: purge_webhooks is a no-op without it
	Cache    CachePurger            // Optional: purge_cache is a no-op without it
	Config   config.SweeperConfig   // Required: sweeper configuration
	// WebhookRetentionDays is passed to Webhooks.PurgeOld.
	WebhookRetentionDays int
	Logger               *slog.Logger // Optional: structured logger
	Metrics              statsd.Sink  // Optional: metrics sink (StatsD-compatible)
}

// SweeperService runs the periodic maintenance steps.
//
// This service manages:
// - Retrying failed jobs that still have retries left, with linear backoff.
// - Failing pending jobs past their expiry and processing jobs whose worker went silent.
// - Purging terminal jobs, processed webhook events and expired cache rows.
type SweeperService struct {
	repo          core.SweeperRepository
	webhooks      WebhookPurger
	cache         CachePurger
	config        config.SweeperConfig
	retentionDays int
	logger        *slog.Logger
	metrics       statsd.Sink
}

// NewSweeperService constructs a new SweeperService.
func NewSweeperService(opts SweeperServiceOptions) (*SweeperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("SweeperRepository is required")
	}
	cfg := opts.Config
	cfg.Sanitize()

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "sweeper_service")
		logger.Debug("SweeperService initialized",
			"interval", cfg.Interval,
			"batch_size", cfg.BatchSize,
			"stuck_timeout", cfg.StuckTimeout,
			"job_retention", cfg.JobRetention,
		)
	}

	days := opts.WebhookRetentionDays
	if days <= 0 {
		days = defaultWebhookRetentionDays
	}

	return &SweeperService{
		repo:          opts.Repo,
		webhooks:      opts.Webhooks,
		cache:         opts.Cache,
		config:        cfg,
		retentionDays: days,
		logger:        logger,
		metrics:       opts.Metrics,
	}, nil
}

// Run starts the sweeper loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *SweeperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting sweeper service", "interval", s.config.Interval)
	}

	// Add jitter to prevent thundering herd if multiple instances start together
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if _, err := s.RunAll(ctx); err != nil {
		s.logSweepError(err, "initial sweep")
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "sweeper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if _, err := s.RunAll(ctx); err != nil {
				s.logSweepError(err, "sweep")
			}
		}
	}
}

// waitWithJitter adds a random delay up to 10% of the interval to prevent thundering herd.
func (s *SweeperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

// RunAll executes every step once. A failing step does not stop the others.
func (s *SweeperService) RunAll(ctx context.Context) ([]SweepResult, error) {
	var (
		results            []SweepResult
		errs               []error
		allContextCanceled = true
	)
	for _, step := range AllSweepSteps() {
		res, err := s.RunStep(ctx, step)
		if res != nil {
			results = append(results, *res)
		}
		if err != nil {
			errs = append(errs, err)
			allContextCanceled = allContextCanceled && isContextCancellation(err)
		}
	}

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		if allContextCanceled {
			return results, context.Canceled
		}
		return results, fmt.Errorf("sweep failed: %w", joined)
	}
	if s.metrics != nil {
		s.metrics.Gauge("sweeper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
	return results, nil
}

// RunStep executes one step until it drains, emitting metrics either way.
func (s *SweeperService) RunStep(ctx context.Context, step SweepStep) (*SweepResult, error) {
	start := time.Now()
	res := &SweepResult{Step: step}

	var err error
	switch step {
	case SweepStepRetry:
		res.JobIDs, err = s.drainIDs(ctx, func(ctx context.Context) ([]string, error) {
			return s.repo.RetryFailed(ctx, core.RetryFailedParams{
				Cooldown:  s.config.RetryCooldown,
				Backoff:   domainjob.LinearBackoff{Base: s.config.RetryBaseDelay},
				BatchSize: s.config.BatchSize,
			})
		})
		res.Affected = int64(len(res.JobIDs))
	case SweepStepExpire:
		res.JobIDs, err = s.drainIDs(ctx, func(ctx context.Context) ([]string, error) {
			return s.repo.ExpirePending(ctx, s.config.BatchSize)
		})
		res.Affected = int64(len(res.JobIDs))
	case SweepStepStuck:
		res.JobIDs, err = s.drainIDs(ctx, func(ctx context.Context) ([]string, error) {
			return s.repo.FailStuck(ctx, core.FailStuckParams{
				Timeout:   s.config.StuckTimeout,
				BatchSize: s.config.BatchSize,
			})
		})
		res.Affected = int64(len(res.JobIDs))
	case SweepStepPurgeJobs:
		res.Affected, err = s.drainCount(ctx, func(ctx context.Context) (int64, error) {
			return s.repo.PurgeTerminal(ctx, core.PurgeJobsParams{
				Retention: s.config.JobRetention,
				BatchSize: s.config.BatchSize,
			})
		})
	case SweepStepPurgeWebhooks:
		if s.webhooks != nil {
			res.Affected, err = s.webhooks.PurgeOld(ctx, s.retentionDays)
		}
	case SweepStepPurgeCache:
		if s.cache != nil {
			res.Affected, err = s.cache.PurgeExpired(ctx)
		}
	default:
		return nil, fmt.Errorf("unknown sweep step: %q", step)
	}
	res.Duration = time.Since(start)

	metrics.EmitSweepStep(s.metrics, metrics.SweepMetric{
		Step:     string(step),
		Affected: res.Affected,
		Duration: res.Duration,
		Err:      suppressContextCancellation(err),
	})

	if err != nil {
		return res, fmt.Errorf("%s: %w", step, err)
	}
	if res.Affected > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "sweep step applied",
			"step", step,
			"affected", res.Affected,
			"duration", res.Duration,
		)
	}
	return res, nil
}

// drainIDs repeats a batched step until it returns a short batch.
func (s *SweeperService) drainIDs(
	ctx context.Context,
	fn func(context.Context) ([]string, error),
) ([]string, error) {
	var all []string
	for {
		ids, err := fn(ctx)
		if err != nil {
			return all, err
		}
		all = append(all, ids...)
		if len(ids) < s.config.BatchSize {
			return all, nil
		}
		if ctx.Err() != nil {
			return all, ctx.Err()
		}
	}
}

func (s *SweeperService) drainCount(
	ctx context.Context,
	fn func(context.Context) (int64, error),
) (int64, error) {
	var total int64
	for {
		n, err := fn(ctx)
		if err != nil {
			return total, err
		}
		total += n
		if n < int64(s.config.BatchSize) {
			return total, nil
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
}

func (s *SweeperService) logSweepError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}
	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}
	s.logger.Error(label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
