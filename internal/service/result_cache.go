package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/creatorhub/jobcore/internal/core"
	"github.com/creatorhub/jobcore/internal/domain/model"
	apperrors "github.com/creatorhub/jobcore/internal/errors"
	"github.com/creatorhub/jobcore/internal/observability/metrics"
	"github.com/creatorhub/jobcore/internal/observability/statsd"
)

// ResultCacheServiceOptions groups dependencies for ResultCacheService.
type ResultCacheServiceOptions struct {
	Repo    core.JobRepository // Required: job repository
	Now     func() time.Time   // Optional: clock used to compute result age
	Logger  *slog.Logger       // Optional: structured logger
	Metrics statsd.Sink        // Optional: metrics sink
}

// ResultCacheService answers "has this exact work already been done recently".
type ResultCacheService struct {
	repo    core.JobRepository
	now     func() time.Time
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewResultCacheService constructs a new ResultCacheService.
func NewResultCacheService(opts ResultCacheServiceOptions) (*ResultCacheService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "result_cache_service")
	}
	return &ResultCacheService{repo: opts.Repo, now: now, logger: logger, metrics: opts.Metrics}, nil
}

// GetCachedResult returns the newest fresh completed result for equal owner, type and parameters.
func (s *ResultCacheService) GetCachedResult(ctx context.Context, q model.CachedResultQuery) (*model.CachedResult, error) {
	if strings.TrimSpace(q.OwnerID) == "" {
		return nil, apperrors.Validation("owner is required")
	}
	if !q.Type.Valid() {
		return nil, apperrors.ValidationField("type", fmt.Sprintf("invalid job type: %q", q.Type))
	}
	if err := model.ValidateDocument(q.Parameters); err != nil {
		return nil, apperrors.ValidationField("parameters", err.Error())
	}
	if q.TTL <= 0 {
		return nil, apperrors.ValidationField("ttl", "ttl must be positive")
	}

	job, err := s.repo.FindCachedResult(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find cached result for owner %s: %w", q.OwnerID, err)
	}
	metrics.EmitCacheLookup(s.metrics, "job_result", "postgres", job != nil)
	if job == nil {
		return &model.CachedResult{Hit: false}, nil
	}

	res := &model.CachedResult{
		Hit:         true,
		JobID:       job.ID,
		Result:      job.Result,
		CompletedAt: job.CompletedAt,
	}
	if job.CompletedAt != nil {
		res.Age = max(s.now().UTC().Sub(*job.CompletedAt), 0)
		res.AgeSeconds = res.Age.Seconds()
	}
	if s.logger != nil {
		s.logger.DebugContext(ctx, "result cache hit", "job_id", job.ID, "age", res.Age)
	}
	return res, nil
}
