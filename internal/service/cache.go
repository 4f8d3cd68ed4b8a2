package service

import (
	"context"
	"encoding/json"
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

const (
	cacheTierRedis    = "redis"
	cacheTierPostgres = "postgres"
)

// CacheServiceOptions groups dependencies for CacheService.
type CacheServiceOptions struct {
	Repo    core.TTLCacheRepository // Required: authoritative store
	Tier    core.CacheTier          // Optional: front tier, consulted first
	Now     func() time.Time        // Optional: clock used for remaining TTL
	Logger  *slog.Logger            // Optional: structured logger
	Metrics statsd.Sink             // Optional: metrics sink
}

// CacheService is a category-scoped TTL cache. Postgres is authoritative; the optional
// tier is written through and read first. Tier read failures fall back to Postgres.
// A tier write that fails drops the key from the tier; if the tier cannot be cleared
// either, the call fails because the tier may still serve the old value.
type CacheService struct {
	repo    core.TTLCacheRepository
	tier    core.CacheTier
	now     func() time.Time
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewCacheService constructs a new CacheService.
func NewCacheService(opts CacheServiceOptions) (*CacheService, error) {
	if opts.Repo == nil {
		return nil, errors.New("TTLCacheRepository is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheService{
		repo:    opts.Repo,
		tier:    opts.Tier,
		now:     now,
		logger:  logger.With("component", "cache_service"),
		metrics: opts.Metrics,
	}, nil
}

// Set writes value under category/key. A ttl <= 0 never expires.
func (s *CacheService) Set(
	ctx context.Context,
	category model.CacheCategory,
	key string,
	value json.RawMessage,
	ttl time.Duration,
) error {
	req := &model.CacheSetRequest{Key: key, Category: category, Value: value, TTL: ttl}
	if err := req.Validate(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}
	if err := s.repo.Set(ctx, req); err != nil {
		return fmt.Errorf("set cache entry %s/%s: %w", category, key, err)
	}
	if s.tier == nil {
		return nil
	}
	setErr := s.tier.Set(ctx, category, key, value, ttl)
	if setErr == nil {
		return nil
	}
	s.logger.WarnContext(ctx, "cache tier write failed, evicting key", "category", category, "key", key, "error", setErr)
	if err := s.tier.Delete(ctx, category, key); err != nil {
		return fmt.Errorf("cache tier may hold a stale value for %s/%s: %w", category, key, errors.Join(setErr, err))
	}
	return nil
}

// Get returns the live value for category/key. A miss is (nil, false, nil).
func (s *CacheService) Get(
	ctx context.Context,
	category model.CacheCategory,
	key string,
) (json.RawMessage, bool, error) {
	if s.tier != nil {
		v, err := s.tier.Get(ctx, category, key)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "cache tier read failed", "category", category, "key", key, "error", err)
		case v != nil:
			metrics.EmitCacheLookup(s.metrics, string(category), cacheTierRedis, true)
			return json.RawMessage(v), true, nil
		}
	}

	entry, err := s.repo.Get(ctx, category, key)
	if err != nil {
		return nil, false, fmt.Errorf("get cache entry %s/%s: %w", category, key, err)
	}
	metrics.EmitCacheLookup(s.metrics, string(category), cacheTierPostgres, entry != nil)
	if entry == nil {
		return nil, false, nil
	}
	s.backfill(ctx, entry)
	return entry.Value, true, nil
}

// backfill copies a Postgres hit into the tier with whatever TTL it has left.
func (s *CacheService) backfill(ctx context.Context, entry *model.CacheEntry) {
	if s.tier == nil {
		return
	}
	var ttl time.Duration
	if entry.ExpiresAt != nil {
		ttl = entry.ExpiresAt.Sub(s.now().UTC())
		if ttl <= 0 {
			return
		}
	}
	if err := s.tier.Set(ctx, entry.Category, entry.Key, entry.Value, ttl); err != nil {
		s.logger.WarnContext(ctx, "cache tier backfill failed", "category", entry.Category, "key", entry.Key, "error", err)
	}
}

// InvalidatePattern deletes every key in category matching a glob with * and ? wildcards.
// The returned count is from Postgres. A tier failure is returned so callers can retry.
func (s *CacheService) InvalidatePattern(ctx context.Context, category model.CacheCategory, pattern string) (int64, error) {
	if !category.Valid() {
		return 0, apperrors.ValidationField("category", "cache category must match [a-z0-9_]{1,64}")
	}
	if strings.TrimSpace(pattern) == "" {
		return 0, apperrors.ValidationField("pattern", "pattern is required")
	}

	n, err := s.repo.DeletePattern(ctx, category, pattern)
	if err != nil {
		return 0, fmt.Errorf("invalidate %s/%s: %w", category, pattern, err)
	}
	if s.tier != nil {
		if _, err := s.tier.DeletePattern(ctx, category, pattern); err != nil {
			return n, fmt.Errorf("invalidate cache tier %s/%s: %w", category, pattern, err)
		}
	}
	if n > 0 {
		s.logger.DebugContext(ctx, "cache entries invalidated", "category", category, "pattern", pattern, "count", n)
	}
	return n, nil
}

// PurgeExpired physically removes expired rows. Reads already ignore them.
func (s *CacheService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.PurgeExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge expired cache entries: %w", err)
	}
	return n, nil
}

// Health reports the tier's health. Without a tier it is always healthy.
func (s *CacheService) Health(ctx context.Context) error {
	if s.tier == nil {
		return nil
	}
	return s.tier.Health(ctx)
}
