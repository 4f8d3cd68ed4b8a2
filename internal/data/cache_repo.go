package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/creatorhub/jobcore/internal/domain/model"
)

// CacheRepo is the authoritative Postgres store behind the TTL cache.
// Expired rows are invisible to reads whether or not PurgeExpired has run.
type CacheRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewCacheRepo creates a CacheRepo.
func NewCacheRepo(db *sql.DB, cfg RepoConfig) *CacheRepo {
	tp := defaultTimeProvider(cfg.TimeProvider)
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheRepo{DB: db, timeProvider: tp, logger: logger.With("component", "cache_repo")}
}

// Set upserts an entry. A TTL <= 0 stores it without expiry.
func (r *CacheRepo) Set(ctx context.Context, req *model.CacheSetRequest) error {
	if req == nil {
		return errors.New("cache set request is required")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	now := nowUTC(r.timeProvider)
	var expiresAt any
	if req.TTL > 0 {
		expiresAt = now.Add(req.TTL)
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO cache_entries (category, key, value, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, $4, $5, $5)
		ON CONFLICT (category, key) DO UPDATE
		SET value = EXCLUDED.value,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = EXCLUDED.updated_at
	`, string(req.Category), req.Key, string(req.Value), expiresAt, now)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// Get returns the live entry for category and key, or nil on a miss.
func (r *CacheRepo) Get(ctx context.Context, category model.CacheCategory, key string) (*model.CacheEntry, error) {
	entry := &model.CacheEntry{}
	var value []byte
	var expiresAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, `
		SELECT category, key, value, expires_at
		FROM cache_entries
		WHERE category = $1
		  AND key = $2
		  AND (expires_at IS NULL OR expires_at > $3)
	`, string(category), key, nowUTC(r.timeProvider)).Scan(&entry.Category, &entry.Key, &value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	entry.Value = cloneJSON(value)
	entry.ExpiresAt = cloneNullableTime(expiresAt)
	return entry, nil
}

// DeletePattern removes entries in the category whose key matches the glob.
func (r *CacheRepo) DeletePattern(ctx context.Context, category model.CacheCategory, pattern string) (int64, error) {
	if pattern == "" {
		return 0, errors.New("cache key pattern is required")
	}
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM cache_entries
		WHERE category = $1 AND key LIKE $2 ESCAPE '\'
	`, string(category), globToLike(pattern))
	if err != nil {
		return 0, fmt.Errorf("delete cache pattern: %w", err)
	}
	return res.RowsAffected()
}

// PurgeExpired physically removes entries whose expiry has passed.
func (r *CacheRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM cache_entries
		WHERE expires_at IS NOT NULL AND expires_at <= $1
	`, nowUTC(r.timeProvider))
	if err != nil {
		return 0, fmt.Errorf("purge expired cache entries: %w", err)
	}
	return res.RowsAffected()
}
