package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/creatorhub/jobcore/config"
	"github.com/creatorhub/jobcore/internal/bootstrap"
	"github.com/creatorhub/jobcore/internal/data"
	"github.com/creatorhub/jobcore/internal/service"
)

var errRedisNotConfigured = errors.New("redis not configured")

// connectInfra connects Postgres and, when the cache front tier is enabled and configured, Redis.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func connectInfra(logger *slog.Logger, cfg *config.AppConfig) (*sql.DB, redis.UniversalClient, error) {
	db, err := connectDBOnly(logger, cfg)
	if err != nil {
		return nil, nil, err
	}

	if !cfg.Cache.RedisEnabled {
		return db, nil, nil
	}
	client, err := maybeConnectRedis(logger, &cfg.Redis)
	if err == nil {
		return db, client, nil
	}
	if errors.Is(err, errRedisNotConfigured) {
		logger.Info("no redis configuration detected; skipping redis connection")
		return db, nil, nil
	}
	if closeErr := db.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("close db: %w", closeErr))
	}
	return nil, nil, err
}

func connectDBOnly(logger *slog.Logger, cfg *config.AppConfig) (*sql.DB, error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return db, nil
}

// maybeConnectRedis returns a connected client when configuration is present.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func maybeConnectRedis(logger *slog.Logger, cfg *config.RedisConfig) (redis.UniversalClient, error) {
	if !hasRedisConfig(cfg) {
		return nil, errRedisNotConfigured
	}
	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{RedisConfig: *cfg, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

func hasRedisConfig(cfg *config.RedisConfig) bool {
	if cfg == nil {
		return false
	}
	if cfg.UseCluster {
		return len(cfg.ClusterNodes) > 0 || cfg.URI != ""
	}
	if cfg.UseSentinel {
		return len(cfg.SentinelNodes) > 0
	}
	return cfg.URI != ""
}

// newCacheService builds the TTL cache with the Redis tier in front when a client is available.
func newCacheService(cmdCtx *commandContext, db *sql.DB, redisClient redis.UniversalClient) (*service.CacheService, error) {
	opts := service.CacheServiceOptions{
		Repo:   data.NewCacheRepo(db, data.RepoConfig{Logger: cmdCtx.Logger}),
		Logger: cmdCtx.Logger,
	}
	if redisClient != nil {
		opts.Tier = data.NewRedisCacheTier(redisClient, cmdCtx.Config.Cache.KeyPrefix)
	}
	svc, err := service.NewCacheService(opts)
	if err != nil {
		return nil, fmt.Errorf("create cache service: %w", err)
	}
	return svc, nil
}

func closeInfra(db *sql.DB, redisClient redis.UniversalClient) error {
	var closeErr error
	if db != nil {
		if err := db.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close db: %w", err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close redis: %w", err))
		}
	}
	return closeErr
}
