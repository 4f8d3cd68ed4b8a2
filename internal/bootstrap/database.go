package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/creatorhub/jobcore/config"
	"github.com/creatorhub/jobcore/internal/migrate"
)

const (
	connectTimeout  = 5 * time.Second
	applicationName = "jobcore"
)

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// postgresConnConfig turns DB_* settings into a pgx connection config.
func postgresConnConfig(cfg config.DBConfig) (*pgx.ConnConfig, error) {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	q.Set("application_name", applicationName)
	u.RawQuery = q.Encode()

	connCfg, err := pgx.ParseConfig(u.String())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	connCfg.ConnectTimeout = connectTimeout
	return connCfg, nil
}

// ConnectDB opens the Postgres pool and verifies it answers a ping.
func ConnectDB(cfg DatabaseConfig) (*sql.DB, error) {
	connCfg, err := postgresConnConfig(cfg.DBConfig)
	if err != nil {
		return nil, err
	}
	db := stdlib.OpenDB(*connCfg)

	// The change feed pins one connection in LISTEN mode while it has subscribers.
	db.SetMaxOpenConns(cfg.DBConfig.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DBConfig.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConfig.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("database connected",
			"host", connCfg.Host,
			"port", connCfg.Port,
			"database", connCfg.Database,
		)
	}
	return db, nil
}

type redisMode string

const (
	redisModeDirect   redisMode = "direct"
	redisModeSentinel redisMode = "sentinel"
	redisModeCluster  redisMode = "cluster"
)

// redisOptions maps REDIS_* settings onto go-redis universal options. Cluster mode
// falls back to REDIS_URI as a seed node when REDIS_CLUSTER_NODES is empty.
func redisOptions(cfg config.RedisConfig) (*redis.UniversalOptions, redisMode, error) {
	opts := &redis.UniversalOptions{Password: cfg.Password, DB: cfg.DB}

	switch {
	case cfg.UseCluster:
		opts.Addrs = trimmedNonEmpty(cfg.ClusterNodes)
		if len(opts.Addrs) == 0 && strings.TrimSpace(cfg.URI) != "" {
			if err := applyRedisURI(opts, cfg.URI); err != nil {
				return nil, "", err
			}
		}
		if len(opts.Addrs) == 0 {
			return nil, "", errors.New("redis cluster configuration requires at least one address")
		}
		return opts, redisModeCluster, nil

	case cfg.UseSentinel:
		opts.Addrs = trimmedNonEmpty(cfg.SentinelNodes)
		if len(opts.Addrs) == 0 {
			return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
		}
		opts.MasterName = cfg.SentinelMasterName
		opts.SentinelPassword = cfg.SentinelPassword
		return opts, redisModeSentinel, nil

	default:
		if strings.TrimSpace(cfg.URI) == "" {
			return nil, "", errors.New("redis direct configuration requires a URI")
		}
		if err := applyRedisURI(opts, cfg.URI); err != nil {
			return nil, "", err
		}
		return opts, redisModeDirect, nil
	}
}

// applyRedisURI accepts either redis(s):// URLs or bare host:port. Credentials and
// database index from the URL override the separate settings when present.
func applyRedisURI(opts *redis.UniversalOptions, raw string) error {
	uri := strings.TrimSpace(raw)
	if !strings.HasPrefix(uri, "redis://") && !strings.HasPrefix(uri, "rediss://") {
		opts.Addrs = []string{uri}
		return nil
	}
	parsed, err := redis.ParseURL(uri)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	opts.Addrs = []string{parsed.Addr}
	opts.TLSConfig = parsed.TLSConfig
	if parsed.Username != "" {
		opts.Username = parsed.Username
	}
	if parsed.Password != "" {
		opts.Password = parsed.Password
	}
	if parsed.DB != 0 {
		opts.DB = parsed.DB
	}
	return nil
}

func trimmedNonEmpty(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ConnectRedis builds a direct, sentinel or cluster client from REDIS_* and pings it.
//
//nolint:ireturn // callers need the universal interface to stay mode-agnostic.
func ConnectRedis(cfg DatabaseConfig) (redis.UniversalClient, error) {
	opts, mode, err := redisOptions(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}

	var client redis.UniversalClient
	switch mode {
	case redisModeCluster:
		client = redis.NewClusterClient(opts.Cluster())
	case redisModeSentinel:
		client = redis.NewFailoverClient(opts.Failover())
	default:
		client = redis.NewClient(opts.Simple())
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis (%s): %w", mode, pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("redis connected",
			"mode", string(mode),
			"addrs", opts.Addrs,
			"master", opts.MasterName,
		)
	}
	return client, nil
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := migrate.Run(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed")
	}
	return nil
}
