package config

import (
	"strings"
	"time"
)

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"jobcore"`
	Password string `env:"PASSWORD"                envDefault:"jobcore"`
	Name     string `env:"NAME"                    envDefault:"jobcore"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`

	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"     envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"     envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME"  envDefault:"30m"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// CacheConfig controls the generic TTL cache.
// Postgres is always the authoritative store; Redis is an optional front tier.
type CacheConfig struct {
	// RedisEnabled turns on the Redis front tier. Requires REDIS_* to point at a reachable server.
	RedisEnabled bool `env:"REDIS_ENABLED" envDefault:"false"`

	// KeyPrefix namespaces keys written to Redis.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"jobcore:cache"`

	// BillingTTL is the default TTL applied to cached billing provider responses.
	BillingTTL time.Duration `env:"BILLING_TTL" envDefault:"1h"`
}

// Sanitize applies guardrails to cache configuration values.
func (c *CacheConfig) Sanitize() {
	c.KeyPrefix = strings.TrimSuffix(strings.TrimSpace(c.KeyPrefix), ":")
	if c.KeyPrefix == "" {
		c.KeyPrefix = "jobcore:cache"
	}
	if c.BillingTTL < 0 {
		c.BillingTTL = 0
	}
}
