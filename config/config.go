package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Bearer token and OIDC configuration
//   - database.go: Database, Redis and TTL cache configuration
//   - http.go: HTTP server configuration
//   - jobs.go: Job lifecycle limits and defaults
//   - services.go: Service modes plus sweeper, worker and relay configuration
//   - webhook.go: Webhook ledger configuration
//   - observability.go: Logging and metrics configuration
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or APP_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Authentication configuration
	Auth AuthConfig

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Cache    CacheConfig `envPrefix:"CACHE_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Service mode configuration
	Services string `env:"APP_SERVICES" envDefault:"http"`

	Jobs        JobsConfig        `envPrefix:"JOBS_"`
	Sweeper     SweeperConfig     `envPrefix:"SWEEPER_"`
	Worker      WorkerConfig      `envPrefix:"WORKER_"`
	Webhook     WebhookConfig     `envPrefix:"WEBHOOK_"`
	NotifyRelay NotifyRelayConfig `envPrefix:"NOTIFY_"`

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Auth.Sanitize()
	c.Cache.Sanitize()
	c.Jobs.Sanitize()
	c.Sweeper.Sanitize()
	c.Worker.Sanitize()
	c.Webhook.Sanitize()
	c.NotifyRelay.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()
}

// detectDevMode checks both DEV and APP_ENV environment variables.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

func (c *AppConfig) serviceEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[mode]
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool { return c.serviceEnabled(ServiceModeHTTP) }

// IsSweeperEnabled returns true if the maintenance sweeper loop is enabled.
func (c *AppConfig) IsSweeperEnabled() bool { return c.serviceEnabled(ServiceModeSweeper) }

// IsWorkerEnabled returns true if the in-process job worker pool is enabled.
func (c *AppConfig) IsWorkerEnabled() bool { return c.serviceEnabled(ServiceModeWorker) }

// IsWebhookRetryEnabled returns true if the webhook redelivery loop is enabled.
func (c *AppConfig) IsWebhookRetryEnabled() bool { return c.serviceEnabled(ServiceModeWebhookRetry) }

// IsNotifyRelayEnabled returns true if job change notifications are relayed to AMQP.
func (c *AppConfig) IsNotifyRelayEnabled() bool {
	return c.serviceEnabled(ServiceModeNotifyRelay) && c.NotifyRelay.URL != ""
}
