package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP API.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeSweeper runs the periodic maintenance sweeper.
	ServiceModeSweeper ServiceMode = "sweeper"
	// ServiceModeWorker runs the in-process job worker pool.
	ServiceModeWorker ServiceMode = "worker"
	// ServiceModeWebhookRetry runs webhook redelivery.
	ServiceModeWebhookRetry ServiceMode = "webhook-retry"
	// ServiceModeNotifyRelay relays job change notifications to AMQP.
	ServiceModeNotifyRelay ServiceMode = "notify-relay"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeSweeper,
		ServiceModeWorker,
		ServiceModeWebhookRetry,
		ServiceModeNotifyRelay,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if strings.TrimSpace(servicesStr) == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP,
			ServiceModeSweeper,
			ServiceModeWorker,
			ServiceModeWebhookRetry,
			ServiceModeNotifyRelay:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, sweeper, worker, webhook-retry, notify-relay)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// SweeperConfig contains maintenance sweeper configuration.
type SweeperConfig struct {
	// Interval is the sweeper tick interval.
	Interval time.Duration `env:"INTERVAL" envDefault:"1m"`

	// BatchSize is the maximum number of rows touched per step invocation.
	BatchSize int `env:"BATCH_SIZE" envDefault:"500"`

	// RetryCooldown is how long a failed job must sit before it is retried.
	RetryCooldown time.Duration `env:"RETRY_COOLDOWN" envDefault:"1m"`

	// RetryBaseDelay is multiplied by the attempt number to schedule a retry.
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"5m"`

	// StuckTimeout is how long a job may stay processing before it is failed.
	StuckTimeout time.Duration `env:"STUCK_TIMEOUT" envDefault:"30m"`

	// JobRetention is how long terminal jobs are kept.
	JobRetention time.Duration `env:"JOB_RETENTION" envDefault:"168h"` // 7 days
}

// Sanitize applies guardrails to sweeper configuration values.
func (s *SweeperConfig) Sanitize() {
	if s.Interval < 10*time.Second {
		s.Interval = 10 * time.Second
	}
	if s.BatchSize < 1 {
		s.BatchSize = 1
	}
	if s.BatchSize > 10000 {
		s.BatchSize = 10000
	}
	if s.RetryCooldown < 0 {
		s.RetryCooldown = 0
	}
	if s.RetryBaseDelay <= 0 {
		s.RetryBaseDelay = 5 * time.Minute
	}
	if s.StuckTimeout < time.Minute {
		s.StuckTimeout = time.Minute
	}
	if s.JobRetention < time.Hour {
		s.JobRetention = time.Hour
	}
}

// WorkerConfig contains in-process worker pool configuration.
type WorkerConfig struct {
	// Concurrency is the number of worker goroutines.
	Concurrency int `env:"CONCURRENCY" envDefault:"4"`

	// PollInterval bounds how long an idle worker waits before re-checking for work.
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`

	// IDPrefix prefixes generated worker identifiers.
	IDPrefix string `env:"ID_PREFIX" envDefault:"jobcore"`

	// DispatchURLs maps job types to collaborator endpoints, e.g. "platform_sync=http://sync/run".
	DispatchURLs map[string]string `env:"DISPATCH_URLS" envSeparator:"," envKeyValSeparator:"="`

	// DispatchTimeout bounds a single collaborator call.
	DispatchTimeout time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"10m"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	if w.Concurrency < 1 {
		w.Concurrency = 1
	}
	if w.PollInterval < 100*time.Millisecond {
		w.PollInterval = 100 * time.Millisecond
	}
	if strings.TrimSpace(w.IDPrefix) == "" {
		w.IDPrefix = "jobcore"
	}
	if w.DispatchTimeout <= 0 {
		w.DispatchTimeout = 10 * time.Minute
	}
}

// NotifyRelayConfig controls relaying job change notifications to RabbitMQ.
type NotifyRelayConfig struct {
	// URL is the AMQP URL. The relay is disabled when empty.
	URL string `env:"AMQP_URL"`

	// Exchange is the topic exchange receiving job change snapshots.
	Exchange string `env:"AMQP_EXCHANGE" envDefault:"jobcore.job_changes"`

	// PublishTimeout bounds a single publish.
	PublishTimeout time.Duration `env:"AMQP_PUBLISH_TIMEOUT" envDefault:"5s"`

	// ReconnectDelay is the pause between reconnect attempts.
	ReconnectDelay time.Duration `env:"AMQP_RECONNECT_DELAY" envDefault:"5s"`
}

// Sanitize applies guardrails to relay configuration values.
func (n *NotifyRelayConfig) Sanitize() {
	n.URL = strings.TrimSpace(n.URL)
	if strings.TrimSpace(n.Exchange) == "" {
		n.Exchange = "jobcore.job_changes"
	}
	if n.PublishTimeout <= 0 {
		n.PublishTimeout = 5 * time.Second
	}
	if n.ReconnectDelay <= 0 {
		n.ReconnectDelay = 5 * time.Second
	}
}
