package config

import (
	"strings"
	"time"
)

// WebhookConfig contains webhook idempotency ledger configuration.
type WebhookConfig struct {
	// SigningSecret verifies the X-Signature header on inbound deliveries.
	// When empty every delivery is rejected.
	SigningSecret string `env:"SIGNING_SECRET"`

	// RetentionDays is how long processed events are kept.
	RetentionDays int `env:"RETENTION_DAYS" envDefault:"90"`

	// MaxRetries caps redelivery attempts for a failing event.
	MaxRetries int `env:"MAX_RETRIES" envDefault:"5"`

	// RetryBatch caps how many events a redelivery pass picks up.
	RetryBatch int `env:"RETRY_BATCH" envDefault:"100"`

	// RetryWindow limits redelivery to recently received events.
	RetryWindow time.Duration `env:"RETRY_WINDOW" envDefault:"24h"`

	// RetryInterval is the redelivery loop interval.
	RetryInterval time.Duration `env:"RETRY_INTERVAL" envDefault:"5m"`

	// RateLimit is the sustained inbound deliveries per second.
	RateLimit float64 `env:"RATE_LIMIT" envDefault:"50"`

	// RateBurst is the inbound burst size.
	RateBurst int `env:"RATE_BURST" envDefault:"100"`
}

// Sanitize applies guardrails to webhook configuration values.
func (w *WebhookConfig) Sanitize() {
	w.SigningSecret = strings.TrimSpace(w.SigningSecret)
	if w.RetentionDays < 1 {
		w.RetentionDays = 1
	}
	if w.MaxRetries < 0 {
		w.MaxRetries = 0
	}
	if w.RetryBatch < 1 {
		w.RetryBatch = 1
	}
	if w.RetryBatch > 1000 {
		w.RetryBatch = 1000
	}
	if w.RetryWindow <= 0 {
		w.RetryWindow = 24 * time.Hour
	}
	if w.RetryInterval < 10*time.Second {
		w.RetryInterval = 10 * time.Second
	}
	if w.RateLimit <= 0 {
		w.RateLimit = 50
	}
	if w.RateBurst < 1 {
		w.RateBurst = 1
	}
}
