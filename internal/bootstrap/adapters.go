package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/creatorhub/jobcore/config"
	"github.com/creatorhub/jobcore/internal/adapters/amqprelay"
	"github.com/creatorhub/jobcore/internal/adapters/jobrunner"
	"github.com/creatorhub/jobcore/internal/adapters/sweeper"
	"github.com/creatorhub/jobcore/internal/adapters/webhookretry"
)

// WorkerConfig contains configuration for the in-process worker pool.
type WorkerConfig struct {
	Worker   config.WorkerConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunWorker claims jobs of every type with a dispatch URL and forwards them over HTTP.
func RunWorker(ctx context.Context, cfg WorkerConfig) error {
	handlers, err := jobrunner.NewHTTPDispatchHandlers(
		cfg.Worker.DispatchURLs,
		&http.Client{},
		cfg.Worker.DispatchTimeout,
	)
	if err != nil {
		return fmt.Errorf("build dispatch handlers: %w", err)
	}

	opts := jobrunner.RunnerOptions{
		Jobs:         cfg.Services.Jobs,
		Handlers:     handlers,
		Concurrency:  cfg.Worker.Concurrency,
		PollInterval: cfg.Worker.PollInterval,
		IDPrefix:     cfg.Worker.IDPrefix,
		Logger:       cfg.Logger,
		Metrics:      cfg.Services.Observability.Sink,
	}
	if cfg.Services.Changes != nil {
		opts.Changes = cfg.Services.Changes
	}
	runner, err := jobrunner.NewRunner(opts)
	if err != nil {
		return fmt.Errorf("create job runner: %w", err)
	}

	if runErr := runner.Run(ctx); runErr != nil {
		return fmt.Errorf("run job runner: %w", runErr)
	}
	return nil
}

// SweeperConfig contains configuration for the maintenance loop.
type SweeperConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// NewSweeperRunner builds the maintenance runner over the shared services.
func NewSweeperRunner(cfg SweeperConfig) (*sweeper.Runner, error) {
	return sweeper.NewRunner(sweeper.RunnerOptions{
		Config:               cfg.Config.Sweeper,
		WebhookRetentionDays: cfg.Config.Webhook.RetentionDays,
		Logger:               cfg.Logger,
		Metrics:              cfg.Services.Observability.Sink,
		Repo:                 cfg.Services.SweeperRepo,
		Webhooks:             cfg.Services.Webhooks,
		Cache:                cfg.Services.Cache,
	})
}

// RunSweeper starts the periodic maintenance loop.
func RunSweeper(ctx context.Context, cfg SweeperConfig) error {
	runner, err := NewSweeperRunner(cfg)
	if err != nil {
		return fmt.Errorf("create sweeper runner: %w", err)
	}
	return runner.Run(ctx)
}

// WebhookRetryConfig contains configuration for webhook redelivery.
type WebhookRetryConfig struct {
	Interval time.Duration
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunWebhookRetry periodically reprocesses deliveries whose processing failed.
func RunWebhookRetry(ctx context.Context, cfg WebhookRetryConfig) error {
	runner, err := webhookretry.NewRunner(webhookretry.RunnerOptions{
		Ledger:   cfg.Services.Webhooks,
		Interval: cfg.Interval,
		Logger:   cfg.Logger,
		Metrics:  cfg.Services.Observability.Sink,
	})
	if err != nil {
		return fmt.Errorf("create webhook retry runner: %w", err)
	}
	return runner.Run(ctx)
}

// NotifyRelayConfig contains configuration for the AMQP relay.
type NotifyRelayConfig struct {
	Relay    config.NotifyRelayConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunNotifyRelay publishes every job change to the configured topic exchange.
func RunNotifyRelay(ctx context.Context, cfg NotifyRelayConfig) error {
	publisher, err := connectPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil && cfg.Logger != nil {
			cfg.Logger.Warn("close amqp publisher", "error", closeErr)
		}
	}()

	relay, err := amqprelay.NewRelay(amqprelay.RelayOptions{
		Changes:        cfg.Services.Changes,
		Publisher:      publisher,
		PublishTimeout: cfg.Relay.PublishTimeout,
		Logger:         cfg.Logger,
		Metrics:        cfg.Services.Observability.Sink,
	})
	if err != nil {
		return fmt.Errorf("create notify relay: %w", err)
	}
	return relay.Run(ctx)
}

// connectPublisher retries the initial broker connection every ReconnectDelay until ctx ends.
func connectPublisher(ctx context.Context, cfg NotifyRelayConfig) (*amqprelay.AMQPPublisher, error) {
	for {
		publisher, err := amqprelay.NewAMQPPublisher(amqprelay.PublisherConfig{
			URL:      cfg.Relay.URL,
			Exchange: cfg.Relay.Exchange,
			Logger:   cfg.Logger,
		})
		if err == nil {
			return publisher, nil
		}
		if cfg.Logger != nil {
			cfg.Logger.Warn("amqp connect failed, retrying", "error", err, "delay", cfg.Relay.ReconnectDelay)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("create amqp publisher: %w", errors.Join(err, ctx.Err()))
		case <-time.After(cfg.Relay.ReconnectDelay):
		}
	}
}
