// Package webhookretry periodically redelivers webhook events whose processing failed.
package webhookretry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/creatorhub/jobcore/internal/observability/statsd"
)

// Redeliverer reprocesses failed, unprocessed events and reports how many it picked up.
type Redeliverer interface {
	Redeliver(ctx context.Context) (int, error)
}

// RunnerOptions configures the redelivery loop.
type RunnerOptions struct {
	Ledger   Redeliverer   // Required
	Interval time.Duration // defaults to 5m
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// Runner drives Redeliver on a fixed interval.
type Runner struct {
	ledger   Redeliverer
	interval time.Duration
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewRunner creates a new redelivery runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Ledger == nil {
		return nil, errors.New("webhook ledger is required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		ledger:   opts.Ledger,
		interval: interval,
		logger:   logger.With("component", "webhook_retry"),
		metrics:  opts.Metrics,
	}, nil
}

// Run loops until ctx is cancelled. Pass failures are logged and never end the loop.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting webhook redelivery", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.Tick(ctx)
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "webhook redelivery stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs one redelivery pass.
func (r *Runner) Tick(ctx context.Context) {
	start := time.Now()
	n, err := r.ledger.Redeliver(ctx)
	if r.metrics != nil {
		r.metrics.Timing("webhook.redeliver_duration", time.Since(start), nil)
		r.metrics.Count("webhook.redelivered", int64(n), nil)
	}
	switch {
	case err != nil && ctx.Err() == nil:
		r.logger.ErrorContext(ctx, "webhook redelivery failed", "error", err, "attempted", n)
	case n > 0:
		r.logger.InfoContext(ctx, "webhook events redelivered", "count", n)
	}
}
