package metrics

import (
	"time"

	"github.com/creatorhub/jobcore/internal/observability/statsd"
)

// SweepMetric describes one sweeper step invocation.
type SweepMetric struct {
	Step     string
	Affected int64
	Duration time.Duration
	Err      error
}

// EmitSweepStep emits per-step sweeper counters and timings.
func EmitSweepStep(sink statsd.Sink, in SweepMetric) {
	if sink == nil {
		return
	}

	result := ResultSuccess
	switch {
	case in.Err != nil:
		result = ResultError
	case in.Affected == 0:
		result = ResultNoop
	}

	tags := func() map[string]string {
		return map[string]string{"step": in.Step, "result": result, "error_class": errorClass(in.Err)}
	}
	sink.Count("sweeper.step", 1, tags())
	if in.Affected > 0 {
		sink.Count("sweeper.rows", in.Affected, tags())
	}
	if in.Duration > 0 {
		sink.Timing("sweeper.step_duration", in.Duration, tags())
	}
}

// WebhookMetric describes one webhook ingest or redelivery attempt.
type WebhookMetric struct {
	Category    string
	Outcome     string
	Invalidated int64
	Err         error
}

// Webhook ingest outcomes.
const (
	WebhookOutcomeProcessed = "processed"
	WebhookOutcomeDuplicate = "duplicate"
	WebhookOutcomeFailed    = "failed"
	WebhookOutcomeRejected  = "rejected"
)

// EmitWebhook emits webhook ledger outcome counters.
func EmitWebhook(sink statsd.Sink, in WebhookMetric) {
	if sink == nil {
		return
	}

	category := in.Category
	if category == "" {
		category = "unknown"
	}
	tags := map[string]string{"category": category, "outcome": in.Outcome, "error_class": errorClass(in.Err)}

	sink.Count("webhook.event", 1, tags)
	if in.Invalidated > 0 {
		sink.Count("webhook.cache_invalidated", in.Invalidated, map[string]string{"category": category})
	}
}

// EmitCacheLookup records a TTL cache hit or miss per category and tier.
func EmitCacheLookup(sink statsd.Sink, category, tier string, hit bool) {
	if sink == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	sink.Count("cache.lookup", 1, map[string]string{
		"category": category,
		"tier":     tier,
		"result":   result,
	})
}
