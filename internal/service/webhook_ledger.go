package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/creatorhub/jobcore/internal/core"
	"github.com/creatorhub/jobcore/internal/domain/model"
	"github.com/creatorhub/jobcore/internal/domain/webhook"
	apperrors "github.com/creatorhub/jobcore/internal/errors"
	"github.com/creatorhub/jobcore/internal/observability/metrics"
	"github.com/creatorhub/jobcore/internal/observability/statsd"
)

const (
	defaultWebhookRetentionDays = 90
	defaultWebhookMaxRetries    = 5
)

// CacheInvalidator removes cache keys matching a glob.
type CacheInvalidator interface {
	InvalidatePattern(ctx context.Context, category model.CacheCategory, pattern string) (int64, error)
}

// EventProcessor applies a delivered event to application state.
type EventProcessor interface {
	Process(ctx context.Context, category webhook.EventCategory, ev *model.WebhookEvent) error
}

// EventProcessorFunc adapts a function to EventProcessor.
type EventProcessorFunc func(ctx context.Context, category webhook.EventCategory, ev *model.WebhookEvent) error

// Process calls f.
func (f EventProcessorFunc) Process(ctx context.Context, category webhook.EventCategory, ev *model.WebhookEvent) error {
	return f(ctx, category, ev)
}

// WebhookLedgerConfig holds ledger limits.
type WebhookLedgerConfig struct {
	RetentionDays int
	MaxRetries    int
	RetryBatch    int
	RetryWindow   time.Duration
}

// WebhookLedgerOptions groups dependencies for WebhookLedger.
type WebhookLedgerOptions struct {
	Repo      core.WebhookRepository // Required: ledger store
	Cache     CacheInvalidator       // Optional: billing cache invalidation is skipped without it
	Processor EventProcessor         // Optional: events are only logged and invalidated without it
	Config    WebhookLedgerConfig
	Logger    *slog.Logger // Optional: structured logger
	Metrics   statsd.Sink  // Optional: metrics sink
}

// IngestResult is what the receiver reports back to the sender.
type IngestResult struct {
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate"`
}

// WebhookLedger records each externally delivered event once and drives its processing.
type WebhookLedger struct {
	repo      core.WebhookRepository
	cache     CacheInvalidator
	processor EventProcessor
	cfg       WebhookLedgerConfig
	logger    *slog.Logger
	metrics   statsd.Sink
}

// NewWebhookLedger constructs a new WebhookLedger.
func NewWebhookLedger(opts WebhookLedgerOptions) (*WebhookLedger, error) {
	if opts.Repo == nil {
		return nil, errors.New("WebhookRepository is required")
	}
	cfg := opts.Config
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = defaultWebhookRetentionDays
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultWebhookMaxRetries
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookLedger{
		repo:      opts.Repo,
		cache:     opts.Cache,
		processor: opts.Processor,
		cfg:       cfg,
		logger:    logger.With("component", "webhook_ledger"),
		metrics:   opts.Metrics,
	}, nil
}

// LogEvent records a delivery. Redeliveries of a known external id return the original row.
func (l *WebhookLedger) LogEvent(ctx context.Context, req *model.LogEventRequest) (*model.LogEventResult, error) {
	if req == nil {
		return nil, apperrors.Validation("event is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}
	res, err := l.repo.LogEvent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("log webhook event %s: %w", req.ExternalID, err)
	}
	return res, nil
}

// MarkProcessed records the outcome of one processing attempt.
func (l *WebhookLedger) MarkProcessed(ctx context.Context, externalID string, processErr error) (*model.WebhookEvent, error) {
	ev, err := l.repo.MarkProcessed(ctx, externalID, processErr)
	if err != nil {
		if errors.Is(err, model.ErrWebhookEventNotFound) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeNotFound, "webhook event not found")
		}
		return nil, fmt.Errorf("mark webhook event %s: %w", externalID, err)
	}
	return ev, nil
}

// RetryEligible lists unprocessed events under maxRetries within the retry window, oldest first.
// A maxRetries <= 0 uses the configured cap.
func (l *WebhookLedger) RetryEligible(ctx context.Context, maxRetries int) ([]*model.WebhookEvent, error) {
	if maxRetries <= 0 {
		maxRetries = l.cfg.MaxRetries
	}
	events, err := l.repo.RetryEligible(ctx, model.WebhookRetryQuery{
		MaxRetries: maxRetries,
		Window:     l.cfg.RetryWindow,
		Limit:      l.cfg.RetryBatch,
	})
	if err != nil {
		return nil, fmt.Errorf("list retryable webhook events: %w", err)
	}
	return events, nil
}

// PurgeOld deletes processed events older than days. A days <= 0 uses the configured retention.
func (l *WebhookLedger) PurgeOld(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = l.cfg.RetentionDays
	}
	n, err := l.repo.PurgeProcessed(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		return 0, fmt.Errorf("purge webhook events: %w", err)
	}
	return n, nil
}

// InvalidateOnEvent removes the billing cache keys an event makes stale and returns how many
// were removed. Unknown event types are logged and invalidate nothing.
func (l *WebhookLedger) InvalidateOnEvent(ctx context.Context, eventType, objectID string) (int64, error) {
	category, ok := webhook.Classify(eventType)
	if !ok {
		l.logger.WarnContext(ctx, "unrecognized webhook event type, skipping invalidation", "event_type", eventType)
		return 0, nil
	}
	return l.invalidate(ctx, category, objectID)
}

func (l *WebhookLedger) invalidate(ctx context.Context, category webhook.EventCategory, objectID string) (int64, error) {
	if l.cache == nil {
		return 0, nil
	}
	patterns, err := webhook.Patterns(category, objectID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, p := range patterns {
		n, err := l.cache.InvalidatePattern(ctx, model.CacheCategoryBilling, p)
		if err != nil {
			return total, fmt.Errorf("invalidate %q: %w", p, err)
		}
		total += n
	}
	return total, nil
}

// Ingest is the receiver path. The sender is acknowledged once the event is logged; processing
// failures are recorded on the event for redelivery and never returned.
func (l *WebhookLedger) Ingest(ctx context.Context, req *model.LogEventRequest) (*IngestResult, error) {
	logged, err := l.LogEvent(ctx, req)
	if err != nil {
		metrics.EmitWebhook(l.metrics, metrics.WebhookMetric{Outcome: metrics.WebhookOutcomeRejected, Err: err})
		return nil, err
	}
	if !logged.Created {
		category, _ := webhook.Classify(req.EventType)
		metrics.EmitWebhook(l.metrics, metrics.WebhookMetric{
			Category: string(category),
			Outcome:  metrics.WebhookOutcomeDuplicate,
		})
		l.logger.DebugContext(ctx, "duplicate webhook delivery", "external_id", req.ExternalID)
		return &IngestResult{ID: logged.ID, Duplicate: true}, nil
	}

	ev := &model.WebhookEvent{
		ID:         logged.ID,
		ExternalID: req.ExternalID,
		EventType:  req.EventType,
		Payload:    req.Payload,
	}
	l.process(ctx, ev)
	return &IngestResult{ID: logged.ID}, nil
}

// Redeliver reprocesses retry-eligible events and returns how many succeeded.
func (l *WebhookLedger) Redeliver(ctx context.Context) (int, error) {
	events, err := l.RetryEligible(ctx, 0)
	if err != nil {
		return 0, err
	}
	succeeded := 0
	for _, ev := range events {
		if ctx.Err() != nil {
			return succeeded, ctx.Err()
		}
		if l.process(ctx, ev) {
			succeeded++
		}
	}
	if len(events) > 0 {
		l.logger.InfoContext(ctx, "webhook redelivery pass", "eligible", len(events), "succeeded", succeeded)
	}
	return succeeded, nil
}

// process runs extraction, invalidation and the processor, then records the outcome.
func (l *WebhookLedger) process(ctx context.Context, ev *model.WebhookEvent) bool {
	category, known := webhook.Classify(ev.EventType)
	var (
		invalidated int64
		procErr     error
	)
	if known {
		invalidated, procErr = l.applyEvent(ctx, category, ev)
	} else {
		l.logger.WarnContext(ctx, "unrecognized webhook event type, skipping invalidation",
			"event_type", ev.EventType,
			"external_id", ev.ExternalID,
		)
	}

	if _, err := l.repo.MarkProcessed(ctx, ev.ExternalID, procErr); err != nil {
		l.logger.ErrorContext(ctx, "failed to record webhook outcome", "external_id", ev.ExternalID, "error", err)
	}

	outcome := metrics.WebhookOutcomeProcessed
	if procErr != nil {
		outcome = metrics.WebhookOutcomeFailed
		l.logger.WarnContext(ctx, "webhook processing failed",
			"external_id", ev.ExternalID,
			"event_type", ev.EventType,
			"error", procErr,
		)
	}
	metrics.EmitWebhook(l.metrics, metrics.WebhookMetric{
		Category:    string(category),
		Outcome:     outcome,
		Invalidated: invalidated,
		Err:         procErr,
	})
	return procErr == nil
}

func (l *WebhookLedger) applyEvent(
	ctx context.Context,
	category webhook.EventCategory,
	ev *model.WebhookEvent,
) (int64, error) {
	objectID, err := webhook.ExtractObjectID(category, ev.Payload)
	if err != nil {
		return 0, fmt.Errorf("extract object id: %w", err)
	}
	invalidated, err := l.invalidate(ctx, category, objectID)
	if err != nil {
		return invalidated, err
	}
	if l.processor != nil {
		if err := l.processor.Process(ctx, category, ev); err != nil {
			return invalidated, fmt.Errorf("process %s: %w", ev.EventType, err)
		}
	}
	return invalidated, nil
}

// DecodeEventEnvelope reads the sender's id and type from a raw delivery body.
func DecodeEventEnvelope(body []byte) (*model.LogEventRequest, error) {
	req := &model.LogEventRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		return nil, apperrors.Validation("webhook body must be a JSON object")
	}
	req.Payload = json.RawMessage(body)
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}
	return req, nil
}
