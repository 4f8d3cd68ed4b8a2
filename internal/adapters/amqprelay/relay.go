// Package amqprelay republishes job change snapshots to a RabbitMQ topic exchange.
package amqprelay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	domainjob "github.com/creatorhub/jobcore/internal/domain/job"
	"github.com/creatorhub/jobcore/internal/domain/model"
	"github.com/creatorhub/jobcore/internal/observability/statsd"
)

// Publisher sends one message to the exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// RelayOptions configures a Relay.
type RelayOptions struct {
	Changes        domainjob.ChangeSubscriber // Required
	Publisher      Publisher                  // Required
	PublishTimeout time.Duration
	Logger         *slog.Logger
	Metrics        statsd.Sink
}

// Relay forwards every job change from the hub to AMQP. Delivery is best-effort:
// a failed publish is logged and the snapshot dropped.
type Relay struct {
	changes   domainjob.ChangeSubscriber
	publisher Publisher
	timeout   time.Duration
	logger    *slog.Logger
	metrics   statsd.Sink
}

// NewRelay constructs a relay.
func NewRelay(opts RelayOptions) (*Relay, error) {
	if opts.Changes == nil {
		return nil, errors.New("change subscriber is required")
	}
	if opts.Publisher == nil {
		return nil, errors.New("publisher is required")
	}
	timeout := opts.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		changes:   opts.Changes,
		publisher: opts.Publisher,
		timeout:   timeout,
		logger:    logger.With("component", "amqp_relay"),
		metrics:   opts.Metrics,
	}, nil
}

// RoutingKey returns "jobs.owner.<owner>.<type>". Dots in the owner id are replaced
// so the owner always occupies exactly one topic segment.
func RoutingKey(change model.JobChange) string {
	owner := strings.ReplaceAll(change.OwnerID, ".", "_")
	return model.OwnerTopic(owner) + "." + string(change.Type)
}

// Run relays changes until ctx is cancelled or the hub closes the subscription.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting job change relay")
	unsub, ch := r.changes.SubscribeAll()
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-ch:
			if !ok {
				return nil
			}
			r.relay(ctx, change)
		}
	}
}

func (r *Relay) relay(ctx context.Context, change model.JobChange) {
	body, err := json.Marshal(change)
	if err != nil {
		r.logger.ErrorContext(ctx, "encode job change", "job_id", change.JobID, "error", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result := "success"
	if err := r.publisher.Publish(pubCtx, RoutingKey(change), body); err != nil {
		result = "error"
		r.logger.WarnContext(ctx, "job change relay failed", "job_id", change.JobID, "error", err)
	}
	if r.metrics != nil {
		r.metrics.Count("notify.relay", 1, map[string]string{"result": result})
	}
}
