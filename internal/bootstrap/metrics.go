package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/creatorhub/jobcore/config"
	"github.com/creatorhub/jobcore/internal/observability/prom"
	"github.com/creatorhub/jobcore/internal/observability/statsd"
)

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	// Sink fans out to every enabled backend. Nil when none is enabled.
	Sink          statsd.Sink
	StatsD        *statsd.Client
	Prometheus    *prom.Sink
	MetricsConfig config.ObservabilityMetricsConfig
}

// Close releases the StatsD socket.
func (o ObservabilityContainer) Close() error {
	if o.StatsD == nil {
		return nil
	}
	return o.StatsD.Close()
}

// BuildObservability creates the configured metric backends.
func BuildObservability(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (ObservabilityContainer, error) {
	out := ObservabilityContainer{MetricsConfig: cfg}

	var sinks []statsd.Sink
	if cfg.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.StatsdAddress,
			Prefix:  cfg.Prefix,
			Logger:  logger,
		})
		if err != nil {
			return out, fmt.Errorf("create statsd client: %w", err)
		}
		out.StatsD = client
		sinks = append(sinks, client)
	}
	if cfg.Prometheus {
		out.Prometheus = prom.NewSink(prom.Config{
			Namespace: cfg.Prefix,
			Logger:    logger,
		})
		sinks = append(sinks, out.Prometheus)
	}

	out.Sink = statsd.NewMultiSink(sinks...)
	if logger != nil {
		logger.Info("metrics configured",
			"statsd", out.StatsD != nil,
			"prometheus", out.Prometheus != nil,
		)
	}
	return out, nil
}
