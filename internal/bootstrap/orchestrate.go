package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/creatorhub/jobcore/config"
)

// ServiceOrchestrationConfig contains everything needed to run the enabled services.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	DB       *sql.DB
	Logger   *slog.Logger
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig, logger *slog.Logger) []backgroundService {
	return []backgroundService{
		{
			mode: config.ServiceModeSweeper,
			name: "sweeper",
			start: func(ctx context.Context) error {
				return RunSweeper(ctx, SweeperConfig{Config: cfg.Config, Services: cfg.Services, Logger: logger})
			},
		},
		{
			mode: config.ServiceModeWorker,
			name: "job worker",
			start: func(ctx context.Context) error {
				return RunWorker(ctx, WorkerConfig{Worker: cfg.Config.Worker, Services: cfg.Services, Logger: logger})
			},
		},
		{
			mode: config.ServiceModeWebhookRetry,
			name: "webhook retry",
			start: func(ctx context.Context) error {
				return RunWebhookRetry(ctx, WebhookRetryConfig{
					Interval: cfg.Config.Webhook.RetryInterval,
					Services: cfg.Services,
					Logger:   logger,
				})
			},
		},
		{
			mode: config.ServiceModeNotifyRelay,
			name: "notify relay",
			start: func(ctx context.Context) error {
				return RunNotifyRelay(ctx, NotifyRelayConfig{
					Relay:    cfg.Config.NotifyRelay,
					Services: cfg.Services,
					Logger:   logger,
				})
			},
		},
	}
}

// selectBackgroundServices keeps the descriptors whose mode is enabled.
func selectBackgroundServices(all []backgroundService, enabled map[config.ServiceMode]bool) []backgroundService {
	out := make([]backgroundService, 0, len(all))
	for _, svc := range all {
		if enabled[svc.mode] {
			out = append(out, svc)
		}
	}
	return out
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// It blocks until SIGINT/SIGTERM, until ctx is cancelled, or until a service fails;
// the first failure stops every other service and is returned.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if enabledServices[config.ServiceModeHTTP] {
		server := NewHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			DB:       cfg.DB,
			Logger:   logger,
		})
		shutdown := ShutdownConfig{Timeout: cfg.Config.HTTP.ShutdownTimeout, Logger: logger}
		if cfg.Services.Changes != nil {
			shutdown.Changes = cfg.Services.Changes
		}
		g.Go(func() error {
			if err := serveHTTP(gctx, server, shutdown); err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	for _, svc := range selectBackgroundServices(buildBackgroundServices(cfg, logger), enabledServices) {
		g.Go(func() error {
			logger.Info("starting " + svc.name)
			if err := svc.start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s: %w", svc.name, err)
			}
			logger.Info(svc.name + " stopped")
			return nil
		})
	}

	err = g.Wait()
	if cfg.Services.Changes != nil {
		cfg.Services.Changes.StopAll()
	}
	if err != nil {
		logger.Error("service error", "error", err)
		return err
	}
	logger.Info("all services stopped")
	return nil
}
