package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/creatorhub/jobcore/config"
	httpx "github.com/creatorhub/jobcore/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	DB       *sql.DB
	Logger   *slog.Logger
}

// NewHTTPServer builds the API server without starting it.
func NewHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	handler := httpx.NewRouter(buildRouterServices(cfg, appCfg, logger))

	addr := appCfg.HTTP.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: appCfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

func buildRouterServices(cfg *HTTPServerConfig, appCfg *config.AppConfig, logger *slog.Logger) httpx.RouterServices {
	svcs := cfg.Services
	rs := httpx.RouterServices{
		Jobs:         svcs.Jobs,
		Results:      svcs.Results,
		Auth:         svcs.Auth,
		MaxBodyBytes: appCfg.HTTP.MaxBodyBytes,
		HealthChecks: map[string]httpx.HealthCheck{},
		Logger:       logger,
	}
	if svcs.Changes != nil {
		rs.Changes = svcs.Changes
	}
	if svcs.Sweeper != nil {
		rs.Sweeper = svcs.Sweeper
	}
	if svcs.Webhooks != nil {
		if appCfg.Webhook.SigningSecret == "" {
			logger.Warn("webhook signing secret not configured, billing deliveries will be rejected")
		}
		rs.Webhooks = svcs.Webhooks
		rs.WebhookSecret = []byte(appCfg.Webhook.SigningSecret)
		rs.WebhookLimiter = rate.NewLimiter(rate.Limit(appCfg.Webhook.RateLimit), appCfg.Webhook.RateBurst)
	}
	if svcs.Observability.Prometheus != nil {
		rs.Metrics = svcs.Observability.Prometheus.Handler()
	}
	if cfg.DB != nil {
		rs.HealthChecks["postgres"] = cfg.DB.PingContext
	}
	if svcs.Cache != nil {
		rs.HealthChecks["cache"] = svcs.Cache.Health
	}
	return rs
}

// serveHTTP runs the server until ctx is cancelled, then shuts it down within the
// configured timeout. Open event streams are released first so Shutdown does not wait on them.
func serveHTTP(ctx context.Context, server *http.Server, cfg ShutdownConfig) error {
	errCh := make(chan error, 1)
	go func() {
		cfg.Logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	cfg.Server = server
	if err := ShutdownHTTPServer(cfg); err != nil {
		return err
	}
	return <-errCh
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Server  *http.Server
	Changes interface{ StopAll() }
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	// Close change subscriptions first so event streams return.
	if cfg.Changes != nil {
		cfg.Changes.StopAll()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
