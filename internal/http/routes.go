package httpx

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	domainauth "github.com/creatorhub/jobcore/internal/domain/auth"
	domainjob "github.com/creatorhub/jobcore/internal/domain/job"
	"github.com/creatorhub/jobcore/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs    *service.JobService
	Results *service.ResultCacheService
	Auth    Authenticator
	// Optional: job change fan-out for the event stream and long-poll claims.
	Changes domainjob.ChangeSubscriber
	// Optional: maintenance endpoints are registered only when set.
	Sweeper Sweeper
	// Optional: the billing webhook is registered only when set.
	Webhooks      WebhookIngester
	WebhookSecret []byte
	// Optional: nil disables webhook rate limiting.
	WebhookLimiter *rate.Limiter
	// Optional: GET /metrics is registered only when set.
	Metrics      http.Handler
	HealthChecks map[string]HealthCheck
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// NewRouter creates and configures the API router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	jobHandlers := &JobHandlers{
		Svc:     services.Jobs,
		Results: services.Results,
		Changes: services.Changes,
		Logger:  logger,
	}
	registerOwnerRoutes(mux, jobHandlers, services)
	registerWorkerRoutes(mux, jobHandlers, services.Auth)
	if services.Changes != nil {
		stream := &StreamHandlers{Changes: services.Changes, Logger: logger}
		mux.Handle("GET /api/jobs/stream", chain(http.HandlerFunc(stream.Stream),
			Authenticate(services.Auth), RequireRole(domainauth.RoleOwner)))
	}
	if services.Sweeper != nil {
		h := &MaintenanceHandlers{Sweeper: services.Sweeper, Logger: logger}
		mux.Handle("POST /api/maintenance/{step}", chain(http.HandlerFunc(h.Run),
			Authenticate(services.Auth), RequireRole(domainauth.RoleAdmin)))
	}
	if services.Webhooks != nil {
		h := &WebhookHandlers{Ledger: services.Webhooks, Logger: logger}
		mux.Handle("POST /api/webhooks/billing", chain(http.HandlerFunc(h.Billing),
			RateLimit(services.WebhookLimiter), VerifySignature(services.WebhookSecret)))
	}

	health := &HealthHandler{Checks: services.HealthChecks}
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)
	if services.Metrics != nil {
		mux.Handle("GET /metrics", services.Metrics)
	}

	return chain(mux, Recover(logger), Logging(logger), LimitBody(services.MaxBodyBytes))
}

func registerOwnerRoutes(mux *http.ServeMux, h *JobHandlers, services RouterServices) {
	owner := func(fn http.HandlerFunc) http.Handler {
		return chain(fn, Authenticate(services.Auth), RequireRole(domainauth.RoleOwner))
	}
	jobOwner := func(fn http.HandlerFunc) http.Handler {
		return chain(fn, Authenticate(services.Auth), RequireRole(domainauth.RoleOwner), RequireJobOwner(services.Jobs))
	}
	ownJob := func(fn http.HandlerFunc) http.Handler {
		return chain(fn, Authenticate(services.Auth), RequireRole(domainauth.RoleOwner), RequireOwnJob(services.Jobs))
	}

	mux.Handle("POST /api/jobs", owner(h.Submit))
	mux.Handle("GET /api/jobs", owner(h.List))
	mux.Handle("POST /api/jobs/cached-result", owner(h.CachedResult))
	mux.Handle("GET /api/jobs/{id}", jobOwner(h.Get))
	mux.Handle("GET /api/jobs/{id}/logs", jobOwner(h.Logs))
	mux.Handle("POST /api/jobs/{id}/cancel", ownJob(h.Cancel))
}

func registerWorkerRoutes(mux *http.ServeMux, h *JobHandlers, auth Authenticator) {
	worker := func(fn http.HandlerFunc) http.Handler {
		return chain(fn, Authenticate(auth), RequireRole(domainauth.RoleWorker))
	}

	mux.Handle("POST /api/worker/jobs/claim", worker(h.ClaimNext))
	mux.Handle("POST /api/worker/jobs/{id}/claim", worker(h.Claim))
	mux.Handle("POST /api/worker/jobs/{id}/progress", worker(h.Progress))
	mux.Handle("POST /api/worker/jobs/{id}/complete", worker(h.Complete))
	mux.Handle("POST /api/worker/jobs/{id}/fail", worker(h.Fail))
	mux.Handle("POST /api/worker/jobs/{id}/logs", worker(h.AppendLog))
}
