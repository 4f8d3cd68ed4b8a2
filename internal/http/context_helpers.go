package httpx

import (
	"context"

	domainauth "github.com/creatorhub/jobcore/internal/domain/auth"
	"github.com/creatorhub/jobcore/internal/domain/model"
)

// principalKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type principalKey struct{}

type jobKey struct{}

// SetPrincipalInContext returns a child context that carries the resolved caller.
func SetPrincipalInContext(ctx context.Context, p domainauth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller and a boolean indicating presence.
func PrincipalFromContext(ctx context.Context) (domainauth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domainauth.Principal)
	return p, ok
}

// setJobInContext stores the job loaded by RequireJobOwner so handlers don't fetch it twice.
func setJobInContext(ctx context.Context, job *model.Job) context.Context {
	if job == nil {
		return ctx
	}
	return context.WithValue(ctx, jobKey{}, job)
}

// jobFromContext returns the job loaded by RequireJobOwner, if any.
func jobFromContext(ctx context.Context) (*model.Job, bool) {
	job, ok := ctx.Value(jobKey{}).(*model.Job)
	return job, ok && job != nil
}
