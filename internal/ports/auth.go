// Package ports holds the interfaces the auth service depends on. Adapters in
// internal/adapters implement them.
package ports

import (
	"context"

	domainauth "github.com/creatorhub/jobcore/internal/domain/auth"
)

// TokenVerifier checks a bearer token and returns who it was issued to.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (domainauth.Identity, error)
}

// RoleMapper turns identity-provider groups into a trust level.
type RoleMapper interface {
	Map(groups []string) domainauth.Role
}

// RoleMapperFunc adapts a plain function to RoleMapper.
type RoleMapperFunc func(groups []string) domainauth.Role

func (f RoleMapperFunc) Map(groups []string) domainauth.Role { return f(groups) }
