package ports_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/creatorhub/jobcore/internal/adapters/authroles"
	"github.com/creatorhub/jobcore/internal/adapters/oidc"
	domainauth "github.com/creatorhub/jobcore/internal/domain/auth"
	mocks "github.com/creatorhub/jobcore/internal/mocks/auth"
	"github.com/creatorhub/jobcore/internal/ports"
)

var (
	_ ports.TokenVerifier = (*mocks.MockTokenVerifier)(nil)
	_ ports.TokenVerifier = (*oidc.Verifier)(nil)
	_ ports.RoleMapper    = authroles.StaticRoleMapper{}
	_ ports.RoleMapper    = ports.RoleMapperFunc(nil)
)

func TestRoleMapperFunc(t *testing.T) {
	var seen []string
	m := ports.RoleMapperFunc(func(groups []string) domainauth.Role {
		seen = groups
		return domainauth.RoleWorker
	})
	assert.Equal(t, domainauth.RoleWorker, m.Map([]string{"render-fleet"}))
	assert.Equal(t, []string{"render-fleet"}, seen)
}
