package authroles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/creatorhub/jobcore/internal/domain/auth"
)

func TestStaticRoleMapper_Map(t *testing.T) {
	tests := []struct {
		name   string
		mapper StaticRoleMapper
		groups []string
		want   domainauth.Role
	}{
		{"admin group wins", StaticRoleMapper{AdminGroup: "ops", OwnerGroup: "creators"}, []string{"creators", "ops"}, domainauth.RoleAdmin},
		{"owner group", StaticRoleMapper{AdminGroup: "ops", OwnerGroup: "creators"}, []string{"creators"}, domainauth.RoleOwner},
		{"outside owner group", StaticRoleMapper{OwnerGroup: "creators"}, []string{"viewers"}, domainauth.RoleGuest},
		{"ungated", StaticRoleMapper{}, nil, domainauth.RoleOwner},
		{"case insensitive", StaticRoleMapper{AdminGroup: "Platform-Ops"}, []string{"platform-ops"}, domainauth.RoleAdmin},
		{"group list", StaticRoleMapper{AdminGroup: "ops, sre", OwnerGroup: "creators,partners"}, []string{"partners"}, domainauth.RoleOwner},
		{"second admin in list", StaticRoleMapper{AdminGroup: "ops, sre"}, []string{"sre"}, domainauth.RoleAdmin},
		{"blank entries ignored", StaticRoleMapper{AdminGroup: " , ", OwnerGroup: "creators"}, []string{""}, domainauth.RoleGuest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mapper.Map(tt.groups))
		})
	}
}
