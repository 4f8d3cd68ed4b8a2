// Package authroles maps identity-provider groups onto trust levels.
package authroles

import (
	"strings"

	domainauth "github.com/creatorhub/jobcore/internal/domain/auth"
)

// StaticRoleMapper grants roles by group membership. Each field holds one group
// or a comma-separated list, compared case-insensitively. Admin membership wins.
// An empty OwnerGroup makes every verified identity an owner.
type StaticRoleMapper struct {
	AdminGroup string
	OwnerGroup string
}

func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	switch {
	case memberOf(groups, m.AdminGroup):
		return domainauth.RoleAdmin
	case strings.TrimSpace(m.OwnerGroup) == "", memberOf(groups, m.OwnerGroup):
		return domainauth.RoleOwner
	default:
		return domainauth.RoleGuest
	}
}

func memberOf(groups []string, allowed string) bool {
	for _, want := range strings.Split(allowed, ",") {
		want = strings.TrimSpace(want)
		if want == "" {
			continue
		}
		for _, g := range groups {
			if strings.EqualFold(strings.TrimSpace(g), want) {
				return true
			}
		}
	}
	return false
}
