package config

import (
	"fmt"
	"strings"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOIDC verifies owner bearer tokens as OIDC ID tokens.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeDev trusts the X-Owner-ID header (for development only).
	AuthModeDev AuthMode = "dev"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "oidc", "dev":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oidc, dev)", v)
	}
}

// OIDCConfig contains OIDC issuer configuration used to verify owner ID tokens.
type OIDCConfig struct {
	IssuerURL string `env:"ISSUER_URL"`
	ClientID  string `env:"CLIENT_ID"  envDefault:"jobcore"`

	// AdminGroup grants admin trust to members; OwnerGroup, when set, restricts owner access to members.
	AdminGroup string `env:"ADMIN_GROUP"`
	OwnerGroup string `env:"OWNER_GROUP"`

	// UserInfoFallback accepts opaque access tokens by resolving them at the userinfo endpoint.
	UserInfoFallback bool `env:"USERINFO_FALLBACK" envDefault:"false"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines how owner identities are resolved.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oidc"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"AUTH_OIDC_"`

	// WorkerTokens are static bearer tokens granting worker trust.
	WorkerTokens []string `env:"AUTH_WORKER_TOKENS" envSeparator:","`

	// AdminTokens are static bearer tokens granting maintenance trust.
	AdminTokens []string `env:"AUTH_ADMIN_TOKENS" envSeparator:","`
}

// Sanitize trims token lists and drops empty entries.
func (a *AuthConfig) Sanitize() {
	a.WorkerTokens = compactStrings(a.WorkerTokens)
	a.AdminTokens = compactStrings(a.AdminTokens)
	a.OIDC.IssuerURL = strings.TrimSpace(a.OIDC.IssuerURL)
}

func compactStrings(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
