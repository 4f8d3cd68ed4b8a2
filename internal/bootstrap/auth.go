package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/creatorhub/jobcore/config"
	"github.com/creatorhub/jobcore/internal/adapters/authroles"
	"github.com/creatorhub/jobcore/internal/adapters/devauth"
	"github.com/creatorhub/jobcore/internal/adapters/oidc"
	"github.com/creatorhub/jobcore/internal/service"
)

// AuthConfig contains configuration for auth service.
type AuthConfig struct {
	Auth   config.AuthConfig
	Logger *slog.Logger
}

// BuildAuthService creates an auth service based on the configured auth mode.
// Static worker and admin tokens are honoured in every mode. In oidc mode without an
// issuer only static tokens authenticate.
func BuildAuthService(ctx context.Context, cfg AuthConfig) (*service.AuthService, error) {
	roleMapper := authroles.StaticRoleMapper{
		AdminGroup: cfg.Auth.OIDC.AdminGroup,
		OwnerGroup: cfg.Auth.OIDC.OwnerGroup,
	}
	opts := service.AuthServiceOptions{
		Roles:        roleMapper,
		WorkerTokens: cfg.Auth.WorkerTokens,
		AdminTokens:  cfg.Auth.AdminTokens,
	}

	switch cfg.Auth.Mode {
	case config.AuthModeDev:
		opts.Verifier = devauth.NewVerifier(devauth.Config{})
		opts.TrustOwnerHeader = true
		if cfg.Logger != nil {
			cfg.Logger.Warn("dev auth enabled: owner header and raw bearer subjects are trusted")
		}

	case config.AuthModeOIDC, "":
		if cfg.Auth.OIDC.IssuerURL == "" {
			if cfg.Logger != nil {
				cfg.Logger.Warn("oidc issuer not configured, owner tokens will be rejected")
			}
			break
		}
		verifier, err := oidc.NewVerifier(ctx, oidc.VerifierConfig{
			IssuerURL:        cfg.Auth.OIDC.IssuerURL,
			ClientID:         cfg.Auth.OIDC.ClientID,
			UserInfoFallback: cfg.Auth.OIDC.UserInfoFallback,
		})
		if err != nil {
			return nil, fmt.Errorf("create oidc verifier: %w", err)
		}
		opts.Verifier = verifier

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}

	return service.NewAuthService(opts), nil
}
