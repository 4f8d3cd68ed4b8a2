package oidc

// Package oidc verifies owner bearer tokens against an OIDC issuer.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/creatorhub/jobcore/internal/domain/auth"
	"github.com/creatorhub/jobcore/internal/ports"
)

var _ ports.TokenVerifier = (*Verifier)(nil)

// VerifierConfig holds configuration for the OIDC verifier.
type VerifierConfig struct {
	IssuerURL string
	ClientID  string
	// UserInfoFallback resolves tokens that fail ID token verification at the userinfo endpoint.
	UserInfoFallback bool
	HTTPClient       *http.Client // Optional, defaults to a client with a 30s timeout
}

// Verifier implements ports.TokenVerifier using go-oidc.
type Verifier struct {
	httpClient       *http.Client
	oidcProvider     *gooidc.Provider
	verifier         *gooidc.IDTokenVerifier
	userInfoFallback bool
}

// NewVerifier discovers the issuer and builds an ID token verifier.
func NewVerifier(ctx context.Context, cfg VerifierConfig) (*Verifier, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.IssuerURL == "" {
		return nil, errors.New("issuer URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	issuer := strings.TrimSuffix(cfg.IssuerURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(withHTTPClient(ctx, httpClient), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	return &Verifier{
		httpClient:       httpClient,
		oidcProvider:     op,
		verifier:         op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		userInfoFallback: cfg.UserInfoFallback,
	}, nil
}

// Verify checks the token's signature, issuer, audience and expiry and maps its claims.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (domainauth.Identity, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domainauth.Identity{}, errors.New("token is required")
	}
	ctx = withHTTPClient(ctx, v.httpClient)

	idTok, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		if !v.userInfoFallback {
			return domainauth.Identity{}, fmt.Errorf("verify id_token: %w", err)
		}
		return v.fromUserInfo(ctx, rawToken)
	}

	var c tokenClaims
	if claimsErr := idTok.Claims(&c); claimsErr != nil {
		return domainauth.Identity{}, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	id := mapClaims(c)
	id.ExpiresAt = idTok.Expiry
	if id.UserID == "" {
		return domainauth.Identity{}, errors.New("id_token has no subject")
	}
	return id, nil
}

func (v *Verifier) fromUserInfo(ctx context.Context, accessToken string) (domainauth.Identity, error) {
	ui, err := v.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("fetch user info: %w", err)
	}
	var c tokenClaims
	if claimsErr := ui.Claims(&c); claimsErr != nil {
		return domainauth.Identity{}, fmt.Errorf("decode user info: %w", claimsErr)
	}
	id := mapClaims(c)
	if id.UserID == "" {
		return domainauth.Identity{}, errors.New("user info has no subject")
	}
	// userinfo carries no expiry; trust it for the request only
	id.ExpiresAt = time.Now().Add(time.Minute)
	return id, nil
}

// withHTTPClient installs the client go-oidc uses for discovery, JWKS and userinfo requests.
func withHTTPClient(ctx context.Context, client *http.Client) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

// tokenClaims is a superset of standard OIDC and common IdP group claim shapes.
type tokenClaims struct {
	Sub      string   `json:"sub"`
	Email    string   `json:"email"`
	Groups   []string `json:"groups"`
	MemberOf []string `json:"memberof"`
}

// mapClaims maps raw claims into an Identity using precedence rules.
func mapClaims(c tokenClaims) domainauth.Identity {
	groups := c.Groups
	if len(groups) == 0 {
		groups = c.MemberOf
	}
	return domainauth.Identity{
		UserID: c.Sub,
		Email:  c.Email,
		Groups: groups,
	}
}
