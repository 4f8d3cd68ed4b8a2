package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	domainauth "github.com/creatorhub/jobcore/internal/domain/auth"
	apperrors "github.com/creatorhub/jobcore/internal/errors"
	"github.com/creatorhub/jobcore/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Verifier ports.TokenVerifier // Optional: owner bearer tokens are rejected without it
	Roles    ports.RoleMapper    // Optional: every verified identity is an owner without it
	// WorkerTokens and AdminTokens are static bearer tokens checked before the verifier.
	WorkerTokens []string
	AdminTokens  []string
	// TrustOwnerHeader accepts the X-Owner-ID header as an owner identity. Development only.
	TrustOwnerHeader bool
}

// AuthService resolves request credentials into a Principal.
type AuthService struct {
	verifier         ports.TokenVerifier
	roles            ports.RoleMapper
	workerTokens     [][sha256.Size]byte
	adminTokens      [][sha256.Size]byte
	trustOwnerHeader bool
}

// Credentials are the raw caller credentials extracted from a request.
type Credentials struct {
	BearerToken string
	OwnerHeader string
}

var errMissingCredentials = errors.New("missing credentials")

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	return &AuthService{
		verifier:         opts.Verifier,
		roles:            opts.Roles,
		workerTokens:     digestTokens(opts.WorkerTokens),
		adminTokens:      digestTokens(opts.AdminTokens),
		trustOwnerHeader: opts.TrustOwnerHeader,
	}
}

// Authenticate resolves credentials. Static tokens win over the verifier; the owner header is
// only consulted when no bearer token was presented.
func (s *AuthService) Authenticate(ctx context.Context, creds Credentials) (domainauth.Principal, error) {
	token := strings.TrimSpace(creds.BearerToken)
	if token == "" {
		return s.fromOwnerHeader(creds.OwnerHeader)
	}

	digest := sha256.Sum256([]byte(token))
	if matchesAny(digest, s.adminTokens) {
		return domainauth.Principal{Subject: "admin", Role: domainauth.RoleAdmin}, nil
	}
	if matchesAny(digest, s.workerTokens) {
		return domainauth.Principal{Subject: "worker", Role: domainauth.RoleWorker}, nil
	}

	if s.verifier == nil {
		return domainauth.Principal{}, apperrors.Unauthorized("invalid bearer token")
	}
	id, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return domainauth.Principal{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid bearer token")
	}

	role := domainauth.RoleOwner
	if s.roles != nil {
		role = s.roles.Map(id.Groups)
	}
	if role == domainauth.RoleGuest {
		return domainauth.Principal{}, apperrors.Forbidden(fmt.Sprintf("user %s has no access", id.UserID))
	}
	return domainauth.Principal{Subject: id.UserID, Role: role}, nil
}

func (s *AuthService) fromOwnerHeader(header string) (domainauth.Principal, error) {
	owner := strings.TrimSpace(header)
	if !s.trustOwnerHeader || owner == "" {
		return domainauth.Principal{}, apperrors.Wrap(errMissingCredentials, apperrors.ErrCodeUnauthorized,
			"authentication required")
	}
	return domainauth.Principal{Subject: owner, Role: domainauth.RoleOwner}, nil
}

func digestTokens(tokens []string) [][sha256.Size]byte {
	out := make([][sha256.Size]byte, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, sha256.Sum256([]byte(t)))
		}
	}
	return out
}

// matchesAny compares fixed-size digests in constant time and checks every candidate.
func matchesAny(digest [sha256.Size]byte, candidates [][sha256.Size]byte) bool {
	found := 0
	for i := range candidates {
		found |= subtle.ConstantTimeCompare(digest[:], candidates[i][:])
	}
	return found == 1
}
