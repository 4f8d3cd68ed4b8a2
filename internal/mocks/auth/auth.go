// Package auth holds a hand-written TokenVerifier double for tests that do not
// need gomock expectations.
package auth

import (
	"context"
	"sync"
	"time"

	domainauth "github.com/creatorhub/jobcore/internal/domain/auth"
	"github.com/creatorhub/jobcore/internal/ports"
)

var _ ports.TokenVerifier = (*MockTokenVerifier)(nil)

// MockTokenVerifier resolves tokens from a fixed table.
type MockTokenVerifier struct {
	VerifyFunc func(ctx context.Context, rawToken string) (domainauth.Identity, error)

	// Tokens maps a raw token to the identity it verifies as.
	Tokens map[string]domainauth.Identity

	mu    sync.Mutex
	calls int
}

// NewMockTokenVerifier creates a MockTokenVerifier that accepts the given tokens.
func NewMockTokenVerifier(tokens map[string]domainauth.Identity) *MockTokenVerifier {
	return &MockTokenVerifier{Tokens: tokens}
}

func (m *MockTokenVerifier) Verify(ctx context.Context, rawToken string) (domainauth.Identity, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, rawToken)
	}
	id, ok := m.Tokens[rawToken]
	if !ok {
		return domainauth.Identity{}, ErrInvalidToken
	}
	if id.ExpiresAt.IsZero() {
		id.ExpiresAt = time.Now().Add(time.Hour)
	}
	return id, nil
}

// Calls returns how many times Verify was invoked.
func (m *MockTokenVerifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type invalidTokenError struct{}

func (invalidTokenError) Error() string { return "invalid token" }

// ErrInvalidToken is returned by MockTokenVerifier for unknown tokens.
var ErrInvalidToken error = invalidTokenError{}
