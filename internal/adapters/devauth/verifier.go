package devauth

// Package devauth provides a trusting TokenVerifier for local development.

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	domainauth "github.com/creatorhub/jobcore/internal/domain/auth"
	"github.com/creatorhub/jobcore/internal/ports"
)

var _ ports.TokenVerifier = (*Verifier)(nil)

var subjectRe = regexp.MustCompile(`^[A-Za-z0-9._@:-]{1,128}$`)

// Config controls the dev verifier behavior.
type Config struct {
	// Groups are attached to every identity so role mapping can be exercised locally.
	Groups          []string
	SessionDuration time.Duration // default 8h when zero
}

// Verifier implements ports.TokenVerifier for local development.
// The bearer token itself is taken as the subject; nothing is checked beyond its shape.
type Verifier struct {
	groups   []string
	duration time.Duration
}

// NewVerifier constructs a dev verifier from Config.
func NewVerifier(cfg Config) *Verifier {
	dur := cfg.SessionDuration
	if dur == 0 {
		dur = 8 * time.Hour
	}
	return &Verifier{groups: append([]string(nil), cfg.Groups...), duration: dur}
}

// Verify returns an identity whose subject is the token.
func (v *Verifier) Verify(_ context.Context, rawToken string) (domainauth.Identity, error) {
	subject := strings.TrimSpace(rawToken)
	if !subjectRe.MatchString(subject) {
		return domainauth.Identity{}, errors.New("dev auth: token must be a plain subject identifier")
	}
	return domainauth.Identity{
		UserID:    subject,
		Groups:    append([]string(nil), v.groups...),
		ExpiresAt: time.Now().Add(v.duration),
	}, nil
}

// ValidSubject reports whether s is acceptable as a dev owner id.
func ValidSubject(s string) bool {
	return subjectRe.MatchString(s)
}
