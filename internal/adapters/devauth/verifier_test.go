package devauth

import (
	"context"
	"testing"
	"time"
)

func TestVerifier_Verify(t *testing.T) {
	v := NewVerifier(Config{Groups: []string{"ops"}})
	id, err := v.Verify(context.Background(), " creator-42 ")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if id.UserID != "creator-42" {
		t.Fatalf("unexpected subject: %q", id.UserID)
	}
	if len(id.Groups) != 1 || id.Groups[0] != "ops" {
		t.Fatalf("unexpected groups: %v", id.Groups)
	}
	if time.Until(id.ExpiresAt) < 7*time.Hour {
		t.Fatalf("expected default 8h expiry, got %v", id.ExpiresAt)
	}
}

func TestVerifier_RejectsMalformedSubjects(t *testing.T) {
	v := NewVerifier(Config{})
	for _, raw := range []string{"", "has space", "semi;colon", string(make([]byte, 200))} {
		if _, err := v.Verify(context.Background(), raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
	if !ValidSubject("user@example.com") {
		t.Fatal("expected email-shaped subject to be valid")
	}
}
