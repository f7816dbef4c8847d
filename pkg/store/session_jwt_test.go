package store

import (
	"strings"
	"testing"
	"time"

	"bookvault/pkg/domain"
)

const testSecret = "unit-test-session-secret"

func TestSessionRoundTrip(t *testing.T) {
	s, err := NewJWTSessionStore(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	token, err := s.NewSession(domain.User{ID: "user-1", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	sess, err := s.VerifySession(token)
	if err != nil {
		t.Fatalf("verify session: %v", err)
	}
	if sess.UserID != "user-1" {
		t.Fatalf("user id = %q, want user-1", sess.UserID)
	}
	if sess.Role != domain.RoleAdmin {
		t.Fatalf("role = %q, want ADMIN", sess.Role)
	}
}

func TestSessionRejectsWrongSecret(t *testing.T) {
	issuer, err := NewJWTSessionStore(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	verifier, err := NewJWTSessionStore("another-session-secret", time.Hour)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token, err := issuer.NewSession(domain.User{ID: "user-1", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := verifier.VerifySession(token); err == nil {
		t.Fatal("expected verification to fail with a different secret")
	}
}

func TestSessionRejectsExpiredToken(t *testing.T) {
	s, err := NewJWTSessionStoreWithOptions(testSecret, time.Nanosecond, JWTOptions{Leeway: time.Nanosecond})
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	token, err := s.NewSession(domain.User{ID: "user-1", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := s.VerifySession(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestSessionRejectsTamperedToken(t *testing.T) {
	s, err := NewJWTSessionStore(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	token, err := s.NewSession(domain.User{ID: "user-1", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token format: %q", token)
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := s.VerifySession(tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
	if _, err := s.VerifySession(""); err == nil {
		t.Fatal("expected empty token to be rejected")
	}
}

func TestNewSessionStoreRejectsShortSecret(t *testing.T) {
	if _, err := NewJWTSessionStore("short", time.Hour); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
}
