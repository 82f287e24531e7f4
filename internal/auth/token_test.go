package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/plixa/plixa/internal/model"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 30*time.Minute)

	signed, err := issuer.Issue("user123", []string{model.ScopeOrganizationRead, model.ScopeOrganizationWrite})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	subject, err := issuer.Verify(signed)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if subject.UserID != "user123" {
		t.Errorf("expected user123, got %s", subject.UserID)
	}
	if len(subject.Scopes) != 2 || subject.Scopes[0] != model.ScopeOrganizationRead {
		t.Errorf("unexpected scopes: %v", subject.Scopes)
	}
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 30*time.Minute)
	other := NewTokenIssuer("other-secret", 30*time.Minute)

	signed, err := issuer.Issue("user123", []string{model.ScopeAll})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := other.Verify(signed); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Verify() with wrong secret = %v, want ErrUnauthenticated", err)
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 30*time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	signed, err := issuer.Issue("user123", nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	issuer.now = time.Now
	if _, err := issuer.Verify(signed); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Verify() on expired token = %v, want ErrUnauthenticated", err)
	}
}

func TestTokenIssuer_Garbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 30*time.Minute)

	for _, raw := range []string{"", "not-a-token", "aaaa.bbbb.cccc"} {
		if _, err := issuer.Verify(raw); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("Verify(%q) = %v, want ErrUnauthenticated", raw, err)
		}
	}
}

func TestTokenIssuer_MissingSubject(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 30*time.Minute)

	signed, err := issuer.Issue("", nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := issuer.Verify(signed); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Verify() without user_id = %v, want ErrUnauthenticated", err)
	}
}
