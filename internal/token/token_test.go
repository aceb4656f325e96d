package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	tok, err := issuer.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	username, err := issuer.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if username != "alice" {
		t.Fatalf("subject = %q, want alice", username)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tok, err := NewIssuer("secret-a", time.Hour).Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewIssuer("secret-b", time.Hour).Verify(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("foreign secret = %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	tok, err := issuer.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", tok)
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := issuer.Verify(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("tampered signature = %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := NewIssuer("secret", -time.Minute)
	tok, err := issuer.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewIssuer("secret", time.Hour).Verify(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expired token = %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyDistinguishesMissingFromInvalid(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	if _, err := issuer.Verify(""); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("empty token = %v, want ErrTokenMissing", err)
	}
	if _, err := issuer.Verify("   "); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("blank token = %v, want ErrTokenMissing", err)
	}
	if _, err := issuer.Verify("not.a.jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("garbage token = %v, want ErrTokenInvalid", err)
	}
}
