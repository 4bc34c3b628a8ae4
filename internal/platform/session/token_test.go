package session

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	sid := uuid.New()

	raw, err := issuer.Issue(sid, time.Now())
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if raw == "" {
		t.Fatal("expected non-empty token")
	}

	got, err := issuer.Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got != sid {
		t.Errorf("expected session id %s, got %s", sid, got)
	}
}

func TestTokenIssuer_WrongKey(t *testing.T) {
	issuer := NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	other := NewTokenIssuer([]byte("ffffffffffffffffffffffffffffffff"), time.Hour)

	raw, err := issuer.Issue(uuid.New(), time.Now())
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	if _, err := other.Parse(raw); err == nil {
		t.Error("expected parse to fail with a different key")
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Minute)

	raw, err := issuer.Issue(uuid.New(), time.Now().Add(-2*time.Minute))
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	if _, err := issuer.Parse(raw); err == nil {
		t.Error("expected parse to fail for expired token")
	}
}

func TestTokenIssuer_Garbage(t *testing.T) {
	issuer := NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour)

	for _, raw := range []string{"", "garbage", "a.b.c", strings.Repeat("x", 500)} {
		if _, err := issuer.Parse(raw); err == nil {
			t.Errorf("expected parse to fail for %q", raw)
		}
	}
}

func TestNewCSRFToken_Unique(t *testing.T) {
	a := NewCSRFToken()
	b := NewCSRFToken()
	if a == b {
		t.Error("expected distinct tokens")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}
