package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(IssuerConfig{Secret: "test-secret", InviteTTL: time.Minute})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return issuer
}

func TestSignAndVerifyAccessToken(t *testing.T) {
	issuer := newTestIssuer(t)

	token, exp, err := issuer.Sign(TokenAccess, "user-1", Claims{CompanyID: "company-1", Role: "OWNER"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expected expiry in the future")
	}

	claims, err := issuer.Verify(TokenAccess, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.CompanyID != "company-1" || claims.Role != "OWNER" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsOtherTokenFamilies(t *testing.T) {
	issuer := newTestIssuer(t)

	refresh, _, err := issuer.Sign(TokenRefresh, "user-1", Claims{})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := issuer.Verify(TokenAccess, refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected refresh token to be rejected as access, got %v", err)
	}

	invite, _, err := issuer.Sign(TokenInvite, "pending-1", Claims{})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := issuer.Verify(TokenCustomer, invite); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invite token to be rejected as customer, got %v", err)
	}
}

func TestVerifyReportsExpiry(t *testing.T) {
	issuer := newTestIssuer(t)
	start := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	issuer.WithClock(func() time.Time { return start })

	token, _, err := issuer.Sign(TokenInvite, "pending-1", Claims{Email: "a@b.c"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	issuer.WithClock(func() time.Time { return start.Add(2 * time.Minute) })
	if _, err := issuer.Verify(TokenInvite, token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	issuer := newTestIssuer(t)
	other, err := NewIssuer(IssuerConfig{Secret: "other-secret"})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	token, _, err := other.Sign(TokenAccess, "user-1", Claims{})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := issuer.Verify(TokenAccess, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer(IssuerConfig{}); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
