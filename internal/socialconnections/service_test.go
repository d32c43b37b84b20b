package socialconnections

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubVerifier struct {
	valid bool
	err   error
}

func (v stubVerifier) VerifyToken(ctx context.Context, token string) (bool, string, error) {
	if v.err != nil {
		return false, "", v.err
	}
	if v.valid {
		return true, "Token is valid", nil
	}
	return false, "Token is invalid", nil
}

func newTestService(verifier TokenVerifier) *Service {
	svc := NewService(NewMemoryRepo(), verifier)
	clock := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc
}

func TestCreateEnforcesOneConnectionPerType(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, "c1", Input{PlatformName: "Telegram bot", PlatformType: "TELEGRAM", Token: "123456789:abc"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.PlatformType != TypeTelegram || c.ID == "" {
		t.Fatalf("unexpected connection %+v", c)
	}
	if _, err := svc.Create(ctx, "c1", Input{PlatformName: "Other", PlatformType: "telegram", Token: "x"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := svc.Create(ctx, "c2", Input{PlatformName: "Other", PlatformType: "telegram", Token: "x"}); err != nil {
		t.Fatalf("other company should be allowed: %v", err)
	}
	if _, err := svc.Create(ctx, "c1", Input{PlatformName: "x", PlatformType: "myspace", Token: "x"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMetaRowsAreUpsertedByID(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	for _, token := range []string{"EAAB-first", "EAAB-second"} {
		if _, err := svc.Upsert(ctx, "c1", Input{ID: "page-1", PlatformName: "Butter Page", PlatformType: TypePage, Token: token}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	if _, err := svc.Upsert(ctx, "c1", Input{ID: "page-2", PlatformName: "Second Page", PlatformType: TypePage, Token: "EAAB-x"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	list, err := svc.MetaConnections(ctx, "c1")
	if err != nil || len(list) != 2 {
		t.Fatalf("MetaConnections = %+v, %v", list, err)
	}
	got, err := svc.Get(ctx, "c1", "page-1")
	if err != nil || got.Token != "EAAB-second" {
		t.Fatalf("expected refreshed token, got %+v, %v", got, err)
	}
	if _, err := svc.Upsert(ctx, "c2", Input{ID: "page-1", PlatformName: "Hijack", PlatformType: TypePage, Token: "t"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for another company's page, got %v", err)
	}
}

func TestGetNotFoundMessage(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.Get(context.Background(), "c1", "abc")
	var missing *NotFoundError
	if !errors.As(err, &missing) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if err.Error() != "Social connection with ID abc not found or access denied" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestStatsAndMasking(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	_, _ = svc.Create(ctx, "c1", Input{PlatformName: "WA", PlatformType: "whatsapp", Token: "abcdefghijklmnop"})
	_, _ = svc.Upsert(ctx, "c1", Input{ID: "u1", PlatformName: "Facebook", PlatformType: TypeUser, Token: "short"})
	_, _ = svc.Upsert(ctx, "c1", Input{ID: "p1", PlatformName: "Page", PlatformType: TypePage, Token: "pagetoken123"})

	st, err := svc.Stats(ctx, "c1")
	if err != nil || st.Total != 3 || len(st.ByPlatform) != 3 {
		t.Fatalf("Stats = %+v, %v", st, err)
	}

	list, _ := svc.List(ctx, "c1")
	for _, r := range ToResponses(list) {
		if !strings.HasSuffix(r.PlatformToken, "****") {
			t.Fatalf("token not masked: %q", r.PlatformToken)
		}
		if r.PlatformType == "whatsapp" && r.PlatformToken != "abcdefgh****" {
			t.Fatalf("unexpected mask %q", r.PlatformToken)
		}
	}
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name     string
		verifier TokenVerifier
		want     bool
	}{
		{name: "no provider", verifier: nil, want: true},
		{name: "valid", verifier: stubVerifier{valid: true}, want: true},
		{name: "invalid", verifier: stubVerifier{valid: false}, want: false},
		{name: "provider error", verifier: stubVerifier{err: errors.New("boom")}, want: false},
	}
	for _, tc := range cases {
		svc := newTestService(tc.verifier)
		c, err := svc.Create(ctx, "c1", Input{PlatformName: "FB", PlatformType: "facebook", Token: "EAAB"})
		if err != nil {
			t.Fatalf("%s: Create: %v", tc.name, err)
		}
		valid, message, err := svc.Verify(ctx, "c1", c.ID)
		if err != nil || valid != tc.want || message == "" {
			t.Fatalf("%s: Verify = %v %q %v", tc.name, valid, message, err)
		}
	}
}
