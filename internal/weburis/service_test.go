package weburis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/queue"
)

func newTestService() (*Service, *queue.LogPublisher) {
	events := queue.NewLogPublisher()
	svc := NewService(NewMemoryRepo(), events)
	clock := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return svc, events
}

func TestCreateQueuesAndRejectsDuplicates(t *testing.T) {
	svc, events := newTestService()
	ctx := context.Background()

	res, err := svc.Create(ctx, "c1", " https://butter.example/faq ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Status != StatusQueued || res.URI != "https://butter.example/faq" {
		t.Fatalf("unexpected resource %+v", res)
	}
	if got := events.Events(queue.SubjectWebURISyncRequested); len(got) != 1 {
		t.Fatalf("expected one sync request, got %d", len(got))
	}
	if _, err := svc.Create(ctx, "c1", "https://butter.example/faq"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := svc.Create(ctx, "c2", "https://butter.example/faq"); err != nil {
		t.Fatalf("other company should be allowed: %v", err)
	}
}

func TestNormalizeURI(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in string
		ok bool
	}{
		{in: "https://a.example/x?y=1", ok: true},
		{in: "http://a.example", ok: true},
		{in: "ftp://a.example", ok: false},
		{in: "not a url", ok: false},
		{in: "", ok: false},
	}
	for _, tc := range cases {
		_, err := normalizeURI(tc.in)
		if (err == nil) != tc.ok {
			t.Fatalf("normalizeURI(%q) err=%v, want ok=%v", tc.in, err, tc.ok)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	a, _ := svc.Create(ctx, "c1", "https://a.example")
	b, _ := svc.Create(ctx, "c1", "https://b.example")
	foreign, _ := svc.Create(ctx, "c2", "https://c.example")

	got, err := svc.SetStatus(ctx, "c1", a.ID, StatusSynced)
	if err != nil || got.Status != StatusSynced {
		t.Fatalf("SetStatus = %+v, %v", got, err)
	}
	if _, err := svc.SetStatus(ctx, "c1", foreign.ID, StatusSynced); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound across tenants, got %v", err)
	}

	n, err := svc.BulkSetStatus(ctx, "c1", []string{a.ID, b.ID, foreign.ID, uuid.NewString()}, StatusFailed)
	if err != nil || n != 2 {
		t.Fatalf("BulkSetStatus = %d, %v", n, err)
	}
	failed := StatusFailed
	list, err := svc.List(ctx, "c1", &failed)
	if err != nil || len(list) != 2 || list[0].ID != b.ID {
		t.Fatalf("List(FAILED) = %+v, %v", list, err)
	}
	if _, err := svc.BulkSetStatus(ctx, "c1", nil, StatusFailed); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateRequeuesChangedURI(t *testing.T) {
	svc, events := newTestService()
	ctx := context.Background()
	res, _ := svc.Create(ctx, "c1", "https://a.example")
	if _, err := svc.SetStatus(ctx, "c1", res.ID, StatusSynced); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	uri := "https://a.example/new"
	got, err := svc.Update(ctx, "c1", res.ID, Patch{URI: &uri})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Status != StatusQueued || got.URI != uri {
		t.Fatalf("expected requeued resource, got %+v", got)
	}
	if n := len(events.Events(queue.SubjectWebURISyncRequested)); n != 2 {
		t.Fatalf("expected a second sync request, got %d", n)
	}

	if err := svc.Delete(ctx, "c1", res.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, "c1", res.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
