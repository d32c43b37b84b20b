package documents

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/queue"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/storage/object/local"
)

func newTestService(t *testing.T) (*Service, *queue.LogPublisher) {
	t.Helper()
	events := queue.NewLogPublisher()
	clock := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	return &Service{
		Store:   local.New(t.TempDir()),
		Avatars: local.New(t.TempDir()),
		Events:  events,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	}, events
}

func upload(t *testing.T, svc *Service, companyID, name, body string) Document {
	t.Helper()
	doc, err := svc.Upload(context.Background(), companyID, Upload{Name: name, MimeType: "text/plain", Size: int64(len(body))}, strings.NewReader(body))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	return doc
}

func TestUploadStoresInQueuedFolderAndPublishes(t *testing.T) {
	svc, events := newTestService(t)
	doc := upload(t, svc, "c1", "price list (v2).txt", "hello")

	if doc.Status != StatusQueued || doc.Size != 5 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.OriginalName != "price_list__v2_.txt" {
		t.Fatalf("unexpected original name %q", doc.OriginalName)
	}
	if !strings.HasPrefix(doc.Key(), "c1/notprocessed/") {
		t.Fatalf("unexpected key %q", doc.Key())
	}
	published := events.Events(queue.SubjectDocumentSyncRequested)
	if len(published) != 1 || published[0].Event.CompanyID != "c1" {
		t.Fatalf("expected one sync request, got %+v", published)
	}
}

func TestUploadRejectsTypesAndSizes(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	cases := []struct {
		name string
		in   Upload
		want error
	}{
		{name: "image", in: Upload{Name: "a.png", MimeType: "image/png", Size: 1}, want: ErrUnsupported},
		{name: "too large", in: Upload{Name: "a.pdf", MimeType: "application/pdf", Size: MaxUploadSize + 1}, want: ErrTooLarge},
	}
	for _, tc := range cases {
		if _, err := svc.Upload(context.Background(), "c1", tc.in, strings.NewReader("x")); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestStatusMovesBetweenFolders(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	first := upload(t, svc, "c1", "a.txt", "one")
	second := upload(t, svc, "c1", "b.txt", "two")

	moved, err := svc.SetStatus(ctx, "c1", "c1", first.Filename, StatusSynced)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if moved.Status != StatusSynced {
		t.Fatalf("expected SYNCED, got %s", moved.Status)
	}

	synced := StatusSynced
	list, err := svc.List(ctx, "c1", &synced)
	if err != nil || len(list) != 1 || list[0].Filename != first.Filename {
		t.Fatalf("List(SYNCED) = %+v, %v", list, err)
	}
	all, err := svc.List(ctx, "c1", nil)
	if err != nil || len(all) != 2 || all[0].Filename != second.Filename {
		t.Fatalf("expected newest first, got %+v, %v", all, err)
	}

	if _, err := svc.SetStatus(ctx, "c1", "c1", "missing.txt", StatusFailed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocateChecksTenantAndName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	doc := upload(t, svc, "c1", "a.txt", "body")

	if _, err := svc.Locate(ctx, "c2", "c1", doc.Filename); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	for _, raw := range []string{"c1!", "c1/", " c1", "c.1"} {
		if _, err := svc.Locate(ctx, "c1", raw, doc.Filename); !errors.Is(err, ErrForbidden) {
			t.Fatalf("path company %q: expected ErrForbidden, got %v", raw, err)
		}
	}
	if _, err := svc.Locate(ctx, "c1", "c1", "../secret"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	got, err := svc.Locate(ctx, "c1", "c1", doc.Filename)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	text, err := svc.Text(ctx, got)
	if err != nil || text != "body" {
		t.Fatalf("Text = %q, %v", text, err)
	}
	rc, err := svc.Open(ctx, got)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	raw, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(raw) != "body" {
		t.Fatalf("unexpected body %q", raw)
	}

	if _, err := svc.Delete(ctx, "c1", "c1", doc.Filename); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Locate(ctx, "c1", "c1", doc.Filename); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSaveAvatar(t *testing.T) {
	svc, _ := newTestService(t)
	url, err := svc.SaveAvatar(context.Background(), "image/png", 3, strings.NewReader("png"))
	if err != nil {
		t.Fatalf("SaveAvatar: %v", err)
	}
	if !strings.HasPrefix(url, "/public/avatars/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("unexpected url %q", url)
	}
	if _, err := svc.SaveAvatar(context.Background(), "application/pdf", 3, strings.NewReader("pdf")); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestContentTypeFor(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"1-a-report.PDF": "application/pdf",
		"1-a-sheet.xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"1-a-blob.bin":   "application/octet-stream",
	}
	for name, want := range cases {
		if got := ContentTypeFor(name); got != want {
			t.Fatalf("ContentTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}
