package local

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/storage/object"
)

func TestPutOpenStat(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())

	n, err := store.Put(ctx, "company-1/notprocessed/a.pdf", "application/pdf", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 bytes, got %d", n)
	}

	rc, err := store.Open(ctx, "company-1/notprocessed/a.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "hello" {
		t.Fatalf("unexpected body %q", body)
	}

	info, err := store.Stat(ctx, "company-1/notprocessed/a.pdf")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size != 5 || info.ContentType != "application/pdf" {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestMissingKeysMapToNotFound(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())

	if _, err := store.Open(ctx, "nope.txt"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("Open: expected ErrNotFound, got %v", err)
	}
	if _, err := store.Stat(ctx, "nope.txt"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("Stat: expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "nope.txt"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("Delete: expected ErrNotFound, got %v", err)
	}
	if err := store.Move(ctx, "nope.txt", "other.txt"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("Move: expected ErrNotFound, got %v", err)
	}
	list, err := store.List(ctx, "missing/dir")
	if err != nil || len(list) != 0 {
		t.Fatalf("List: expected empty, got %v %v", list, err)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())

	for _, key := range []string{"../secret", "/etc/passwd", "a/../../b"} {
		if _, err := store.Put(ctx, key, "", strings.NewReader("x")); !errors.Is(err, object.ErrInvalidKey) {
			t.Fatalf("Put(%q): expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestListAndMove(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())

	for _, key := range []string{"c1/notprocessed/a.pdf", "c1/notprocessed/b.csv", "c1/processed/c.txt", "c2/notprocessed/d.txt"} {
		if _, err := store.Put(ctx, key, "", strings.NewReader(key)); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}

	if err := store.Move(ctx, "c1/notprocessed/a.pdf", "c1/failed_to_process/a.pdf"); err != nil {
		t.Fatalf("Move: %v", err)
	}

	list, err := store.List(ctx, "c1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var keys []string
	for _, info := range list {
		keys = append(keys, info.Key)
	}
	sort.Strings(keys)
	want := []string{"c1/failed_to_process/a.pdf", "c1/notprocessed/b.csv", "c1/processed/c.txt"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected keys %v", keys)
	}
}
