package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sst-backend/internal/shared/storage/object"
)

func TestSaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := New(dir)

	payload := []byte("%PDF-1.4\n%test\n")
	key, size, mime, err := store.Save(ctx, "requests/originals", "acta comité.pdf", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(key, "requests/originals/") || !strings.HasSuffix(key, "_acta comité.pdf") {
		t.Fatalf("unexpected key %q", key)
	}
	if size != int64(len(payload)) || mime != "application/pdf" {
		t.Fatalf("unexpected size=%d mime=%s", size, mime)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(key))); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch")
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Open(ctx, key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSaveWithKeyReplacesAndLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := New(dir)

	for _, body := range []string{"first", "second"} {
		if _, err := store.SaveWithKey(ctx, "documents/minutes.pdf", "application/pdf", strings.NewReader(body)); err != nil {
			t.Fatalf("save with key: %v", err)
		}
	}
	data, err := object.ReadAll(ctx, store, "documents/minutes.pdf")
	if err != nil || string(data) != "second" {
		t.Fatalf("expected replaced content, got %q %v", data, err)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "documents"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the final file, got %d entries", len(entries))
	}
}

func TestRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../secret"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
	if _, err := store.SaveWithKey(context.Background(), "/abs.pdf", "", strings.NewReader("x")); err == nil {
		t.Fatalf("expected absolute key to be rejected")
	}
}
