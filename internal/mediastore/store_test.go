package mediastore_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"vaultgallery/internal/config"
	"vaultgallery/internal/mediastore"
	"vaultgallery/internal/vaulterr"
)

func TestLocalWriteOpenRemove(t *testing.T) {
	root := t.TempDir()
	store := mediastore.NewLocal(root)
	ctx := context.Background()

	locator, err := store.Write(ctx, "ana_lopez", "abc.jpg", []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if want := filepath.Join(root, "ana_lopez", "abc.jpg"); locator != want {
		t.Fatalf("expected locator %q, got %q", want, locator)
	}

	again, err := store.Write(ctx, "ana_lopez", "abc.jpg", []byte("jpeg-bytes"))
	if err != nil || again != locator {
		t.Fatalf("rewrite: locator=%q err=%v", again, err)
	}

	rc, err := store.Open(ctx, locator)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "jpeg-bytes" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := store.Stat(ctx, locator); err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if err := store.Remove(ctx, locator); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.Stat(ctx, locator); !errors.Is(err, vaulterr.ErrNotFound) {
		t.Fatalf("expected not found from Stat after removal, got %v", err)
	}
	if err := store.Remove(ctx, locator); err != nil {
		t.Fatalf("second Remove should be a no-op: %v", err)
	}
	if _, err := store.Open(ctx, locator); !errors.Is(err, vaulterr.ErrNotFound) {
		t.Fatalf("expected not found after removal, got %v", err)
	}

	if _, err := store.Write(ctx, "ana_lopez", "keep.jpg", []byte("other")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := store.RemoveCategory(ctx, "ana_lopez"); !errors.Is(err, vaulterr.ErrStorage) {
		t.Fatalf("expected storage error for non-empty dir, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "ana_lopez", "keep.jpg")); err != nil {
		t.Fatalf("expected file kept, stat err = %v", err)
	}
	if err := store.Remove(ctx, filepath.Join(root, "ana_lopez", "keep.jpg")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.RemoveCategory(ctx, "ana_lopez"); err != nil {
		t.Fatalf("RemoveCategory: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "ana_lopez")); !os.IsNotExist(err) {
		t.Fatalf("expected category dir removed, stat err=%v", err)
	}
	if err := store.RemoveCategory(ctx, "ana_lopez"); err != nil {
		t.Fatalf("RemoveCategory on missing dir: %v", err)
	}
}

func TestLocalRejectsEscapes(t *testing.T) {
	store := mediastore.NewLocal(t.TempDir())
	ctx := context.Background()

	if _, err := store.Write(ctx, "..", "x.jpg", []byte("x")); !errors.Is(err, vaulterr.ErrValidation) {
		t.Fatalf("expected validation error for bad slug, got %v", err)
	}
	if _, err := store.Write(ctx, "ok", "../x.jpg", []byte("x")); !errors.Is(err, vaulterr.ErrValidation) {
		t.Fatalf("expected validation error for bad name, got %v", err)
	}
	if _, err := store.Open(ctx, "/etc/passwd"); !errors.Is(err, vaulterr.ErrValidation) {
		t.Fatalf("expected validation error for outside locator, got %v", err)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.MediaRoot = t.TempDir()
	store, err := mediastore.New(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := store.(*mediastore.Local); !ok {
		t.Fatalf("expected local backend, got %T", store)
	}

	cfg.Storage.Backend = "tape"
	if _, err := mediastore.New(context.Background(), &cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestExtensionAndContentType(t *testing.T) {
	tests := []struct {
		fileName    string
		contentType string
		want        string
	}{
		{"clip.MP4", "", "mp4"},
		{"", "image/png", "png"},
		{"", "image/jpeg; charset=binary", "jpg"},
		{"noext", "application/octet-stream", "bin"},
	}
	for _, tc := range tests {
		if got := mediastore.ExtensionFor(tc.fileName, tc.contentType); got != tc.want {
			t.Fatalf("ExtensionFor(%q, %q) = %q, want %q", tc.fileName, tc.contentType, got, tc.want)
		}
	}
	if got := mediastore.ContentType("/root/a/b.webp"); got != "image/webp" {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := mediastore.FileName("abc", ".JPG"); got != "abc.jpg" {
		t.Fatalf("unexpected file name %q", got)
	}
}
