package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vaultgallery/internal/config"
	"vaultgallery/internal/fetch"
	"vaultgallery/internal/vaulterr"
)

func TestFetchSources(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("remote-bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	local := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(local, []byte("local-bytes"), 0o644); err != nil {
		t.Fatalf("write local: %v", err)
	}

	cfg := config.Default()
	client := fetch.New(&cfg, fetch.WithLocalFiles())

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr error
	}{
		{name: "http", ref: server.URL + "/file", want: "remote-bytes"},
		{name: "file url", ref: "file://" + local, want: "local-bytes"},
		{name: "bare path", ref: local, want: "local-bytes"},
		{name: "http 404", ref: server.URL + "/missing", wantErr: vaulterr.ErrStorage},
		{name: "missing file", ref: filepath.Join(dir, "nope.jpg"), wantErr: vaulterr.ErrStorage},
		{name: "empty", ref: "  ", wantErr: vaulterr.ErrValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := client.Fetch(context.Background(), tc.ref)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if string(data) != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, data)
			}
		})
	}
}

func TestDefaultClientRejectsLocalReferences(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "secret.png")
	if err := os.WriteFile(local, []byte("local-bytes"), 0o644); err != nil {
		t.Fatalf("write local: %v", err)
	}
	cfg := config.Default()
	client := fetch.New(&cfg)

	for _, ref := range []string{local, "file://" + local, "ftp://host/x.png"} {
		t.Run(ref, func(t *testing.T) {
			if err := client.Validate(ref); !errors.Is(err, vaulterr.ErrValidation) {
				t.Fatalf("Validate: expected validation error, got %v", err)
			}
			data, err := client.Fetch(context.Background(), ref)
			if !errors.Is(err, vaulterr.ErrValidation) {
				t.Fatalf("Fetch: expected validation error, got %v", err)
			}
			if data != nil {
				t.Fatalf("expected no bytes, got %q", data)
			}
		})
	}
	if err := client.Validate("https://files.example/photo.jpg"); err != nil {
		t.Fatalf("expected https reference accepted, got %v", err)
	}
}

func TestFetchEnforcesSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Ingest.MaxBytes = 16
	_, err := fetch.New(&cfg).Fetch(context.Background(), server.URL)
	if !errors.Is(err, vaulterr.ErrValidation) {
		t.Fatalf("expected validation error for oversized payload, got %v", err)
	}
}
