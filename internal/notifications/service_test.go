package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"vaultgallery/internal/config"
	"vaultgallery/internal/notifications"
)

func TestNewServiceReturnsNoopWhenEndpointMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.Endpoint = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyGroupFinished(context.Background(), 1, "Example", 2, 0); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestWebhookServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name          string
		send          func(notifications.Service) error
		expectTitle   string
		expectMessage string
		expectTags    string
	}{
		{
			name: "queued",
			send: func(s notifications.Service) error {
				return s.NotifyQueued(context.Background(), 42, "Ana Lopez")
			},
			expectTitle:   "Upload queued",
			expectMessage: "Collecting uploads for Ana Lopez...",
			expectTags:    "upload,queued",
		},
		{
			name: "saved",
			send: func(s notifications.Service) error {
				return s.NotifySaved(context.Background(), 42, "Ana Lopez", "image")
			},
			expectTitle:   "Upload saved",
			expectMessage: "Saved image to Ana Lopez.",
			expectTags:    "upload,saved",
		},
		{
			name: "rejected",
			send: func(s notifications.Service) error {
				return s.NotifyRejected(context.Background(), 42, "video too long")
			},
			expectTitle:   "Upload rejected",
			expectMessage: "video too long",
			expectTags:    "upload,rejected",
		},
		{
			name: "finished with failures",
			send: func(s notifications.Service) error {
				return s.NotifyGroupFinished(context.Background(), 42, "Ana Lopez", 2, 1)
			},
			expectTitle:   "Upload finished",
			expectMessage: "Finished Ana Lopez: saved 2, failed 1.",
			expectTags:    "upload,finished,partial",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title string
				tags  string
				chat  string
				body  string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.chat = r.Header.Get("X-Chat-ID")
				body, _ := io.ReadAll(r.Body)
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.Endpoint = server.URL
			cfg.Notifications.RequestTimeout = 5

			if err := tc.send(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.chat != "42" {
				t.Fatalf("expected chat header 42, got %q", captured.chat)
			}
		})
	}
}

func TestWebhookServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.Endpoint = server.URL
	if err := notifications.NewService(&cfg).NotifyRejected(context.Background(), 1, "x"); err == nil {
		t.Fatal("expected error for 502 response")
	}
}
