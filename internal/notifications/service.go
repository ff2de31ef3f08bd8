package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vaultgallery/internal/config"
)

const userAgent = "VaultGallery/0.1.0"

// Service defines the acknowledgment surface exposed to the ingest coordinator.
type Service interface {
	NotifyQueued(ctx context.Context, chatID int64, category string) error
	NotifySaved(ctx context.Context, chatID int64, category, mediaType string) error
	NotifyRejected(ctx context.Context, chatID int64, reason string) error
	NotifyGroupFinished(ctx context.Context, chatID int64, category string, saved, failed int) error
}

// NewService builds a webhook-backed service when an endpoint is configured,
// otherwise a noop implementation.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	endpoint := strings.TrimSpace(cfg.Notifications.Endpoint)
	if endpoint == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &webhookService{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	chatID  int64
	title   string
	message string
	tags    []string
}

type webhookService struct {
	endpoint string
	client   *http.Client
}

func (w *webhookService) NotifyQueued(ctx context.Context, chatID int64, category string) error {
	return w.send(ctx, payload{
		chatID:  chatID,
		title:   "Upload queued",
		message: fmt.Sprintf("Collecting uploads for %s...", strings.TrimSpace(category)),
		tags:    []string{"upload", "queued"},
	})
}

func (w *webhookService) NotifySaved(ctx context.Context, chatID int64, category, mediaType string) error {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		mediaType = "media"
	}
	return w.send(ctx, payload{
		chatID:  chatID,
		title:   "Upload saved",
		message: fmt.Sprintf("Saved %s to %s.", mediaType, strings.TrimSpace(category)),
		tags:    []string{"upload", "saved"},
	})
}

func (w *webhookService) NotifyRejected(ctx context.Context, chatID int64, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown error"
	}
	return w.send(ctx, payload{
		chatID:  chatID,
		title:   "Upload rejected",
		message: reason,
		tags:    []string{"upload", "rejected"},
	})
}

func (w *webhookService) NotifyGroupFinished(ctx context.Context, chatID int64, category string, saved, failed int) error {
	message := fmt.Sprintf("Finished %s: saved %d, failed %d.", strings.TrimSpace(category), saved, failed)
	tags := []string{"upload", "finished"}
	if failed > 0 {
		tags = append(tags, "partial")
	}
	return w.send(ctx, payload{
		chatID:  chatID,
		title:   "Upload finished",
		message: message,
		tags:    tags,
	})
}

func (w *webhookService) send(ctx context.Context, data payload) error {
	if w == nil || w.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("X-Chat-ID", strconv.FormatInt(data.chatID, 10))
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("notification endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyQueued(context.Context, int64, string) error                  { return nil }
func (noopService) NotifySaved(context.Context, int64, string, string) error           { return nil }
func (noopService) NotifyRejected(context.Context, int64, string) error                { return nil }
func (noopService) NotifyGroupFinished(context.Context, int64, string, int, int) error { return nil }
