// Package mediastore persists media bytes under category-scoped locations.
//
// Two backends exist: the local filesystem, where the locator is the absolute
// path root/<slug>/<name>, and MinIO/S3, where the locator is
// minio://<bucket>/<prefix>/<slug>/<name>. Locators are what the catalog
// records as an asset's storage locator.
package mediastore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"vaultgallery/internal/config"
)

// Store is a durable media writer.
type Store interface {
	// Write stores data as <slug>/<name> and returns its locator.
	Write(ctx context.Context, slug, name string, data []byte) (string, error)
	// Open returns a reader for the bytes behind locator.
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
	// Stat reports a not-found error when the bytes behind locator are gone.
	Stat(ctx context.Context, locator string) error
	// Remove deletes the bytes behind locator. Missing objects are not an error.
	Remove(ctx context.Context, locator string) error
	// RemoveCategory removes an empty category location. A location still
	// holding files is left in place and reported as an error.
	RemoveCategory(ctx context.Context, slug string) error
}

// New builds the backend selected by storage.backend.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case "", config.StorageLocal:
		return NewLocal(cfg.Paths.MediaRoot), nil
	case config.StorageMinIO:
		return NewMinIO(ctx, cfg.Storage.MinIO)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// FileName builds the stored file name for an id and extension.
func FileName(id, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		ext = "bin"
	}
	return id + "." + ext
}

// ContentType guesses the MIME type of a locator from its extension.
func ContentType(locator string) string {
	switch strings.ToLower(path.Ext(locator)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "application/octet-stream"
	}
}

// ExtensionFor picks a file extension from a declared file name or, failing
// that, from the sniffed content type.
func ExtensionFor(fileName, contentType string) string {
	if ext := strings.ToLower(strings.TrimPrefix(path.Ext(strings.TrimSpace(fileName)), ".")); ext != "" && len(ext) <= 5 {
		return ext
	}
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/jpeg", "image/pjpeg":
		return "jpg"
	case "image/png", "image/x-png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/bmp":
		return "bmp"
	case "video/mp4":
		return "mp4"
	case "video/quicktime":
		return "mov"
	case "video/webm":
		return "webm"
	default:
		return "bin"
	}
}
