package ingest

import (
	"fmt"
	"net/http"
	"path"
	"strings"
	"unicode"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/vaulterr"
)

// UsageHint is returned when a submission carries no usable caption.
const UsageHint = "Use: /upload <model name>"

// Submission is one inbound media item.
type Submission struct {
	ChatID          int64  `json:"chat_id"`
	UserID          int64  `json:"user_id"`
	Reference       string `json:"reference"`
	Caption         string `json:"caption"`
	GroupID         string `json:"group_id"`
	MediaType       string `json:"media_type"`
	DurationSeconds int    `json:"duration_seconds"`
	FileName        string `json:"file_name"`
}

// Grouped reports whether the submission belongs to a multi-item upload.
func (s Submission) Grouped() bool {
	return strings.TrimSpace(s.GroupID) != ""
}

// ParseCaption extracts the category name from "{keyword} {name}", where any
// whitespace separates the keyword. An empty caption yields "" without error.
func ParseCaption(caption string) (string, error) {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return "", nil
	}
	cut := strings.IndexFunc(caption, unicode.IsSpace)
	if cut < 0 {
		return "", vaulterr.Validation("Missing model name. " + UsageHint)
	}
	name := strings.TrimSpace(caption[cut:])
	if name == "" {
		return "", vaulterr.Validation("Missing model name. " + UsageHint)
	}
	return name, nil
}

// declaredMediaType resolves the media type from the declared value or the
// file name. An empty result means the type is sniffed after fetching.
func declaredMediaType(s Submission) (catalog.MediaType, error) {
	if strings.TrimSpace(s.MediaType) != "" {
		mt, err := catalog.ParseMediaType(s.MediaType)
		if err != nil {
			return "", vaulterr.Validation(err.Error())
		}
		return mt, nil
	}
	switch strings.ToLower(path.Ext(strings.TrimSpace(s.FileName))) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff":
		return catalog.MediaImage, nil
	case ".mp4", ".mov", ".webm", ".mkv", ".m4v":
		return catalog.MediaVideo, nil
	}
	if s.DurationSeconds > 0 {
		return catalog.MediaVideo, nil
	}
	return "", nil
}

func sniffMediaType(data []byte) (catalog.MediaType, string, error) {
	contentType := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return catalog.MediaImage, contentType, nil
	case strings.HasPrefix(contentType, "video/"):
		return catalog.MediaVideo, contentType, nil
	default:
		return "", contentType, vaulterr.Validation(fmt.Sprintf("unsupported content type %s", contentType))
	}
}
