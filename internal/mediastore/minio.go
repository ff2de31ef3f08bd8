package mediastore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"vaultgallery/internal/config"
	"vaultgallery/internal/vaulterr"
)

const minioScheme = "minio://"

// MinIO writes media to an S3-compatible bucket.
type MinIO struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIO connects to the configured endpoint and creates the bucket when
// it does not exist yet.
func NewMinIO(ctx context.Context, cfg config.MinIO) (*MinIO, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(checkCtx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(checkCtx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &MinIO{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (m *MinIO) Write(ctx context.Context, slug, name string, data []byte) (string, error) {
	objectName := m.objectName(slug, name)
	contentType := ContentType(name)
	if contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	uploadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := m.client.PutObject(uploadCtx, m.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", vaulterr.Wrap(vaulterr.ErrStorage, "mediastore", "upload", objectName, err)
	}
	return minioScheme + m.bucket + "/" + objectName, nil
}

func (m *MinIO) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	objectName, err := m.objectFromLocator(locator)
	if err != nil {
		return nil, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.ErrStorage, "mediastore", "get object", objectName, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, vaulterr.NotFound(fmt.Sprintf("media object %s is missing", path.Base(objectName)))
		}
		return nil, vaulterr.Wrap(vaulterr.ErrStorage, "mediastore", "stat object", objectName, err)
	}
	return obj, nil
}

func (m *MinIO) Stat(ctx context.Context, locator string) error {
	objectName, err := m.objectFromLocator(locator)
	if err != nil {
		return err
	}
	statCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := m.client.StatObject(statCtx, m.bucket, objectName, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return vaulterr.NotFound(fmt.Sprintf("media object %s is missing", path.Base(objectName)))
		}
		return vaulterr.Wrap(vaulterr.ErrStorage, "mediastore", "stat object", objectName, err)
	}
	return nil
}

func (m *MinIO) Remove(ctx context.Context, locator string) error {
	objectName, err := m.objectFromLocator(locator)
	if err != nil {
		return err
	}
	removeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.client.RemoveObject(removeCtx, m.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return vaulterr.Wrap(vaulterr.ErrStorage, "mediastore", "remove object", objectName, err)
	}
	return nil
}

// RemoveCategory is a no-op: object stores have no directories to clean up.
func (m *MinIO) RemoveCategory(context.Context, string) error {
	return nil
}

func (m *MinIO) objectName(slug, name string) string {
	segments := make([]string, 0, 3)
	if m.prefix != "" {
		segments = append(segments, m.prefix)
	}
	segments = append(segments, strings.Trim(slug, "/"), strings.Trim(name, "/"))
	return path.Join(segments...)
}

func (m *MinIO) objectFromLocator(locator string) (string, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(locator), minioScheme+m.bucket+"/")
	if !ok || rest == "" {
		return "", vaulterr.Validation(fmt.Sprintf("locator %s does not belong to bucket %s", locator, m.bucket))
	}
	return rest, nil
}
