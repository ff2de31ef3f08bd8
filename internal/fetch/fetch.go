// Package fetch retrieves the raw bytes behind a submission reference.
//
// References are http(s) URLs served by the messaging client's file proxy.
// Clients built WithLocalFiles also read file:// URLs and bare filesystem
// paths; only the operator import path enables them.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"vaultgallery/internal/config"
	"vaultgallery/internal/vaulterr"
)

const userAgent = "VaultGallery/0.1.0"

// Fetcher returns the bytes behind a reference.
type Fetcher interface {
	Fetch(ctx context.Context, reference string) ([]byte, error)
}

// Client implements Fetcher over HTTP and, when enabled, the local filesystem.
type Client struct {
	http       *http.Client
	maxBytes   int64
	localFiles bool
}

// Option customizes a Client.
type Option func(*Client)

// WithLocalFiles lets the client read file:// URLs and bare paths.
func WithLocalFiles() Option {
	return func(c *Client) { c.localFiles = true }
}

// New builds a Client from the ingest configuration.
func New(cfg *config.Config, opts ...Option) *Client {
	timeout := time.Duration(cfg.Ingest.FetchTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		http:     &http.Client{Timeout: timeout},
		maxBytes: cfg.Ingest.MaxBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type source int

const (
	sourceRemote source = iota
	sourceFile
)

// Validate reports whether the client would accept reference, without
// reading anything.
func (c *Client) Validate(reference string) error {
	_, _, err := c.classify(reference)
	return err
}

// Fetch reads the reference, enforcing the configured size limit.
func (c *Client) Fetch(ctx context.Context, reference string) ([]byte, error) {
	kind, target, err := c.classify(reference)
	if err != nil {
		return nil, err
	}
	if kind == sourceFile {
		return c.fetchFile(target)
	}
	return c.fetchHTTP(ctx, target)
}

func (c *Client) classify(reference string) (source, string, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return 0, "", vaulterr.Validation("media reference is required")
	}
	kind, target := sourceFile, reference
	if parsed, err := url.Parse(reference); err == nil {
		switch parsed.Scheme {
		case "http", "https":
			return sourceRemote, reference, nil
		case "file":
			target = parsed.Path
		case "":
		default:
			// A single letter is a Windows drive prefix.
			if len(parsed.Scheme) > 1 {
				return 0, "", vaulterr.Validation(fmt.Sprintf("unsupported reference scheme %q", parsed.Scheme))
			}
		}
	}
	if !c.localFiles {
		return 0, "", vaulterr.Validation("media reference must be an http(s) URL")
	}
	return kind, target, nil
}

func (c *Client) fetchHTTP(ctx context.Context, reference string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reference, nil)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.ErrStorage, "fetch", "build request", "", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.ErrStorage, "fetch", "download", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))
		return nil, vaulterr.Wrap(vaulterr.ErrStorage, "fetch", "download",
			fmt.Sprintf("origin returned %d", resp.StatusCode), nil)
	}
	if c.maxBytes > 0 && resp.ContentLength > c.maxBytes {
		return nil, c.tooLarge()
	}
	return c.readLimited(resp.Body)
}

func (c *Client) fetchFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.ErrStorage, "fetch", "open file", "", err)
	}
	defer file.Close()
	return c.readLimited(file)
}

func (c *Client) readLimited(r io.Reader) ([]byte, error) {
	if c.maxBytes > 0 {
		r = io.LimitReader(r, c.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.ErrStorage, "fetch", "read", "", err)
	}
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		return nil, c.tooLarge()
	}
	if len(data) == 0 {
		return nil, vaulterr.Wrap(vaulterr.ErrStorage, "fetch", "read", "empty payload", nil)
	}
	return data, nil
}

func (c *Client) tooLarge() error {
	return vaulterr.Validation(fmt.Sprintf("file exceeds the %d MiB limit", c.maxBytes/(1024*1024)))
}
