package mediastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"vaultgallery/internal/fileutil"
	"vaultgallery/internal/vaulterr"
)

// Local writes media beneath a root directory.
type Local struct {
	root string
}

// NewLocal returns a filesystem backend rooted at root.
func NewLocal(root string) *Local {
	return &Local{root: filepath.Clean(root)}
}

// Root returns the media root directory.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) Write(_ context.Context, slug, name string, data []byte) (string, error) {
	target, err := l.pathFor(slug, name)
	if err != nil {
		return "", err
	}
	if same, err := fileutil.SameContent(target, data); err == nil && same {
		return target, nil
	}
	if err := fileutil.WriteAtomic(target, data, 0o644); err != nil {
		return "", vaulterr.Wrap(vaulterr.ErrStorage, "mediastore", "write", target, err)
	}
	return target, nil
}

func (l *Local) Open(_ context.Context, locator string) (io.ReadCloser, error) {
	if err := l.within(locator); err != nil {
		return nil, err
	}
	file, err := os.Open(locator)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, vaulterr.NotFound(fmt.Sprintf("media file %s is missing", filepath.Base(locator)))
		}
		return nil, vaulterr.Wrap(vaulterr.ErrStorage, "mediastore", "open", locator, err)
	}
	return file, nil
}

func (l *Local) Stat(_ context.Context, locator string) error {
	if err := l.within(locator); err != nil {
		return err
	}
	if _, err := os.Stat(locator); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return vaulterr.NotFound(fmt.Sprintf("media file %s is missing", filepath.Base(locator)))
		}
		return vaulterr.Wrap(vaulterr.ErrStorage, "mediastore", "stat", locator, err)
	}
	return nil
}

func (l *Local) Remove(_ context.Context, locator string) error {
	if err := l.within(locator); err != nil {
		return err
	}
	if err := fileutil.RemoveIfExists(locator); err != nil {
		return vaulterr.Wrap(vaulterr.ErrStorage, "mediastore", "remove", locator, err)
	}
	return nil
}

func (l *Local) RemoveCategory(_ context.Context, slug string) error {
	dir, err := l.pathFor(slug, "")
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return vaulterr.Wrap(vaulterr.ErrStorage, "mediastore", "remove category", dir, err)
	}
	if len(entries) > 0 {
		// Files not tracked by the deleted category stay on disk.
		return vaulterr.Wrap(vaulterr.ErrStorage, "mediastore", "remove category", dir,
			fmt.Errorf("directory still holds %d entries", len(entries)))
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return vaulterr.Wrap(vaulterr.ErrStorage, "mediastore", "remove category", dir, err)
	}
	return nil
}

func (l *Local) pathFor(slug, name string) (string, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" || strings.ContainsAny(slug, `/\`) || slug == "." || slug == ".." {
		return "", vaulterr.Validation(fmt.Sprintf("invalid category slug %q", slug))
	}
	if name != "" && (strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".")) {
		return "", vaulterr.Validation(fmt.Sprintf("invalid file name %q", name))
	}
	return filepath.Join(l.root, slug, name), nil
}

func (l *Local) within(locator string) error {
	rel, err := filepath.Rel(l.root, filepath.Clean(locator))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return vaulterr.Validation(fmt.Sprintf("locator %s is outside the media root", locator))
	}
	return nil
}
