package testsupport

import (
	"context"
	"testing"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewCategory creates a category stored under key.
func NewCategory(t testing.TB, store *catalog.Store, displayName, key string) *catalog.Category {
	t.Helper()

	category, err := store.CreateCategory(context.Background(), displayName, key)
	if err != nil {
		t.Fatalf("store.CreateCategory: %v", err)
	}
	return category
}

// NewAsset inserts an asset with the given locator.
func NewAsset(t testing.TB, store *catalog.Store, categoryID int64, locator string, mediaType catalog.MediaType) *catalog.Asset {
	t.Helper()

	asset, _, err := store.InsertAsset(context.Background(), catalog.NewAsset{
		CategoryID:     categoryID,
		StorageLocator: locator,
		MediaType:      mediaType,
	})
	if err != nil {
		t.Fatalf("store.InsertAsset: %v", err)
	}
	return asset
}
