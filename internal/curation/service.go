// Package curation removes catalog content together with its stored bytes.
//
// Catalog rows are deleted first inside one transaction; file removal
// afterwards is best effort and only logged, so a storage hiccup never
// leaves the catalog pointing at half-deleted content.
package curation

import (
	"context"
	"fmt"
	"log/slog"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/logging"
	"vaultgallery/internal/mediastore"
	"vaultgallery/internal/resolver"
	"vaultgallery/internal/vaulterr"
)

// Service deletes categories and assets.
type Service struct {
	store  *catalog.Store
	media  mediastore.Store
	logger *slog.Logger
}

// New constructs a Service.
func New(store *catalog.Store, media mediastore.Store, logger *slog.Logger) *Service {
	return &Service{store: store, media: media, logger: logging.NewComponentLogger(logger, "curation")}
}

// DeleteCategory removes a category, its assets and its storage directory.
// It returns the number of assets removed.
func (s *Service) DeleteCategory(ctx context.Context, id int64) (int, error) {
	category, err := s.store.CategoryByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if category == nil {
		return 0, vaulterr.NotFound(fmt.Sprintf("category %d not found", id))
	}
	locators, err := s.store.DeleteCategory(ctx, id)
	if err != nil {
		return 0, err
	}
	s.removeFiles(ctx, locators)
	dir := resolver.Directory(category)
	if err := s.media.RemoveCategory(ctx, dir); err != nil {
		s.warnRemoval(ctx, dir, err)
	}
	s.logger.Info("category deleted",
		logging.String(logging.FieldCategory, category.DisplayName),
		logging.Int("assets", len(locators)),
	)
	return len(locators), nil
}

// DeleteAsset removes one asset and its stored bytes.
func (s *Service) DeleteAsset(ctx context.Context, id int64) error {
	locator, err := s.store.DeleteAsset(ctx, id)
	if err != nil {
		return err
	}
	s.removeFiles(ctx, []string{locator})
	return nil
}

// DeleteRandom removes up to count random assets of category, keeping the
// category. It returns how many were removed.
func (s *Service) DeleteRandom(ctx context.Context, category *catalog.Category, count int) (int, error) {
	if category == nil {
		return 0, vaulterr.Validation("category is required")
	}
	locators, err := s.store.DeleteRandomAssets(ctx, category.ID, count)
	if err != nil {
		return 0, err
	}
	s.removeFiles(ctx, locators)
	s.logger.Info("random assets deleted",
		logging.String(logging.FieldCategory, category.DisplayName),
		logging.Int("requested", count),
		logging.Int("deleted", len(locators)),
	)
	return len(locators), nil
}

// WipeAll removes every asset while preserving categories.
func (s *Service) WipeAll(ctx context.Context) (int, error) {
	locators, err := s.store.DeleteAllAssets(ctx)
	if err != nil {
		return 0, err
	}
	s.removeFiles(ctx, locators)
	s.logger.Info("all assets deleted", logging.Int("deleted", len(locators)))
	return len(locators), nil
}

func (s *Service) removeFiles(ctx context.Context, locators []string) {
	for _, locator := range locators {
		if err := s.media.Remove(ctx, locator); err != nil {
			s.warnRemoval(ctx, locator, err)
		}
	}
}

func (s *Service) warnRemoval(ctx context.Context, target string, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, s.logger), "stored media removal failed",
		"storage_remove_failed", "orphaned bytes left in storage",
		logging.String("target", target),
		logging.Error(err),
	)
}
