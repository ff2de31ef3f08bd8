// Package selection serves reads over the catalog: fairness-aware random
// picks, latest-N listings, statistics and the administrative insight views.
//
// Callers resolve category names through the resolver first; every method
// here takes an already resolved category or nil for the whole catalog.
package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/config"
	"vaultgallery/internal/logging"
	"vaultgallery/internal/mediastore"
	"vaultgallery/internal/metrics"
	"vaultgallery/internal/vaulterr"
)

const (
	// PageSize is the number of assets per insight or gallery page.
	PageSize = 48
	// DefaultPendingCaptions is the pending-caption listing size when none is given.
	DefaultPendingCaptions = 120
)

// Chooser returns an index in [0, n).
type Chooser func(n int) int

// Engine implements the read operations.
type Engine struct {
	store     *catalog.Store
	media     mediastore.Store
	logger    *slog.Logger
	maxLatest int
	choose    Chooser
}

// Option customizes an Engine.
type Option func(*Engine)

// WithChooser replaces the uniform random chooser.
func WithChooser(choose Chooser) Option {
	return func(e *Engine) {
		if choose != nil {
			e.choose = choose
		}
	}
}

// WithMedia makes Random skip assets whose stored bytes are missing, leaving
// their fairness turn intact.
func WithMedia(media mediastore.Store, logger *slog.Logger) Option {
	return func(e *Engine) {
		e.media = media
		if logger != nil {
			e.logger = logging.NewComponentLogger(logger, "selection")
		}
	}
}

// New constructs an Engine.
func New(store *catalog.Store, cfg *config.Config, opts ...Option) *Engine {
	maxLatest := cfg.Selection.MaxLatest
	if maxLatest <= 0 {
		maxLatest = 5
	}
	e := &Engine{
		store:     store,
		logger:    logging.NewNop(),
		maxLatest: maxLatest,
		choose:    rand.IntN,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxLatest returns the latest-count cap.
func (e *Engine) MaxLatest() int {
	return e.maxLatest
}

// LatestResult is the outcome of Latest.
type LatestResult struct {
	Assets    []*catalog.Asset `json:"assets"`
	Requested int              `json:"requested"`
	Count     int              `json:"count"`
	Clamped   bool             `json:"clamped"`
}

// Latest returns up to count assets, newest first. count is clamped to
// [1, max]; Clamped reports that the request exceeded the cap.
func (e *Engine) Latest(ctx context.Context, category *catalog.Category, count int) (LatestResult, error) {
	result := LatestResult{Requested: count, Count: count}
	if result.Count < 1 {
		result.Count = 1
	}
	if result.Count > e.maxLatest {
		result.Count = e.maxLatest
		result.Clamped = true
	}
	assets, err := e.store.LatestAssets(ctx, categoryID(category), result.Count)
	if err != nil {
		return result, err
	}
	result.Assets = assets
	return result, nil
}

// Random picks the next asset under the recency-fairness rule and marks it
// served. An empty scope is a not-found error.
func (e *Engine) Random(ctx context.Context, category *catalog.Category) (*catalog.Asset, error) {
	asset, err := e.store.ServeNextAvailable(ctx, categoryID(category), e.choose, e.availability(ctx))
	if err != nil {
		return nil, err
	}
	if asset == nil {
		if category != nil {
			return nil, vaulterr.NotFound(fmt.Sprintf("No media found for %s", category.DisplayName))
		}
		return nil, vaulterr.NotFound("No media found")
	}
	metrics.RecordServed(category != nil)
	return asset, nil
}

func (e *Engine) availability(ctx context.Context) func(*catalog.Asset) bool {
	if e.media == nil {
		return nil
	}
	return func(asset *catalog.Asset) bool {
		err := e.media.Stat(ctx, asset.StorageLocator)
		if err == nil || !errors.Is(err, vaulterr.ErrNotFound) {
			return true
		}
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "stored media missing",
			"media_missing", "asset skipped by random",
			logging.Int64(logging.FieldAssetID, asset.ID),
			logging.String("locator", asset.StorageLocator),
		)
		return false
	}
}

// Stats returns fresh aggregate counts.
func (e *Engine) Stats(ctx context.Context, category *catalog.Category) (catalog.Stats, error) {
	return e.store.Stats(ctx, categoryID(category))
}

// Insights returns the per-category breakdown.
func (e *Engine) Insights(ctx context.Context) ([]catalog.CategorySummary, error) {
	return e.store.CategorySummaries(ctx)
}

// Page is one page of an asset listing.
type Page struct {
	Assets     []*catalog.Asset `json:"assets"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
}

// TopRated pages rated assets by rating, highest first.
func (e *Engine) TopRated(ctx context.Context, page int) (Page, error) {
	return e.page(ctx, catalog.AssetQuery{Order: catalog.OrderTopRated}, page)
}

// Recent pages all assets, newest first.
func (e *Engine) Recent(ctx context.Context, page int) (Page, error) {
	return e.page(ctx, catalog.AssetQuery{Order: catalog.OrderNewest}, page)
}

// CategoryAssets pages one category's gallery, newest first.
func (e *Engine) CategoryAssets(ctx context.Context, category *catalog.Category, page int) (Page, error) {
	if category == nil {
		return Page{}, vaulterr.Validation("category is required")
	}
	return e.page(ctx, catalog.AssetQuery{CategoryID: &category.ID, Order: catalog.OrderNewest}, page)
}

// PendingCaptions lists images without a rating caption, newest first.
func (e *Engine) PendingCaptions(ctx context.Context, limit int) ([]*catalog.Asset, error) {
	if limit <= 0 {
		limit = DefaultPendingCaptions
	}
	return e.store.PendingCaptions(ctx, limit)
}

func (e *Engine) page(ctx context.Context, q catalog.AssetQuery, page int) (Page, error) {
	if page < 1 {
		page = 1
	}
	total, err := e.store.CountAssets(ctx, q)
	if err != nil {
		return Page{}, err
	}
	q.Limit = PageSize
	q.Offset = (page - 1) * PageSize
	assets, err := e.store.ListAssets(ctx, q)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Assets:     assets,
		Page:       page,
		PageSize:   PageSize,
		Total:      total,
		TotalPages: (total + PageSize - 1) / PageSize,
	}, nil
}

func categoryID(category *catalog.Category) *int64 {
	if category == nil {
		return nil
	}
	id := category.ID
	return &id
}
