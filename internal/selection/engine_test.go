package selection_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/logging"
	"vaultgallery/internal/mediastore"
	"vaultgallery/internal/selection"
	"vaultgallery/internal/testsupport"
	"vaultgallery/internal/vaulterr"
)

func TestRandomServesEveryAssetOnceBeforeRepeats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	cat := testsupport.NewCategory(t, store, "Ana", "ana")
	for i := range 5 {
		testsupport.NewAsset(t, store, cat.ID, fmt.Sprintf("ana/%d.jpg", i), catalog.MediaImage)
	}

	calls := 0
	engine := selection.New(store, cfg, selection.WithChooser(func(n int) int {
		calls++
		return (calls * 7) % n
	}))

	seen := make(map[int64]int)
	for range 5 {
		asset, err := engine.Random(ctx, cat)
		if err != nil {
			t.Fatalf("Random: %v", err)
		}
		seen[asset.ID]++
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 distinct assets, got %d", len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("asset %d served %d times", id, n)
		}
	}

	sixth, err := engine.Random(ctx, cat)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	if seen[sixth.ID] != 1 {
		t.Fatalf("sixth pick should repeat a served asset, got %d", sixth.ID)
	}
}

func TestRandomEmptyScope(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	engine := selection.New(store, cfg)
	cat := testsupport.NewCategory(t, store, "Empty", "empty")

	_, err := engine.Random(context.Background(), cat)
	if !errors.Is(err, vaulterr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if vaulterr.UserMessage(err) != "No media found for Empty" {
		t.Fatalf("unexpected message %q", vaulterr.UserMessage(err))
	}
}

func TestLatestClampsCount(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxLatest(5))
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	cat := testsupport.NewCategory(t, store, "Ana", "ana")
	for i := range 7 {
		testsupport.NewAsset(t, store, cat.ID, fmt.Sprintf("ana/%d.jpg", i), catalog.MediaImage)
	}
	engine := selection.New(store, cfg)

	tests := []struct {
		name        string
		count       int
		wantCount   int
		wantClamped bool
	}{
		{"within range", 3, 3, false},
		{"above cap", 9, 5, true},
		{"zero", 0, 1, false},
		{"negative", -4, 1, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := engine.Latest(ctx, nil, tc.count)
			if err != nil {
				t.Fatalf("Latest: %v", err)
			}
			if len(result.Assets) != tc.wantCount || result.Count != tc.wantCount || result.Clamped != tc.wantClamped {
				t.Fatalf("unexpected result count=%d assets=%d clamped=%v", result.Count, len(result.Assets), result.Clamped)
			}
		})
	}
}

func TestPagingAndInsights(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	cat := testsupport.NewCategory(t, store, "Ana", "ana")
	for i := range selection.PageSize + 2 {
		asset := testsupport.NewAsset(t, store, cat.ID, fmt.Sprintf("ana/%d.jpg", i), catalog.MediaImage)
		if i < 3 {
			if _, err := store.SetRating(ctx, asset.ID, 90+i); err != nil {
				t.Fatal(err)
			}
		}
	}
	engine := selection.New(store, cfg)

	recent, err := engine.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if recent.Total != selection.PageSize+2 || recent.TotalPages != 2 || len(recent.Assets) != 2 {
		t.Fatalf("unexpected second page %#v", recent)
	}

	top, err := engine.TopRated(ctx, 0)
	if err != nil {
		t.Fatalf("TopRated: %v", err)
	}
	if top.Page != 1 || len(top.Assets) != 3 || *top.Assets[0].Rating != 92 {
		t.Fatalf("unexpected top rated page %#v", top)
	}

	gallery, err := engine.CategoryAssets(ctx, cat, 1)
	if err != nil || len(gallery.Assets) != selection.PageSize {
		t.Fatalf("unexpected gallery size %d err=%v", len(gallery.Assets), err)
	}

	insights, err := engine.Insights(ctx)
	if err != nil || len(insights) != 1 || insights[0].Rating90 != 3 {
		t.Fatalf("unexpected insights %#v err=%v", insights, err)
	}

	pending, err := engine.PendingCaptions(ctx, 0)
	if err != nil || len(pending) != selection.PageSize+2 {
		t.Fatalf("unexpected pending captions %d err=%v", len(pending), err)
	}
}

func TestRandomSkipsAssetsWithMissingFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	media := mediastore.NewLocal(cfg.Paths.MediaRoot)
	cat := testsupport.NewCategory(t, store, "Ana", "ana")

	present, err := media.Write(ctx, "ana-1", "present.png", testsupport.PNG(t, 4, 4))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	missing := testsupport.NewAsset(t, store, cat.ID, filepath.Join(cfg.Paths.MediaRoot, "ana-1", "gone.png"), catalog.MediaImage)
	kept := testsupport.NewAsset(t, store, cat.ID, present, catalog.MediaImage)

	// Always point at the missing asset first.
	engine := selection.New(store, cfg,
		selection.WithChooser(func(int) int { return 0 }),
		selection.WithMedia(media, logging.NewNop()),
	)
	for i := range 3 {
		asset, err := engine.Random(ctx, cat)
		if err != nil {
			t.Fatalf("Random %d: %v", i, err)
		}
		if asset.ID != kept.ID {
			t.Fatalf("Random %d: expected asset %d, got %d", i, kept.ID, asset.ID)
		}
	}
	got, err := store.AssetByID(ctx, missing.ID)
	if err != nil {
		t.Fatalf("AssetByID: %v", err)
	}
	if got.LastServedAt != nil {
		t.Fatalf("skipped asset must keep its turn, got served at %v", got.LastServedAt)
	}

	if err := media.Remove(ctx, present); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := engine.Random(ctx, cat); !errors.Is(err, vaulterr.ErrNotFound) {
		t.Fatalf("expected not found when every file is missing, got %v", err)
	}
}
