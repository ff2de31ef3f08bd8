package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/testsupport"
	"vaultgallery/internal/vaulterr"
)

func TestCreateCategoryRejectsExistingKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	created := testsupport.NewCategory(t, store, "Ana Lopez", "ana lopez")
	if created.ID == 0 {
		t.Fatal("expected category ID to be assigned")
	}

	if _, err := store.CreateCategory(ctx, "ANA  LOPEZ", "ana lopez"); !errors.Is(err, vaulterr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	fetched, err := store.CategoryByKey(ctx, "ana lopez")
	if err != nil {
		t.Fatalf("CategoryByKey: %v", err)
	}
	if fetched == nil || fetched.ID != created.ID || fetched.DisplayName != "Ana Lopez" {
		t.Fatalf("unexpected category %#v", fetched)
	}

	missing, err := store.CategoryByID(ctx, created.ID+100)
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing category, got %#v err=%v", missing, err)
	}
}

func TestGetOrCreateCategory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first, created, err := store.GetOrCreateCategory(ctx, "Ana Lopez", "ana lopez")
	if err != nil || !created {
		t.Fatalf("first call: created=%v err=%v", created, err)
	}
	second, created, err := store.GetOrCreateCategory(ctx, "ana_lopez", "ana lopez")
	if err != nil || created {
		t.Fatalf("second call: created=%v err=%v", created, err)
	}
	if second.ID != first.ID || second.DisplayName != "Ana Lopez" {
		t.Fatalf("expected existing category, got %#v", second)
	}
}

func TestInsertAssetDeduplicatesByLocator(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	cat := testsupport.NewCategory(t, store, "Ana Lopez", "ana lopez")

	in := catalog.NewAsset{CategoryID: cat.ID, StorageLocator: "/media/ana_lopez/a.jpg", MediaType: catalog.MediaImage}
	first, created, err := store.InsertAsset(ctx, in)
	if err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}
	second, created, err := store.InsertAsset(ctx, in)
	if err != nil {
		t.Fatalf("second insert should be a no-op, got %v", err)
	}
	if created || second.ID != first.ID {
		t.Fatalf("expected existing asset %d, got %#v created=%v", first.ID, second, created)
	}

	count, err := store.CountAssets(ctx, catalog.AssetQuery{})
	if err != nil {
		t.Fatalf("CountAssets: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one asset row, got %d", count)
	}
}

func TestInsertAssetValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	cat := testsupport.NewCategory(t, store, "Ana", "ana")

	tests := []struct {
		name string
		in   catalog.NewAsset
		want error
	}{
		{"missing locator", catalog.NewAsset{CategoryID: cat.ID, MediaType: catalog.MediaImage}, vaulterr.ErrValidation},
		{"bad media type", catalog.NewAsset{CategoryID: cat.ID, StorageLocator: "x", MediaType: "audio"}, vaulterr.ErrValidation},
		{"unknown category", catalog.NewAsset{CategoryID: cat.ID + 50, StorageLocator: "y", MediaType: catalog.MediaVideo}, vaulterr.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := store.InsertAsset(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestServeNextVisitsEveryAssetBeforeRepeating(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return frozen })

	cat := testsupport.NewCategory(t, store, "Ana", "ana")
	other := testsupport.NewCategory(t, store, "Bea", "bea")
	for i := range 5 {
		testsupport.NewAsset(t, store, cat.ID, fmt.Sprintf("ana/%d.jpg", i), catalog.MediaImage)
	}
	testsupport.NewAsset(t, store, other.ID, "bea/0.jpg", catalog.MediaImage)

	rng := rand.New(rand.NewPCG(1, 2))
	choose := func(n int) int { return rng.IntN(n) }
	scope := cat.ID

	for round := range 3 {
		seen := make(map[int64]bool)
		for range 5 {
			asset, err := store.ServeNext(ctx, &scope, choose)
			if err != nil {
				t.Fatalf("ServeNext: %v", err)
			}
			if asset == nil || asset.CategoryID != cat.ID {
				t.Fatalf("unexpected asset %#v", asset)
			}
			if seen[asset.ID] {
				t.Fatalf("round %d: asset %d repeated before all were served", round, asset.ID)
			}
			seen[asset.ID] = true
		}
	}
}

func TestServeNextPrefersNeverServed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	cat := testsupport.NewCategory(t, store, "Ana", "ana")

	first := testsupport.NewAsset(t, store, cat.ID, "ana/1.jpg", catalog.MediaImage)
	served, err := store.ServeNext(ctx, nil, nil)
	if err != nil || served.ID != first.ID {
		t.Fatalf("expected first asset, got %#v err=%v", served, err)
	}
	fresh := testsupport.NewAsset(t, store, cat.ID, "ana/2.jpg", catalog.MediaImage)
	next, err := store.ServeNext(ctx, nil, func(int) int { return 0 })
	if err != nil || next.ID != fresh.ID {
		t.Fatalf("expected never-served asset %d, got %#v err=%v", fresh.ID, next, err)
	}
}

func TestServeNextEmptyScope(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	asset, err := store.ServeNext(context.Background(), nil, nil)
	if err != nil || asset != nil {
		t.Fatalf("expected nil asset for empty catalog, got %#v err=%v", asset, err)
	}
}

func TestLatestAssetsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})

	cat := testsupport.NewCategory(t, store, "Ana", "ana")
	var ids []int64
	for i := range 4 {
		ids = append(ids, testsupport.NewAsset(t, store, cat.ID, fmt.Sprintf("ana/%d.jpg", i), catalog.MediaImage).ID)
	}
	latest, err := store.LatestAssets(ctx, &cat.ID, 2)
	if err != nil {
		t.Fatalf("LatestAssets: %v", err)
	}
	if len(latest) != 2 || latest[0].ID != ids[3] || latest[1].ID != ids[2] {
		t.Fatalf("unexpected latest order: %#v", latest)
	}
}

func TestRatingLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	cat := testsupport.NewCategory(t, store, "Ana", "ana")
	img := testsupport.NewAsset(t, store, cat.ID, "ana/1.jpg", catalog.MediaImage)
	testsupport.NewAsset(t, store, cat.ID, "ana/2.mp4", catalog.MediaVideo)

	unrated, err := store.UnratedImages(ctx, 0)
	if err != nil || len(unrated) != 1 || unrated[0].ID != img.ID {
		t.Fatalf("unexpected unrated images %#v err=%v", unrated, err)
	}

	ok, err := store.SetRating(ctx, img.ID, 88)
	if err != nil || !ok {
		t.Fatalf("SetRating: ok=%v err=%v", ok, err)
	}
	ok, err = store.SetRating(ctx, img.ID, 12)
	if err != nil || ok {
		t.Fatalf("second SetRating should not apply: ok=%v err=%v", ok, err)
	}

	rated, err := store.AssetByID(ctx, img.ID)
	if err != nil {
		t.Fatalf("AssetByID: %v", err)
	}
	if rated.Rating == nil || *rated.Rating != 88 || rated.RatedAt == nil {
		t.Fatalf("expected rating 88 with timestamp, got %#v", rated)
	}

	updated, err := store.SubmitRating(ctx, img.ID, 91, "crisp")
	if err != nil {
		t.Fatalf("SubmitRating: %v", err)
	}
	if *updated.Rating != 91 || updated.RatingCaption != "crisp" {
		t.Fatalf("unexpected asset after submit %#v", updated)
	}
	if _, err := store.SubmitRating(ctx, img.ID, 50, "again"); !errors.Is(err, vaulterr.ErrConflict) {
		t.Fatalf("expected conflict for second caption, got %v", err)
	}
	if _, err := store.SubmitRating(ctx, img.ID+99, 50, "x"); !errors.Is(err, vaulterr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	pending, err := store.PendingCaptions(ctx, 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected no pending captions, got %#v err=%v", pending, err)
	}
}

func TestStatsAndSummaries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ana := testsupport.NewCategory(t, store, "Ana", "ana")
	bea := testsupport.NewCategory(t, store, "bea", "bea")
	a1 := testsupport.NewAsset(t, store, ana.ID, "ana/1.jpg", catalog.MediaImage)
	a2 := testsupport.NewAsset(t, store, ana.ID, "ana/2.jpg", catalog.MediaImage)
	testsupport.NewAsset(t, store, ana.ID, "ana/3.mp4", catalog.MediaVideo)
	testsupport.NewAsset(t, store, bea.ID, "bea/1.jpg", catalog.MediaImage)
	if _, err := store.SetRating(ctx, a1.ID, 99); err != nil {
		t.Fatal(err)
	}
	if _, err := store.SetRating(ctx, a2.ID, 78); err != nil {
		t.Fatal(err)
	}

	all, err := store.Stats(ctx, nil)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if all.Categories != 2 || all.Total != 4 || all.Images != 3 || all.Videos != 1 || all.RatedImages != 2 {
		t.Fatalf("unexpected global stats %#v", all)
	}
	if all.AverageRating == nil || *all.AverageRating != 88.5 {
		t.Fatalf("unexpected average %#v", all.AverageRating)
	}
	if all.LatestUpload == nil {
		t.Fatal("expected latest upload timestamp")
	}

	scoped, err := store.Stats(ctx, &bea.ID)
	if err != nil {
		t.Fatalf("scoped Stats: %v", err)
	}
	if scoped.Total != 1 || scoped.RatedImages != 0 || scoped.AverageRating != nil || scoped.Categories != 0 {
		t.Fatalf("unexpected scoped stats %#v", scoped)
	}

	summaries, err := store.CategorySummaries(ctx)
	if err != nil {
		t.Fatalf("CategorySummaries: %v", err)
	}
	if len(summaries) != 2 || summaries[0].DisplayName != "Ana" {
		t.Fatalf("unexpected summaries %#v", summaries)
	}
	s := summaries[0]
	if s.Total != 3 || s.Rating90 != 1 || s.Rating80 != 0 || s.RatingLow != 1 || s.Unrated != 1 {
		t.Fatalf("unexpected buckets %#v", s)
	}
}

func TestDeletionOperations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ana := testsupport.NewCategory(t, store, "Ana", "ana")
	bea := testsupport.NewCategory(t, store, "Bea", "bea")
	for i := range 4 {
		testsupport.NewAsset(t, store, ana.ID, fmt.Sprintf("ana/%d.jpg", i), catalog.MediaImage)
	}
	single := testsupport.NewAsset(t, store, bea.ID, "bea/0.jpg", catalog.MediaImage)
	testsupport.NewAsset(t, store, bea.ID, "bea/1.jpg", catalog.MediaImage)

	removed, err := store.DeleteRandomAssets(ctx, ana.ID, 3)
	if err != nil || len(removed) != 3 {
		t.Fatalf("DeleteRandomAssets: removed=%v err=%v", removed, err)
	}
	if count, _ := store.CountAssets(ctx, catalog.AssetQuery{CategoryID: &ana.ID}); count != 1 {
		t.Fatalf("expected 1 remaining asset, got %d", count)
	}

	locator, err := store.DeleteAsset(ctx, single.ID)
	if err != nil || locator != "bea/0.jpg" {
		t.Fatalf("DeleteAsset: locator=%q err=%v", locator, err)
	}
	if _, err := store.DeleteAsset(ctx, single.ID); !errors.Is(err, vaulterr.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}

	locators, err := store.DeleteCategory(ctx, bea.ID)
	if err != nil || len(locators) != 1 || locators[0] != "bea/1.jpg" {
		t.Fatalf("DeleteCategory: locators=%v err=%v", locators, err)
	}
	if count, _ := store.CountAssets(ctx, catalog.AssetQuery{CategoryID: &bea.ID}); count != 0 {
		t.Fatalf("expected cascade to remove assets, %d remain", count)
	}

	wiped, err := store.DeleteAllAssets(ctx)
	if err != nil || len(wiped) != 1 {
		t.Fatalf("DeleteAllAssets: wiped=%v err=%v", wiped, err)
	}
	cats, err := store.ListCategories(ctx)
	if err != nil || len(cats) != 1 {
		t.Fatalf("expected categories preserved, got %d err=%v", len(cats), err)
	}
}

func TestMergeCategoryGroup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	canonical, err := store.ImportCategory(ctx, "Ana Lopez", "Ana Lopez")
	if err != nil {
		t.Fatalf("ImportCategory: %v", err)
	}
	dup, err := store.ImportCategory(ctx, "Ana_Lopez", "ana_lopez")
	if err != nil {
		t.Fatalf("ImportCategory: %v", err)
	}
	testsupport.NewAsset(t, store, canonical.ID, "a/1.jpg", catalog.MediaImage)
	testsupport.NewAsset(t, store, dup.ID, "a/2.jpg", catalog.MediaImage)
	testsupport.NewAsset(t, store, dup.ID, "a/3.jpg", catalog.MediaVideo)

	moved, err := store.MergeCategoryGroup(ctx, canonical.ID, []int64{dup.ID}, "ana lopez")
	if err != nil {
		t.Fatalf("MergeCategoryGroup: %v", err)
	}
	if moved != 2 {
		t.Fatalf("expected 2 reassigned assets, got %d", moved)
	}
	cats, err := store.ListCategories(ctx)
	if err != nil || len(cats) != 1 || cats[0].NormalizedKey != "ana lopez" {
		t.Fatalf("unexpected categories after merge %#v err=%v", cats, err)
	}
	if count, _ := store.CountAssets(ctx, catalog.AssetQuery{CategoryID: &canonical.ID}); count != 3 {
		t.Fatalf("expected 3 assets on canonical, got %d", count)
	}
	if err := store.EnsureCategoryKeyIndex(ctx); err != nil {
		t.Fatalf("EnsureCategoryKeyIndex: %v", err)
	}
}

func TestSetCategoryScores(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	cat := testsupport.NewCategory(t, store, "Ana", "ana")

	if err := store.SetCategoryScores(ctx, cat.ID, catalog.Uniform(21)); !errors.Is(err, vaulterr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := store.SetCategoryScores(ctx, cat.ID, catalog.Uniform(14)); err != nil {
		t.Fatalf("SetCategoryScores: %v", err)
	}
	fetched, _ := store.CategoryByID(ctx, cat.ID)
	for _, v := range fetched.Scores.Values() {
		if v == nil || *v != 14 {
			t.Fatalf("expected every dimension to be 14, got %#v", fetched.Scores)
		}
	}
	if err := store.SetCategoryScores(ctx, cat.ID+9, catalog.Uniform(1)); !errors.Is(err, vaulterr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
