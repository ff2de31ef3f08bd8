package resolver_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/logging"
	"vaultgallery/internal/resolver"
	"vaultgallery/internal/testsupport"
	"vaultgallery/internal/vaulterr"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ana Lopez", "ana lopez"},
		{"  Ana__Lopez ", "ana lopez"},
		{"ANA\t lopez", "ana lopez"},
		{"Émilie_Durand", "émilie durand"},
		{"", ""},
		{"___", ""},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got := resolver.Normalize(tc.in)
			if got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if again := resolver.Normalize(got); again != got {
				t.Fatalf("Normalize not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestSlug(t *testing.T) {
	if got := resolver.Slug("Ana  Lopez!"); got != "ana_lopez" {
		t.Fatalf("unexpected slug %q", got)
	}
	if got := resolver.Slug("???"); got != "unknown" {
		t.Fatalf("unexpected slug for symbols %q", got)
	}
}

func TestDirectoryIsUniquePerCategory(t *testing.T) {
	plain := &catalog.Category{ID: 3, NormalizedKey: "jlo"}
	dotted := &catalog.Category{ID: 7, NormalizedKey: "j.lo"}
	if got := resolver.Directory(plain); got != "jlo-3" {
		t.Fatalf("unexpected directory %q", got)
	}
	if got := resolver.Directory(dotted); got != "jlo-7" {
		t.Fatalf("unexpected directory %q", got)
	}
	symbols := resolver.Directory(&catalog.Category{ID: 9, NormalizedKey: "???"})
	if symbols != "unknown-9" {
		t.Fatalf("unexpected directory for symbols %q", symbols)
	}
}

func newResolver(t *testing.T) (*resolver.Resolver, *catalog.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return resolver.New(store, logging.NewNop()), store
}

func TestFindMatchesPartialSortedByDisplayName(t *testing.T) {
	res, _ := newResolver(t)
	ctx := context.Background()

	for _, name := range []string{"Alice Smith", "Alice Jones", "Bob Stone"} {
		if _, err := res.Create(ctx, name); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	matches, err := res.FindMatches(ctx, "alice")
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(matches) != 2 || matches[0].DisplayName != "Alice Jones" || matches[1].DisplayName != "Alice Smith" {
		t.Fatalf("unexpected matches %#v", matches)
	}

	resolution, err := res.Resolve(ctx, "alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolution.Outcome != resolver.Ambiguous || resolution.Category != nil {
		t.Fatalf("expected ambiguous outcome, got %v", resolution.Outcome)
	}
	var ambiguous *vaulterr.AmbiguousCategoryError
	if !errors.As(resolution.Err(), &ambiguous) {
		t.Fatalf("expected ambiguous error, got %v", resolution.Err())
	}
	if ambiguous.Error() != "Multiple matches: Alice Jones, Alice Smith" {
		t.Fatalf("unexpected message %q", ambiguous.Error())
	}
}

func TestResolveExactWinsOverPartials(t *testing.T) {
	res, _ := newResolver(t)
	ctx := context.Background()
	for _, name := range []string{"Ana", "Ana Lopez", "Anabel"} {
		if _, err := res.Create(ctx, name); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}
	resolution, err := res.Resolve(ctx, "  ANA ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolution.Outcome != resolver.Resolved || resolution.Category.DisplayName != "Ana" {
		t.Fatalf("expected exact match Ana, got %#v", resolution)
	}

	single, err := res.Resolve(ctx, "lopez")
	if err != nil || single.Outcome != resolver.Resolved || single.Category.DisplayName != "Ana Lopez" {
		t.Fatalf("expected single partial to resolve, got %#v err=%v", single, err)
	}
}

func TestResolveNotFoundSuggests(t *testing.T) {
	res, _ := newResolver(t)
	ctx := context.Background()
	if _, err := res.Create(ctx, "Ana Lopez"); err != nil {
		t.Fatal(err)
	}

	resolution, err := res.Resolve(ctx, "Ana Lopes")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolution.Outcome != resolver.NotFound {
		t.Fatalf("expected not found, got %v", resolution.Outcome)
	}
	err = resolution.Err()
	if !errors.Is(err, vaulterr.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if len(resolution.Suggestions) == 0 || resolution.Suggestions[0] != "Ana Lopez" {
		t.Fatalf("expected suggestion Ana Lopez, got %v", resolution.Suggestions)
	}
}

func TestResolveCapsCandidates(t *testing.T) {
	res, _ := newResolver(t)
	ctx := context.Background()
	for i := range 12 {
		if _, err := res.Create(ctx, fmt.Sprintf("Model %02d", i)); err != nil {
			t.Fatal(err)
		}
	}
	resolution, err := res.Resolve(ctx, "model")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolution.Outcome != resolver.Ambiguous || len(resolution.Candidates) != resolver.MaxCandidates {
		t.Fatalf("expected %d candidates, got %d", resolver.MaxCandidates, len(resolution.Candidates))
	}
}

func TestResolveOptionalAndRequire(t *testing.T) {
	res, _ := newResolver(t)
	ctx := context.Background()

	category, err := res.ResolveOptional(ctx, "   ")
	if err != nil || category != nil {
		t.Fatalf("expected nil scope for empty input, got %#v err=%v", category, err)
	}
	if _, err := res.Require(ctx, ""); !errors.Is(err, vaulterr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := res.ResolveOptional(ctx, "ghost"); !errors.Is(err, vaulterr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetOrCreateIgnoresPartialMatches(t *testing.T) {
	res, _ := newResolver(t)
	ctx := context.Background()

	existing, created, err := res.GetOrCreate(ctx, "Ana Lopez")
	if err != nil || !created {
		t.Fatalf("GetOrCreate: created=%v err=%v", created, err)
	}
	other, created, err := res.GetOrCreate(ctx, "Ana")
	if err != nil || !created || other.ID == existing.ID {
		t.Fatalf("partial match must not capture upload: %#v created=%v err=%v", other, created, err)
	}
	same, created, err := res.GetOrCreate(ctx, "ana_lopez")
	if err != nil || created || same.ID != existing.ID {
		t.Fatalf("expected exact match reuse, got %#v created=%v err=%v", same, created, err)
	}
	if _, err := res.Create(ctx, "ANA LOPEZ"); !errors.Is(err, vaulterr.ErrConflict) {
		t.Fatalf("expected conflict on explicit create, got %v", err)
	}
}

func TestMergeDuplicates(t *testing.T) {
	res, store := newResolver(t)
	ctx := context.Background()

	canonical, err := store.ImportCategory(ctx, "Ana Lopez", "Ana Lopez")
	if err != nil {
		t.Fatal(err)
	}
	dup, err := store.ImportCategory(ctx, "Ana_Lopez", "ana_lopez")
	if err != nil {
		t.Fatal(err)
	}
	testsupport.NewAsset(t, store, canonical.ID, "x/1.jpg", catalog.MediaImage)
	testsupport.NewAsset(t, store, dup.ID, "x/2.jpg", catalog.MediaImage)

	report, err := res.MergeDuplicates(ctx)
	if err != nil {
		t.Fatalf("MergeDuplicates: %v", err)
	}
	if report.Removed != 1 || report.Reassigned != 1 || report.Groups != 1 {
		t.Fatalf("unexpected report %#v", report)
	}

	cats, err := store.ListCategories(ctx)
	if err != nil || len(cats) != 1 || cats[0].ID != canonical.ID {
		t.Fatalf("expected only the canonical category, got %#v err=%v", cats, err)
	}
	if count, _ := store.CountAssets(ctx, catalog.AssetQuery{CategoryID: &canonical.ID}); count != 2 {
		t.Fatalf("expected both assets on canonical, got %d", count)
	}

	resolution, err := res.Resolve(ctx, "ana lopez")
	if err != nil || resolution.Outcome != resolver.Resolved || resolution.Category.DisplayName != "Ana Lopez" {
		t.Fatalf("expected canonical resolution, got %#v err=%v", resolution, err)
	}

	again, err := res.MergeDuplicates(ctx)
	if err != nil {
		t.Fatalf("second MergeDuplicates: %v", err)
	}
	if again.Changed() {
		t.Fatalf("expected idempotent second pass, got %#v", again)
	}
}
