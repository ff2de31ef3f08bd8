package resolver

import (
	"context"
	"fmt"
	"slices"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/logging"
)

// MergeReport summarizes a MergeDuplicates pass.
type MergeReport struct {
	Groups     int   `json:"groups"`
	Removed    int   `json:"removed"`
	Reassigned int64 `json:"reassigned"`
	Rekeyed    int   `json:"rekeyed"`
}

// Changed reports whether the pass modified anything.
func (m MergeReport) Changed() bool {
	return m.Removed > 0 || m.Reassigned > 0 || m.Rekeyed > 0
}

// MergeDuplicates groups categories by the normalized form of their display
// name, folds each group into its lowest-id category, refreshes stored keys,
// and re-establishes the unique key index. Running it twice is a no-op.
func (r *Resolver) MergeDuplicates(ctx context.Context) (MergeReport, error) {
	var report MergeReport

	all, err := r.store.ListCategories(ctx)
	if err != nil {
		return report, err
	}

	groups := make(map[string][]*catalog.Category)
	var order []string
	for _, category := range all {
		key := Normalize(category.DisplayName)
		if key == "" {
			key = Normalize(category.NormalizedKey)
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], category)
	}

	for _, key := range order {
		members := groups[key]
		slices.SortFunc(members, func(a, b *catalog.Category) int { return compareInt64(a.ID, b.ID) })
		canonical := members[0]
		duplicates := make([]int64, 0, len(members)-1)
		for _, dup := range members[1:] {
			duplicates = append(duplicates, dup.ID)
		}
		if len(duplicates) == 0 && canonical.NormalizedKey == key {
			continue
		}

		moved, err := r.store.MergeCategoryGroup(ctx, canonical.ID, duplicates, key)
		if err != nil {
			return report, fmt.Errorf("merge %q: %w", canonical.DisplayName, err)
		}
		report.Groups++
		report.Removed += len(duplicates)
		report.Reassigned += moved
		if canonical.NormalizedKey != key {
			report.Rekeyed++
		}
		r.logger.Info("categories merged",
			logging.String(logging.FieldCategory, canonical.DisplayName),
			logging.Int("duplicates", len(duplicates)),
			logging.Int64("reassigned", moved),
			logging.String("key", key),
		)
	}

	if err := r.store.EnsureCategoryKeyIndex(ctx); err != nil {
		return report, err
	}
	return report, nil
}
