package scoring

import (
	"context"
	"log/slog"
	"math"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/logging"
)

// RefreshReport summarizes a Refresh run.
type RefreshReport struct {
	Categories int `json:"categories"`
	Scored     int `json:"scored"`
	Missing    int `json:"missing"`
}

// Refresher writes normalized scores into the catalog.
type Refresher struct {
	store  *catalog.Store
	source Source
	logger *slog.Logger
}

// NewRefresher constructs a Refresher.
func NewRefresher(store *catalog.Store, source Source, logger *slog.Logger) *Refresher {
	return &Refresher{store: store, source: source, logger: logging.NewComponentLogger(logger, "scoring")}
}

// Normalize maps raw totals to 0..20 relative to the largest total.
func Normalize(totals map[string]int) map[string]int {
	peak := 0
	for _, v := range totals {
		peak = max(peak, v)
	}
	out := make(map[string]int, len(totals))
	for name, v := range totals {
		if peak == 0 {
			out[name] = 0
			continue
		}
		out[name] = int(math.Round(float64(max(v, 0)) / float64(peak) * MaxDimension))
	}
	return out
}

// Refresh scores every category and writes the normalized value to all five
// dimensions. Categories the source cannot score keep their current values.
func (r *Refresher) Refresh(ctx context.Context) (RefreshReport, error) {
	var report RefreshReport
	categories, err := r.store.ListCategories(ctx)
	if err != nil {
		return report, err
	}
	report.Categories = len(categories)
	if len(categories) == 0 {
		return report, nil
	}

	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.DisplayName)
	}
	totals, sourceErr := r.source.Score(ctx, names)
	normalized := Normalize(totals)

	for _, c := range categories {
		value, ok := normalized[c.DisplayName]
		if !ok {
			report.Missing++
			continue
		}
		if err := r.store.SetCategoryScores(ctx, c.ID, catalog.Uniform(value)); err != nil {
			return report, err
		}
		report.Scored++
	}
	r.logger.Info("category scores refreshed",
		logging.Int("categories", report.Categories),
		logging.Int("scored", report.Scored),
		logging.Int("missing", report.Missing),
	)
	return report, sourceErr
}
