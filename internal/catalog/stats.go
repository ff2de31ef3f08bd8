package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// Stats aggregates asset counts straight from the current catalog state. A nil
// categoryID covers the whole catalog and also reports the category count.
func (s *Store) Stats(ctx context.Context, categoryID *int64) (Stats, error) {
	ctx = ensureContext(ctx)
	where, args := categoryFilter(categoryID)

	var (
		stats     Stats
		avg       sql.NullFloat64
		latestRaw sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT
            COUNT(*),
            COALESCE(SUM(CASE WHEN media_type = 'image' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN media_type = 'video' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN media_type = 'image' AND rating IS NOT NULL THEN 1 ELSE 0 END), 0),
            AVG(CASE WHEN media_type = 'image' THEN rating END),
            MAX(created_at)
         FROM assets WHERE `+where, args...,
	).Scan(&stats.Total, &stats.Images, &stats.Videos, &stats.RatedImages, &avg, &latestRaw)
	if err != nil {
		return Stats{}, wrapPersistence("stats", err)
	}
	if avg.Valid {
		v := avg.Float64
		stats.AverageRating = &v
	}
	stats.LatestUpload = nullableTimePtr(latestRaw)

	if categoryID == nil {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&stats.Categories); err != nil {
			return Stats{}, wrapPersistence("count categories", err)
		}
	}
	return stats, nil
}

// CategorySummaries returns every category with its asset breakdown and
// rating buckets, ordered like ListCategories.
func (s *Store) CategorySummaries(ctx context.Context) ([]CategorySummary, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT c.id, c.display_name, c.normalized_key, c.popularity, c.versatility, c.longevity,
                c.industry_impact, c.fan_appeal, c.created_at,
                COUNT(a.id),
                COALESCE(SUM(CASE WHEN a.media_type = 'image' THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN a.media_type = 'video' THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN a.rating >= 90 THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN a.rating >= 80 AND a.rating < 90 THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN a.rating < 80 THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN a.id IS NOT NULL AND a.rating IS NULL THEN 1 ELSE 0 END), 0),
                MAX(a.created_at)
         FROM categories c
         LEFT JOIN assets a ON a.category_id = c.id
         GROUP BY c.id
         ORDER BY c.display_name COLLATE NOCASE, c.id`)
	if err != nil {
		return nil, wrapPersistence("category summaries", err)
	}
	defer rows.Close()

	var summaries []CategorySummary
	for rows.Next() {
		var (
			summary    CategorySummary
			dims       [5]sql.NullInt64
			createdRaw string
			latestRaw  sql.NullString
		)
		if err := rows.Scan(
			&summary.ID, &summary.DisplayName, &summary.NormalizedKey,
			&dims[0], &dims[1], &dims[2], &dims[3], &dims[4], &createdRaw,
			&summary.Total, &summary.Images, &summary.Videos,
			&summary.Rating90, &summary.Rating80, &summary.RatingLow, &summary.Unrated,
			&latestRaw,
		); err != nil {
			return nil, wrapPersistence("scan category summary", err)
		}
		summary.Scores = Scores{
			Popularity:     nullableIntPtr(dims[0]),
			Versatility:    nullableIntPtr(dims[1]),
			Longevity:      nullableIntPtr(dims[2]),
			IndustryImpact: nullableIntPtr(dims[3]),
			FanAppeal:      nullableIntPtr(dims[4]),
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			summary.CreatedAt = created
		}
		summary.LatestUpload = nullableTimePtr(latestRaw)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category summaries: %w", err)
	}
	return summaries, nil
}
