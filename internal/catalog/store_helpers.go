package catalog

import (
	"database/sql"
	"errors"
	"time"
)

// timeLayout is fixed width so text comparison in SQL orders chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const categoryColumns = "id, display_name, normalized_key, popularity, versatility, longevity, industry_impact, fan_appeal, created_at"

const assetColumns = "id, category_id, storage_locator, media_type, source_reference, created_at, last_served_at, rating, rating_caption, rated_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanCategory(scanner rowScanner) (*Category, error) {
	var (
		cat        Category
		dims       [5]sql.NullInt64
		createdRaw string
	)
	if err := scanner.Scan(
		&cat.ID,
		&cat.DisplayName,
		&cat.NormalizedKey,
		&dims[0],
		&dims[1],
		&dims[2],
		&dims[3],
		&dims[4],
		&createdRaw,
	); err != nil {
		return nil, err
	}
	cat.Scores = Scores{
		Popularity:     nullableIntPtr(dims[0]),
		Versatility:    nullableIntPtr(dims[1]),
		Longevity:      nullableIntPtr(dims[2]),
		IndustryImpact: nullableIntPtr(dims[3]),
		FanAppeal:      nullableIntPtr(dims[4]),
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		cat.CreatedAt = created
	}
	return &cat, nil
}

func scanAsset(scanner rowScanner) (*Asset, error) {
	var (
		asset      Asset
		mediaType  string
		sourceRef  sql.NullString
		createdRaw string
		servedRaw  sql.NullString
		rating     sql.NullInt64
		caption    sql.NullString
		ratedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&asset.ID,
		&asset.CategoryID,
		&asset.StorageLocator,
		&mediaType,
		&sourceRef,
		&createdRaw,
		&servedRaw,
		&rating,
		&caption,
		&ratedRaw,
	); err != nil {
		return nil, err
	}
	asset.MediaType = MediaType(mediaType)
	asset.SourceReference = sourceRef.String
	asset.Rating = nullableIntPtr(rating)
	asset.RatingCaption = caption.String
	if created, err := parseTimeString(createdRaw); err == nil {
		asset.CreatedAt = created
	}
	asset.LastServedAt = nullableTimePtr(servedRaw)
	asset.RatedAt = nullableTimePtr(ratedRaw)
	return &asset, nil
}

func scanAssets(rows *sql.Rows) ([]*Asset, error) {
	defer rows.Close()
	var assets []*Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableScore(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableIntPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int64)
	return &v
}

func nullableTimePtr(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// categoryFilter returns a WHERE fragment and args scoping assets to a category.
func categoryFilter(categoryID *int64) (string, []any) {
	if categoryID == nil {
		return "1=1", nil
	}
	return "category_id = ?", []any{*categoryID}
}
