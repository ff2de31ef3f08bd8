package catalog

import (
	"fmt"
	"strings"
	"time"
)

// MediaType distinguishes still images from videos.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// ParseMediaType accepts "image"/"photo" and "video".
func ParseMediaType(value string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "image", "photo":
		return MediaImage, nil
	case "video":
		return MediaVideo, nil
	default:
		return "", fmt.Errorf("unknown media type %q", value)
	}
}

// Scores holds the five optional quality dimensions of a category, each 0..20.
type Scores struct {
	Popularity     *int `json:"popularity,omitempty"`
	Versatility    *int `json:"versatility,omitempty"`
	Longevity      *int `json:"longevity,omitempty"`
	IndustryImpact *int `json:"industry_impact,omitempty"`
	FanAppeal      *int `json:"fan_appeal,omitempty"`
}

// Uniform returns Scores with every dimension set to value.
func Uniform(value int) Scores {
	v := value
	return Scores{Popularity: &v, Versatility: &v, Longevity: &v, IndustryImpact: &v, FanAppeal: &v}
}

// Values returns the five dimensions in a fixed order.
func (s Scores) Values() []*int {
	return []*int{s.Popularity, s.Versatility, s.Longevity, s.IndustryImpact, s.FanAppeal}
}

// Category is a named grouping of assets.
type Category struct {
	ID            int64     `json:"id"`
	DisplayName   string    `json:"display_name"`
	NormalizedKey string    `json:"normalized_key"`
	Scores        Scores    `json:"scores"`
	CreatedAt     time.Time `json:"created_at"`
}

// Asset is one stored media item.
type Asset struct {
	ID              int64      `json:"id"`
	CategoryID      int64      `json:"category_id"`
	StorageLocator  string     `json:"storage_locator"`
	MediaType       MediaType  `json:"media_type"`
	SourceReference string     `json:"source_reference,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	LastServedAt    *time.Time `json:"last_served_at,omitempty"`
	Rating          *int       `json:"rating,omitempty"`
	RatingCaption   string     `json:"rating_caption,omitempty"`
	RatedAt         *time.Time `json:"rated_at,omitempty"`
}

// NewAsset describes an asset to insert.
type NewAsset struct {
	CategoryID      int64
	StorageLocator  string
	MediaType       MediaType
	SourceReference string
}

// Stats aggregates asset counts for one category or the whole catalog.
type Stats struct {
	Categories    int        `json:"categories,omitempty"`
	Total         int        `json:"total"`
	Images        int        `json:"images"`
	Videos        int        `json:"videos"`
	RatedImages   int        `json:"rated_images"`
	AverageRating *float64   `json:"average_rating,omitempty"`
	LatestUpload  *time.Time `json:"latest_upload,omitempty"`
}

// CategorySummary is a per-category breakdown used by listings and insights.
type CategorySummary struct {
	Category
	Total        int        `json:"total"`
	Images       int        `json:"images"`
	Videos       int        `json:"videos"`
	Rating90     int        `json:"rating_90"`
	Rating80     int        `json:"rating_80"`
	RatingLow    int        `json:"rating_low"`
	Unrated      int        `json:"unrated"`
	LatestUpload *time.Time `json:"latest_upload,omitempty"`
}

// AssetOrder selects the ordering of an asset listing.
type AssetOrder int

const (
	// OrderNewest sorts by creation time, newest first.
	OrderNewest AssetOrder = iota
	// OrderTopRated sorts rated assets by rating then creation time.
	OrderTopRated
)

// AssetQuery filters and pages an asset listing.
type AssetQuery struct {
	CategoryID *int64
	MediaType  MediaType
	Order      AssetOrder
	Limit      int
	Offset     int
}

// MergeGroup is a set of categories that normalize to the same key.
type MergeGroup struct {
	Key          string
	CanonicalID  int64
	DuplicateIDs []int64
}
