// Package rating derives a deterministic 0..100 quality rating for images
// from their pixel dimensions.
//
// Freshly ingested images are rated through short follow-ups scheduled with
// time.AfterFunc, so the submitter never waits on filesystem propagation.
// Anything still unrated is picked up by Backfill, which the daemon runs on
// start and on a fixed interval.
package rating

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/mediastore"
)

// ErrUnavailable reports that an image could not be read or decoded yet.
var ErrUnavailable = errors.New("rating unavailable")

type tier struct {
	long, short int
	rating      int
}

var tiers = []tier{
	{3840, 2160, 99},
	{2560, 1440, 93},
	{1920, 1080, 88},
	{1280, 720, 78},
}

// ComputeRating maps pixel dimensions to a rating. Resolution tiers compare
// the larger side and the smaller side; below every tier the rating scales
// with megapixels between 60 and 76.
func ComputeRating(width, height int) int {
	long, short := max(width, height), min(width, height)
	for _, t := range tiers {
		if long >= t.long && short >= t.short {
			return t.rating
		}
	}
	if width <= 0 || height <= 0 {
		return 60
	}
	mp := float64(width) * float64(height) / 1_000_000
	scaled := math.Min(mp, 2) / 2
	rating := int(math.Round(60 + scaled*16))
	return min(max(rating, 60), 76)
}

// Dimensions reads the pixel size of the image behind asset.
func Dimensions(ctx context.Context, media mediastore.Store, asset *catalog.Asset) (int, int, error) {
	if asset == nil || asset.MediaType != catalog.MediaImage {
		return 0, 0, fmt.Errorf("%w: not an image", ErrUnavailable)
	}
	rc, err := media.Open(ctx, asset.StorageLocator)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer rc.Close()

	cfg, _, err := image.DecodeConfig(rc)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: decode: %w", ErrUnavailable, err)
	}
	return cfg.Width, cfg.Height, nil
}

// ComputeForAsset opens the backing image and rates it.
func ComputeForAsset(ctx context.Context, media mediastore.Store, asset *catalog.Asset) (int, error) {
	width, height, err := Dimensions(ctx, media, asset)
	if err != nil {
		return 0, err
	}
	return ComputeRating(width, height), nil
}
