package ingest

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/logging"
	"vaultgallery/internal/mediastore"
	"vaultgallery/internal/metrics"
	"vaultgallery/internal/resolver"
)

// FileID derives the stored file id from the inbound reference, so the same
// reference always maps to the same locator.
func FileID(reference string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(reference)).String()
}

// persist fetches, writes and records one item. created is false when the
// locator already had an asset.
func (c *Coordinator) persist(ctx context.Context, it item) (asset *catalog.Asset, created bool, err error) {
	mediaType := it.mediaType
	defer func() {
		metrics.RecordPersist(string(mediaType), created, err)
	}()

	data, err := c.fetcher.Fetch(ctx, it.submission.Reference)
	if err != nil {
		return nil, false, err
	}
	contentType := http.DetectContentType(data)
	if mediaType == "" {
		mediaType, contentType, err = sniffMediaType(data)
		if err != nil {
			return nil, false, err
		}
	}

	name := mediastore.FileName(FileID(it.submission.Reference), mediastore.ExtensionFor(it.submission.FileName, contentType))
	locator, err := c.media.Write(ctx, resolver.Directory(it.category), name, data)
	if err != nil {
		return nil, false, err
	}

	asset, created, err = c.store.InsertAsset(ctx, catalog.NewAsset{
		CategoryID:      it.category.ID,
		StorageLocator:  locator,
		MediaType:       mediaType,
		SourceReference: it.submission.Reference,
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		logging.WithContext(ctx, c.logger).Info("asset stored",
			logging.Int64(logging.FieldAssetID, asset.ID),
			logging.String(logging.FieldCategory, it.category.DisplayName),
			logging.String("media_type", string(mediaType)),
		)
		if mediaType == catalog.MediaImage && c.ratings != nil {
			c.ratings.ScheduleFollowUp(asset)
		}
	}
	return asset, created, nil
}
