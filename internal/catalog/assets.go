package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"vaultgallery/internal/vaulterr"
)

// InsertAsset records a new asset. When the storage locator already exists
// the existing row is returned and created is false; re-submitting the same
// media is a successful no-op.
func (s *Store) InsertAsset(ctx context.Context, in NewAsset) (*Asset, bool, error) {
	if strings.TrimSpace(in.StorageLocator) == "" {
		return nil, false, vaulterr.Validation("storage locator is required")
	}
	if in.MediaType != MediaImage && in.MediaType != MediaVideo {
		return nil, false, vaulterr.Validation(fmt.Sprintf("unsupported media type %q", in.MediaType))
	}

	createdAt := s.now().UTC()
	res, err := s.execWithRetry(ctx,
		`INSERT INTO assets (category_id, storage_locator, media_type, source_reference, created_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(storage_locator) DO NOTHING`,
		in.CategoryID,
		in.StorageLocator,
		string(in.MediaType),
		nullableString(in.SourceReference),
		formatTime(createdAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return nil, false, vaulterr.NotFound(fmt.Sprintf("category %d not found", in.CategoryID))
		}
		return nil, false, wrapPersistence("insert asset", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		existing, err := s.AssetByLocator(ctx, in.StorageLocator)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, vaulterr.Wrap(vaulterr.ErrPersistence, "catalog", "insert asset", "locator conflict without row", nil)
		}
		return existing, false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, wrapPersistence("last insert id", err)
	}
	return &Asset{
		ID:              id,
		CategoryID:      in.CategoryID,
		StorageLocator:  in.StorageLocator,
		MediaType:       in.MediaType,
		SourceReference: in.SourceReference,
		CreatedAt:       createdAt,
	}, true, nil
}

// AssetByID returns the asset with id, or nil when absent.
func (s *Store) AssetByID(ctx context.Context, id int64) (*Asset, error) {
	return s.queryAsset(ctx, "get asset", `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
}

// AssetByLocator returns the asset stored at locator, or nil when absent.
func (s *Store) AssetByLocator(ctx context.Context, locator string) (*Asset, error) {
	return s.queryAsset(ctx, "get asset by locator", `SELECT `+assetColumns+` FROM assets WHERE storage_locator = ?`, locator)
}

func (s *Store) queryAsset(ctx context.Context, operation, query string, args ...any) (*Asset, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), query, args...)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapPersistence(operation, err)
	}
	return asset, nil
}

// ListAssets returns a page of assets matching q.
func (s *Store) ListAssets(ctx context.Context, q AssetQuery) ([]*Asset, error) {
	where, args := categoryFilter(q.CategoryID)
	if q.MediaType != "" {
		where += " AND media_type = ?"
		args = append(args, string(q.MediaType))
	}
	order := "created_at DESC, id DESC"
	if q.Order == OrderTopRated {
		where += " AND rating IS NOT NULL"
		order = "rating DESC, created_at DESC, id DESC"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, max(q.Offset, 0))

	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+assetColumns+` FROM assets WHERE `+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, wrapPersistence("list assets", err)
	}
	assets, err := scanAssets(rows)
	if err != nil {
		return nil, wrapPersistence("scan assets", err)
	}
	return assets, nil
}

// CountAssets returns the number of assets matching q, ignoring paging.
func (s *Store) CountAssets(ctx context.Context, q AssetQuery) (int, error) {
	where, args := categoryFilter(q.CategoryID)
	if q.MediaType != "" {
		where += " AND media_type = ?"
		args = append(args, string(q.MediaType))
	}
	if q.Order == OrderTopRated {
		where += " AND rating IS NOT NULL"
	}
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(*) FROM assets WHERE `+where, args...).Scan(&count); err != nil {
		return 0, wrapPersistence("count assets", err)
	}
	return count, nil
}

// UnratedImages returns images without a rating, oldest first. A limit <= 0
// returns all of them.
func (s *Store) UnratedImages(ctx context.Context, limit int) ([]*Asset, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+assetColumns+` FROM assets
         WHERE media_type = ? AND rating IS NULL
         ORDER BY created_at, id LIMIT ?`,
		string(MediaImage), limit)
	if err != nil {
		return nil, wrapPersistence("list unrated images", err)
	}
	assets, err := scanAssets(rows)
	if err != nil {
		return nil, wrapPersistence("scan unrated images", err)
	}
	return assets, nil
}

// PendingCaptions returns images without a rating caption, newest first.
func (s *Store) PendingCaptions(ctx context.Context, limit int) ([]*Asset, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+assetColumns+` FROM assets
         WHERE media_type = ? AND rating_caption IS NULL
         ORDER BY created_at DESC, id DESC LIMIT ?`,
		string(MediaImage), limit)
	if err != nil {
		return nil, wrapPersistence("list pending captions", err)
	}
	assets, err := scanAssets(rows)
	if err != nil {
		return nil, wrapPersistence("scan pending captions", err)
	}
	return assets, nil
}

// SetRating stores a computed rating for an asset that has none yet. It
// reports false when the asset was already rated (or no longer exists), which
// keeps concurrent backfill runs idempotent.
func (s *Store) SetRating(ctx context.Context, id int64, rating int) (bool, error) {
	if rating < 0 || rating > 100 {
		return false, vaulterr.Validation(fmt.Sprintf("rating %d out of range 0..100", rating))
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE assets SET rating = ?, rated_at = ? WHERE id = ? AND rating IS NULL`,
		rating, formatTime(s.now()), id)
	if err != nil {
		return false, wrapPersistence("set rating", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SubmitRating records a reviewer rating with its caption. The caption can be
// set once; a second submission is a conflict.
func (s *Store) SubmitRating(ctx context.Context, id int64, rating int, caption string) (*Asset, error) {
	caption = strings.TrimSpace(caption)
	switch {
	case rating < 0 || rating > 100:
		return nil, vaulterr.Validation(fmt.Sprintf("rating %d out of range 0..100", rating))
	case caption == "":
		return nil, vaulterr.Validation("rating caption is required")
	case len([]rune(caption)) > 280:
		return nil, vaulterr.Validation("rating caption exceeds 280 characters")
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var existing sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT rating_caption FROM assets WHERE id = ?`, id).Scan(&existing)
		if errors.Is(err, sql.ErrNoRows) {
			return vaulterr.NotFound(fmt.Sprintf("asset %d not found", id))
		}
		if err != nil {
			return err
		}
		if existing.Valid {
			return vaulterr.Conflict(fmt.Sprintf("asset %d already has a rating caption", id))
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE assets SET rating = ?, rating_caption = ?, rated_at = ? WHERE id = ?`,
			rating, caption, formatTime(s.now()), id)
		return err
	})
	if err != nil {
		return nil, wrapPersistence("submit rating", err)
	}
	return s.AssetByID(ctx, id)
}

// DeleteAsset removes one asset and returns its storage locator.
func (s *Store) DeleteAsset(ctx context.Context, id int64) (string, error) {
	var locator string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT storage_locator FROM assets WHERE id = ?`, id).Scan(&locator)
		if errors.Is(err, sql.ErrNoRows) {
			return vaulterr.NotFound(fmt.Sprintf("asset %d not found", id))
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return "", wrapPersistence("delete asset", err)
	}
	return locator, nil
}

// DeleteRandomAssets removes up to count randomly chosen assets of a category
// and returns their storage locators. The category itself is kept.
func (s *Store) DeleteRandomAssets(ctx context.Context, categoryID int64, count int) ([]string, error) {
	if count <= 0 {
		return nil, vaulterr.Validation("count must be positive")
	}
	var locators []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id, storage_locator FROM assets WHERE category_id = ? ORDER BY random() LIMIT ?`,
			categoryID, count)
		if err != nil {
			return err
		}
		var ids []int64
		locators = locators[:0]
		for rows.Next() {
			var (
				id      int64
				locator string
			)
			if err := rows.Scan(&id, &locator); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
			locators = append(locators, locator)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`DELETE FROM assets WHERE id IN (`+makePlaceholders(len(ids))+`)`, int64Args(ids)...)
		return err
	})
	if err != nil {
		return nil, wrapPersistence("delete random assets", err)
	}
	return locators, nil
}

// DeleteAllAssets removes every asset, keeping categories, and returns the
// removed storage locators.
func (s *Store) DeleteAllAssets(ctx context.Context) ([]string, error) {
	var locators []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		locators, err = locatorsTx(ctx, tx, `SELECT storage_locator FROM assets`)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM assets`)
		return err
	})
	if err != nil {
		return nil, wrapPersistence("delete all assets", err)
	}
	return locators, nil
}

func (s *Store) stampAfter(ctx context.Context, tx *sql.Tx) (time.Time, error) {
	now := s.now().UTC()
	var latest sql.NullString
	if err := tx.QueryRowContext(ctx, `SELECT MAX(last_served_at) FROM assets`).Scan(&latest); err != nil {
		return time.Time{}, err
	}
	if latest.Valid {
		if prev, err := parseTimeString(latest.String); err == nil && !now.After(prev) {
			now = prev.Add(time.Microsecond)
		}
	}
	return now, nil
}
