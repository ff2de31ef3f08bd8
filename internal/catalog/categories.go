package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"vaultgallery/internal/vaulterr"
)

// CreateCategory inserts a category. A category with the same normalized key
// already existing is a conflict.
func (s *Store) CreateCategory(ctx context.Context, displayName, key string) (*Category, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" || key == "" {
		return nil, vaulterr.Validation("category name is required")
	}
	var created *Category
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := categoryByKeyTx(ctx, tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return vaulterr.Conflict(fmt.Sprintf("category %q already exists", existing.DisplayName))
		}
		created, err = s.insertCategoryTx(ctx, tx, displayName, key)
		return err
	})
	if err != nil {
		return nil, wrapPersistence("create category", err)
	}
	return created, nil
}

// GetOrCreateCategory returns the category stored under key, creating it with
// displayName when absent. The boolean reports whether a row was created.
func (s *Store) GetOrCreateCategory(ctx context.Context, displayName, key string) (*Category, bool, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" || key == "" {
		return nil, false, vaulterr.Validation("category name is required")
	}
	var (
		category *Category
		created  bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := categoryByKeyTx(ctx, tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			category, created = existing, false
			return nil
		}
		category, err = s.insertCategoryTx(ctx, tx, displayName, key)
		created = err == nil
		return err
	})
	if err != nil {
		return nil, false, wrapPersistence("get or create category", err)
	}
	return category, created, nil
}

// ImportCategory inserts a category exactly as given, without checking for an
// existing key. Used when importing catalogs whose keys predate the current
// normalization rules; MergeCategories reconciles them afterwards.
func (s *Store) ImportCategory(ctx context.Context, displayName, key string) (*Category, error) {
	var created *Category
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		created, err = s.insertCategoryTx(ctx, tx, displayName, key)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, vaulterr.Conflict(fmt.Sprintf("category key %q already exists", key))
		}
		return nil, wrapPersistence("import category", err)
	}
	return created, nil
}

func (s *Store) insertCategoryTx(ctx context.Context, tx *sql.Tx, displayName, key string) (*Category, error) {
	createdAt := s.now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO categories (display_name, normalized_key, created_at) VALUES (?, ?, ?)`,
		displayName, key, formatTime(createdAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Category{ID: id, DisplayName: displayName, NormalizedKey: key, CreatedAt: createdAt}, nil
}

func categoryByKeyTx(ctx context.Context, tx *sql.Tx, key string) (*Category, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE normalized_key = ? ORDER BY id LIMIT 1`, key)
	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return cat, err
}

// CategoryByKey returns the category stored under key, or nil when absent.
func (s *Store) CategoryByKey(ctx context.Context, key string) (*Category, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+categoryColumns+` FROM categories WHERE normalized_key = ? ORDER BY id LIMIT 1`, key)
	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapPersistence("get category by key", err)
	}
	return cat, nil
}

// CategoryByID returns the category with id, or nil when absent.
func (s *Store) CategoryByID(ctx context.Context, id int64) (*Category, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapPersistence("get category", err)
	}
	return cat, nil
}

// ListCategories returns every category ordered by display name, then id.
func (s *Store) ListCategories(ctx context.Context) ([]*Category, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+categoryColumns+` FROM categories ORDER BY display_name COLLATE NOCASE, id`)
	if err != nil {
		return nil, wrapPersistence("list categories", err)
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, wrapPersistence("scan category", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPersistence("list categories", err)
	}
	return categories, nil
}

// SetCategoryScores overwrites the five quality dimensions of a category.
func (s *Store) SetCategoryScores(ctx context.Context, id int64, scores Scores) error {
	for _, v := range scores.Values() {
		if v != nil && (*v < 0 || *v > 20) {
			return vaulterr.Validation(fmt.Sprintf("score %d out of range 0..20", *v))
		}
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE categories
         SET popularity = ?, versatility = ?, longevity = ?, industry_impact = ?, fan_appeal = ?
         WHERE id = ?`,
		nullableScore(scores.Popularity),
		nullableScore(scores.Versatility),
		nullableScore(scores.Longevity),
		nullableScore(scores.IndustryImpact),
		nullableScore(scores.FanAppeal),
		id,
	)
	if err != nil {
		return wrapPersistence("set category scores", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return vaulterr.NotFound(fmt.Sprintf("category %d not found", id))
	}
	return nil
}

// DeleteCategory removes a category and, through the cascade, its assets.
// It returns the storage locators of the removed assets.
func (s *Store) DeleteCategory(ctx context.Context, id int64) ([]string, error) {
	var locators []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		locators, err = locatorsTx(ctx, tx, `SELECT storage_locator FROM assets WHERE category_id = ?`, id)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return vaulterr.NotFound(fmt.Sprintf("category %d not found", id))
		}
		return nil
	})
	if err != nil {
		return nil, wrapPersistence("delete category", err)
	}
	return locators, nil
}

func locatorsTx(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query locators: %w", err)
	}
	defer rows.Close()
	var locators []string
	for rows.Next() {
		var locator string
		if err := rows.Scan(&locator); err != nil {
			return nil, err
		}
		locators = append(locators, locator)
	}
	return locators, rows.Err()
}

// wrapPersistence tags err as a persistence failure unless it already carries
// a vault classification.
func wrapPersistence(operation string, err error) error {
	if err == nil {
		return nil
	}
	if vaulterr.Kind(err) != vaulterr.KindInternal {
		return err
	}
	return vaulterr.Wrap(vaulterr.ErrPersistence, "catalog", operation, "", err)
}
