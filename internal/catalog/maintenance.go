package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// MergeCategoryGroup folds duplicate categories into canonicalID in one
// transaction: their assets are reassigned, the duplicates deleted, and the
// canonical row rekeyed to key. It returns the number of reassigned assets.
func (s *Store) MergeCategoryGroup(ctx context.Context, canonicalID int64, duplicateIDs []int64, key string) (int64, error) {
	var moved int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		moved = 0
		if len(duplicateIDs) > 0 {
			placeholders := makePlaceholders(len(duplicateIDs))
			args := append([]any{canonicalID}, int64Args(duplicateIDs)...)
			res, err := tx.ExecContext(ctx,
				`UPDATE assets SET category_id = ? WHERE category_id IN (`+placeholders+`)`, args...)
			if err != nil {
				return fmt.Errorf("reassign assets: %w", err)
			}
			moved, _ = res.RowsAffected()
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM categories WHERE id IN (`+placeholders+`)`, int64Args(duplicateIDs)...); err != nil {
				return fmt.Errorf("delete duplicates: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE categories SET normalized_key = ? WHERE id = ? AND normalized_key <> ?`,
			key, canonicalID, key); err != nil {
			return fmt.Errorf("rekey canonical: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, wrapPersistence("merge categories", err)
	}
	return moved, nil
}

// EnsureCategoryKeyIndex (re)creates the unique index on normalized keys.
func (s *Store) EnsureCategoryKeyIndex(ctx context.Context) error {
	if _, err := s.execWithRetry(ctx,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_normalized_key ON categories(normalized_key)`); err != nil {
		return wrapPersistence("ensure category key index", err)
	}
	return nil
}
