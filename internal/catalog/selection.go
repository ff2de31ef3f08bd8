package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ServeNext picks the next asset under the recency-fairness rule and stamps
// it as served, all inside one transaction.
//
// The frontier is every never-served asset while any exist; once all have
// been served it is the set sharing the oldest last_served_at. choose receives
// the frontier size and returns an index into it. ServeNext returns nil when
// no asset matches the scope.
func (s *Store) ServeNext(ctx context.Context, categoryID *int64, choose func(n int) int) (*Asset, error) {
	return s.ServeNextAvailable(ctx, categoryID, choose, nil)
}

// ServeNextAvailable is ServeNext with an availability check. Candidates
// rejected by available are left unstamped and the pick moves on through the
// frontier, then to the next frontier once this one is exhausted. A nil
// available accepts everything.
func (s *Store) ServeNextAvailable(ctx context.Context, categoryID *int64, choose func(n int) int, available func(*Asset) bool) (*Asset, error) {
	var picked *Asset
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		picked = nil
		var skipped []int64
		for {
			frontier, err := frontierTx(ctx, tx, categoryID, skipped)
			if err != nil {
				return err
			}
			if len(frontier) == 0 {
				return nil
			}
			idx := 0
			if choose != nil && len(frontier) > 1 {
				idx = choose(len(frontier))
				if idx < 0 || idx >= len(frontier) {
					idx = 0
				}
			}
			for offset := range frontier {
				candidate := frontier[(idx+offset)%len(frontier)]
				if available != nil && !available(candidate) {
					skipped = append(skipped, candidate.ID)
					continue
				}
				stamp, err := s.stampAfter(ctx, tx)
				if err != nil {
					return fmt.Errorf("compute served stamp: %w", err)
				}
				if _, err := tx.ExecContext(ctx,
					`UPDATE assets SET last_served_at = ? WHERE id = ?`,
					formatTime(stamp), candidate.ID); err != nil {
					return fmt.Errorf("stamp served: %w", err)
				}
				candidate.LastServedAt = &stamp
				picked = candidate
				return nil
			}
		}
	})
	if err != nil {
		return nil, wrapPersistence("serve next", err)
	}
	return picked, nil
}

func frontierTx(ctx context.Context, tx *sql.Tx, categoryID *int64, skipped []int64) ([]*Asset, error) {
	where, args := categoryFilter(categoryID)
	if len(skipped) > 0 {
		where += ` AND id NOT IN (?` + strings.Repeat(`,?`, len(skipped)-1) + `)`
		for _, id := range skipped {
			args = append(args, id)
		}
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE `+where+` AND last_served_at IS NULL ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query never served: %w", err)
	}
	unseen, err := scanAssets(rows)
	if err != nil {
		return nil, err
	}
	if len(unseen) > 0 {
		return unseen, nil
	}

	rows, err = tx.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets
         WHERE `+where+` AND last_served_at = (SELECT MIN(last_served_at) FROM assets WHERE `+where+`)
         ORDER BY id`, append(args, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query oldest served: %w", err)
	}
	return scanAssets(rows)
}

// LatestAssets returns up to limit assets, newest first.
func (s *Store) LatestAssets(ctx context.Context, categoryID *int64, limit int) ([]*Asset, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.ListAssets(ctx, AssetQuery{CategoryID: categoryID, Order: OrderNewest, Limit: limit})
}
