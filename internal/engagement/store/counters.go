package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/example/anime-engagement/internal/engagement/ledger"
)

// Denormalized counter columns on anime/episodes. These are running
// tallies, never the source of truth; they move only through applyCounter
// and only inside the transaction that mutates the triggering record.
const (
	colViews     = "total_views"
	colLikes     = "total_likes"
	colDislikes  = "total_dislikes"
	colComments  = "total_comments"
	colFavorites = "total_favorites"
)

// applyCounter applies delta to one counter column as a single atomic
// field-level update. No read-modify-write: concurrent callers on the same
// row serialize at the storage layer without losing updates.
func applyCounter(ctx context.Context, tx pgx.Tx, table, column string, id, delta int64) error {
	// table and column come from the fixed sets above, never from input.
	q := fmt.Sprintf(`UPDATE %s SET %s = %s + $1 WHERE id = $2`, table, column, column)
	if _, err := tx.Exec(ctx, q, delta, id); err != nil {
		return fmt.Errorf("adjust %s.%s by %d: %w", table, column, delta, err)
	}
	return nil
}

// applyTargetCounter adjusts a counter on the target's own row.
func applyTargetCounter(ctx context.Context, tx pgx.Tx, t ledger.Target, column string, delta int64) error {
	return applyCounter(ctx, tx, targetTable(t), column, t.ID(), delta)
}

// reactionColumn picks the counter a reaction value feeds.
func reactionColumn(isLike bool) string {
	if isLike {
		return colLikes
	}
	return colDislikes
}
