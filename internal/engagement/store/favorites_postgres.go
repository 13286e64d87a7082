package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/anime-engagement/internal/engagement/actor"
	"github.com/example/anime-engagement/internal/engagement/ledger"
)

// PostgresFavoriteStore persists favorites and the total_favorites counter.
type PostgresFavoriteStore struct {
	db *pgxpool.Pool
}

func NewPostgresFavoriteStore(db *pgxpool.Pool) *PostgresFavoriteStore {
	return &PostgresFavoriteStore{db: db}
}

// AddFavorite inserts the favorite if absent. The partial unique index is
// the serialization point: a duplicate (including a concurrent one) simply
// affects zero rows and moves no counter.
func (s *PostgresFavoriteStore) AddFavorite(ctx context.Context, a actor.Actor, animeID int64) (bool, error) {
	aCol, aID := actorColumn(a)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`INSERT INTO favorites (`+aCol+`, anime_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		aID, animeID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	if err := applyCounter(ctx, tx, "anime", colFavorites, animeID, 1); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// RemoveFavorite deletes the favorite if present; the counter moves only
// when a row was actually deleted.
func (s *PostgresFavoriteStore) RemoveFavorite(ctx context.Context, a actor.Actor, animeID int64) (bool, error) {
	aCol, aID := actorColumn(a)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`DELETE FROM favorites WHERE `+aCol+` = $1 AND anime_id = $2`,
		aID, animeID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	if err := applyCounter(ctx, tx, "anime", colFavorites, animeID, -1); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (s *PostgresFavoriteStore) ListFavorites(ctx context.Context, a actor.Actor, limit int) ([]ledger.Favorite, error) {
	aCol, aID := actorColumn(a)

	rows, err := s.db.Query(ctx,
		`SELECT f.anime_id, a.slug, a.title, f.added_at
		 FROM favorites f
		 JOIN anime a ON a.id = f.anime_id
		 WHERE f.`+aCol+` = $1
		 ORDER BY f.added_at DESC
		 LIMIT $2`,
		aID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Favorite
	for rows.Next() {
		var f ledger.Favorite
		if err := rows.Scan(&f.AnimeID, &f.AnimeSlug, &f.AnimeTitle, &f.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
