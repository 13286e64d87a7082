package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/anime-engagement/internal/engagement/ledger"
)

// PostgresCatalogStore resolves published anime/episodes for engagement.
// The catalog service owns these tables; this store only reads them.
type PostgresCatalogStore struct {
	db *pgxpool.Pool
}

func NewPostgresCatalogStore(db *pgxpool.Pool) *PostgresCatalogStore {
	return &PostgresCatalogStore{db: db}
}

func (s *PostgresCatalogStore) AnimeByRef(ctx context.Context, ref ledger.Ref) (ledger.Anime, error) {
	const base = `SELECT id, slug, title, is_premium_only FROM anime WHERE is_published`

	var row pgx.Row
	if id, ok := ref.ID(); ok {
		row = s.db.QueryRow(ctx, base+` AND id = $1`, id)
	} else if slug, ok := ref.Slug(); ok {
		row = s.db.QueryRow(ctx, base+` AND lower(slug) = lower($1)`, slug)
	} else {
		return ledger.Anime{}, ledger.ErrNotFound
	}

	var a ledger.Anime
	if err := row.Scan(&a.ID, &a.Slug, &a.Title, &a.PremiumOnly); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Anime{}, ledger.ErrNotFound
		}
		return ledger.Anime{}, err
	}
	return a, nil
}

func (s *PostgresCatalogStore) EpisodeByRef(ctx context.Context, animeID int64, ref ledger.Ref) (ledger.Episode, error) {
	const base = `SELECT id, anime_id, episode_number, slug, title, duration_seconds, is_premium_only
	              FROM episodes WHERE is_published AND anime_id = $1`

	var row pgx.Row
	if id, ok := ref.ID(); ok {
		row = s.db.QueryRow(ctx, base+` AND id = $2`, animeID, id)
	} else if slug, ok := ref.Slug(); ok {
		row = s.db.QueryRow(ctx, base+` AND lower(slug) = lower($2)`, animeID, slug)
	} else {
		return ledger.Episode{}, ledger.ErrNotFound
	}

	var e ledger.Episode
	if err := row.Scan(&e.ID, &e.AnimeID, &e.Number, &e.Slug, &e.Title, &e.DurationSeconds, &e.PremiumOnly); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Episode{}, ledger.ErrNotFound
		}
		return ledger.Episode{}, err
	}
	return e, nil
}
