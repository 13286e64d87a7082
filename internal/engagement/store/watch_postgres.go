package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/anime-engagement/internal/engagement/actor"
	"github.com/example/anime-engagement/internal/engagement/ledger"
)

// PostgresWatchStore upserts watch progress and maintains view counters.
type PostgresWatchStore struct {
	db *pgxpool.Pool
}

func NewPostgresWatchStore(db *pgxpool.Pool) *PostgresWatchStore {
	return &PostgresWatchStore{db: db}
}

// UpsertWatch is the view-once guard: the insert attempt against the
// (actor, episode) unique index decides whether this call counts a view.
// The losing writer of a concurrent first view affects zero rows, updates
// in place, and skips the counters. Episode and parent anime views move in
// the same transaction as the insert.
func (s *PostgresWatchStore) UpsertWatch(ctx context.Context, rec ledger.WatchRecord) (bool, error) {
	aCol, aID := actorColumn(rec.Actor)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`INSERT INTO watch_history
		   (`+aCol+`, anime_id, episode_id, watch_duration_seconds, completed, watched_at, country, device_type)
		 VALUES ($1, $2, $3, $4, $5, now(), $6, $7)
		 ON CONFLICT DO NOTHING`,
		aID, rec.AnimeID, rec.EpisodeID, rec.WatchDurationSeconds, rec.Completed, rec.Country, rec.DeviceType)
	if err != nil {
		return false, err
	}

	if tag.RowsAffected() == 1 {
		if err := applyCounter(ctx, tx, "episodes", colViews, rec.EpisodeID, 1); err != nil {
			return false, err
		}
		if err := applyCounter(ctx, tx, "anime", colViews, rec.AnimeID, 1); err != nil {
			return false, err
		}
		return true, tx.Commit(ctx)
	}

	// Already viewed: refresh progress in place, no counter movement.
	_, err = tx.Exec(ctx,
		`UPDATE watch_history
		 SET watch_duration_seconds = $1, completed = $2, watched_at = now(), country = $3, device_type = $4
		 WHERE `+aCol+` = $5 AND episode_id = $6`,
		rec.WatchDurationSeconds, rec.Completed, rec.Country, rec.DeviceType, aID, rec.EpisodeID)
	if err != nil {
		return false, err
	}
	return false, tx.Commit(ctx)
}

func (s *PostgresWatchStore) ListWatchHistory(ctx context.Context, a actor.Actor, limit int) ([]ledger.WatchRecord, error) {
	aCol, aID := actorColumn(a)

	rows, err := s.db.Query(ctx,
		`SELECT anime_id, episode_id, watch_duration_seconds, completed, watched_at, country, device_type
		 FROM watch_history
		 WHERE `+aCol+` = $1
		 ORDER BY watched_at DESC, episode_id DESC
		 LIMIT $2`,
		aID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.WatchRecord
	for rows.Next() {
		rec := ledger.WatchRecord{Actor: a}
		var watchedAt time.Time
		if err := rows.Scan(&rec.AnimeID, &rec.EpisodeID, &rec.WatchDurationSeconds,
			&rec.Completed, &watchedAt, &rec.Country, &rec.DeviceType); err != nil {
			return nil, err
		}
		rec.WatchedAt = watchedAt
		out = append(out, rec)
	}
	return out, rows.Err()
}
