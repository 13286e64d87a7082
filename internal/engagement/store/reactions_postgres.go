package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/anime-engagement/internal/engagement/actor"
	"github.com/example/anime-engagement/internal/engagement/ledger"
)

const pgUniqueViolation = "23505"

// PostgresReactionStore persists like/dislike records with toggle
// semantics and keeps the likes/dislikes counters in step.
type PostgresReactionStore struct {
	db *pgxpool.Pool
}

func NewPostgresReactionStore(db *pgxpool.Pool) *PostgresReactionStore {
	return &PostgresReactionStore{db: db}
}

// SetReaction runs read-decide-write in one transaction. An existing row is
// locked FOR UPDATE; a concurrent first insert loses on the partial unique
// index and the whole transition is retried once, now taking the
// flip-or-remove path.
func (s *PostgresReactionStore) SetReaction(ctx context.Context, a actor.Actor, t ledger.Target, wantLike bool) (ledger.Transition, error) {
	tr, err := s.setReaction(ctx, a, t, wantLike)
	if err != nil && isUniqueViolation(err) {
		tr, err = s.setReaction(ctx, a, t, wantLike)
	}
	return tr, err
}

func (s *PostgresReactionStore) setReaction(ctx context.Context, a actor.Actor, t ledger.Target, wantLike bool) (ledger.Transition, error) {
	aCol, aID := actorColumn(a)
	tCol, tID := targetColumn(t)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		recordID int64
		isLike   bool
	)
	err = tx.QueryRow(ctx,
		`SELECT id, is_like FROM reactions WHERE `+aCol+` = $1 AND `+tCol+` = $2 FOR UPDATE`,
		aID, tID,
	).Scan(&recordID, &isLike)

	var transition ledger.Transition
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		transition = ledger.TransitionCreated
		_, err = tx.Exec(ctx,
			`INSERT INTO reactions (`+aCol+`, `+tCol+`, is_like) VALUES ($1, $2, $3)`,
			aID, tID, wantLike)
		if err != nil {
			return 0, err
		}
		if err := applyTargetCounter(ctx, tx, t, reactionColumn(wantLike), 1); err != nil {
			return 0, err
		}

	case err != nil:
		return 0, err

	case isLike == wantLike:
		// Symmetric toggle-off.
		transition = ledger.TransitionRemoved
		if _, err := tx.Exec(ctx, `DELETE FROM reactions WHERE id = $1`, recordID); err != nil {
			return 0, err
		}
		if err := applyTargetCounter(ctx, tx, t, reactionColumn(wantLike), -1); err != nil {
			return 0, err
		}

	default:
		// Flip: old counter down, new counter up, same transaction.
		transition = ledger.TransitionUpdated
		_, err := tx.Exec(ctx,
			`UPDATE reactions SET is_like = $1, updated_at = now() WHERE id = $2`,
			wantLike, recordID)
		if err != nil {
			return 0, err
		}
		if err := applyTargetCounter(ctx, tx, t, reactionColumn(isLike), -1); err != nil {
			return 0, err
		}
		if err := applyTargetCounter(ctx, tx, t, reactionColumn(wantLike), 1); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return transition, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
