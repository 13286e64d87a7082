package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/anime-engagement/internal/engagement/actor"
	"github.com/example/anime-engagement/internal/engagement/ledger"
)

// PostgresCommentStore persists comments and the total_comments counters.
type PostgresCommentStore struct {
	db *pgxpool.Pool
}

func NewPostgresCommentStore(db *pgxpool.Pool) *PostgresCommentStore {
	return &PostgresCommentStore{db: db}
}

// CreateComment inserts the comment and bumps the target's comment counter
// in the same transaction. Unapproved comments count too; the public
// totals deliberately include pending moderation.
func (s *PostgresCommentStore) CreateComment(ctx context.Context, c ledger.Comment) (ledger.Comment, error) {
	aCol, aID := actorColumn(c.Actor)
	tCol, tID := targetColumn(c.Target)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return ledger.Comment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := c
	err = tx.QueryRow(ctx,
		`INSERT INTO comments (`+aCol+`, `+tCol+`, parent_id, body, guest_name, is_approved)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		aID, tID, c.ParentID, c.Body, c.GuestName, c.Approved,
	).Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return ledger.Comment{}, err
	}

	if err := applyTargetCounter(ctx, tx, c.Target, colComments, 1); err != nil {
		return ledger.Comment{}, err
	}
	return out, tx.Commit(ctx)
}

func (s *PostgresCommentStore) CommentByID(ctx context.Context, id int64) (ledger.Comment, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, user_id, session_id, anime_id, episode_id, parent_id, body, guest_name, is_approved, created_at, updated_at
		 FROM comments WHERE id = $1`, id)
	c, err := scanComment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Comment{}, ledger.ErrNotFound
		}
		return ledger.Comment{}, err
	}
	return c, nil
}

// UpdateCommentBody edits the comment when the requesting actor owns it.
func (s *PostgresCommentStore) UpdateCommentBody(ctx context.Context, id int64, a actor.Actor, body string) error {
	aCol, aID := actorColumn(a)

	tag, err := s.db.Exec(ctx,
		`UPDATE comments SET body = $1, updated_at = now() WHERE id = $2 AND `+aCol+` = $3`,
		body, id, aID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.notFoundOrForbidden(ctx, id)
	}
	return nil
}

// DeleteComment removes the comment and its direct replies, decrementing
// the owning target's counter by the number of rows removed so the
// reconciliation invariant holds.
func (s *PostgresCommentStore) DeleteComment(ctx context.Context, id int64, a actor.Actor) error {
	aCol, aID := actorColumn(a)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		ownerID   *int64
		animeID   *int64
		episodeID *int64
	)
	err = tx.QueryRow(ctx,
		`SELECT `+aCol+`, anime_id, episode_id FROM comments WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&ownerID, &animeID, &episodeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.ErrNotFound
		}
		return err
	}
	if ownerID == nil || *ownerID != aID {
		return ledger.ErrForbidden
	}

	tag, err := tx.Exec(ctx, `DELETE FROM comments WHERE id = $1 OR parent_id = $1`, id)
	if err != nil {
		return err
	}

	target := targetFromColumns(animeID, episodeID)
	if err := applyTargetCounter(ctx, tx, target, colComments, -tag.RowsAffected()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListComments returns approved root comments (newest first) with their
// approved replies.
func (s *PostgresCommentStore) ListComments(ctx context.Context, t ledger.Target, limit int) ([]ledger.CommentThread, error) {
	tCol, tID := targetColumn(t)

	roots, err := s.scanComments(ctx,
		`SELECT id, user_id, session_id, anime_id, episode_id, parent_id, body, guest_name, is_approved, created_at, updated_at
		 FROM comments
		 WHERE `+tCol+` = $1 AND parent_id IS NULL AND is_approved
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		tID, limit)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return []ledger.CommentThread{}, nil
	}

	rootIDs := make([]int64, len(roots))
	for i, r := range roots {
		rootIDs[i] = r.ID
	}

	replies, err := s.scanComments(ctx,
		`SELECT id, user_id, session_id, anime_id, episode_id, parent_id, body, guest_name, is_approved, created_at, updated_at
		 FROM comments
		 WHERE parent_id = ANY($1) AND is_approved
		 ORDER BY created_at ASC`,
		rootIDs)
	if err != nil {
		return nil, err
	}

	replyMap := make(map[int64][]ledger.Comment)
	for _, r := range replies {
		if r.ParentID != nil {
			replyMap[*r.ParentID] = append(replyMap[*r.ParentID], r)
		}
	}

	threads := make([]ledger.CommentThread, len(roots))
	for i, r := range roots {
		threads[i] = ledger.CommentThread{Comment: r, Replies: replyMap[r.ID]}
		if threads[i].Replies == nil {
			threads[i].Replies = []ledger.Comment{}
		}
	}
	return threads, nil
}

func (s *PostgresCommentStore) scanComments(ctx context.Context, q string, args ...any) ([]ledger.Comment, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanComment(row pgx.Row) (ledger.Comment, error) {
	var (
		c         ledger.Comment
		userID    *int64
		sessionID *int64
		animeID   *int64
		episodeID *int64
	)
	err := row.Scan(&c.ID, &userID, &sessionID, &animeID, &episodeID,
		&c.ParentID, &c.Body, &c.GuestName, &c.Approved, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return ledger.Comment{}, err
	}
	c.Actor = actorFromColumns(userID, sessionID)
	c.Target = targetFromColumns(animeID, episodeID)
	return c, nil
}

// notFoundOrForbidden disambiguates a zero-row ownership-guarded write.
func (s *PostgresCommentStore) notFoundOrForbidden(ctx context.Context, id int64) error {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM comments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ledger.ErrForbidden
	}
	return ledger.ErrNotFound
}
