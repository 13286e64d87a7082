package ledger

import (
	"context"

	"github.com/example/anime-engagement/internal/engagement/actor"
)

// CatalogStore resolves engagement targets. Only published entities are
// eligible; everything else is ErrNotFound. Slug matches are
// case-insensitive.
type CatalogStore interface {
	AnimeByRef(ctx context.Context, ref Ref) (Anime, error)
	EpisodeByRef(ctx context.Context, animeID int64, ref Ref) (Episode, error)
}

// ReactionStore persists like/dislike records with toggle semantics.
// SetReaction runs the read-decide-write sequence and the counter
// adjustments in one transaction; a concurrent duplicate insert is resolved
// through the unique constraint, not a pre-check.
type ReactionStore interface {
	SetReaction(ctx context.Context, a actor.Actor, t Target, wantLike bool) (Transition, error)
}

// FavoriteStore persists favorites. Add and Remove report whether a row
// actually changed; counters move only when one did.
type FavoriteStore interface {
	AddFavorite(ctx context.Context, a actor.Actor, animeID int64) (created bool, err error)
	RemoveFavorite(ctx context.Context, a actor.Actor, animeID int64) (removed bool, err error)
	ListFavorites(ctx context.Context, a actor.Actor, limit int) ([]Favorite, error)
}

// WatchStore upserts watch progress. UpsertWatch reports countedView=true
// exactly once per (actor, episode): when its insert won the unique
// constraint. The view counters (episode and parent anime) move inside the
// same transaction only in that case.
type WatchStore interface {
	UpsertWatch(ctx context.Context, rec WatchRecord) (countedView bool, err error)
	ListWatchHistory(ctx context.Context, a actor.Actor, limit int) ([]WatchRecord, error)
}

// CommentStore persists comments and keeps total_comments in step.
// Ownership checks for update/delete live here, next to the rows.
type CommentStore interface {
	CreateComment(ctx context.Context, c Comment) (Comment, error)
	CommentByID(ctx context.Context, id int64) (Comment, error)
	UpdateCommentBody(ctx context.Context, id int64, a actor.Actor, body string) error
	DeleteComment(ctx context.Context, id int64, a actor.Actor) error
	ListComments(ctx context.Context, t Target, limit int) ([]CommentThread, error)
}

// Sanitizer strips unsafe markup from user-supplied comment text.
type Sanitizer interface {
	Sanitize(raw string) string
}
