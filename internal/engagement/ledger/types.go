// Package ledger is the engagement core: like/dislike toggles, favorites,
// watch history with view-once counting, and comments, all keyed by
// (actor, target) with denormalized counters maintained in the same
// transaction as the triggering record change.
package ledger

import (
	"time"

	"github.com/example/anime-engagement/internal/engagement/actor"
)

// TargetKind discriminates the content entity an engagement applies to.
type TargetKind int

const (
	TargetAnime TargetKind = iota + 1
	TargetEpisode
)

func (k TargetKind) String() string {
	switch k {
	case TargetAnime:
		return "anime"
	case TargetEpisode:
		return "episode"
	default:
		return "unknown"
	}
}

// Target is a tagged union over {anime, episode}. An episode target always
// carries its parent anime id so both counter levels can be maintained.
type Target struct {
	kind    TargetKind
	id      int64
	animeID int64
}

func AnimeTarget(animeID int64) Target {
	return Target{kind: TargetAnime, id: animeID, animeID: animeID}
}

func EpisodeTarget(episodeID, animeID int64) Target {
	return Target{kind: TargetEpisode, id: episodeID, animeID: animeID}
}

func (t Target) Kind() TargetKind { return t.kind }

// ID is the id of the entity the target names (episode id for episodes).
func (t Target) ID() int64 { return t.id }

// AnimeID is the id of the anime level: the target itself for anime
// targets, the parent for episode targets.
func (t Target) AnimeID() int64 { return t.animeID }

func (t Target) IsAnime() bool   { return t.kind == TargetAnime }
func (t Target) IsEpisode() bool { return t.kind == TargetEpisode }
func (t Target) IsZero() bool    { return t.kind == 0 }

// Same reports target equality; for episode targets this is the "same
// anime, same episode" check the comment parent rule requires.
func (t Target) Same(o Target) bool {
	return t.kind == o.kind && t.id == o.id
}

// Ref is a discriminated lookup parameter: a target arrives at the boundary
// as either a numeric id or a slug, resolved exactly once by the catalog.
type Ref struct {
	id   int64
	slug string
}

func ByID(id int64) Ref       { return Ref{id: id} }
func BySlug(slug string) Ref  { return Ref{slug: slug} }
func (r Ref) IsZero() bool    { return r.id == 0 && r.slug == "" }
func (r Ref) ID() (int64, bool) {
	return r.id, r.id != 0
}
func (r Ref) Slug() (string, bool) {
	return r.slug, r.id == 0 && r.slug != ""
}

// Anime is the catalog view the ledger needs; full catalog data lives in
// the catalog service.
type Anime struct {
	ID          int64
	Slug        string
	Title       string
	PremiumOnly bool
}

type Episode struct {
	ID              int64
	AnimeID         int64
	Number          int
	Slug            string
	Title           string
	DurationSeconds int64
	PremiumOnly     bool
}

// Outcome is the result vocabulary reported to callers. Idempotent
// operations report the resulting state instead of erroring.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeUpdated       Outcome = "updated"
	OutcomeRemoved       Outcome = "removed"
	OutcomeAlreadyExists Outcome = "already-exists"
	OutcomeNotFound      Outcome = "not-found"
)

// Transition is what the reaction store actually did to the record.
type Transition int

const (
	TransitionCreated Transition = iota + 1
	TransitionUpdated
	TransitionRemoved
)

// Favorite is one entry of an actor's favorites list.
type Favorite struct {
	AnimeID    int64     `json:"anime_id"`
	AnimeSlug  string    `json:"anime_slug"`
	AnimeTitle string    `json:"anime_title"`
	AddedAt    time.Time `json:"added_at"`
}

// WatchRecord is the per-(actor, episode) watch progress row. At most one
// exists per triple; repeat watches update it in place.
type WatchRecord struct {
	Actor                actor.Actor `json:"-"`
	AnimeID              int64       `json:"anime_id"`
	EpisodeID            int64       `json:"episode_id"`
	WatchDurationSeconds int64       `json:"watch_duration_seconds"`
	Completed            bool        `json:"completed"`
	WatchedAt            time.Time   `json:"watched_at"`
	Country              string      `json:"country"`
	DeviceType           string      `json:"device_type"`
}

// Comment is a single comment row. Anonymous comments carry a guest name
// and await moderation; registered comments are approved on creation.
type Comment struct {
	ID        int64       `json:"id"`
	Actor     actor.Actor `json:"-"`
	Target    Target      `json:"-"`
	ParentID  *int64      `json:"parent_id,omitempty"`
	Body      string      `json:"body"`
	GuestName string      `json:"guest_name,omitempty"`
	Approved  bool        `json:"is_approved"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// CommentThread is a root comment with its direct replies.
type CommentThread struct {
	Comment Comment   `json:"comment"`
	Replies []Comment `json:"replies"`
}
