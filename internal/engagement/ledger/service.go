package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/anime-engagement/internal/engagement/actor"
	"github.com/example/anime-engagement/internal/platform/analytics"
	"github.com/example/anime-engagement/internal/platform/metrics"
)

// Service orchestrates the engagement ledger: resolves targets, enforces
// validation and gating, delegates transitions to the stores, and emits
// metrics and analytics events. Concurrency correctness comes entirely
// from the stores' transactional guarantees; the service holds no locks.
type Service struct {
	catalog   CatalogStore
	reactions ReactionStore
	favorites FavoriteStore
	watch     WatchStore
	comments  CommentStore
	sanitizer Sanitizer
	events    *analytics.Publisher
	metrics   metrics.Recorder
	log       *zap.Logger
}

type Options struct {
	Catalog   CatalogStore
	Reactions ReactionStore
	Favorites FavoriteStore
	Watch     WatchStore
	Comments  CommentStore
	Sanitizer Sanitizer
	Events    *analytics.Publisher
	Metrics   metrics.Recorder
	Logger    *zap.Logger
}

func NewService(opts Options) *Service {
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		catalog:   opts.Catalog,
		reactions: opts.Reactions,
		favorites: opts.Favorites,
		watch:     opts.Watch,
		comments:  opts.Comments,
		sanitizer: opts.Sanitizer,
		events:    opts.Events,
		metrics:   opts.Metrics,
		log:       opts.Logger,
	}
}

// resolveTarget resolves the anime (and optionally episode) refs to a
// concrete target. episodeRef.IsZero() means the target is the anime
// itself. Premium gating is a separate step; read paths skip it.
func (s *Service) resolveTarget(ctx context.Context, animeRef, episodeRef Ref) (Target, Anime, *Episode, error) {
	an, err := s.catalog.AnimeByRef(ctx, animeRef)
	if err != nil {
		return Target{}, Anime{}, nil, err
	}
	if episodeRef.IsZero() {
		return AnimeTarget(an.ID), an, nil, nil
	}

	ep, err := s.catalog.EpisodeByRef(ctx, an.ID, episodeRef)
	if err != nil {
		return Target{}, Anime{}, nil, err
	}
	return EpisodeTarget(ep.ID, an.ID), an, &ep, nil
}

// gatePremium rejects engagement writes against premium-only content by
// actors without the premium entitlement.
func gatePremium(a actor.Actor, an Anime, ep *Episode) error {
	if a.Premium() {
		return nil
	}
	if an.PremiumOnly {
		return ErrForbidden
	}
	if ep != nil && ep.PremiumOnly {
		return ErrForbidden
	}
	return nil
}

func requireActor(a actor.Actor) error {
	if a.IsNone() {
		return validationf("actor", "a registered user or session token is required")
	}
	return nil
}

func (s *Service) observe(op string, start time.Time, outcome Outcome, err error) {
	label := string(outcome)
	if err != nil {
		label = "error"
	}
	s.metrics.RecordOperation(op, label)
	s.metrics.RecordOperationLatency(op, time.Since(start))
}

// SetReaction applies the like/dislike toggle for (actor, target).
// Repeating the same value removes the record; the opposite value flips it.
func (s *Service) SetReaction(ctx context.Context, a actor.Actor, animeRef, episodeRef Ref, wantLike bool) (Outcome, error) {
	start := time.Now()
	outcome, err := s.setReaction(ctx, a, animeRef, episodeRef, wantLike)
	s.observe("set_reaction", start, outcome, err)
	return outcome, err
}

func (s *Service) setReaction(ctx context.Context, a actor.Actor, animeRef, episodeRef Ref, wantLike bool) (Outcome, error) {
	if err := requireActor(a); err != nil {
		return "", err
	}
	target, an, ep, err := s.resolveTarget(ctx, animeRef, episodeRef)
	if err != nil {
		return "", err
	}
	if err := gatePremium(a, an, ep); err != nil {
		return "", err
	}

	tr, err := s.reactions.SetReaction(ctx, a, target, wantLike)
	if err != nil {
		return "", err
	}

	outcome := OutcomeCreated
	switch tr {
	case TransitionUpdated:
		outcome = OutcomeUpdated
	case TransitionRemoved:
		outcome = OutcomeRemoved
	}
	s.events.Publish(analytics.SubjectReactionSet, "reaction_set", a.Key(), map[string]any{
		"target_kind": target.Kind().String(),
		"target_id":   target.ID(),
		"is_like":     wantLike,
		"outcome":     string(outcome),
	})
	return outcome, nil
}

// AddFavorite marks an anime as the actor's favorite. Idempotent.
func (s *Service) AddFavorite(ctx context.Context, a actor.Actor, animeRef Ref) (Outcome, error) {
	start := time.Now()
	outcome, err := s.addFavorite(ctx, a, animeRef)
	s.observe("add_favorite", start, outcome, err)
	return outcome, err
}

func (s *Service) addFavorite(ctx context.Context, a actor.Actor, animeRef Ref) (Outcome, error) {
	if err := requireActor(a); err != nil {
		return "", err
	}
	target, an, _, err := s.resolveTarget(ctx, animeRef, Ref{})
	if err != nil {
		return "", err
	}
	if err := gatePremium(a, an, nil); err != nil {
		return "", err
	}

	created, err := s.favorites.AddFavorite(ctx, a, target.AnimeID())
	if err != nil {
		return "", err
	}
	if !created {
		return OutcomeAlreadyExists, nil
	}
	s.events.Publish(analytics.SubjectFavoriteAdded, "favorite_added", a.Key(), map[string]any{
		"anime_id": target.AnimeID(),
	})
	return OutcomeCreated, nil
}

// RemoveFavorite undoes AddFavorite. Idempotent: removing an absent
// favorite reports the state without erroring.
func (s *Service) RemoveFavorite(ctx context.Context, a actor.Actor, animeRef Ref) (Outcome, error) {
	start := time.Now()
	outcome, err := s.removeFavorite(ctx, a, animeRef)
	s.observe("remove_favorite", start, outcome, err)
	return outcome, err
}

func (s *Service) removeFavorite(ctx context.Context, a actor.Actor, animeRef Ref) (Outcome, error) {
	if err := requireActor(a); err != nil {
		return "", err
	}
	target, _, _, err := s.resolveTarget(ctx, animeRef, Ref{})
	if err != nil {
		return "", err
	}

	removed, err := s.favorites.RemoveFavorite(ctx, a, target.AnimeID())
	if err != nil {
		return "", err
	}
	if !removed {
		return OutcomeNotFound, nil
	}
	s.events.Publish(analytics.SubjectFavoriteRemoved, "favorite_removed", a.Key(), map[string]any{
		"anime_id": target.AnimeID(),
	})
	return OutcomeRemoved, nil
}

// Favorites lists the actor's favorites, newest first.
func (s *Service) Favorites(ctx context.Context, a actor.Actor, limit int) ([]Favorite, error) {
	if err := requireActor(a); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.favorites.ListFavorites(ctx, a, limit)
}
