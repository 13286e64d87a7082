package handlers

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/example/anime-engagement/internal/engagement/actor"
	"github.com/example/anime-engagement/internal/engagement/ledger"
	"github.com/example/anime-engagement/internal/platform/auth"
)

// Deps bundles what the route tree needs.
type Deps struct {
	Service  *ledger.Service
	Resolver *actor.Resolver
	Verifier auth.JWTVerifier
	Comments *ActorLimiter
	Logger   *zap.Logger
}

// Routes mounts the v1 engagement surface. Every route is anonymous-capable:
// OptionalUser injects a registered identity when a valid token is present,
// otherwise the session headers decide the actor.
func Routes(r chi.Router, d Deps) {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if d.Comments == nil {
		d.Comments = NewActorLimiter(rate.Inf, 1)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.OptionalUser(d.Verifier))

		r.Route("/animes/{animeIdOrSlug}", func(r chi.Router) {
			r.Post("/reaction", SetAnimeReaction(d.Service, d.Resolver, log))
			r.Put("/favorite", AddFavorite(d.Service, d.Resolver, log))
			r.Delete("/favorite", RemoveFavorite(d.Service, d.Resolver, log))
			r.Post("/comments", PostComment(d.Service, d.Resolver, d.Comments, log))
			r.Get("/comments", ListComments(d.Service, log))

			r.Route("/episodes/{epIdOrSlug}", func(r chi.Router) {
				r.Post("/reaction", SetEpisodeReaction(d.Service, d.Resolver, log))
				r.Post("/watch", RecordWatch(d.Service, d.Resolver, log))
				r.Post("/comments", PostComment(d.Service, d.Resolver, d.Comments, log))
				r.Get("/comments", ListComments(d.Service, log))
			})
		})

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/watch-history", WatchHistory(d.Service, d.Resolver, log))
			r.Get("/favorites", Favorites(d.Service, d.Resolver, log))
		})

		r.Put("/comments/{commentID}", UpdateComment(d.Service, d.Resolver, log))
		r.Delete("/comments/{commentID}", DeleteComment(d.Service, d.Resolver, log))
	})
}
