package main

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/example/anime-engagement/internal/engagement/actor"
	"github.com/example/anime-engagement/internal/engagement/handlers"
	"github.com/example/anime-engagement/internal/engagement/ledger"
	"github.com/example/anime-engagement/internal/engagement/store"
	"github.com/example/anime-engagement/internal/platform/analytics"
	"github.com/example/anime-engagement/internal/platform/auth"
	"github.com/example/anime-engagement/internal/platform/config"
	"github.com/example/anime-engagement/internal/platform/db"
	"github.com/example/anime-engagement/internal/platform/httpserver"
	"github.com/example/anime-engagement/internal/platform/logging"
	"github.com/example/anime-engagement/internal/platform/metrics"
	"github.com/example/anime-engagement/internal/platform/migrate"
	"github.com/example/anime-engagement/internal/platform/natsconn"
	"github.com/example/anime-engagement/internal/platform/run"
)

// storeSet bundles every persistence dependency of the engagement core.
type storeSet struct {
	sessions  actor.SessionStore
	catalog   ledger.CatalogStore
	reactions ledger.ReactionStore
	favorites ledger.FavoriteStore
	watch     ledger.WatchStore
	comments  ledger.CommentStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	stores, closeStores := initStores(cfg, log)
	if closeStores != nil {
		defer closeStores()
	}

	collector := metrics.NewCollector()

	// Analytics is best-effort: the service runs without NATS.
	var events *analytics.Publisher
	if nc, err := natsconn.Connect(natsconn.Options{URL: cfg.NATS.URL}); err != nil {
		log.Warn("nats unavailable, analytics events disabled", zap.Error(err))
	} else {
		defer nc.Close()
		if js, err := nc.JetStream(); err != nil {
			log.Warn("jetstream unavailable, analytics events disabled", zap.Error(err))
		} else {
			events = analytics.New(js, log)
		}
	}

	svc := ledger.NewService(ledger.Options{
		Catalog:   stores.catalog,
		Reactions: stores.reactions,
		Favorites: stores.favorites,
		Watch:     stores.watch,
		Comments:  stores.comments,
		Sanitizer: bluemonday.StrictPolicy(),
		Events:    events,
		Metrics:   collector,
		Logger:    log,
	})
	resolver := actor.NewResolver(stores.sessions)
	verifier := auth.JWTVerifier{Secret: []byte(cfg.JWTSecret)}

	r := chi.NewRouter()
	httpserver.SetupRouter(r)
	r.Method("GET", "/metrics", collector.Handler())
	handlers.Routes(r, handlers.Deps{
		Service:  svc,
		Resolver: resolver,
		Verifier: verifier,
		Comments: handlers.NewActorLimiter(rate.Every(10*time.Second), 3),
		Logger:   log,
	})

	srv := httpserver.New(httpserver.Options{
		Addr:        cfg.HTTP.Addr,
		ServiceName: cfg.ServiceName,
		Logger:      log,
		Router:      r,
	})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown(context.Background())
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initStores selects the persistence backend. In production a working,
// migrated Postgres is required; in development the service falls back to
// the in-memory stores so it runs standalone.
func initStores(cfg config.AppConfig, log *zap.Logger) (storeSet, func()) {
	fallback := func(reason string, err error) (storeSet, func()) {
		if cfg.IsProduction() {
			log.Error(reason, zap.Error(err))
			_ = log.Sync()
			run.Exit(1)
		}
		log.Warn(reason+", using in-memory stores (development only)", zap.Error(err))
		mem := store.NewMemory()
		return storeSet{
			sessions:  mem,
			catalog:   mem,
			reactions: mem,
			favorites: mem,
			watch:     mem,
			comments:  mem,
		}, nil
	}

	if cfg.DatabaseURL == "" {
		return fallback("DATABASE_URL not set", nil)
	}
	if err := migrate.Up(cfg.DatabaseURL); err != nil {
		return fallback("migrations failed", err)
	}
	pool, err := db.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return fallback("postgres unavailable", err)
	}

	log.Info("engagement stores: postgres")
	return storeSet{
		sessions:  store.NewPostgresSessionStore(pool),
		catalog:   store.NewPostgresCatalogStore(pool),
		reactions: store.NewPostgresReactionStore(pool),
		favorites: store.NewPostgresFavoriteStore(pool),
		watch:     store.NewPostgresWatchStore(pool),
		comments:  store.NewPostgresCommentStore(pool),
	}, pool.Close
}
