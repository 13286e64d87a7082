package store

import (
	"context"
	"errors"
	"testing"

	"github.com/example/anime-engagement/internal/engagement/actor"
	"github.com/example/anime-engagement/internal/engagement/ledger"
)

// TestStoreInterfaces ensures both backends satisfy every ledger interface.
func TestStoreInterfaces(t *testing.T) {
	var _ ledger.CatalogStore = (*Memory)(nil)
	var _ ledger.ReactionStore = (*Memory)(nil)
	var _ ledger.FavoriteStore = (*Memory)(nil)
	var _ ledger.WatchStore = (*Memory)(nil)
	var _ ledger.CommentStore = (*Memory)(nil)
	var _ actor.SessionStore = (*Memory)(nil)

	var _ ledger.CatalogStore = (*PostgresCatalogStore)(nil)
	var _ ledger.ReactionStore = (*PostgresReactionStore)(nil)
	var _ ledger.FavoriteStore = (*PostgresFavoriteStore)(nil)
	var _ ledger.WatchStore = (*PostgresWatchStore)(nil)
	var _ ledger.CommentStore = (*PostgresCommentStore)(nil)
	var _ actor.SessionStore = (*PostgresSessionStore)(nil)
}

func TestMemoryCatalogLookup(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	animeID := m.SeedAnime(ledger.Anime{Slug: "My-Show", Title: "My Show"}, true)
	epID := m.SeedEpisode(ledger.Episode{AnimeID: animeID, Number: 1, Slug: "ep-1", DurationSeconds: 600}, true)

	// Slug lookup is case-insensitive.
	a, err := m.AnimeByRef(ctx, ledger.BySlug("my-show"))
	if err != nil {
		t.Fatalf("by slug: %v", err)
	}
	if a.ID != animeID {
		t.Fatalf("expected anime %d, got %d", animeID, a.ID)
	}

	e, err := m.EpisodeByRef(ctx, animeID, ledger.ByID(epID))
	if err != nil {
		t.Fatalf("episode by id: %v", err)
	}
	if e.DurationSeconds != 600 {
		t.Fatalf("unexpected episode: %+v", e)
	}

	// Episode lookups are scoped to the parent anime.
	if _, err := m.EpisodeByRef(ctx, animeID+1, ledger.ByID(epID)); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong parent, got %v", err)
	}
}

func TestMemorySessionUpsert(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id1, err := m.UpsertVisit(ctx, actor.Visit{SessionToken: "tok"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	id2, err := m.UpsertVisit(ctx, actor.Visit{SessionToken: "tok"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("same token must keep the same id: %d vs %d", id1, id2)
	}
	if visits, _ := m.SessionVisits("tok"); visits != 2 {
		t.Fatalf("expected 2 visits, got %d", visits)
	}
}

func TestMemoryReactionTransitions(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	animeID := m.SeedAnime(ledger.Anime{Slug: "a"}, true)
	target := ledger.AnimeTarget(animeID)
	u := actor.User(1)

	tr, err := m.SetReaction(ctx, u, target, true)
	if err != nil || tr != ledger.TransitionCreated {
		t.Fatalf("create: tr=%v err=%v", tr, err)
	}
	tr, err = m.SetReaction(ctx, u, target, false)
	if err != nil || tr != ledger.TransitionUpdated {
		t.Fatalf("flip: tr=%v err=%v", tr, err)
	}
	tr, err = m.SetReaction(ctx, u, target, false)
	if err != nil || tr != ledger.TransitionRemoved {
		t.Fatalf("toggle off: tr=%v err=%v", tr, err)
	}

	c := m.AnimeCounters(animeID)
	if c.Likes != 0 || c.Dislikes != 0 {
		t.Fatalf("expected zeroed counters, got %+v", c)
	}
}

func TestMemoryWatchHistoryOrdering(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	animeID := m.SeedAnime(ledger.Anime{Slug: "a"}, true)
	ep1 := m.SeedEpisode(ledger.Episode{AnimeID: animeID, Number: 1, DurationSeconds: 100}, true)
	ep2 := m.SeedEpisode(ledger.Episode{AnimeID: animeID, Number: 2, DurationSeconds: 100}, true)
	u := actor.User(1)

	for _, ep := range []int64{ep1, ep2} {
		if _, err := m.UpsertWatch(ctx, ledger.WatchRecord{Actor: u, AnimeID: animeID, EpisodeID: ep}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	// Rewatching ep1 moves it to the top.
	if counted, err := m.UpsertWatch(ctx, ledger.WatchRecord{Actor: u, AnimeID: animeID, EpisodeID: ep1, WatchDurationSeconds: 50}); err != nil || counted {
		t.Fatalf("rewatch must not count: counted=%v err=%v", counted, err)
	}

	history, err := m.ListWatchHistory(ctx, u, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 records, got %d", len(history))
	}
	if history[0].EpisodeID != ep1 || history[0].WatchDurationSeconds != 50 {
		t.Fatalf("expected rewatched episode first, got %+v", history[0])
	}
}

func TestMemoryCommentThreads(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	animeID := m.SeedAnime(ledger.Anime{Slug: "a"}, true)
	target := ledger.AnimeTarget(animeID)

	root, err := m.CreateComment(ctx, ledger.Comment{Actor: actor.User(1), Target: target, Body: "root", Approved: true})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	if _, err := m.CreateComment(ctx, ledger.Comment{
		Actor: actor.Session(1), Target: target, ParentID: &root.ID, Body: "reply", Approved: true,
	}); err != nil {
		t.Fatalf("create reply: %v", err)
	}
	// Unapproved reply stays hidden.
	if _, err := m.CreateComment(ctx, ledger.Comment{
		Actor: actor.Session(2), Target: target, ParentID: &root.ID, Body: "pending",
	}); err != nil {
		t.Fatalf("create pending: %v", err)
	}

	threads, err := m.ListComments(ctx, target, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(threads) != 1 {
		t.Fatalf("expected 1 thread, got %d", len(threads))
	}
	if len(threads[0].Replies) != 1 || threads[0].Replies[0].Body != "reply" {
		t.Fatalf("expected 1 approved reply, got %+v", threads[0].Replies)
	}
	if got := m.AnimeCounters(animeID).Comments; got != 3 {
		t.Fatalf("all comments count toward the total, got %d", got)
	}

	if err := m.DeleteComment(ctx, root.ID, actor.User(1)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := m.AnimeCounters(animeID).Comments; got != 0 {
		t.Fatalf("cascade delete must zero the counter, got %d", got)
	}
}

func TestActorAndTargetColumns(t *testing.T) {
	if col, id := actorColumn(actor.User(3)); col != "user_id" || id != 3 {
		t.Fatalf("unexpected actor column: %s %d", col, id)
	}
	if col, id := actorColumn(actor.Session(4)); col != "session_id" || id != 4 {
		t.Fatalf("unexpected actor column: %s %d", col, id)
	}

	if col, id := targetColumn(ledger.AnimeTarget(7)); col != "anime_id" || id != 7 {
		t.Fatalf("unexpected target column: %s %d", col, id)
	}
	if col, id := targetColumn(ledger.EpisodeTarget(8, 7)); col != "episode_id" || id != 8 {
		t.Fatalf("unexpected target column: %s %d", col, id)
	}
	if tbl := targetTable(ledger.EpisodeTarget(8, 7)); tbl != "episodes" {
		t.Fatalf("unexpected target table: %s", tbl)
	}

	uid := int64(5)
	if a := actorFromColumns(&uid, nil); !a.Same(actor.User(5)) {
		t.Fatalf("expected user:5, got %s", a.Key())
	}
	epID, anID := int64(2), int64(1)
	tgt := targetFromColumns(&anID, &epID)
	if !tgt.IsEpisode() || tgt.AnimeID() != 1 {
		t.Fatalf("expected episode target with parent 1, got %+v", tgt)
	}
}
