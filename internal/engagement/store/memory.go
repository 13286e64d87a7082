package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/anime-engagement/internal/engagement/actor"
	"github.com/example/anime-engagement/internal/engagement/ledger"
)

// Counters is a snapshot of one entity's denormalized totals.
type Counters struct {
	Views     int64
	Likes     int64
	Dislikes  int64
	Comments  int64
	Favorites int64
}

type memAnime struct {
	ledger.Anime
	published bool
	counters  Counters
}

type memEpisode struct {
	ledger.Episode
	published bool
	counters  Counters
}

type memSession struct {
	id          int64
	token       string
	totalVisits int64
	firstSeen   time.Time
	lastSeen    time.Time
}

type memReaction struct {
	actor  actor.Actor
	target ledger.Target
	isLike bool
}

type memFavorite struct {
	actor   actor.Actor
	animeID int64
	addedAt time.Time
}

// Memory is a development-only in-memory implementation of every ledger
// store plus the anonymous session store. Single mutex; good enough for
// tests and local runs without Postgres.
type Memory struct {
	mu        sync.Mutex
	nextID    int64
	anime     map[int64]*memAnime
	episodes  map[int64]*memEpisode
	sessions  map[string]*memSession
	reactions map[string]*memReaction
	favorites map[string]*memFavorite
	watch     map[string]*ledger.WatchRecord
	comments  map[int64]*ledger.Comment
}

func NewMemory() *Memory {
	return &Memory{
		anime:     make(map[int64]*memAnime),
		episodes:  make(map[int64]*memEpisode),
		sessions:  make(map[string]*memSession),
		reactions: make(map[string]*memReaction),
		favorites: make(map[string]*memFavorite),
		watch:     make(map[string]*ledger.WatchRecord),
		comments:  make(map[int64]*ledger.Comment),
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

func targetKey(t ledger.Target) string {
	return fmt.Sprintf("%s:%d", t.Kind(), t.ID())
}

func pairKey(a actor.Actor, t ledger.Target) string {
	return a.Key() + "|" + targetKey(t)
}

func watchKey(a actor.Actor, episodeID int64) string {
	return fmt.Sprintf("%s|watch:%d", a.Key(), episodeID)
}

func favKey(a actor.Actor, animeID int64) string {
	return fmt.Sprintf("%s|fav:%d", a.Key(), animeID)
}

// ── Seeding and inspection (tests, dev bootstrap) ──────────────────────────

// SeedAnime registers an anime; id 0 allocates one. Returns the id.
func (m *Memory) SeedAnime(a ledger.Anime, published bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == 0 {
		a.ID = m.id()
	} else if a.ID > m.nextID {
		m.nextID = a.ID
	}
	m.anime[a.ID] = &memAnime{Anime: a, published: published}
	return a.ID
}

// SeedEpisode registers an episode; id 0 allocates one. Returns the id.
func (m *Memory) SeedEpisode(e ledger.Episode, published bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == 0 {
		e.ID = m.id()
	} else if e.ID > m.nextID {
		m.nextID = e.ID
	}
	m.episodes[e.ID] = &memEpisode{Episode: e, published: published}
	return e.ID
}

// AnimeCounters reads back an anime's totals.
func (m *Memory) AnimeCounters(id int64) Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.anime[id]; ok {
		return a.counters
	}
	return Counters{}
}

// EpisodeCounters reads back an episode's totals.
func (m *Memory) EpisodeCounters(id int64) Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.episodes[id]; ok {
		return e.counters
	}
	return Counters{}
}

// ReactionCount counts stored reaction rows for a target.
func (m *Memory) ReactionCount(t ledger.Target) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.reactions {
		if r.target.Same(t) {
			n++
		}
	}
	return n
}

// SessionVisits reports the visit counter for a token, if tracked.
func (m *Memory) SessionVisits(token string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return 0, false
	}
	return s.totalVisits, true
}

func (m *Memory) targetCounters(t ledger.Target) *Counters {
	if t.IsEpisode() {
		if e, ok := m.episodes[t.ID()]; ok {
			return &e.counters
		}
		return &Counters{}
	}
	if a, ok := m.anime[t.ID()]; ok {
		return &a.counters
	}
	return &Counters{}
}

// ── actor.SessionStore ─────────────────────────────────────────────────────

func (m *Memory) UpsertVisit(_ context.Context, v actor.Visit) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if s, ok := m.sessions[v.SessionToken]; ok {
		s.totalVisits++
		s.lastSeen = now
		return s.id, nil
	}
	s := &memSession{id: m.id(), token: v.SessionToken, totalVisits: 1, firstSeen: now, lastSeen: now}
	m.sessions[v.SessionToken] = s
	return s.id, nil
}

// ── ledger.CatalogStore ────────────────────────────────────────────────────

func (m *Memory) AnimeByRef(_ context.Context, ref ledger.Ref) (ledger.Anime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := ref.ID(); ok {
		if a, ok := m.anime[id]; ok && a.published {
			return a.Anime, nil
		}
		return ledger.Anime{}, ledger.ErrNotFound
	}
	if slug, ok := ref.Slug(); ok {
		for _, a := range m.anime {
			if a.published && strings.EqualFold(a.Slug, slug) {
				return a.Anime, nil
			}
		}
	}
	return ledger.Anime{}, ledger.ErrNotFound
}

func (m *Memory) EpisodeByRef(_ context.Context, animeID int64, ref ledger.Ref) (ledger.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := ref.ID(); ok {
		if e, ok := m.episodes[id]; ok && e.published && e.AnimeID == animeID {
			return e.Episode, nil
		}
		return ledger.Episode{}, ledger.ErrNotFound
	}
	if slug, ok := ref.Slug(); ok {
		for _, e := range m.episodes {
			if e.published && e.AnimeID == animeID && strings.EqualFold(e.Slug, slug) {
				return e.Episode, nil
			}
		}
	}
	return ledger.Episode{}, ledger.ErrNotFound
}

// ── ledger.ReactionStore ───────────────────────────────────────────────────

func (m *Memory) SetReaction(_ context.Context, a actor.Actor, t ledger.Target, wantLike bool) (ledger.Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pairKey(a, t)
	counters := m.targetCounters(t)

	existing, ok := m.reactions[key]
	switch {
	case !ok:
		m.reactions[key] = &memReaction{actor: a, target: t, isLike: wantLike}
		bumpReaction(counters, wantLike, 1)
		return ledger.TransitionCreated, nil

	case existing.isLike == wantLike:
		delete(m.reactions, key)
		bumpReaction(counters, wantLike, -1)
		return ledger.TransitionRemoved, nil

	default:
		bumpReaction(counters, existing.isLike, -1)
		existing.isLike = wantLike
		bumpReaction(counters, wantLike, 1)
		return ledger.TransitionUpdated, nil
	}
}

func bumpReaction(c *Counters, isLike bool, delta int64) {
	if isLike {
		c.Likes += delta
	} else {
		c.Dislikes += delta
	}
}

// ── ledger.FavoriteStore ───────────────────────────────────────────────────

func (m *Memory) AddFavorite(_ context.Context, a actor.Actor, animeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := favKey(a, animeID)
	if _, ok := m.favorites[key]; ok {
		return false, nil
	}
	m.favorites[key] = &memFavorite{actor: a, animeID: animeID, addedAt: time.Now().UTC()}
	if an, ok := m.anime[animeID]; ok {
		an.counters.Favorites++
	}
	return true, nil
}

func (m *Memory) RemoveFavorite(_ context.Context, a actor.Actor, animeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := favKey(a, animeID)
	if _, ok := m.favorites[key]; !ok {
		return false, nil
	}
	delete(m.favorites, key)
	if an, ok := m.anime[animeID]; ok {
		an.counters.Favorites--
	}
	return true, nil
}

func (m *Memory) ListFavorites(_ context.Context, a actor.Actor, limit int) ([]ledger.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ledger.Favorite
	for _, f := range m.favorites {
		if !f.actor.Same(a) {
			continue
		}
		fav := ledger.Favorite{AnimeID: f.animeID, AddedAt: f.addedAt}
		if an, ok := m.anime[f.animeID]; ok {
			fav.AnimeSlug = an.Slug
			fav.AnimeTitle = an.Title
		}
		out = append(out, fav)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ── ledger.WatchStore ──────────────────────────────────────────────────────

func (m *Memory) UpsertWatch(_ context.Context, rec ledger.WatchRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.WatchedAt = time.Now().UTC()
	key := watchKey(rec.Actor, rec.EpisodeID)

	if existing, ok := m.watch[key]; ok {
		existing.WatchDurationSeconds = rec.WatchDurationSeconds
		existing.Completed = rec.Completed
		existing.WatchedAt = rec.WatchedAt
		existing.Country = rec.Country
		existing.DeviceType = rec.DeviceType
		return false, nil
	}

	m.watch[key] = &rec
	if e, ok := m.episodes[rec.EpisodeID]; ok {
		e.counters.Views++
	}
	if a, ok := m.anime[rec.AnimeID]; ok {
		a.counters.Views++
	}
	return true, nil
}

func (m *Memory) ListWatchHistory(_ context.Context, a actor.Actor, limit int) ([]ledger.WatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ledger.WatchRecord
	for _, rec := range m.watch {
		if rec.Actor.Same(a) {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WatchedAt.After(out[j].WatchedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ── ledger.CommentStore ────────────────────────────────────────────────────

func (m *Memory) CreateComment(_ context.Context, c ledger.Comment) (ledger.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	c.ID = m.id()
	c.CreatedAt = now
	c.UpdatedAt = now
	stored := c
	m.comments[c.ID] = &stored
	m.targetCounters(c.Target).Comments++
	return c, nil
}

func (m *Memory) CommentByID(_ context.Context, id int64) (ledger.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.comments[id]
	if !ok {
		return ledger.Comment{}, ledger.ErrNotFound
	}
	return *c, nil
}

func (m *Memory) UpdateCommentBody(_ context.Context, id int64, a actor.Actor, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.comments[id]
	if !ok {
		return ledger.ErrNotFound
	}
	if !c.Actor.Same(a) {
		return ledger.ErrForbidden
	}
	c.Body = body
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) DeleteComment(_ context.Context, id int64, a actor.Actor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.comments[id]
	if !ok {
		return ledger.ErrNotFound
	}
	if !c.Actor.Same(a) {
		return ledger.ErrForbidden
	}

	removed := int64(1)
	delete(m.comments, id)
	for cid, other := range m.comments {
		if other.ParentID != nil && *other.ParentID == id {
			delete(m.comments, cid)
			removed++
		}
	}
	m.targetCounters(c.Target).Comments -= removed
	return nil
}

func (m *Memory) ListComments(_ context.Context, t ledger.Target, limit int) ([]ledger.CommentThread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var roots []ledger.Comment
	for _, c := range m.comments {
		if c.Target.Same(t) && c.ParentID == nil && c.Approved {
			roots = append(roots, *c)
		}
	}
	sort.Slice(roots, func(i, j int) bool {
		if !roots[i].CreatedAt.Equal(roots[j].CreatedAt) {
			return roots[i].CreatedAt.After(roots[j].CreatedAt)
		}
		return roots[i].ID > roots[j].ID
	})
	if len(roots) > limit {
		roots = roots[:limit]
	}

	threads := make([]ledger.CommentThread, len(roots))
	for i, root := range roots {
		var replies []ledger.Comment
		for _, c := range m.comments {
			if c.ParentID != nil && *c.ParentID == root.ID && c.Approved {
				replies = append(replies, *c)
			}
		}
		sort.Slice(replies, func(i, j int) bool { return replies[i].CreatedAt.Before(replies[j].CreatedAt) })
		if replies == nil {
			replies = []ledger.Comment{}
		}
		threads[i] = ledger.CommentThread{Comment: root, Replies: replies}
	}
	return threads, nil
}
