package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/example/anime-engagement/internal/engagement/actor"
	"github.com/example/anime-engagement/internal/engagement/ledger"
	"github.com/example/anime-engagement/internal/engagement/store"
	"github.com/example/anime-engagement/internal/platform/auth"
	"github.com/example/anime-engagement/internal/platform/httpserver"
)

const testSecret = "test-secret"

type testEnv struct {
	router    chi.Router
	mem       *store.Memory
	animeID   int64
	episodeID int64
}

func newTestEnv(t *testing.T, limiter *ActorLimiter) *testEnv {
	t.Helper()
	mem := store.NewMemory()
	animeID := mem.SeedAnime(ledger.Anime{Slug: "steel-alchemist", Title: "Steel Alchemist"}, true)
	episodeID := mem.SeedEpisode(ledger.Episode{
		AnimeID: animeID, Number: 1, Slug: "episode-1", DurationSeconds: 1200,
	}, true)

	svc := ledger.NewService(ledger.Options{
		Catalog: mem, Reactions: mem, Favorites: mem, Watch: mem, Comments: mem,
	})
	if limiter == nil {
		limiter = NewActorLimiter(rate.Inf, 1)
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r)
	Routes(r, Deps{
		Service:  svc,
		Resolver: actor.NewResolver(mem),
		Verifier: auth.JWTVerifier{Secret: []byte(testSecret)},
		Comments: limiter,
	})
	return &testEnv{router: r, mem: mem, animeID: animeID, episodeID: episodeID}
}

func (e *testEnv) do(t *testing.T, method, url, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func bearerToken(t *testing.T, subject string, premium bool) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Premium: premium,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func decodeOutcome(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Outcome string `json:"outcome"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	return resp.Outcome
}

func TestReactionWithSessionHeader(t *testing.T) {
	e := newTestEnv(t, nil)

	rr := e.do(t, http.MethodPost, "/v1/animes/steel-alchemist/reaction", `{"is_like":true}`,
		map[string]string{"X-Session-Token": "tok-1"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := decodeOutcome(t, rr); got != "created" {
		t.Fatalf("expected created, got %q", got)
	}
	if got := e.mem.AnimeCounters(e.animeID).Likes; got != 1 {
		t.Fatalf("expected 1 like, got %d", got)
	}

	// Toggle off with the same session token.
	rr = e.do(t, http.MethodPost, "/v1/animes/steel-alchemist/reaction", `{"is_like":true}`,
		map[string]string{"X-Session-Token": "tok-1"})
	if got := decodeOutcome(t, rr); got != "removed" {
		t.Fatalf("expected removed, got %q", got)
	}
}

func TestReactionWithBearerToken(t *testing.T) {
	e := newTestEnv(t, nil)

	rr := e.do(t, http.MethodPost, "/v1/animes/1/reaction", `{"is_like":false}`,
		map[string]string{"Authorization": bearerToken(t, "42", false)})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := e.mem.AnimeCounters(e.animeID).Dislikes; got != 1 {
		t.Fatalf("expected 1 dislike, got %d", got)
	}
}

func TestReactionWithoutActor(t *testing.T) {
	e := newTestEnv(t, nil)

	rr := e.do(t, http.MethodPost, "/v1/animes/1/reaction", `{"is_like":true}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for untracked caller, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestReactionUnknownAnime(t *testing.T) {
	e := newTestEnv(t, nil)

	rr := e.do(t, http.MethodPost, "/v1/animes/no-such-show/reaction", `{"is_like":true}`,
		map[string]string{"X-Session-Token": "tok-1"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestFavoriteLifecycle(t *testing.T) {
	e := newTestEnv(t, nil)
	hdr := map[string]string{"Authorization": bearerToken(t, "7", false)}

	rr := e.do(t, http.MethodPut, "/v1/animes/steel-alchemist/favorite", "", hdr)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = e.do(t, http.MethodPut, "/v1/animes/steel-alchemist/favorite", "", hdr)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for duplicate, got %d", rr.Code)
	}
	if got := decodeOutcome(t, rr); got != "already-exists" {
		t.Fatalf("expected already-exists, got %q", got)
	}

	rr = e.do(t, http.MethodGet, "/v1/users/me/favorites", "", hdr)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var list struct {
		Items []ledger.Favorite `json:"items"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatalf("decode favorites: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].AnimeSlug != "steel-alchemist" {
		t.Fatalf("unexpected favorites: %+v", list.Items)
	}

	rr = e.do(t, http.MethodDelete, "/v1/animes/steel-alchemist/favorite", "", hdr)
	if got := decodeOutcome(t, rr); got != "removed" {
		t.Fatalf("expected removed, got %q", got)
	}
	rr = e.do(t, http.MethodDelete, "/v1/animes/steel-alchemist/favorite", "", hdr)
	if got := decodeOutcome(t, rr); got != "not-found" {
		t.Fatalf("expected not-found for repeat delete, got %q", got)
	}
}

func TestWatchFlow(t *testing.T) {
	e := newTestEnv(t, nil)
	hdr := map[string]string{"X-Session-Token": "viewer-1", "X-Device-Type": "mobile"}

	rr := e.do(t, http.MethodPost, "/v1/animes/steel-alchemist/episodes/episode-1/watch",
		`{"watch_duration_seconds":100}`, hdr)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = e.do(t, http.MethodPost, "/v1/animes/steel-alchemist/episodes/episode-1/watch",
		`{"watch_duration_seconds":1200,"completed":true}`, hdr)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for repeat watch, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := decodeOutcome(t, rr); got != "updated" {
		t.Fatalf("expected updated, got %q", got)
	}
	if got := e.mem.EpisodeCounters(e.episodeID).Views; got != 1 {
		t.Fatalf("expected exactly 1 view, got %d", got)
	}

	rr = e.do(t, http.MethodGet, "/v1/users/me/watch-history", "", hdr)
	var history struct {
		Items []ledger.WatchRecord `json:"items"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Items) != 1 || history.Items[0].DeviceType != "mobile" {
		t.Fatalf("unexpected history: %+v", history.Items)
	}
}

func TestWatchValidation(t *testing.T) {
	e := newTestEnv(t, nil)
	hdr := map[string]string{"X-Session-Token": "viewer-1"}

	// completed=true below the completion floor.
	rr := e.do(t, http.MethodPost, "/v1/animes/steel-alchemist/episodes/episode-1/watch",
		`{"watch_duration_seconds":500,"completed":true}`, hdr)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Error.Code != "VALIDATION" {
		t.Fatalf("expected VALIDATION code, got %q", resp.Error.Code)
	}
	if resp.Error.Details["field"] != "completed" {
		t.Fatalf("expected field detail, got %+v", resp.Error.Details)
	}
}

func TestCommentFlow(t *testing.T) {
	e := newTestEnv(t, nil)
	guest := map[string]string{"X-Session-Token": "guest-1"}
	user := map[string]string{"Authorization": bearerToken(t, "1", false)}

	// Guest comment: pending moderation, default guest name.
	rr := e.do(t, http.MethodPost, "/v1/animes/steel-alchemist/comments", `{"body":"first!"}`, guest)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var guestComment ledger.Comment
	if err := json.NewDecoder(rr.Body).Decode(&guestComment); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if guestComment.Approved || guestComment.GuestName != ledger.DefaultGuestName {
		t.Fatalf("unexpected guest comment: %+v", guestComment)
	}

	// Registered comment: approved, visible.
	rr = e.do(t, http.MethodPost, "/v1/animes/steel-alchemist/comments", `{"body":"hello"}`, user)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var userComment ledger.Comment
	if err := json.NewDecoder(rr.Body).Decode(&userComment); err != nil {
		t.Fatalf("decode: %v", err)
	}
	commentURL := fmt.Sprintf("/v1/comments/%d", userComment.ID)

	rr = e.do(t, http.MethodGet, "/v1/animes/steel-alchemist/comments", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var list commentListResponse
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Comments) != 1 || list.Comments[0].Comment.Body != "hello" {
		t.Fatalf("expected only the approved comment, got %+v", list.Comments)
	}

	// Edit and delete are owner-only.
	rr = e.do(t, http.MethodPut, commentURL, `{"body":"edited"}`, guest)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign edit, got %d", rr.Code)
	}
	rr = e.do(t, http.MethodPut, commentURL, `{"body":"edited"}`, user)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = e.do(t, http.MethodDelete, commentURL, "", user)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	rr = e.do(t, http.MethodDelete, commentURL, "", user)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for repeat delete, got %d", rr.Code)
	}
}

func TestCommentRateLimit(t *testing.T) {
	e := newTestEnv(t, NewActorLimiter(rate.Every(time.Hour), 1))
	hdr := map[string]string{"X-Session-Token": "spammer"}

	rr := e.do(t, http.MethodPost, "/v1/animes/1/comments", `{"body":"one"}`, hdr)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = e.do(t, http.MethodPost, "/v1/animes/1/comments", `{"body":"two"}`, hdr)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
}

func TestEpisodeComments(t *testing.T) {
	e := newTestEnv(t, nil)
	user := map[string]string{"Authorization": bearerToken(t, "1", false)}

	rr := e.do(t, http.MethodPost, "/v1/animes/1/episodes/episode-1/comments", `{"body":"great ep"}`, user)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := e.mem.EpisodeCounters(e.episodeID).Comments; got != 1 {
		t.Fatalf("expected episode comment counter 1, got %d", got)
	}
	// The anime-level counter is independent.
	if got := e.mem.AnimeCounters(e.animeID).Comments; got != 0 {
		t.Fatalf("expected anime comment counter 0, got %d", got)
	}

	rr = e.do(t, http.MethodGet, "/v1/animes/1/episodes/episode-1/comments", "", nil)
	var list commentListResponse
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Comments) != 1 {
		t.Fatalf("expected 1 episode comment, got %d", len(list.Comments))
	}
}

func TestParseRef(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("animeIdOrSlug", "123")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	ref, err := parseRef(req, "animeIdOrSlug")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id, ok := ref.ID(); !ok || id != 123 {
		t.Fatalf("expected id ref 123, got %+v", ref)
	}

	rctx.URLParams = chi.RouteParams{}
	rctx.URLParams.Add("animeIdOrSlug", "one-piece")
	ref, err = parseRef(req, "animeIdOrSlug")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if slug, ok := ref.Slug(); !ok || slug != "one-piece" {
		t.Fatalf("expected slug ref, got %+v", ref)
	}
}
