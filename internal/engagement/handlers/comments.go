package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/anime-engagement/internal/engagement/actor"
	"github.com/example/anime-engagement/internal/engagement/ledger"
	"github.com/example/anime-engagement/internal/platform/api"
)

type createCommentRequest struct {
	Body      string `json:"body"`
	GuestName string `json:"guest_name,omitempty"`
	ParentID  *int64 `json:"parent_id,omitempty"`
}

type updateCommentRequest struct {
	Body string `json:"body"`
}

type commentListResponse struct {
	Comments []ledger.CommentThread `json:"comments"`
}

// refsForComment accepts both the anime-level and episode-level comment
// routes; the episode param is absent on the former.
func refsForComment(w http.ResponseWriter, r *http.Request) (ledger.Ref, ledger.Ref, bool) {
	if strings.TrimSpace(chi.URLParam(r, "epIdOrSlug")) != "" {
		return episodeRefs(w, r)
	}
	aRef, err := parseRef(r, "animeIdOrSlug")
	if err != nil {
		api.BadRequest(w, "MISSING_ID", err.Error(), requestID(r), nil)
		return ledger.Ref{}, ledger.Ref{}, false
	}
	return aRef, ledger.Ref{}, true
}

// PostComment handles POST /v1/animes/{animeIdOrSlug}/comments and
// POST /v1/animes/{animeIdOrSlug}/episodes/{epIdOrSlug}/comments
func PostComment(svc *ledger.Service, res *actor.Resolver, limiter *ActorLimiter, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		aRef, eRef, ok := refsForComment(w, r)
		if !ok {
			return
		}
		a, ok := resolveActor(w, r, res, log)
		if !ok {
			return
		}
		if !a.IsNone() && !limiter.Allow(a.Key()) {
			api.RateLimited(w, "RATE_LIMITED", "too many comments, slow down", requestID(r), nil)
			return
		}
		var req createCommentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		created, err := svc.PostComment(r.Context(), a, aRef, eRef, ledger.CommentInput{
			Body:      req.Body,
			GuestName: req.GuestName,
			ParentID:  req.ParentID,
		})
		if err != nil {
			writeLedgerError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, created)
	}
}

// ListComments handles GET on the same two comment routes.
func ListComments(svc *ledger.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		aRef, eRef, ok := refsForComment(w, r)
		if !ok {
			return
		}

		threads, err := svc.Comments(r.Context(), aRef, eRef, listLimit(r))
		if err != nil {
			writeLedgerError(w, r, log, err)
			return
		}
		if threads == nil {
			threads = []ledger.CommentThread{}
		}
		api.WriteJSON(w, http.StatusOK, commentListResponse{Comments: threads})
	}
}

func commentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "commentID"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		api.BadRequest(w, "MISSING_ID", "comment id is required", requestID(r), nil)
		return 0, false
	}
	return id, true
}

// UpdateComment handles PUT /v1/comments/{commentID}
func UpdateComment(svc *ledger.Service, res *actor.Resolver, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := commentID(w, r)
		if !ok {
			return
		}
		a, ok := resolveActor(w, r, res, log)
		if !ok {
			return
		}
		var req updateCommentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := svc.EditComment(r.Context(), a, id, req.Body); err != nil {
			writeLedgerError(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteComment handles DELETE /v1/comments/{commentID}
func DeleteComment(svc *ledger.Service, res *actor.Resolver, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := commentID(w, r)
		if !ok {
			return
		}
		a, ok := resolveActor(w, r, res, log)
		if !ok {
			return
		}

		if err := svc.DeleteComment(r.Context(), a, id); err != nil {
			writeLedgerError(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
