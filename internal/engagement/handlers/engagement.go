package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/example/anime-engagement/internal/engagement/actor"
	"github.com/example/anime-engagement/internal/engagement/ledger"
	"github.com/example/anime-engagement/internal/platform/api"
)

type reactionRequest struct {
	IsLike bool `json:"is_like"`
}

type watchRequest struct {
	WatchDurationSeconds int64  `json:"watch_duration_seconds"`
	Completed            bool   `json:"completed"`
	Country              string `json:"country,omitempty"`
	DeviceType           string `json:"device_type,omitempty"`
}

type outcomeResponse struct {
	Outcome ledger.Outcome `json:"outcome"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		api.BadRequest(w, "INVALID_JSON", "invalid JSON", requestID(r), nil)
		return false
	}
	return true
}

func listLimit(r *http.Request) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			return parsed
		}
	}
	return 50
}

// SetAnimeReaction handles POST /v1/animes/{idOrSlug}/reaction
func SetAnimeReaction(svc *ledger.Service, res *actor.Resolver, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := animeRef(w, r)
		if !ok {
			return
		}
		a, ok := resolveActor(w, r, res, log)
		if !ok {
			return
		}
		var req reactionRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		outcome, err := svc.SetReaction(r.Context(), a, ref, ledger.Ref{}, req.IsLike)
		if err != nil {
			writeLedgerError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, outcomeResponse{Outcome: outcome})
	}
}

// SetEpisodeReaction handles POST /v1/animes/{animeIdOrSlug}/episodes/{epIdOrSlug}/reaction
func SetEpisodeReaction(svc *ledger.Service, res *actor.Resolver, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		aRef, eRef, ok := episodeRefs(w, r)
		if !ok {
			return
		}
		a, ok := resolveActor(w, r, res, log)
		if !ok {
			return
		}
		var req reactionRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		outcome, err := svc.SetReaction(r.Context(), a, aRef, eRef, req.IsLike)
		if err != nil {
			writeLedgerError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, outcomeResponse{Outcome: outcome})
	}
}

// AddFavorite handles PUT /v1/animes/{idOrSlug}/favorite
func AddFavorite(svc *ledger.Service, res *actor.Resolver, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := animeRef(w, r)
		if !ok {
			return
		}
		a, ok := resolveActor(w, r, res, log)
		if !ok {
			return
		}

		outcome, err := svc.AddFavorite(r.Context(), a, ref)
		if err != nil {
			writeLedgerError(w, r, log, err)
			return
		}
		status := http.StatusCreated
		if outcome == ledger.OutcomeAlreadyExists {
			status = http.StatusOK
		}
		api.WriteJSON(w, status, outcomeResponse{Outcome: outcome})
	}
}

// RemoveFavorite handles DELETE /v1/animes/{idOrSlug}/favorite
func RemoveFavorite(svc *ledger.Service, res *actor.Resolver, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := animeRef(w, r)
		if !ok {
			return
		}
		a, ok := resolveActor(w, r, res, log)
		if !ok {
			return
		}

		outcome, err := svc.RemoveFavorite(r.Context(), a, ref)
		if err != nil {
			writeLedgerError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, outcomeResponse{Outcome: outcome})
	}
}

// RecordWatch handles POST /v1/animes/{animeIdOrSlug}/episodes/{epIdOrSlug}/watch
func RecordWatch(svc *ledger.Service, res *actor.Resolver, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		aRef, eRef, ok := episodeRefs(w, r)
		if !ok {
			return
		}
		a, ok := resolveActor(w, r, res, log)
		if !ok {
			return
		}
		var req watchRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.DeviceType == "" {
			req.DeviceType = strings.TrimSpace(r.Header.Get(headerDeviceType))
		}
		if req.Country == "" {
			req.Country = strings.TrimSpace(r.Header.Get(headerCountry))
		}

		outcome, err := svc.RecordWatch(r.Context(), a, aRef, eRef, ledger.WatchInput{
			DurationSeconds: req.WatchDurationSeconds,
			Completed:       req.Completed,
			Country:         req.Country,
			DeviceType:      req.DeviceType,
		})
		if err != nil {
			writeLedgerError(w, r, log, err)
			return
		}
		status := http.StatusCreated
		if outcome == ledger.OutcomeUpdated {
			status = http.StatusOK
		}
		api.WriteJSON(w, status, outcomeResponse{Outcome: outcome})
	}
}

// WatchHistory handles GET /v1/users/me/watch-history
func WatchHistory(svc *ledger.Service, res *actor.Resolver, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := resolveActor(w, r, res, log)
		if !ok {
			return
		}

		records, err := svc.WatchHistory(r.Context(), a, listLimit(r))
		if err != nil {
			writeLedgerError(w, r, log, err)
			return
		}
		if records == nil {
			records = []ledger.WatchRecord{}
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"items": records})
	}
}

// Favorites handles GET /v1/users/me/favorites
func Favorites(svc *ledger.Service, res *actor.Resolver, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := resolveActor(w, r, res, log)
		if !ok {
			return
		}

		items, err := svc.Favorites(r.Context(), a, listLimit(r))
		if err != nil {
			writeLedgerError(w, r, log, err)
			return
		}
		if items == nil {
			items = []ledger.Favorite{}
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}
