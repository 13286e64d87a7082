package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/anime-engagement/internal/engagement/ledger"
	"github.com/example/anime-engagement/internal/platform/api"
	"github.com/example/anime-engagement/internal/platform/httpserver"
)

// parseRef reads an {idOrSlug} path param: all-digits means a numeric id,
// anything else a slug.
func parseRef(r *http.Request, param string) (ledger.Ref, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return ledger.Ref{}, errors.New(param + " is required")
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
		return ledger.ByID(id), nil
	}
	return ledger.BySlug(raw), nil
}

func animeRef(w http.ResponseWriter, r *http.Request) (ledger.Ref, bool) {
	ref, err := parseRef(r, "animeIdOrSlug")
	if err != nil {
		api.BadRequest(w, "MISSING_ID", err.Error(), requestID(r), nil)
		return ledger.Ref{}, false
	}
	return ref, true
}

func episodeRefs(w http.ResponseWriter, r *http.Request) (ledger.Ref, ledger.Ref, bool) {
	aRef, err := parseRef(r, "animeIdOrSlug")
	if err != nil {
		api.BadRequest(w, "MISSING_ID", err.Error(), requestID(r), nil)
		return ledger.Ref{}, ledger.Ref{}, false
	}
	eRef, err := parseRef(r, "epIdOrSlug")
	if err != nil {
		api.BadRequest(w, "MISSING_ID", err.Error(), requestID(r), nil)
		return ledger.Ref{}, ledger.Ref{}, false
	}
	return aRef, eRef, true
}

func requestID(r *http.Request) string {
	return httpserver.RequestIDFromContext(r.Context())
}

// writeLedgerError maps ledger errors to the api envelope.
func writeLedgerError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	rid := requestID(r)
	if ve, ok := ledger.AsValidation(err); ok {
		api.Validation(w, ve.Message, rid, map[string]any{"field": ve.Field})
		return
	}
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		api.NotFound(w, "NOT_FOUND", "not found", rid)
	case errors.Is(err, ledger.ErrForbidden):
		api.Forbidden(w, "FORBIDDEN", "forbidden", rid)
	default:
		log.Error("engagement operation failed", zap.String("request_id", rid), zap.Error(err))
		api.Internal(w, rid)
	}
}
