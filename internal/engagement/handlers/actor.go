// Package handlers is the HTTP boundary of the engagement service: it
// resolves actors and targets from the request, delegates to the ledger
// service, and maps its errors onto the shared api envelope.
package handlers

import (
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/example/anime-engagement/internal/engagement/actor"
	"github.com/example/anime-engagement/internal/platform/api"
	"github.com/example/anime-engagement/internal/platform/auth"
	"github.com/example/anime-engagement/internal/platform/httpserver"
)

// Anonymous tracking headers; a registered Bearer token wins over all of
// them.
const (
	headerSessionToken = "X-Session-Token"
	headerFingerprint  = "X-Fingerprint"
	headerCountry      = "X-Country"
	headerCity         = "X-City"
	headerDeviceType   = "X-Device-Type"
)

func hintFromRequest(r *http.Request) actor.Hint {
	h := actor.Hint{
		SessionToken: strings.TrimSpace(r.Header.Get(headerSessionToken)),
		Fingerprint:  strings.TrimSpace(r.Header.Get(headerFingerprint)),
		Country:      strings.TrimSpace(r.Header.Get(headerCountry)),
		City:         strings.TrimSpace(r.Header.Get(headerCity)),
		IPAddress:    clientIP(r),
	}
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		h.UserID = id.UserID
		h.Premium = id.Premium
	}
	return h
}

// clientIP prefers the first X-Forwarded-For hop (set by the edge proxy),
// falling back to the connection peer.
func clientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// resolveActor yields the request's actor, writing the error response
// itself when session tracking fails. A zero actor with ok=true means the
// caller is untracked; the ledger rejects writes for those.
func resolveActor(w http.ResponseWriter, r *http.Request, res *actor.Resolver, log *zap.Logger) (actor.Actor, bool) {
	a, err := res.Resolve(r.Context(), hintFromRequest(r))
	if err != nil {
		rid := httpserver.RequestIDFromContext(r.Context())
		log.Error("resolve actor", zap.String("request_id", rid), zap.Error(err))
		api.Internal(w, rid)
		return actor.Actor{}, false
	}
	return a, true
}
