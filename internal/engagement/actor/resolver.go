package actor

import (
	"context"
	"fmt"
	"strings"
)

// Visit is one unauthenticated request's worth of session tracking data.
type Visit struct {
	SessionToken    string
	FingerprintHash string
	IPAddress       string
	Country         string
	City            string
}

// SessionStore persists anonymous sessions. UpsertVisit must be atomic:
// a new token creates the row with total_visits=1, an existing token bumps
// total_visits and last_seen_at with a field-level increment so concurrent
// requests never lose updates.
type SessionStore interface {
	UpsertVisit(ctx context.Context, v Visit) (int64, error)
}

// Hint is the raw identity material an HTTP handler extracted from the
// request: a verified user id, or the anonymous tracking headers.
type Hint struct {
	UserID       int64
	Premium      bool
	SessionToken string
	Fingerprint  string
	IPAddress    string
	Country      string
	City         string
}

// Resolver turns request credentials into exactly one actor variant,
// upserting the anonymous session record as a side effect.
type Resolver struct {
	sessions SessionStore
}

func NewResolver(sessions SessionStore) *Resolver {
	return &Resolver{sessions: sessions}
}

// Resolve yields the actor for a request. A registered user takes
// precedence and causes no session writes. Without a session token the
// caller stays untracked (zero Actor, nil error).
func (r *Resolver) Resolve(ctx context.Context, h Hint) (Actor, error) {
	if h.UserID > 0 {
		return User(h.UserID).WithPremium(h.Premium), nil
	}

	token := strings.TrimSpace(h.SessionToken)
	if token == "" {
		return Actor{}, nil
	}

	country := strings.TrimSpace(h.Country)
	if country == "" {
		country = "UZ"
	}

	id, err := r.sessions.UpsertVisit(ctx, Visit{
		SessionToken:    token,
		FingerprintHash: strings.TrimSpace(h.Fingerprint),
		IPAddress:       strings.TrimSpace(h.IPAddress),
		Country:         country,
		City:            strings.TrimSpace(h.City),
	})
	if err != nil {
		return Actor{}, fmt.Errorf("upsert anonymous session: %w", err)
	}
	return Session(id), nil
}
