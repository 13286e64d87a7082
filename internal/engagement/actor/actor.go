// Package actor models the identity axis of the engagement ledger: every
// engagement row belongs to either a registered user or an anonymous
// session, never both. The zero Actor means "no actor" (untracked caller).
package actor

import "fmt"

type Kind int

const (
	KindNone Kind = iota
	KindUser
	KindSession
)

// Actor is a tagged union over {registered user, anonymous session}.
// Constructed only through User and Session, so the illegal states
// (both set, negative ids) are unrepresentable.
type Actor struct {
	kind    Kind
	id      int64
	premium bool
}

// User returns a registered-user actor.
func User(id int64) Actor {
	if id <= 0 {
		return Actor{}
	}
	return Actor{kind: KindUser, id: id}
}

// Session returns an anonymous-session actor.
func Session(id int64) Actor {
	if id <= 0 {
		return Actor{}
	}
	return Actor{kind: KindSession, id: id}
}

// WithPremium marks a registered actor as premium-entitled.
// No-op for sessions; anonymous viewers are never premium.
func (a Actor) WithPremium(premium bool) Actor {
	if a.kind == KindUser {
		a.premium = premium
	}
	return a
}

func (a Actor) Kind() Kind      { return a.kind }
func (a Actor) IsNone() bool    { return a.kind == KindNone }
func (a Actor) IsUser() bool    { return a.kind == KindUser }
func (a Actor) IsSession() bool { return a.kind == KindSession }
func (a Actor) Premium() bool   { return a.premium }

// UserID reports the registered-user id when the actor is a user.
func (a Actor) UserID() (int64, bool) {
	if a.kind != KindUser {
		return 0, false
	}
	return a.id, true
}

// SessionID reports the anonymous-session id when the actor is a session.
func (a Actor) SessionID() (int64, bool) {
	if a.kind != KindSession {
		return 0, false
	}
	return a.id, true
}

// Key is a stable string form used in event payloads and rate-limit maps.
func (a Actor) Key() string {
	switch a.kind {
	case KindUser:
		return fmt.Sprintf("user:%d", a.id)
	case KindSession:
		return fmt.Sprintf("session:%d", a.id)
	default:
		return ""
	}
}

// Same reports whether two actors are the same identity, ignoring the
// premium flag. Used for comment ownership checks.
func (a Actor) Same(b Actor) bool {
	return a.kind == b.kind && a.id == b.id && a.kind != KindNone
}
