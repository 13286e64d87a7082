package actor

import "testing"

func TestActorConstructors(t *testing.T) {
	u := User(42)
	if !u.IsUser() || u.IsSession() || u.IsNone() {
		t.Fatal("expected a user actor")
	}
	if id, ok := u.UserID(); !ok || id != 42 {
		t.Fatalf("expected user id 42, got %d (ok=%v)", id, ok)
	}

	s := Session(7)
	if !s.IsSession() || s.IsUser() || s.IsNone() {
		t.Fatal("expected a session actor")
	}
	if id, ok := s.SessionID(); !ok || id != 7 {
		t.Fatalf("expected session id 7, got %d (ok=%v)", id, ok)
	}

	var none Actor
	if !none.IsNone() {
		t.Fatal("zero value must be the none actor")
	}
}

func TestActorRejectsNonPositiveIDs(t *testing.T) {
	if !User(0).IsNone() || !User(-1).IsNone() {
		t.Fatal("non-positive user ids must yield the none actor")
	}
	if !Session(0).IsNone() {
		t.Fatal("non-positive session ids must yield the none actor")
	}
}

func TestActorKey(t *testing.T) {
	if got := User(1).Key(); got != "user:1" {
		t.Fatalf("expected user:1, got %q", got)
	}
	if got := Session(2).Key(); got != "session:2" {
		t.Fatalf("expected session:2, got %q", got)
	}
}

func TestActorSame(t *testing.T) {
	// A user and a session with the same numeric id are different actors.
	if User(5).Same(Session(5)) {
		t.Fatal("user:5 and session:5 must not be the same actor")
	}
	if !User(5).Same(User(5)) {
		t.Fatal("expected user:5 == user:5")
	}
}

func TestWithPremium(t *testing.T) {
	u := User(1).WithPremium(true)
	if !u.Premium() {
		t.Fatal("expected premium user")
	}
	// Premium is a registered-user entitlement only.
	s := Session(1).WithPremium(true)
	if s.Premium() {
		t.Fatal("sessions must never be premium")
	}
}
