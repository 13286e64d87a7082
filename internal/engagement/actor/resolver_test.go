package actor

import (
	"context"
	"testing"
)

type fakeSessionStore struct {
	visits []Visit
	nextID int64
	ids    map[string]int64
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{ids: make(map[string]int64)}
}

func (f *fakeSessionStore) UpsertVisit(_ context.Context, v Visit) (int64, error) {
	f.visits = append(f.visits, v)
	if id, ok := f.ids[v.SessionToken]; ok {
		return id, nil
	}
	f.nextID++
	f.ids[v.SessionToken] = f.nextID
	return f.nextID, nil
}

func TestResolveRegisteredUserTakesPrecedence(t *testing.T) {
	store := newFakeSessionStore()
	r := NewResolver(store)

	a, err := r.Resolve(context.Background(), Hint{
		UserID:       10,
		Premium:      true,
		SessionToken: "tok-1", // ignored when a user id is present
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !a.IsUser() {
		t.Fatal("expected a user actor")
	}
	if !a.Premium() {
		t.Fatal("expected premium flag carried through")
	}
	if len(store.visits) != 0 {
		t.Fatalf("registered user must not write session rows, got %d", len(store.visits))
	}
}

func TestResolveSessionUpsertsVisit(t *testing.T) {
	store := newFakeSessionStore()
	r := NewResolver(store)
	ctx := context.Background()

	a, err := r.Resolve(ctx, Hint{SessionToken: "tok-1", Country: "KZ", City: "Almaty"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !a.IsSession() {
		t.Fatal("expected a session actor")
	}

	// Same token resolves to the same session id.
	b, err := r.Resolve(ctx, Hint{SessionToken: "tok-1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !a.Same(b) {
		t.Fatal("same token must resolve to the same session actor")
	}
	if len(store.visits) != 2 {
		t.Fatalf("expected 2 visit upserts, got %d", len(store.visits))
	}
	if store.visits[0].Country != "KZ" {
		t.Fatalf("expected country KZ, got %q", store.visits[0].Country)
	}
}

func TestResolveDefaultsCountry(t *testing.T) {
	store := newFakeSessionStore()
	r := NewResolver(store)

	if _, err := r.Resolve(context.Background(), Hint{SessionToken: "tok-2"}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := store.visits[0].Country; got != "UZ" {
		t.Fatalf("expected default country UZ, got %q", got)
	}
}

func TestResolveUntracked(t *testing.T) {
	r := NewResolver(newFakeSessionStore())

	a, err := r.Resolve(context.Background(), Hint{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !a.IsNone() {
		t.Fatal("no credentials must yield the none actor")
	}
}
