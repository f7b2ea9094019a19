package sqlite

import (
	"errors"
	"testing"

	"github.com/hasna/convo/internal/storage"
)

func TestResilientPassthrough(t *testing.T) {
	r := NewResilient(newTestStore(t))

	sent, err := r.Append(storage.AppendOptions{From: "alice", To: "bob", Content: "hi"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := r.Get(sent.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "hi" {
		t.Fatalf("unexpected message: %+v", got)
	}

	sessions, err := r.ListSessions("bob")
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}

	if r.BreakerState() != "closed" {
		t.Fatalf("expected closed breaker, got %s", r.BreakerState())
	}
	if r.Path() == "" {
		t.Fatal("expected backing path")
	}
}

func TestResilientStaysClosedOnRepeatedNotFound(t *testing.T) {
	r := NewResilient(newTestStore(t))

	// A client polling a missing row must not trip the breaker.
	for i := 0; i < 10; i++ {
		if _, err := r.Get(99999); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
	if r.BreakerState() != "closed" {
		t.Fatalf("expected closed breaker, got %s", r.BreakerState())
	}

	if _, err := r.Append(storage.AppendOptions{From: "alice", To: "bob", Content: "hi"}); err != nil {
		t.Fatalf("append after not-founds: %v", err)
	}
}
