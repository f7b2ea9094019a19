package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hasna/convo/internal/core"
)

func TestCounterpart(t *testing.T) {
	msgs := []core.Message{
		{From: "alice", To: "me"},
		{From: "me", To: "bob"},
		{From: "bob", To: "me"},
	}

	if got := counterpart([]string{"me", "alice"}, "me", nil); got != "alice" {
		t.Fatalf("pair: expected alice, got %q", got)
	}
	// Multi-party: reply to whoever spoke last that isn't us.
	if got := counterpart([]string{"me", "alice", "bob"}, "me", msgs); got != "bob" {
		t.Fatalf("multi: expected bob, got %q", got)
	}
	if got := counterpart([]string{"me", "alice", "bob"}, "me", nil); got != "alice" {
		t.Fatalf("no history: expected first other, got %q", got)
	}
}

func TestSessionLabel(t *testing.T) {
	channel := core.Session{SessionID: core.ChannelSessionID("deploys")}
	if got := sessionLabel(channel, "me"); got != "#deploys" {
		t.Fatalf("expected #deploys, got %q", got)
	}

	direct := core.Session{SessionID: "alice-me-12345678", Participants: []string{"alice", "me"}}
	if got := sessionLabel(direct, "me"); got != "alice" {
		t.Fatalf("expected alice, got %q", got)
	}
}

func TestWrap(t *testing.T) {
	if got := wrap("short", 10); got != "short" {
		t.Fatalf("unexpected wrap: %q", got)
	}
	if got := wrap("one two three four", 9); got != "one two\nthree\nfour" {
		t.Fatalf("unexpected wrap: %q", got)
	}
	// Pre-existing newlines survive.
	if got := wrap("a\nb", 10); got != "a\nb" {
		t.Fatalf("unexpected wrap: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncate: %q", got)
	}
	if got := truncate("a very long session name", 10); got != "a very lo…" {
		t.Fatalf("unexpected truncate: %q", got)
	}
}

func TestUpdateTracksSessions(t *testing.T) {
	m := New(nil, "me")

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = next.(Model)
	if !m.ready {
		t.Fatal("expected ready after window size")
	}

	next, _ = m.Update(sessionsMsg{sessions: []core.Session{
		{SessionID: "alice-me-12345678", Participants: []string{"alice", "me"}},
		{SessionID: "bob-me-87654321", Participants: []string{"bob", "me"}},
	}})
	m = next.(Model)
	if len(m.sessions) != 2 || m.selected != 0 {
		t.Fatalf("unexpected state: %d sessions, selected %d", len(m.sessions), m.selected)
	}

	// Stale message loads for a different session are dropped.
	next, _ = m.Update(messagesMsg{sessionID: "bob-me-87654321", messages: []core.Message{{ID: 1}}})
	m = next.(Model)
	if len(m.messages) != 0 {
		t.Fatalf("expected stale load dropped, got %d messages", len(m.messages))
	}

	next, _ = m.Update(messagesMsg{sessionID: "alice-me-12345678", messages: []core.Message{{ID: 1, From: "alice", Content: "hi"}}})
	m = next.(Model)
	if len(m.messages) != 1 {
		t.Fatalf("expected current session load applied, got %d messages", len(m.messages))
	}
}

func TestUpdateClampsSelection(t *testing.T) {
	m := New(nil, "me")
	m.selected = 5

	next, _ := m.Update(sessionsMsg{sessions: []core.Session{
		{SessionID: "alice-me-12345678", Participants: []string{"alice", "me"}},
	}})
	m = next.(Model)
	if m.selected != 0 {
		t.Fatalf("expected selection clamped to 0, got %d", m.selected)
	}
}
