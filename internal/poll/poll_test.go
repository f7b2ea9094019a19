package poll

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hasna/convo/internal/core"
	"github.com/hasna/convo/internal/storage"
)

// memReader is an in-memory message log implementing Reader. Deterministic
// and fast, so the loop can tick every few milliseconds in tests.
type memReader struct {
	mu       sync.Mutex
	messages []core.Message
	nextID   int64
}

func (r *memReader) add(to, channel, content string) core.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m := core.Message{ID: r.nextID, From: "peer", To: to, Channel: channel, Content: content}
	r.messages = append(r.messages, m)
	return m
}

func (r *memReader) Query(filter storage.MessageFilter) ([]core.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Message
	for _, m := range r.messages {
		if filter.To != "" && m.To != filter.To {
			continue
		}
		if filter.Channel != "" && m.Channel != filter.Channel {
			continue
		}
		if filter.SinceID > 0 && m.ID <= filter.SinceID {
			continue
		}
		out = append(out, m)
	}
	if filter.Descending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// collector accumulates delivered messages behind a lock.
type collector struct {
	mu   sync.Mutex
	msgs []core.Message
}

func (c *collector) collect(msgs []core.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msgs...)
}

func (c *collector) snapshot() []core.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Message(nil), c.msgs...)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestSubscribeRequiresCallback(t *testing.T) {
	if _, err := Subscribe(&memReader{}, Options{To: "bob"}, zerolog.Nop()); err == nil {
		t.Fatal("expected error without callback")
	}
}

func TestSubscriptionDeliversNewMessagesInOrder(t *testing.T) {
	reader := &memReader{}
	var c collector
	sub, err := Subscribe(reader, Options{
		To:         "bob",
		Interval:   5 * time.Millisecond,
		OnMessages: c.collect,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Stop()

	reader.add("bob", "", "one")
	reader.add("bob", "", "two")
	reader.add("alice", "", "not for bob")
	reader.add("bob", "", "three")

	waitFor(t, func() bool { return len(c.snapshot()) == 3 })

	got := c.snapshot()
	for i, want := range []string{"one", "two", "three"} {
		if got[i].Content != want {
			t.Fatalf("message %d: expected %q, got %q", i, want, got[i].Content)
		}
	}
}

func TestSubscriptionSkipsPreexistingMessages(t *testing.T) {
	reader := &memReader{}
	reader.add("bob", "", "before subscribe")

	var c collector
	sub, err := Subscribe(reader, Options{
		To:         "bob",
		Interval:   5 * time.Millisecond,
		OnMessages: c.collect,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Stop()

	after := reader.add("bob", "", "after subscribe")
	waitFor(t, func() bool { return len(c.snapshot()) == 1 })

	got := c.snapshot()
	if got[0].ID != after.ID {
		t.Fatalf("expected only the post-subscribe message, got %+v", got)
	}
}

func TestSubscriptionDeliversAtMostOnce(t *testing.T) {
	reader := &memReader{}
	var c collector
	sub, err := Subscribe(reader, Options{
		Channel:    "deploys",
		Interval:   5 * time.Millisecond,
		OnMessages: c.collect,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Stop()

	reader.add("deploys", "deploys", "once")
	waitFor(t, func() bool { return len(c.snapshot()) >= 1 })

	// Let several more ticks pass; the message must not reappear.
	time.Sleep(50 * time.Millisecond)
	if got := c.snapshot(); len(got) != 1 {
		t.Fatalf("expected exactly one delivery, got %d", len(got))
	}
}

func TestSubscriptionCursorAdvances(t *testing.T) {
	reader := &memReader{}
	var c collector
	sub, err := Subscribe(reader, Options{
		To:         "bob",
		Interval:   5 * time.Millisecond,
		OnMessages: c.collect,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Stop()

	if sub.Cursor() != 0 {
		t.Fatalf("expected zero seed cursor, got %d", sub.Cursor())
	}

	m := reader.add("bob", "", "advance")
	waitFor(t, func() bool { return sub.Cursor() == m.ID })
}

func TestStopHaltsDelivery(t *testing.T) {
	reader := &memReader{}
	var c collector
	sub, err := Subscribe(reader, Options{
		To:         "bob",
		Interval:   5 * time.Millisecond,
		OnMessages: c.collect,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	sub.Stop()
	sub.Stop() // idempotent

	reader.add("bob", "", "too late")
	time.Sleep(50 * time.Millisecond)
	if got := c.snapshot(); len(got) != 0 {
		t.Fatalf("expected no deliveries after stop, got %d", len(got))
	}
}

func TestCallbackPanicDoesNotKillLoop(t *testing.T) {
	reader := &memReader{}
	var c collector
	first := true
	sub, err := Subscribe(reader, Options{
		To:       "bob",
		Interval: 5 * time.Millisecond,
		OnMessages: func(msgs []core.Message) {
			if first {
				first = false
				panic("bad callback")
			}
			c.collect(msgs)
		},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Stop()

	reader.add("bob", "", "panics")
	waitFor(t, func() bool { return sub.Cursor() == 1 })

	second := reader.add("bob", "", "survives")
	waitFor(t, func() bool { return len(c.snapshot()) == 1 })
	if got := c.snapshot(); got[0].ID != second.ID {
		t.Fatalf("expected the second message, got %+v", got)
	}
}
