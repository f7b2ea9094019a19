package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hasna/convo/internal/storage"
)

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "convo.db")
	st, err := New(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	sent, err := st.Append(storage.AppendOptions{From: "alice", To: "bob", Content: "survive restart"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	st2, err := New(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()

	got, err := st2.Get(sent.ID)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Content != "survive restart" || got.SessionID != sent.SessionID {
		t.Fatalf("unexpected message after reopen: %+v", got)
	}
	if !got.CreatedAt.Equal(sent.CreatedAt) {
		t.Fatalf("created_at changed across reopen: %v vs %v", got.CreatedAt, sent.CreatedAt)
	}
}

func TestCloseIdempotent(t *testing.T) {
	st, err := New(filepath.Join(t.TempDir(), "convo.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

// Databases written before channels existed lack the channel column; the
// schema pass must add it before creating the channel index.
func TestMigratesLegacyMessagesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "convo.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		from_agent TEXT NOT NULL,
		to_agent TEXT NOT NULL,
		content TEXT NOT NULL,
		priority TEXT NOT NULL DEFAULT 'normal',
		working_dir TEXT,
		repository TEXT,
		branch TEXT,
		metadata TEXT,
		created_at TEXT NOT NULL,
		read_at TEXT
	)`)
	if err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	_, err = db.Exec(
		`INSERT INTO messages (session_id, from_agent, to_agent, content, created_at)
		 VALUES ('alice-bob-12345678', 'alice', 'bob', 'old row', '2024-01-01T00:00:00.000000000Z')`,
	)
	if err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close raw: %v", err)
	}

	st, err := New(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("open over legacy db: %v", err)
	}
	defer st.Close()

	old, err := st.Query(storage.MessageFilter{To: "bob"})
	if err != nil {
		t.Fatalf("query legacy row: %v", err)
	}
	if len(old) != 1 || old[0].Content != "old row" {
		t.Fatalf("expected legacy row readable, got %+v", old)
	}

	if _, err := st.Append(storage.AppendOptions{From: "alice", Channel: "deploys", Content: "new row"}); err != nil {
		t.Fatalf("append channel message after migration: %v", err)
	}
}

func TestStats(t *testing.T) {
	st := newTestStore(t)
	m1, _ := st.Append(storage.AppendOptions{From: "alice", To: "bob", Content: "one"})
	_, _ = st.Append(storage.AppendOptions{From: "alice", To: "bob", Content: "two", SessionID: m1.SessionID})
	_, _ = st.Append(storage.AppendOptions{From: "carol", To: "dave", Content: "three"})
	_, _ = st.CreateChannel("deploys", "alice", "")
	_, _ = st.MarkRead([]int64{m1.ID}, "bob")

	stats, err := st.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalMessages != 3 {
		t.Fatalf("expected 3 messages, got %d", stats.TotalMessages)
	}
	if stats.TotalSessions != 2 {
		t.Fatalf("expected 2 sessions, got %d", stats.TotalSessions)
	}
	if stats.TotalChannels != 1 {
		t.Fatalf("expected 1 channel, got %d", stats.TotalChannels)
	}
	if stats.UnreadMessages != 2 {
		t.Fatalf("expected 2 unread, got %d", stats.UnreadMessages)
	}
}
