package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hasna/convo/internal/core"
)

// runCommand executes the full command tree against a throwaway config
// and database, returning captured stdout.
func runCommand(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{
		"--config", filepath.Join(t.TempDir(), "absent.yaml"),
		"--db", dbPath,
	}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestSendAndReadRoundTrip(t *testing.T) {
	db := filepath.Join(t.TempDir(), "convo.db")

	out, err := runCommand(t, db, "send", "--from", "alice", "--to", "bob", "hello", "there")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(out, "sent #1 to bob") {
		t.Fatalf("unexpected send output: %q", out)
	}

	out, err = runCommand(t, db, "read", "--to", "bob", "--json")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msgs []core.Message
	if err := json.Unmarshal([]byte(out), &msgs); err != nil {
		t.Fatalf("parse output %q: %v", out, err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hello there" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestSendRequiresRecipient(t *testing.T) {
	db := filepath.Join(t.TempDir(), "convo.db")
	if _, err := runCommand(t, db, "send", "--from", "alice", "hi"); err == nil {
		t.Fatal("expected error without --to or --channel")
	}
}

func TestReplyStaysInSession(t *testing.T) {
	db := filepath.Join(t.TempDir(), "convo.db")
	if _, err := runCommand(t, db, "send", "--from", "alice", "--to", "bob", "ping"); err != nil {
		t.Fatalf("send: %v", err)
	}

	t.Setenv("CONVERSATIONS_AGENT_ID", "bob")
	out, err := runCommand(t, db, "reply", "1", "pong", "--json")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	var reply core.Message
	if err := json.Unmarshal([]byte(out), &reply); err != nil {
		t.Fatalf("parse output %q: %v", out, err)
	}
	if reply.To != "alice" || reply.From != "bob" {
		t.Fatalf("unexpected reply addressing: %+v", reply)
	}

	out, err = runCommand(t, db, "read", "--session", reply.SessionID, "--json")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msgs []core.Message
	if err := json.Unmarshal([]byte(out), &msgs); err != nil {
		t.Fatalf("parse output %q: %v", out, err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected both messages in one session, got %+v", msgs)
	}
}

func TestChannelCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "convo.db")

	if _, err := runCommand(t, db, "channel", "create", "deploys", "--as", "alice"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := runCommand(t, db, "channel", "join", "deploys", "--as", "bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := runCommand(t, db, "send", "--from", "alice", "--channel", "deploys", "rolling"); err != nil {
		t.Fatalf("send to channel: %v", err)
	}

	out, err := runCommand(t, db, "channel", "list", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var channels []core.ChannelInfo
	if err := json.Unmarshal([]byte(out), &channels); err != nil {
		t.Fatalf("parse output %q: %v", out, err)
	}
	if len(channels) != 1 || channels[0].MemberCount != 2 || channels[0].MessageCount != 1 {
		t.Fatalf("unexpected channels: %+v", channels)
	}
}

func TestInitWritesConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--config", cfgPath, "init"})
	if err := root.Execute(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out.String(), "wrote "+cfgPath) {
		t.Fatalf("unexpected output: %q", out.String())
	}

	// A second init without --force refuses to clobber.
	root = NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--config", cfgPath, "init"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error on existing config")
	}
}
