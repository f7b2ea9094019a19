package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hasna/convo/internal/core"
	"github.com/hasna/convo/internal/storage/sqlite"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "convo.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewRouter(NewService(st, zerolog.Nop()), nil)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestSendAndListMessages(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/messages", map[string]any{
		"from":    "alice",
		"to":      "bob",
		"content": "hello",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	sent := decode[core.Message](t, rec)
	if sent.ID == 0 || sent.SessionID == "" {
		t.Fatalf("expected assigned id and session, got %+v", sent)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/messages?to=bob", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	msgs := decode[[]core.Message](t, rec)
	if len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Fatalf("unexpected listing: %+v", msgs)
	}
}

func TestSendMessageValidation(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/messages", map[string]any{"to": "bob"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing fields, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewBufferString("{broken"))
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad JSON, got %d", rec2.Code)
	}
}

func TestListMessagesRejectsBadParams(t *testing.T) {
	h := newTestRouter(t)
	if rec := doJSON(t, h, http.MethodGet, "/api/messages?limit=nope", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/api/messages?since_id=nope", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad since_id, got %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/api/messages?since=yesterday", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad since, got %d", rec.Code)
	}
}

func TestListMessagesSinceTimestamp(t *testing.T) {
	h := newTestRouter(t)
	first := decode[core.Message](t, doJSON(t, h, http.MethodPost, "/api/messages", map[string]any{
		"from": "alice", "to": "bob", "content": "old",
	}))
	decode[core.Message](t, doJSON(t, h, http.MethodPost, "/api/messages", map[string]any{
		"from": "alice", "to": "bob", "content": "new",
	}))

	cutoff := first.CreatedAt.Format(time.RFC3339Nano)
	rec := doJSON(t, h, http.MethodGet, "/api/messages?since="+url.QueryEscape(cutoff), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	msgs := decode[[]core.Message](t, rec)
	if len(msgs) != 1 || msgs[0].Content != "new" {
		t.Fatalf("expected only the newer message, got %+v", msgs)
	}
}

func TestMarkReadEndpoint(t *testing.T) {
	h := newTestRouter(t)
	sent := decode[core.Message](t, doJSON(t, h, http.MethodPost, "/api/messages", map[string]any{
		"from": "alice", "to": "bob", "content": "unread",
	}))

	rec := doJSON(t, h, http.MethodPost, "/api/messages/read", map[string]any{
		"ids": []int64{sent.ID}, "reader": "bob",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[markReadResponse](t, rec)
	if resp.MarkedRead != 1 {
		t.Fatalf("expected 1 marked, got %d", resp.MarkedRead)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/messages/read", map[string]any{"ids": []int64{sent.ID}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without reader, got %d", rec.Code)
	}
}

func TestSessionEndpoints(t *testing.T) {
	h := newTestRouter(t)
	sent := decode[core.Message](t, doJSON(t, h, http.MethodPost, "/api/messages", map[string]any{
		"from": "alice", "to": "bob", "content": "hello",
	}))

	rec := doJSON(t, h, http.MethodGet, "/api/sessions?agent=bob", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	sessions := decode[[]core.Session](t, rec)
	if len(sessions) != 1 || sessions[0].UnreadCount != 1 {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/"+sent.SessionID+"?agent=bob", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	session := decode[core.Session](t, rec)
	if session.SessionID != sent.SessionID {
		t.Fatalf("unexpected session: %+v", session)
	}

	if rec := doJSON(t, h, http.MethodGet, "/api/sessions/missing", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/sessions/"+sent.SessionID+"/read", map[string]any{"reader": "bob"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp := decode[markReadResponse](t, rec); resp.MarkedRead != 1 {
		t.Fatalf("expected 1 marked, got %d", resp.MarkedRead)
	}
}

func TestChannelEndpoints(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/channels", map[string]any{
		"name": "deploys", "created_by": "alice", "description": "releases",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/api/channels", map[string]any{
		"name": "deploys", "created_by": "bob",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/channels/deploys/join", map[string]any{"agent": "bob"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/channels/ghost/join", map[string]any{"agent": "bob"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 joining unknown channel, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/channels/deploys/members", nil)
	members := decode[[]core.ChannelMember](t, rec)
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %+v", members)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/channels", nil)
	channels := decode[[]core.ChannelInfo](t, rec)
	if len(channels) != 1 || channels[0].MemberCount != 2 {
		t.Fatalf("unexpected channels: %+v", channels)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/channels/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown channel, got %d", rec.Code)
	}

	doJSON(t, h, http.MethodPost, "/api/messages", map[string]any{
		"from": "bob", "channel": "deploys", "content": "rolling out",
	})
	rec = doJSON(t, h, http.MethodPost, "/api/channels/deploys/read", map[string]any{"reader": "alice"})
	if resp := decode[markReadResponse](t, rec); resp.MarkedRead != 1 {
		t.Fatalf("expected 1 marked, got %d", resp.MarkedRead)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/channels/deploys/leave", map[string]any{"agent": "bob"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp := decode[membershipResponse](t, rec); !resp.OK {
		t.Fatalf("expected leave to report true")
	}
}

func TestStatusEndpoint(t *testing.T) {
	h := newTestRouter(t)
	for i := 0; i < 3; i++ {
		doJSON(t, h, http.MethodPost, "/api/messages", map[string]any{
			"from": "alice", "to": "bob", "content": fmt.Sprintf("msg %d", i),
		})
	}

	rec := doJSON(t, h, http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status struct {
		DBPath         string `json:"db_path"`
		TotalMessages  int    `json:"total_messages"`
		UnreadMessages int    `json:"unread_messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.TotalMessages != 3 || status.UnreadMessages != 3 {
		t.Fatalf("unexpected stats: %+v", status)
	}
	if status.DBPath == "" {
		t.Fatal("expected db path in status")
	}
}
