package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hasna/convo/internal/core"
	"github.com/hasna/convo/internal/metrics"
	"github.com/hasna/convo/internal/storage"
)

const defaultListLimit = 50

type sendMessageRequest struct {
	From       string         `json:"from"`
	To         string         `json:"to"`
	Content    string         `json:"content"`
	SessionID  string         `json:"session_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Priority   string         `json:"priority,omitempty"`
	WorkingDir string         `json:"working_dir,omitempty"`
	Repository string         `json:"repository,omitempty"`
	Branch     string         `json:"branch,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (s *Service) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid JSON body")
		return
	}
	msg, err := s.store.Append(storage.AppendOptions{
		From:       req.From,
		To:         req.To,
		Content:    req.Content,
		SessionID:  req.SessionID,
		Channel:    req.Channel,
		Priority:   core.Priority(req.Priority),
		WorkingDir: req.WorkingDir,
		Repository: req.Repository,
		Branch:     req.Branch,
		Metadata:   req.Metadata,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	kind := "direct"
	if msg.Channel != "" {
		kind = "channel"
	}
	metrics.MessagesSent.WithLabelValues(kind).Inc()
	if s.bus != nil {
		s.bus.Broadcast(msg.To, map[string]any{
			"type":    "message.created",
			"message": msg,
		})
	}
	s.respond(w, http.StatusCreated, msg)
}

func (s *Service) handleListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultListLimit
	if v := q.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			s.badRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	var sinceID int64
	if v := q.Get("since_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.badRequest(w, "since_id must be an integer")
			return
		}
		sinceID = parsed
	}
	var since time.Time
	if v := q.Get("since"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.badRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
		since = parsed
	}
	msgs, err := s.store.Query(storage.MessageFilter{
		SessionID:  strings.TrimSpace(q.Get("session")),
		From:       strings.TrimSpace(q.Get("from")),
		To:         strings.TrimSpace(q.Get("to")),
		Channel:    strings.TrimSpace(q.Get("channel")),
		Since:      since,
		SinceID:    sinceID,
		UnreadOnly: q.Get("unread") == "true",
		Limit:      limit,
		// Newest first for the dashboard table.
		Descending: true,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	if msgs == nil {
		msgs = []core.Message{}
	}
	s.respond(w, http.StatusOK, msgs)
}

type markReadRequest struct {
	IDs    []int64 `json:"ids"`
	Reader string  `json:"reader"`
}

type markReadResponse struct {
	MarkedRead int `json:"marked_read"`
}

func (s *Service) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Reader) == "" {
		s.badRequest(w, "reader required")
		return
	}
	count, err := s.store.MarkRead(req.IDs, req.Reader)
	if err != nil {
		s.fail(w, err)
		return
	}
	metrics.MessagesMarkedRead.Add(float64(count))
	s.respond(w, http.StatusOK, markReadResponse{MarkedRead: count})
}
