package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hasna/convo/internal/core"
	"github.com/hasna/convo/internal/metrics"
)

func (s *Service) handleListSessions(w http.ResponseWriter, r *http.Request) {
	agent := strings.TrimSpace(r.URL.Query().Get("agent"))
	sessions, err := s.store.ListSessions(agent)
	if err != nil {
		s.fail(w, err)
		return
	}
	if sessions == nil {
		sessions = []core.Session{}
	}
	s.respond(w, http.StatusOK, sessions)
}

func (s *Service) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	agent := strings.TrimSpace(r.URL.Query().Get("agent"))
	session, err := s.store.GetSession(id, agent)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, session)
}

type sessionReadRequest struct {
	Reader string `json:"reader"`
}

func (s *Service) handleMarkSessionRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req sessionReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Reader) == "" {
		s.badRequest(w, "reader required")
		return
	}
	count, err := s.store.MarkSessionRead(id, req.Reader)
	if err != nil {
		s.fail(w, err)
		return
	}
	metrics.MessagesMarkedRead.Add(float64(count))
	s.respond(w, http.StatusOK, markReadResponse{MarkedRead: count})
}
