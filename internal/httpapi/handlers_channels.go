package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hasna/convo/internal/core"
	"github.com/hasna/convo/internal/metrics"
)

type createChannelRequest struct {
	Name        string `json:"name"`
	CreatedBy   string `json:"created_by"`
	Description string `json:"description,omitempty"`
}

func (s *Service) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var req createChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid JSON body")
		return
	}
	channel, err := s.store.CreateChannel(req.Name, req.CreatedBy, req.Description)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusCreated, channel)
}

func (s *Service) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.store.ListChannels()
	if err != nil {
		s.fail(w, err)
		return
	}
	if channels == nil {
		channels = []core.ChannelInfo{}
	}
	s.respond(w, http.StatusOK, channels)
}

func (s *Service) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.GetChannel(chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, info)
}

func (s *Service) handleChannelMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.store.ChannelMembers(chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if members == nil {
		members = []core.ChannelMember{}
	}
	s.respond(w, http.StatusOK, members)
}

type membershipRequest struct {
	Agent string `json:"agent"`
}

type membershipResponse struct {
	OK bool `json:"ok"`
}

func (s *Service) handleJoinChannel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req membershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Agent) == "" {
		s.badRequest(w, "agent required")
		return
	}
	ok, err := s.store.JoinChannel(name, req.Agent)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !ok {
		s.respond(w, http.StatusNotFound, errorBody{Error: "channel " + name + " not found"})
		return
	}
	s.respond(w, http.StatusOK, membershipResponse{OK: true})
}

func (s *Service) handleLeaveChannel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req membershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Agent) == "" {
		s.badRequest(w, "agent required")
		return
	}
	removed, err := s.store.LeaveChannel(name, req.Agent)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, membershipResponse{OK: removed})
}

type channelReadRequest struct {
	Reader string `json:"reader"`
}

func (s *Service) handleMarkChannelRead(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req channelReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Reader) == "" {
		s.badRequest(w, "reader required")
		return
	}
	count, err := s.store.MarkChannelRead(name, req.Reader)
	if err != nil {
		s.fail(w, err)
		return
	}
	metrics.MessagesMarkedRead.Add(float64(count))
	s.respond(w, http.StatusOK, markReadResponse{MarkedRead: count})
}
