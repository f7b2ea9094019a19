// Package httpapi is the dashboard's REST surface. All validation,
// trimming and status-code mapping happens here; the store only sees
// clean arguments.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hasna/convo/internal/storage"
)

// Broadcaster pushes events to live websocket clients.
type Broadcaster interface {
	Broadcast(agent string, event any)
}

type Service struct {
	store storage.Store
	bus   Broadcaster
	log   zerolog.Logger
}

func NewService(store storage.Store, log zerolog.Logger) *Service {
	return &Service{store: store, log: log}
}

func (s *Service) WithBroadcaster(b Broadcaster) *Service {
	s.bus = b
	return s
}

func (s *Service) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// fail maps the storage error taxonomy onto HTTP status codes.
func (s *Service) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.respond(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, storage.ErrDuplicate):
		s.respond(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, storage.ErrInvalidArgument):
		s.respond(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, storage.ErrBusy):
		w.Header().Set("Retry-After", "1")
		s.respond(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	default:
		s.log.Error().Err(err).Msg("internal error")
		s.respond(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func (s *Service) badRequest(w http.ResponseWriter, msg string) {
	s.respond(w, http.StatusBadRequest, errorBody{Error: msg})
}
