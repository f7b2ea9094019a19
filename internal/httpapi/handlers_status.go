package httpapi

import (
	"net/http"

	"github.com/hasna/convo/internal/storage"
)

type statusResponse struct {
	DBPath string `json:"db_path,omitempty"`
	storage.Stats
}

// Pather is implemented by stores that can report their backing file.
type Pather interface {
	Path() string
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := statusResponse{Stats: stats}
	if p, ok := s.store.(Pather); ok {
		resp.DBPath = p.Path()
	}
	s.respond(w, http.StatusOK, resp)
}
